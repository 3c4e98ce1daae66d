package scheduler

import "github.com/annel0/blockmap/internal/vec"

// urgentQueue очередь инвалидированных регионов. Выдаётся раньше спирали,
// повторная постановка уже стоящего в очереди региона ничего не меняет.
type urgentQueue struct {
	items  []vec.RegionCoord
	queued map[vec.RegionCoord]struct{}
}

func newUrgentQueue() *urgentQueue {
	return &urgentQueue{queued: make(map[vec.RegionCoord]struct{})}
}

// push возвращает false, если регион уже в очереди
func (q *urgentQueue) push(r vec.RegionCoord) bool {
	if _, ok := q.queued[r]; ok {
		return false
	}
	q.queued[r] = struct{}{}
	q.items = append(q.items, r)
	return true
}

func (q *urgentQueue) pop() (vec.RegionCoord, bool) {
	if len(q.items) == 0 {
		return vec.RegionCoord{}, false
	}
	r := q.items[0]
	q.items[0] = vec.RegionCoord{}
	q.items = q.items[1:]
	delete(q.queued, r)
	return r, true
}

func (q *urgentQueue) len() int {
	return len(q.items)
}

func (q *urgentQueue) clear() {
	q.items = nil
	q.queued = make(map[vec.RegionCoord]struct{})
}
