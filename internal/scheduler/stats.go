package scheduler

// Stats счётчики планировщика
type Stats struct {
	State           State  `json:"state"`
	Dispatched      uint64 `json:"dispatched"`
	Completed       uint64 `json:"completed"`
	Failed          uint64 `json:"failed"`
	Placeholders    uint64 `json:"placeholders"`
	Retries         uint64 `json:"retries"`
	Invalidations   uint64 `json:"invalidations"`
	Coalesced       uint64 `json:"coalesced"`
	FullRenders     uint64 `json:"full_renders"`
	Queued          int    `json:"queued"`
	InFlight        int    `json:"in_flight"`
	SpiralRemaining int    `json:"spiral_remaining"`
	SpiralTotal     int    `json:"spiral_total"`
}

// Stats снимок счётчиков
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.State = s.state
	st.Queued = s.urgent.len()
	st.InFlight = len(s.inflight)
	st.SpiralRemaining = s.spiral.Remaining()
	st.SpiralTotal = s.spiral.Len()
	return st
}
