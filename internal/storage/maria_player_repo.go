package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/annel0/blockmap/internal/vec"
	_ "github.com/go-sql-driver/mysql"
)

// MariaPlayerRepo реализует PlayerRepo для MariaDB/MySQL (таблица map_players).
type MariaPlayerRepo struct {
	db *sql.DB
}

// NewMariaPlayerRepo подключается к базе и создаёт таблицу при необходимости.
//
// dsn - строка подключения (user:pass@tcp(host:port)/dbname?parseTime=true)
func NewMariaPlayerRepo(dsn string) (*MariaPlayerRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaPlayerRepo{db: db}
	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}
	return repo, nil
}

func (r *MariaPlayerRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS map_players (
			id         VARCHAR(64)  PRIMARY KEY,
			name       VARCHAR(64)  NOT NULL,
			world      VARCHAR(64)  NOT NULL,
			x          DOUBLE       NOT NULL,
			z          DOUBLE       NOT NULL,
			updated_at TIMESTAMP    DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE    CURRENT_TIMESTAMP,
			INDEX idx_world (world)
		) ENGINE=InnoDB
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы map_players: %w", err)
	}
	return nil
}

func (r *MariaPlayerRepo) Save(ctx context.Context, p PlayerPosition) error {
	if p.ID == "" {
		return fmt.Errorf("недействительный id игрока")
	}
	query := `
		INSERT INTO map_players (id, name, world, x, z)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name),
			world = VALUES(world),
			x = VALUES(x),
			z = VALUES(z),
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.World, p.Pos.X, p.Pos.Z); err != nil {
		return fmt.Errorf("ошибка сохранения позиции игрока %s: %w", p.ID, err)
	}
	return nil
}

func (r *MariaPlayerRepo) Load(ctx context.Context, id string) (PlayerPosition, bool, error) {
	query := `SELECT id, name, world, x, z, updated_at FROM map_players WHERE id = ?`

	var p PlayerPosition
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.World, &p.Pos.X, &p.Pos.Z, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return PlayerPosition{}, false, nil
	}
	if err != nil {
		return PlayerPosition{}, false, fmt.Errorf("ошибка загрузки позиции игрока %s: %w", id, err)
	}
	return p, true, nil
}

func (r *MariaPlayerRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM map_players WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции игрока %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("позиция игрока %s не найдена", id)
	}
	return nil
}

func (r *MariaPlayerRepo) List(ctx context.Context, world string) ([]PlayerPosition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, world, x, z, updated_at FROM map_players WHERE world = ? ORDER BY name, id`, world)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения игроков мира %s: %w", world, err)
	}
	defer rows.Close()

	var out []PlayerPosition
	for rows.Next() {
		var p PlayerPosition
		var x, z float64
		if err := rows.Scan(&p.ID, &p.Name, &p.World, &x, &z, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка разбора строки игрока: %w", err)
		}
		p.Pos = vec.Pt(x, z)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close закрывает соединение с базой данных.
func (r *MariaPlayerRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
