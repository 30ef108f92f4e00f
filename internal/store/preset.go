package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Preset is a named session configuration. Config is opaque JSON owned by the caller.
type Preset struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Config    json.RawMessage `json:"config"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PresetRepository provides CRUD operations for presets.
type PresetRepository struct {
	db *sql.DB
}

// Presets returns the preset repository for this store.
func (s *Store) Presets() *PresetRepository {
	return &PresetRepository{db: s.db}
}

// Create inserts p, assigning an ID when it has none.
func (r *PresetRepository) Create(p *Preset) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if len(p.Config) == 0 {
		p.Config = json.RawMessage(`{}`)
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO presets (id, name, config, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.Config), p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID returns the preset with id.
func (r *PresetRepository) GetByID(id string) (*Preset, error) {
	return r.scanOne(r.db.QueryRow(
		`SELECT id, name, config, created_at, updated_at FROM presets WHERE id = ?`, id,
	))
}

// GetByName returns the preset called name.
func (r *PresetRepository) GetByName(name string) (*Preset, error) {
	return r.scanOne(r.db.QueryRow(
		`SELECT id, name, config, created_at, updated_at FROM presets WHERE name = ?`, name,
	))
}

func (r *PresetRepository) scanOne(row *sql.Row) (*Preset, error) {
	var (
		p      Preset
		config string
	)
	err := row.Scan(&p.ID, &p.Name, &config, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Config = json.RawMessage(config)
	return &p, nil
}

// List returns every preset ordered by name.
func (r *PresetRepository) List() ([]*Preset, error) {
	rows, err := r.db.Query(`SELECT id, name, config, created_at, updated_at FROM presets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []*Preset
	for rows.Next() {
		var (
			p      Preset
			config string
		)
		if err := rows.Scan(&p.ID, &p.Name, &config, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Config = json.RawMessage(config)
		presets = append(presets, &p)
	}
	return presets, rows.Err()
}

// Update replaces the name and config of p.ID.
func (r *PresetRepository) Update(p *Preset) error {
	p.UpdatedAt = time.Now()
	result, err := r.db.Exec(
		`UPDATE presets SET name = ?, config = ?, updated_at = ? WHERE id = ?`,
		p.Name, string(p.Config), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	return requireOne(result)
}

// Delete removes the preset with id.
func (r *PresetRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM presets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireOne(result)
}

func requireOne(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
