package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"settings", "presets"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s should exist: %v", table, err)
		}
	}

	// Migrations are idempotent.
	if err := s.runMigrations(); err != nil {
		t.Errorf("second runMigrations() error = %v", err)
	}
}

func TestNewStore_InMemory(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	defer s.Close()

	if err := s.Settings().Set("a", "1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, err := s.Settings().Get("a"); err != nil || v != "1" {
		t.Errorf("Get() = %q, %v", v, err)
	}
}

func TestSettingsRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if _, err := repo.Get("rotation_threshold"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	if err := repo.Set("rotation_threshold", "30"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set("rotation_threshold", "45"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if v, _ := repo.Get("rotation_threshold"); v != "45" {
		t.Errorf("Get() = %q, want 45", v)
	}

	if err := repo.SetAll(map[string]string{"tap_threshold": "35", "mirror": "false"}); err != nil {
		t.Fatalf("SetAll() error = %v", err)
	}
	all, err := repo.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 3 || all["tap_threshold"] != "35" || all["mirror"] != "false" {
		t.Errorf("All() = %v", all)
	}

	if err := repo.Delete("mirror"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := repo.Delete("mirror"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestPresetRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Presets()

	p := &Preset{Name: "morning", Config: json.RawMessage(`{"kinds":["rotation"]}`)}
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.ID == "" {
		t.Fatal("Create() should assign an ID")
	}

	t.Run("duplicate name", func(t *testing.T) {
		if err := repo.Create(&Preset{Name: "morning"}); err == nil {
			t.Error("expected error for duplicate name")
		}
	})

	t.Run("get", func(t *testing.T) {
		byID, err := repo.GetByID(p.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if byID.Name != "morning" || string(byID.Config) != `{"kinds":["rotation"]}` {
			t.Errorf("GetByID() = %+v", byID)
		}

		byName, err := repo.GetByName("morning")
		if err != nil || byName.ID != p.ID {
			t.Errorf("GetByName() = %+v, %v", byName, err)
		}

		if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list and update", func(t *testing.T) {
		if err := repo.Create(&Preset{Name: "evening"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		list, err := repo.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(list) != 2 || list[0].Name != "evening" || string(list[0].Config) != "{}" {
			t.Errorf("List() = %+v", list)
		}

		p.Config = json.RawMessage(`{"kinds":["finger-tap"]}`)
		if err := repo.Update(p); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		got, _ := repo.GetByID(p.ID)
		if string(got.Config) != `{"kinds":["finger-tap"]}` {
			t.Errorf("config after Update = %s", got.Config)
		}

		if err := repo.Update(&Preset{ID: "missing", Name: "x"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.Delete(p.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := repo.Delete(p.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second Delete() error = %v, want ErrNotFound", err)
		}
	})
}
