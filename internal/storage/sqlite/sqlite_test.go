package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/payfees/internal/models"
	"github.com/mmynk/payfees/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "payfees-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestKV(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("Get missing key returns ErrNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Set then Get round-trips value", func(t *testing.T) {
		if err := store.Set(ctx, "greeting", []byte(`{"hello":"world"}`)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := store.Get(ctx, "greeting")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != `{"hello":"world"}` {
			t.Errorf("Get = %s", got)
		}
	})

	t.Run("Set overwrites existing value", func(t *testing.T) {
		if err := store.Set(ctx, "counter", []byte("1")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := store.Set(ctx, "counter", []byte("2")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, _ := store.Get(ctx, "counter")
		if string(got) != "2" {
			t.Errorf("Get = %s, want 2", got)
		}
	})

	t.Run("Delete removes key and tolerates missing keys", func(t *testing.T) {
		store.Set(ctx, "doomed", []byte("x"))
		if err := store.Delete(ctx, "doomed"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := store.Get(ctx, "doomed"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := store.Delete(ctx, "never-existed"); err != nil {
			t.Errorf("Delete of missing key failed: %v", err)
		}
	})
}

func TestUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("commits all writes", func(t *testing.T) {
		err := store.Update(ctx, func(tx storage.KV) error {
			if err := tx.Set(ctx, "a", []byte("1")); err != nil {
				return err
			}
			return tx.Set(ctx, "b", []byte("2"))
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		for _, key := range []string{"a", "b"} {
			if _, err := store.Get(ctx, key); err != nil {
				t.Errorf("Get(%s) after commit: %v", key, err)
			}
		}
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.Update(ctx, func(tx storage.KV) error {
			if err := tx.Set(ctx, "orphan", []byte("1")); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Expected boom, got %v", err)
		}
		if _, err := store.Get(ctx, "orphan"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected rolled back write to be absent, got %v", err)
		}
	})

	t.Run("reads inside transaction see earlier writes", func(t *testing.T) {
		err := store.Update(ctx, func(tx storage.KV) error {
			if err := tx.Set(ctx, "seen", []byte("yes")); err != nil {
				return err
			}
			got, err := tx.Get(ctx, "seen")
			if err != nil {
				return err
			}
			if string(got) != "yes" {
				t.Errorf("tx.Get = %s, want yes", got)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	})
}

func TestCatalog(t *testing.T) {
	store := newTestStore(t)
	cat := store.Catalog()
	ctx := context.Background()

	students := []models.Student{
		{ID: "STU001", Name: "Sarah Namutebi", Grade: "P.5", SchoolName: "Kampala Primary", ParentPhone: "256700123456"},
		{ID: "STU002", Name: "David Okello", Grade: "P.3", SchoolName: "Kampala Primary", ParentPhone: "256700123456"},
		{ID: "STU003", Name: "Grace Akello", Grade: "S.1", SchoolName: "Kampala Primary", ParentPhone: "256711000000"},
	}
	for _, st := range students {
		if err := cat.UpsertStudent(ctx, st); err != nil {
			t.Fatalf("UpsertStudent failed: %v", err)
		}
	}
	services := []models.Service{
		{ID: "tuition", Description: "Tuition Fee", Amount: 150000, Category: "academic", Recurring: true},
		{ID: "transport", Description: "School Bus", Amount: 60000, Category: "transport"},
		{ID: "exam", Description: "Exam Fee", Amount: 20000, Category: "academic"},
	}
	for _, svc := range services {
		if err := cat.UpsertService(ctx, svc); err != nil {
			t.Fatalf("UpsertService failed: %v", err)
		}
	}

	t.Run("SearchStudents matches name case-insensitively", func(t *testing.T) {
		got, err := cat.SearchStudents(ctx, "okello", "")
		if err != nil {
			t.Fatalf("SearchStudents failed: %v", err)
		}
		// "Okello" matches David Okello and Grace Akello does not.
		if len(got) != 1 || got[0].ID != "STU002" {
			t.Errorf("SearchStudents = %+v", got)
		}
	})

	t.Run("SearchStudents matches ID and filters by phone", func(t *testing.T) {
		got, err := cat.SearchStudents(ctx, "stu", "256700123456")
		if err != nil {
			t.Fatalf("SearchStudents failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("Expected 2 students for phone, got %d", len(got))
		}
	})

	t.Run("SearchStudents with no match returns empty slice", func(t *testing.T) {
		got, err := cat.SearchStudents(ctx, "nobody", "")
		if err != nil {
			t.Fatalf("SearchStudents failed: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Expected empty non-nil slice, got %#v", got)
		}
	})

	t.Run("GetStudent", func(t *testing.T) {
		st, err := cat.GetStudent(ctx, "STU003")
		if err != nil {
			t.Fatalf("GetStudent failed: %v", err)
		}
		if st.Name != "Grace Akello" || st.Grade != "S.1" {
			t.Errorf("GetStudent = %+v", st)
		}
		if _, err := cat.GetStudent(ctx, "STU999"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("StudentsByPhone", func(t *testing.T) {
		got, err := cat.StudentsByPhone(ctx, "256711000000")
		if err != nil {
			t.Fatalf("StudentsByPhone failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != "STU003" {
			t.Errorf("StudentsByPhone = %+v", got)
		}
	})

	t.Run("ListServices all and by category", func(t *testing.T) {
		all, err := cat.ListServices(ctx, "")
		if err != nil {
			t.Fatalf("ListServices failed: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("Expected 3 services, got %d", len(all))
		}

		academic, err := cat.ListServices(ctx, "Academic")
		if err != nil {
			t.Fatalf("ListServices failed: %v", err)
		}
		if len(academic) != 2 {
			t.Errorf("Expected 2 academic services, got %d", len(academic))
		}
	})

	t.Run("GetService preserves recurring flag", func(t *testing.T) {
		svc, err := cat.GetService(ctx, "tuition")
		if err != nil {
			t.Fatalf("GetService failed: %v", err)
		}
		if !svc.Recurring || svc.Amount != 150000 {
			t.Errorf("GetService = %+v", svc)
		}
		if _, err := cat.GetService(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpsertService replaces existing row", func(t *testing.T) {
		if err := cat.UpsertService(ctx, models.Service{ID: "exam", Description: "Exam Fee", Amount: 25000, Category: "academic"}); err != nil {
			t.Fatalf("UpsertService failed: %v", err)
		}
		svc, _ := cat.GetService(ctx, "exam")
		if svc.Amount != 25000 {
			t.Errorf("Amount = %v, want 25000", svc.Amount)
		}
	})
}
