// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/payfees/internal/models"
)

// ErrNotFound is returned when a key or row does not exist.
var ErrNotFound = errors.New("not found")

// KV is a key-value view over the store. Keys are strings; values are
// arbitrary JSON documents.
type KV interface {
	// Get returns the raw value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Store defines the persistence operations used by the backend.
// This abstraction allows swapping storage backends (SQLite, a hosted
// key-value service, etc.) without changing the service layer.
type Store interface {
	KV

	// Update runs fn inside a single transaction. Every write made through
	// the KV passed to fn commits together or not at all.
	Update(ctx context.Context, fn func(tx KV) error) error

	// Catalog returns the reference data store.
	Catalog() Catalog

	// Close releases any resources held by the store.
	Close() error
}

// Catalog provides read access to school reference data.
type Catalog interface {
	// SearchStudents matches query against student name and ID
	// (case-insensitive substring). A non-empty phone restricts results to
	// students whose parent phone matches.
	SearchStudents(ctx context.Context, query, phone string) ([]models.Student, error)

	// GetStudent returns a student by ID, or ErrNotFound.
	GetStudent(ctx context.Context, id string) (*models.Student, error)

	// StudentsByPhone returns all students whose parent phone matches.
	StudentsByPhone(ctx context.Context, phone string) ([]models.Student, error)

	// ListServices returns every service, optionally restricted to a category.
	ListServices(ctx context.Context, category string) ([]models.Service, error)

	// GetService returns a service by ID, or ErrNotFound.
	GetService(ctx context.Context, id string) (*models.Service, error)

	// UpsertStudent inserts or replaces a student.
	UpsertStudent(ctx context.Context, s models.Student) error

	// UpsertService inserts or replaces a service.
	UpsertService(ctx context.Context, s models.Service) error
}
