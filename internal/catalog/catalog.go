// Package catalog serves school reference data: students and the fee items
// that can be paid for them.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/payfees/internal/models"
	"github.com/mmynk/payfees/internal/storage"
	"github.com/mmynk/payfees/internal/validation"
)

// Service reads students and services from a storage.Catalog.
type Service struct {
	store storage.Catalog
}

// NewService creates a catalog Service.
func NewService(store storage.Catalog) *Service {
	return &Service{store: store}
}

// Search matches query against student names and IDs. A non-empty phone
// restricts results to that parent's students.
func (s *Service) Search(ctx context.Context, query, phone string) ([]models.Student, error) {
	if phone != "" {
		phone = validation.NormalizePhone(phone)
	}
	students, err := s.store.SearchStudents(ctx, strings.TrimSpace(query), phone)
	if err != nil {
		return nil, fmt.Errorf("failed to search students: %w", err)
	}
	slog.Debug("Student search", "query", query, "results", len(students))
	return students, nil
}

// Student returns one student; storage.ErrNotFound when unknown.
func (s *Service) Student(ctx context.Context, id string) (*models.Student, error) {
	return s.store.GetStudent(ctx, id)
}

// StudentsByPhone lists the students registered under a parent phone.
func (s *Service) StudentsByPhone(ctx context.Context, phone string) ([]models.Student, error) {
	if msg := validation.Phone(phone); msg != "" {
		return nil, &ValidationError{Message: msg}
	}
	return s.store.StudentsByPhone(ctx, validation.NormalizePhone(phone))
}

// Services lists every fee item.
func (s *Service) Services(ctx context.Context) ([]models.Service, error) {
	return s.store.ListServices(ctx, "")
}

// ServicesByCategory lists the fee items in one category.
func (s *Service) ServicesByCategory(ctx context.Context, category string) ([]models.Service, error) {
	if strings.TrimSpace(category) == "" {
		return nil, &ValidationError{Message: "Category is required"}
	}
	return s.store.ListServices(ctx, strings.ToLower(category))
}

// Service returns one fee item; storage.ErrNotFound when unknown.
func (s *Service) Service(ctx context.Context, id string) (*models.Service, error) {
	return s.store.GetService(ctx, id)
}

// ValidationError reports a malformed lookup.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
