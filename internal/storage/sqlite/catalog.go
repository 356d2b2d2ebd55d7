package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/payfees/internal/models"
	"github.com/mmynk/payfees/internal/storage"
)

// catalog implements storage.Catalog.
type catalog struct {
	q querier
}

const studentColumns = "id, name, grade, school_name, parent_phone"

// SearchStudents finds students by name or ID fragment.
func (c catalog) SearchStudents(ctx context.Context, query, phone string) ([]models.Student, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return c.queryStudents(ctx,
		`SELECT `+studentColumns+` FROM students
		 WHERE (LOWER(name) LIKE ? OR LOWER(id) LIKE ?)
		   AND (? = '' OR parent_phone = ?)
		 ORDER BY name`,
		pattern, pattern, phone, phone,
	)
}

// GetStudent retrieves a student by ID.
func (c catalog) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	st := &models.Student{}
	err := c.q.QueryRowContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE id = ?", id,
	).Scan(&st.ID, &st.Name, &st.Grade, &st.SchoolName, &st.ParentPhone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("student %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return st, nil
}

// StudentsByPhone lists students registered under a parent phone.
func (c catalog) StudentsByPhone(ctx context.Context, phone string) ([]models.Student, error) {
	return c.queryStudents(ctx,
		"SELECT "+studentColumns+" FROM students WHERE parent_phone = ? ORDER BY name",
		phone,
	)
}

func (c catalog) queryStudents(ctx context.Context, query string, args ...any) ([]models.Student, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	students := []models.Student{}
	for rows.Next() {
		var st models.Student
		if err := rows.Scan(&st.ID, &st.Name, &st.Grade, &st.SchoolName, &st.ParentPhone); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}
	return students, nil
}

// ListServices lists services, all of them when category is empty.
func (c catalog) ListServices(ctx context.Context, category string) ([]models.Service, error) {
	rows, err := c.q.QueryContext(ctx,
		`SELECT id, description, amount, category, recurring FROM services
		 WHERE (? = '' OR LOWER(category) = LOWER(?))
		 ORDER BY category, description`,
		category, category,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	services := []models.Service{}
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(&svc.ID, &svc.Description, &svc.Amount, &svc.Category, &svc.Recurring); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate services: %w", err)
	}
	return services, nil
}

// GetService retrieves a service by ID.
func (c catalog) GetService(ctx context.Context, id string) (*models.Service, error) {
	svc := &models.Service{}
	err := c.q.QueryRowContext(ctx,
		"SELECT id, description, amount, category, recurring FROM services WHERE id = ?", id,
	).Scan(&svc.ID, &svc.Description, &svc.Amount, &svc.Category, &svc.Recurring)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("service %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return svc, nil
}

// UpsertStudent inserts or replaces a student row.
func (c catalog) UpsertStudent(ctx context.Context, st models.Student) error {
	_, err := c.q.ExecContext(ctx,
		`INSERT INTO students (id, name, grade, school_name, parent_phone) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, grade = excluded.grade,
		   school_name = excluded.school_name, parent_phone = excluded.parent_phone`,
		st.ID, st.Name, st.Grade, st.SchoolName, st.ParentPhone,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert student: %w", err)
	}
	return nil
}

// UpsertService inserts or replaces a service row.
func (c catalog) UpsertService(ctx context.Context, svc models.Service) error {
	_, err := c.q.ExecContext(ctx,
		`INSERT INTO services (id, description, amount, category, recurring) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET description = excluded.description, amount = excluded.amount,
		   category = excluded.category, recurring = excluded.recurring`,
		svc.ID, svc.Description, svc.Amount, svc.Category, svc.Recurring,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert service: %w", err)
	}
	return nil
}
