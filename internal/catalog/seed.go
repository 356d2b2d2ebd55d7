package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/payfees/internal/models"
	"github.com/mmynk/payfees/internal/storage"
)

// DemoSchool is the school the demo data belongs to.
const DemoSchool = "Kampala Parents School"

// DemoStudents are loaded into an empty catalog.
var DemoStudents = []models.Student{
	{ID: "STU001", Name: "Aisha Nakato", Grade: "P.5", SchoolName: DemoSchool, ParentPhone: "256700123456"},
	{ID: "STU002", Name: "Brian Okello", Grade: "P.3", SchoolName: DemoSchool, ParentPhone: "256700123456"},
	{ID: "STU003", Name: "Catherine Achieng", Grade: "S.2", SchoolName: DemoSchool, ParentPhone: "256772987654"},
	{ID: "STU004", Name: "David Mugisha", Grade: "S.4", SchoolName: DemoSchool, ParentPhone: "256752555000"},
}

// DemoServices are loaded into an empty catalog.
var DemoServices = []models.Service{
	{ID: "tuition", Description: "Tuition fees (Term 1)", Amount: 850000, Category: "tuition", Recurring: true},
	{ID: "boarding", Description: "Boarding fees (Term 1)", Amount: 600000, Category: "boarding", Recurring: true},
	{ID: "uniform", Description: "School uniform set", Amount: 120000, Category: "supplies"},
	{ID: "books", Description: "Textbooks and stationery", Amount: 95000, Category: "supplies"},
	{ID: "trip", Description: "Educational trip", Amount: 75000, Category: "activities"},
	{ID: "exam", Description: "Examination fees", Amount: 50000, Category: "tuition"},
}

// SeedDemo loads the demo school when the catalog has no services yet.
// It reports whether anything was written.
func SeedDemo(ctx context.Context, store storage.Catalog) (bool, error) {
	existing, err := store.ListServices(ctx, "")
	if err != nil {
		return false, fmt.Errorf("failed to check catalog: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	for _, st := range DemoStudents {
		if err := store.UpsertStudent(ctx, st); err != nil {
			return false, fmt.Errorf("failed to seed student %s: %w", st.ID, err)
		}
	}
	for _, svc := range DemoServices {
		if err := store.UpsertService(ctx, svc); err != nil {
			return false, fmt.Errorf("failed to seed service %s: %w", svc.ID, err)
		}
	}

	slog.Info("Seeded demo catalog",
		"school", DemoSchool,
		"students", len(DemoStudents),
		"services", len(DemoServices),
	)
	return true, nil
}
