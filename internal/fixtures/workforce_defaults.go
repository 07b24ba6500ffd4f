package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/payroll"
	"github.com/buildcrew/workforce-engine/internal/domain/project"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/shopspring/decimal"
)

// ==========================================
// HELPER FUNCTIONS
// ==========================================

func strPtr(s string) *string       { return &s }
func float64Ptr(f float64) *float64 { return &f }
func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// ==========================================
// SEEDED DATA RESULT
// ==========================================

// SeededData holds IDs of the demo directory written by SeedDemo.
type SeededData struct {
	ProjectIDs    []string
	WorkerIDs     []string
	LedgerEntries int
}

// ==========================================
// DEFAULT PAYROLL SETTINGS
// ==========================================

// DefaultPayrollSettings returns an 8-hour day, 1.5x overtime and a 7 day
// payment window with every statutory deduction switched off.
func DefaultPayrollSettings() payroll.Settings {
	return payroll.Settings{
		StandardHours:         decimal.NewFromInt(8),
		OvertimeMultiplier:    decimal.RequireFromString("1.5"),
		PaymentDueDays:        7,
		ProvidentFundRate:     decimal.NewFromInt(12),
		StateInsuranceRate:    decimal.RequireFromString("0.75"),
		ProfessionalTaxAmount: decimal.NewFromInt(200),
		IncomeTaxRate:         decimal.Zero,
	}
}

// ==========================================
// DEMO PROJECTS
// ==========================================

// GetDemoProjects returns two sites with coordinates for geofenced scans.
func GetDemoProjects() []project.Project {
	return []project.Project{
		{
			ID:        "PRJ-TOWER-A",
			Name:      "Tower A",
			Location:  "MG Road, Bengaluru",
			Latitude:  float64Ptr(12.9716),
			Longitude: float64Ptr(77.5946),
		},
		{
			ID:        "PRJ-METRO-7",
			Name:      "Metro Line 7 Depot",
			Location:  "Whitefield, Bengaluru",
			Latitude:  float64Ptr(12.9698),
			Longitude: float64Ptr(77.7500),
		},
	}
}

// ==========================================
// DEMO WORKERS
// ==========================================

// GetDemoWorkers returns one worker per wage type plus an inactive one.
func GetDemoWorkers() []worker.Worker {
	return []worker.Worker{
		{
			ID:             "WRK-0001",
			Name:           "Ravi Kumar",
			Status:         worker.StatusActive,
			Department:     "civil",
			EmploymentType: worker.EmploymentTypeDailyWage,
			ProjectID:      strPtr("PRJ-TOWER-A"),
			Wage: &worker.WageConfig{
				Type:            worker.WageTypeDaily,
				DailyRate:       decimal.NewFromInt(500),
				OvertimeEnabled: true,
				PaymentMethod:   worker.PaymentMethodCash,
			},
		},
		{
			ID:             "WRK-0002",
			Name:           "Lakshmi Devi",
			Status:         worker.StatusActive,
			Department:     "electrical",
			EmploymentType: worker.EmploymentTypeContract,
			ProjectID:      strPtr("PRJ-TOWER-A"),
			Wage: &worker.WageConfig{
				Type:            worker.WageTypeHourly,
				HourlyRate:      decimal.NewFromInt(90),
				OvertimeEnabled: true,
				OvertimeRate:    decPtr("110"),
				PaymentMethod:   worker.PaymentMethodUPI,
			},
		},
		{
			ID:             "WRK-0003",
			Name:           "Arjun Singh",
			Status:         worker.StatusActive,
			Department:     "supervision",
			EmploymentType: worker.EmploymentTypePermanent,
			ProjectID:      strPtr("PRJ-METRO-7"),
			Wage: &worker.WageConfig{
				Type:          worker.WageTypeFixed,
				FixedSalary:   decimal.NewFromInt(32000),
				PaymentMethod: worker.PaymentMethodBankTransfer,
			},
		},
		{
			ID:             "WRK-0004",
			Name:           "Mohan Das",
			Status:         worker.StatusInactive,
			Department:     "civil",
			EmploymentType: worker.EmploymentTypeSubcontractor,
			ProjectID:      strPtr("PRJ-METRO-7"),
			Wage: &worker.WageConfig{
				Type:      worker.WageTypeDaily,
				DailyRate: decimal.NewFromInt(450),
			},
		},
	}
}

// ==========================================
// DEMO LEDGER
// ==========================================

// GetDemoLedgerEntries returns an advance and a canteen deduction dated in
// the month of now.
func GetDemoLedgerEntries(now time.Time) []payroll.LedgerEntry {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return []payroll.LedgerEntry{
		{
			WorkerID:  "WRK-0001",
			Kind:      payroll.LedgerAdvance,
			Label:     "advance",
			Amount:    decimal.NewFromInt(1000),
			EntryDate: monthStart.AddDate(0, 0, 4),
		},
		{
			WorkerID:  "WRK-0001",
			Kind:      payroll.LedgerDeduction,
			Label:     "canteen",
			Amount:    decimal.NewFromInt(350),
			EntryDate: monthStart.AddDate(0, 0, 9),
		},
	}
}

// SeedDemo writes the demo directory and ledger. It is meant for memory storage.
func SeedDemo(ctx context.Context, workers worker.Repository, projects project.Repository, ledger payroll.LedgerRepository, now time.Time) (*SeededData, error) {
	seeded := &SeededData{}

	for _, p := range GetDemoProjects() {
		if err := projects.Save(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to seed project %s: %w", p.ID, err)
		}
		seeded.ProjectIDs = append(seeded.ProjectIDs, p.ID)
	}

	for _, w := range GetDemoWorkers() {
		if err := workers.Save(ctx, w); err != nil {
			return nil, fmt.Errorf("failed to seed worker %s: %w", w.ID, err)
		}
		seeded.WorkerIDs = append(seeded.WorkerIDs, w.ID)
	}

	for _, entry := range GetDemoLedgerEntries(now) {
		if _, err := ledger.AddEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to seed ledger entry for %s: %w", entry.WorkerID, err)
		}
		seeded.LedgerEntries++
	}

	return seeded, nil
}
