package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/buildcrew/workforce-engine/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	workers := memory.NewWorkerRepository()
	projects := memory.NewProjectRepository()
	ledger := memory.NewLedgerRepository()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	seeded, err := SeedDemo(ctx, workers, projects, ledger, now)
	require.NoError(t, err)

	assert.Len(t, seeded.ProjectIDs, 2)
	assert.Len(t, seeded.WorkerIDs, 4)
	assert.Equal(t, 2, seeded.LedgerEntries)

	active, err := workers.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3, "the subcontractor is inactive")

	site, err := projects.GetByID(ctx, "PRJ-TOWER-A")
	require.NoError(t, err)
	assert.True(t, site.HasCoordinates())

	outstanding, err := ledger.GetOutstanding(ctx, "WRK-0001", attendance.MonthPeriod(2024, time.March, time.UTC))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(outstanding.Advances))
	assert.True(t, decimal.NewFromInt(350).Equal(outstanding.Deductions["canteen"]))
}

func TestGetDemoWorkers_WageTypes(t *testing.T) {
	seen := make(map[worker.WageType]bool)
	for _, w := range GetDemoWorkers() {
		require.NotNil(t, w.Wage, w.ID)
		seen[w.Wage.Type] = true
	}

	assert.True(t, seen[worker.WageTypeDaily])
	assert.True(t, seen[worker.WageTypeHourly])
	assert.True(t, seen[worker.WageTypeFixed])
}

func TestDefaultPayrollSettings(t *testing.T) {
	s := DefaultPayrollSettings()

	assert.True(t, decimal.NewFromInt(8).Equal(s.StandardHours))
	assert.True(t, decimal.RequireFromString("1.5").Equal(s.OvertimeMultiplier))
	assert.False(t, s.ProvidentFundEnabled)
	assert.False(t, s.IncomeTaxEnabled)
}
