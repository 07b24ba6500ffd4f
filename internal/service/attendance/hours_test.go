package attendance

import (
	"testing"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHours(t *testing.T) {
	base := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		in, out  time.Duration
		expected string
	}{
		{"full shift with overtime", 8*time.Hour + 30*time.Minute, 17*time.Hour + 45*time.Minute, "9.25"},
		{"exact eight hours", 9 * time.Hour, 17 * time.Hour, "8"},
		{"twenty minutes rounds down", 9 * time.Hour, 9*time.Hour + 20*time.Minute, "0.33"},
		{"ten minutes rounds up", 9 * time.Hour, 9*time.Hour + 10*time.Minute, "0.17"},
		{"thirty seconds rounds half up", 9 * time.Hour, 9*time.Hour + 18*time.Second, "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hours, err := ComputeHours(base.Add(tt.in), base.Add(tt.out))
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(hours), "got %s", hours)
		})
	}
}

func TestComputeHours_InvalidInterval(t *testing.T) {
	at := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	_, err := ComputeHours(at, at)
	assert.ErrorIs(t, err, attendance.ErrInvalidInterval)

	_, err = ComputeHours(at, at.Add(-time.Minute))
	assert.ErrorIs(t, err, attendance.ErrInvalidInterval)
}

func TestComputeOvertime(t *testing.T) {
	eight := decimal.NewFromInt(8)

	assert.True(t, decimal.RequireFromString("1.25").Equal(ComputeOvertime(decimal.RequireFromString("9.25"), eight)))
	assert.True(t, decimal.Zero.Equal(ComputeOvertime(decimal.RequireFromString("7.5"), eight)))
	assert.True(t, decimal.Zero.Equal(ComputeOvertime(eight, eight)))
	assert.True(t, decimal.NewFromInt(2).Equal(ComputeOvertime(decimal.NewFromInt(10), decimal.Zero)), "non-positive standard falls back to 8")
}
