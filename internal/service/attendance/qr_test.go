package attendance

import (
	"testing"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQRPayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    QRPayload
		wantErr bool
	}{
		{"bare worker id", "W-001", QRPayload{WorkerID: "W-001"}, false},
		{"bare id with whitespace", "  W-001\n", QRPayload{WorkerID: "W-001"}, false},
		{"json with project", `{"workerId":"W-001","projectId":"P_7"}`, QRPayload{WorkerID: "W-001", ProjectID: "P_7"}, false},
		{"json without project", `{"workerId":"W-001"}`, QRPayload{WorkerID: "W-001"}, false},
		{"broken json", `{"workerId":`, QRPayload{}, true},
		{"json missing worker", `{"projectId":"P1"}`, QRPayload{}, true},
		{"invalid characters", "W 001; DROP", QRPayload{}, true},
		{"bad project id", `{"workerId":"W1","projectId":"p/1"}`, QRPayload{}, true},
		{"empty", "", QRPayload{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQRPayload(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, attendance.ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
