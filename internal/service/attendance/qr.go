package attendance

import (
	"encoding/json"
	"strings"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/pkg/validator"
)

// QRPayload is what a worker badge encodes.
type QRPayload struct {
	WorkerID  string `json:"workerId"`
	ProjectID string `json:"projectId,omitempty"`
}

// ParseQRPayload accepts either a JSON object or a bare worker ID.
func ParseQRPayload(raw string) (QRPayload, error) {
	raw = strings.TrimSpace(raw)

	var payload QRPayload
	if strings.HasPrefix(raw, "{") {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return QRPayload{}, invalidPayload("payload is not valid JSON")
		}
	} else {
		payload.WorkerID = raw
	}

	payload.WorkerID = strings.TrimSpace(payload.WorkerID)
	payload.ProjectID = strings.TrimSpace(payload.ProjectID)

	if !validator.IsValidIdentifier(payload.WorkerID) {
		return QRPayload{}, invalidPayload("payload does not contain a valid worker id")
	}
	if payload.ProjectID != "" && !validator.IsValidIdentifier(payload.ProjectID) {
		return QRPayload{}, invalidPayload("payload contains an invalid project id")
	}

	return payload, nil
}

func invalidPayload(msg string) error {
	return validator.ValidationErrors{{
		Field:   "payload",
		Message: msg,
		Err:     attendance.ErrInvalidPayload,
	}}
}
