package attendance

import (
	"testing"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/project"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/stretchr/testify/assert"
)

func TestCanScan(t *testing.T) {
	at := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	in := &attendance.Entry{Timestamp: at, Method: attendance.MethodQRScan}
	out := &attendance.Entry{Timestamp: at.Add(8 * time.Hour), Method: attendance.MethodQRScan}

	active := worker.Worker{ID: "W1", Status: worker.StatusActive}
	suspended := worker.Worker{ID: "W1", Status: worker.StatusSuspended}

	clockedIn := &attendance.Record{WorkerID: "W1", ClockIn: in, Status: attendance.StatusPresent}
	clockedOut := &attendance.Record{WorkerID: "W1", ClockIn: in, ClockOut: out, Status: attendance.StatusPresent}
	onLeave := &attendance.Record{WorkerID: "W1", Status: attendance.StatusOnLeave}

	tests := []struct {
		name     string
		existing *attendance.Record
		action   attendance.Action
		worker   worker.Worker
		allowed  bool
		code     attendance.DenialCode
		reason   string
	}{
		{"first clock in", nil, attendance.ActionClockIn, active, true, "", ""},
		{"clock out without record", nil, attendance.ActionClockOut, active, false, attendance.DenialNoClockIn, "no clock-in record found for today"},
		{"double clock in", clockedIn, attendance.ActionClockIn, active, false, attendance.DenialAlreadyClockedIn, "already clocked in today"},
		{"clock out after clock in", clockedIn, attendance.ActionClockOut, active, true, "", ""},
		{"clock in after completion", clockedOut, attendance.ActionClockIn, active, false, attendance.DenialAlreadyCompleted, "already completed attendance for today"},
		{"double clock out", clockedOut, attendance.ActionClockOut, active, false, attendance.DenialAlreadyClockedOut, "already clocked out today"},
		{"declared day", onLeave, attendance.ActionClockIn, active, false, attendance.DenialAlreadyDeclared, "attendance already recorded as on_leave for today"},
		{"inactive worker", nil, attendance.ActionClockIn, suspended, false, attendance.DenialWorkerNotActive, "worker is suspended"},
		{"record rules before worker status", clockedIn, attendance.ActionClockIn, suspended, false, attendance.DenialAlreadyClockedIn, "already clocked in today"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanScan(tt.existing, tt.action, tt.worker)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.code, d.Code)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestCheckGeofence(t *testing.T) {
	siteLat, siteLon := -6.2088, 106.8456
	site := project.Project{ID: "P1", Name: "Tower A", Latitude: &siteLat, Longitude: &siteLon}

	nearLat, nearLon := -6.2090, 106.8458
	farLat, farLon := -6.3000, 106.9000

	assert.True(t, CheckGeofence(&nearLat, &nearLon, site, 200).Allowed)

	d := CheckGeofence(&farLat, &farLon, site, 200)
	assert.False(t, d.Allowed)
	assert.Equal(t, attendance.DenialOutsideRadius, d.Code)
	assert.Equal(t, "outside the allowed radius of site Tower A", d.Reason)

	assert.True(t, CheckGeofence(&farLat, &farLon, site, 0).Allowed, "disabled radius")
	assert.True(t, CheckGeofence(nil, nil, site, 200).Allowed, "scan without coordinates")
	assert.True(t, CheckGeofence(&farLat, &farLon, project.Project{Name: "No GPS"}, 200).Allowed, "site without coordinates")
}
