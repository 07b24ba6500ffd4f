package validator

import (
	"errors"
	"testing"
	"time"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B",
	}
	invalid := []string{
		"123e4567-e89b-12d3-a456-426614174000", // not v7
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",     // missing dashes
		"",
	}
	for _, uuid := range valid {
		if !IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = false, want true", uuid)
		}
	}
	for _, uuid := range invalid {
		if IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = true, want false", uuid)
		}
	}
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"W-001", "worker_17", "abc"}
	invalid := []string{"", "has space", "semi;colon", "{\"json\":1}"}
	for _, s := range valid {
		if !IsValidIdentifier(s) {
			t.Errorf("IsValidIdentifier(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidIdentifier(s) {
			t.Errorf("IsValidIdentifier(%q) = true, want false", s)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", ""}
	for _, s := range valid {
		_, ok := IsValidDate(s)
		if !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		_, ok := IsValidDate(s)
		if ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsValidClockTime(t *testing.T) {
	cases := []struct {
		input string
		want  time.Duration
		ok    bool
	}{
		{"08:30", 8*time.Hour + 30*time.Minute, true},
		{"17:45:10", 17*time.Hour + 45*time.Minute + 10*time.Second, true},
		{"00:00", 0, true},
		{"24:00", 0, false},
		{"8.30", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := IsValidClockTime(c.input)
		if ok != c.ok || got != c.want {
			t.Errorf("IsValidClockTime(%q) = (%v, %v), want (%v, %v)", c.input, got, ok, c.want, c.ok)
		}
	}
}

func TestIsValidCoordinates(t *testing.T) {
	if !IsValidLatitude(-90) || !IsValidLatitude(12.97) || IsValidLatitude(90.1) {
		t.Errorf("IsValidLatitude bounds are wrong")
	}
	if !IsValidLongitude(180) || !IsValidLongitude(77.59) || IsValidLongitude(-180.5) {
		t.Errorf("IsValidLongitude bounds are wrong")
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"a", "b", "c"}
	if !IsInSlice("a", slice) {
		t.Errorf("IsInSlice('a') = false, want true")
	}
	if IsInSlice("d", slice) {
		t.Errorf("IsInSlice('d') = true, want false")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "clock_out", Message: "must be after clock_in"},
		{Field: "leave_type", Message: "required"},
	}
	got := errs.Error()
	want := "clock_out: must be after clock_in; leave_type: required"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_Unwrap(t *testing.T) {
	sentinel := errors.New("invalid time range")
	var err error = ValidationErrors{
		{Field: "worker_id", Message: "required"},
		{Field: "clock_out", Message: "must be after clock_in", Err: sentinel},
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("errors.Is(ValidationErrors, sentinel) = false, want true")
	}
	if errors.Is(err, errors.New("other")) {
		t.Errorf("errors.Is matched an unrelated error")
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "status", Message: "invalid"},
		{Field: "date", Message: "required"},
	}
	got := errs.ToMap()
	want := map[string]string{"status": "invalid", "date": "required"}
	if len(got) != len(want) {
		t.Errorf("ValidationErrors.ToMap() length = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ValidationErrors.ToMap()[%q] = %q, want %q", k, got[k], v)
		}
	}
}
