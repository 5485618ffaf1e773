package http

import (
	"testing"

	"splitledger/internal/core"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{"plain", "42", 42, false},
		{"padded", " 7 ", 7, false},
		{"zero", "0", 0, true},
		{"negative", "-3", 0, true},
		{"not a number", "abc", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID("id", tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil && !core.IsValidation(err) {
				t.Errorf("expected a validation error, got %T", err)
			}
			if got != tt.want {
				t.Errorf("ParseID(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		def     int
		want    int
		wantErr bool
	}{
		{"empty uses default", "", 30, 30, false},
		{"value", "12", 30, 12, false},
		{"negative passes through", "-1", 30, -1, false},
		{"garbage", "12x", 30, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIntParam("days", tt.raw, tt.def)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseOptionalMonth(t *testing.T) {
	m, err := ParseOptionalMonth("")
	if err != nil || m != nil {
		t.Fatalf("empty month = %v, %v; want nil, nil", m, err)
	}
	m, err = ParseOptionalMonth("2026-02")
	if err != nil {
		t.Fatalf("ParseOptionalMonth: %v", err)
	}
	if m.String() != "2026-02" {
		t.Errorf("month = %s, want 2026-02", m)
	}
	if _, err := ParseOptionalMonth("2026-13"); !core.IsValidation(err) {
		t.Errorf("invalid month error = %v, want validation error", err)
	}
}

func TestParseOptionalDate(t *testing.T) {
	d, err := ParseOptionalDate("  ")
	if err != nil || d != nil {
		t.Fatalf("blank date = %v, %v; want nil, nil", d, err)
	}
	d, err = ParseOptionalDate("2026-03-31")
	if err != nil {
		t.Fatalf("ParseOptionalDate: %v", err)
	}
	if !d.Equal(core.NewDate(2026, 3, 31).Time) {
		t.Errorf("date = %s", d)
	}
	if _, err := ParseOptionalDate("31/03/2026"); err == nil {
		t.Error("expected an error for a non-ISO date")
	}
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name      string
		from, to  string
		wantField string
	}{
		{"valid", "2026-01-01", "2026-01-31", ""},
		{"missing from", "", "2026-01-31", "from"},
		{"missing to", "2026-01-01", "", "to"},
		{"bad from", "2026/01/01", "2026-01-31", "from"},
		{"bad to", "2026-01-01", "tomorrow", "to"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := ParseDateRange(tt.from, tt.to)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ParseDateRange: %v", err)
				}
				if from.String() != tt.from || to.String() != tt.to {
					t.Errorf("range = %s..%s", from, to)
				}
				return
			}
			ve, ok := err.(*core.ValidationError)
			if !ok {
				t.Fatalf("error = %v, want *core.ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}
