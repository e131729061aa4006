package common

import "testing"

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		wantValue float64
		wantUnit  string
		wantOK    bool
	}{
		{"plain integer", "1234", 1234, "count", true},
		{"thousands separators", "1,234,567", 1234567, "count", true},
		{"decimal", "5.2", 5.2, "count", true},
		{"percent", "6.2%", 6.2, "%", true},
		{"k suffix", "12.5K", 12500, "count", true},
		{"lowercase k", "3k", 3000, "count", true},
		{"m suffix", "1.2M", 1200000, "count", true},
		{"suffix with space", "12.5 K", 12500, "count", true},
		{"no number", "Engagement", 0, "", false},
		{"empty", "", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, unit, ok := NormalizeNumber(tt.token)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if value != tt.wantValue {
				t.Errorf("value = %v, want %v", value, tt.wantValue)
			}
			if unit != tt.wantUnit {
				t.Errorf("unit = %q, want %q", unit, tt.wantUnit)
			}
		})
	}
}

func TestFindNumber(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantLabel string
		wantValue float64
		wantUnit  string
		wantOK    bool
	}{
		{"label colon value", "Reach: 1,234", "Reach", 1234, "count", true},
		{"label dash value", "Engagement Rate - 6.2%", "Engagement Rate", 6.2, "%", true},
		{"table cell", "Followers | 12.5K", "Followers", 12500, "count", true},
		{"value only", "4,321", "", 4321, "count", true},
		{"no number", "Top posts this month", "", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, value, unit, ok := FindNumber(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if label != tt.wantLabel {
				t.Errorf("label = %q, want %q", label, tt.wantLabel)
			}
			if value != tt.wantValue {
				t.Errorf("value = %v, want %v", value, tt.wantValue)
			}
			if unit != tt.wantUnit {
				t.Errorf("unit = %q, want %q", unit, tt.wantUnit)
			}
		})
	}
}
