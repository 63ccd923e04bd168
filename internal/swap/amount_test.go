package swap

import (
	"strings"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int
		want     string
	}{
		{"10", 6, "10000000"},
		{"1.5", 9, "1500000000"},
		{"0.1234567", 6, "123456"},
		{" 2 ", 0, "2"},
		{"0", 6, "0"},
		{"", 6, "0"},
		{"abc", 6, "0"},
		{"10abc", 6, "0"},
		{"1,000", 6, "0"},
		{"-1", 6, "0"},
		{"0.0000001", 6, "0"},
	}
	for _, tt := range tests {
		if got := ParseAmount(tt.amount, tt.decimals); got != tt.want {
			t.Errorf("ParseAmount(%q, %d) = %q, want %q", tt.amount, tt.decimals, got, tt.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		smallest string
		decimals int
		want     string
	}{
		{"10000000", 6, "10.0000"},
		{"500000", 6, "0.500000"},
		{"10", 6, "0.000010"},
		{"1", 6, "1.00e-6"},
		{"1234", 9, "1.23e-6"},
		{"0", 6, "0.00e+0"},
		{"99999999", 4, "9999.9999"},
		{"12345678900", 6, "12,345.68"},
		{"1000000000000", 6, "1,000,000"},
		{"123456750", 4, "12,345.68"},
		{"123450000", 4, "12,345"},
		{"bad", 6, "0"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.smallest, tt.decimals); got != tt.want {
			t.Errorf("FormatAmount(%q, %d) = %q, want %q", tt.smallest, tt.decimals, got, tt.want)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	// amounts representable at the display precision of their range
	tests := []struct {
		amount   string
		decimals int
	}{
		{"10", 6},
		{"1.5", 9},
		{"0.123456", 6},
		{"0.5", 9},
		{"9999.1234", 6},
		{"250000", 6},
		{"12345.67", 9},
	}
	for _, tt := range tests {
		raw := ParseAmount(tt.amount, tt.decimals)
		shown := FormatAmount(raw, tt.decimals)
		back := ParseAmount(strings.ReplaceAll(shown, ",", ""), tt.decimals)
		if back != raw {
			t.Errorf("%s: parse=%s format=%s parse again=%s", tt.amount, raw, shown, back)
		}
	}
}
