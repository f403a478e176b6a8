package timeutil

import "testing"

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int
		expected string
	}{
		{"minute and seconds", 65, "1:05"},
		{"hours minutes seconds", 3661, "1:01:01"},
		{"zero", 0, "0:00"},
		{"under a minute", 42, "0:42"},
		{"exact hour", 3600, "1:00:00"},
		{"negative clamps to zero", -5, "0:00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := FormatDuration(tc.seconds)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"full duration", "PT1H2M3S", 3723},
		{"minutes and seconds", "PT4M13S", 253},
		{"seconds only", "PT45S", 45},
		{"hours only", "PT2H", 7200},
		{"empty components", "PT", 0},
		{"garbage", "not-a-duration", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := ParseISODuration(tc.input)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}
