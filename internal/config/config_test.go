package config

import (
	"os"
	"testing"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "WALKGEN_TEST_PORT", "9090", "8080", "9090"},
		{"uses default when empty", "WALKGEN_TEST_UNSET", "", "8080", "8080"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "WALKGEN_TEST_CHUNK", "24000", 12000, 24000},
		{"uses default for empty", "WALKGEN_TEST_WORKERS", "", 5, 5},
		{"uses default for non-numeric", "WALKGEN_TEST_BAD", "five", 5, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("WALKGEN_TEST_REQUIRED_MISSING")
	mustGetEnv("WALKGEN_TEST_REQUIRED_MISSING")
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	os.Setenv("WALKGEN_TEST_REQUIRED", "api-key-123")
	defer os.Unsetenv("WALKGEN_TEST_REQUIRED")

	result := mustGetEnv("WALKGEN_TEST_REQUIRED")
	if result != "api-key-123" {
		t.Errorf("Expected 'api-key-123', got %q", result)
	}
}
