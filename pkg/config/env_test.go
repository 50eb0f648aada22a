package config

import (
	"os"
	"testing"
)

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_GET_ENV_VAR", "test_value")
	defer os.Unsetenv("TEST_GET_ENV_VAR")

	if got := GetEnv("TEST_GET_ENV_VAR", "default"); got != "test_value" {
		t.Errorf("GetEnv() = %v, want test_value", got)
	}

	if got := GetEnv("NON_EXISTING_VAR", "default_value"); got != "default_value" {
		t.Errorf("GetEnv() = %v, want default_value", got)
	}
}

func TestGetEnvironment(t *testing.T) {
	original := os.Getenv("PHARMAFLOW_SERVER_ENVIRONMENT")
	defer func() {
		if original != "" {
			os.Setenv("PHARMAFLOW_SERVER_ENVIRONMENT", original)
		} else {
			os.Unsetenv("PHARMAFLOW_SERVER_ENVIRONMENT")
		}
	}()

	tests := []struct {
		envValue string
		want     string
	}{
		{"development", "development"},
		{"DEVELOPMENT", "development"},
		{"Staging", "staging"},
		{"production", "production"},
		{"", "development"},
	}

	for _, tt := range tests {
		if tt.envValue == "" {
			os.Unsetenv("PHARMAFLOW_SERVER_ENVIRONMENT")
		} else {
			os.Setenv("PHARMAFLOW_SERVER_ENVIRONMENT", tt.envValue)
		}
		if got := GetEnvironment(); got != tt.want {
			t.Errorf("GetEnvironment() with %q = %v, want %v", tt.envValue, got, tt.want)
		}
	}
}

func TestIsProductionLike(t *testing.T) {
	original := os.Getenv("PHARMAFLOW_SERVER_ENVIRONMENT")
	defer func() {
		if original != "" {
			os.Setenv("PHARMAFLOW_SERVER_ENVIRONMENT", original)
		} else {
			os.Unsetenv("PHARMAFLOW_SERVER_ENVIRONMENT")
		}
	}()

	os.Setenv("PHARMAFLOW_SERVER_ENVIRONMENT", "staging")
	if !IsProductionLike() {
		t.Error("IsProductionLike() should be true for staging")
	}

	os.Setenv("PHARMAFLOW_SERVER_ENVIRONMENT", "production")
	if !IsProductionLike() {
		t.Error("IsProductionLike() should be true for production")
	}

	os.Setenv("PHARMAFLOW_SERVER_ENVIRONMENT", "development")
	if IsProductionLike() {
		t.Error("IsProductionLike() should be false for development")
	}
	if !IsDevelopment() {
		t.Error("IsDevelopment() should be true for development")
	}
}
