package config

import (
	"reflect"
	"testing"
)

func TestGetEnvFallback(t *testing.T) {
	t.Setenv("CFGTEST_SET", "value")

	if got := getEnv("CFGTEST_SET", "fallback"); got != "value" {
		t.Errorf("Expected value, got %s", got)
	}
	if got := getEnv("CFGTEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback, got %s", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		fallback int
		expected int
	}{
		{"valid integer", "42", 7, 42},
		{"negative integer", "-3", 7, -3},
		{"garbage uses fallback", "not-a-number", 7, 7},
		{"empty uses fallback", "", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CFGTEST_INT", tt.value)
			if got := getEnvInt("CFGTEST_INT", tt.fallback); got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("CFGTEST_FLOAT", "0.25")
	if got := getEnvFloat("CFGTEST_FLOAT", 0.08); got != 0.25 {
		t.Errorf("Expected 0.25, got %f", got)
	}

	t.Setenv("CFGTEST_FLOAT", "nope")
	if got := getEnvFloat("CFGTEST_FLOAT", 0.08); got != 0.08 {
		t.Errorf("Expected fallback 0.08, got %f", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("CFGTEST_BOOL", "true")
	if !getEnvBool("CFGTEST_BOOL", false) {
		t.Error("Expected true for 'true'")
	}

	t.Setenv("CFGTEST_BOOL", "0")
	if getEnvBool("CFGTEST_BOOL", true) {
		t.Error("Expected false for '0'")
	}

	t.Setenv("CFGTEST_BOOL", "maybe")
	if !getEnvBool("CFGTEST_BOOL", true) {
		t.Error("Expected fallback true for unparseable value")
	}
}

func TestGetEnvList(t *testing.T) {
	fallback := []string{"Amazon", "Google"}

	t.Setenv("CFGTEST_LIST", "PhonePe, Swiggy ,Zomato")
	got := getEnvList("CFGTEST_LIST", fallback)
	expected := []string{"PhonePe", "Swiggy", "Zomato"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}

	t.Setenv("CFGTEST_LIST", " , ,")
	if got := getEnvList("CFGTEST_LIST", fallback); !reflect.DeepEqual(got, fallback) {
		t.Errorf("Expected fallback %v, got %v", fallback, got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.RequestsPerMinute != 20 {
		t.Errorf("Expected 20 requests per minute, got %d", cfg.RequestsPerMinute)
	}
	if cfg.DecayLambda != 0.08 {
		t.Errorf("Expected decay lambda 0.08, got %f", cfg.DecayLambda)
	}
	if cfg.MaxAgeMonths != 60 {
		t.Errorf("Expected max age 60 months, got %d", cfg.MaxAgeMonths)
	}
	if cfg.MaxConsecutiveFailures != 3 {
		t.Errorf("Expected 3 consecutive failures, got %d", cfg.MaxConsecutiveFailures)
	}
	if cfg.RespectRobots {
		t.Error("Expected robots enforcement to default off")
	}
	if len(cfg.TargetCompanies) != len(DefaultTargetCompanies) {
		t.Errorf("Expected %d target companies, got %d", len(DefaultTargetCompanies), len(cfg.TargetCompanies))
	}
	if cfg.UserAgent == "" {
		t.Error("Expected a default user agent")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("REQUESTS_PER_MINUTE", "5")
	t.Setenv("TARGET_COMPANIES", "PhonePe,Razorpay")
	t.Setenv("RESPECT_ROBOTS_TXT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.RequestsPerMinute != 5 {
		t.Errorf("Expected 5 requests per minute, got %d", cfg.RequestsPerMinute)
	}
	if !reflect.DeepEqual(cfg.TargetCompanies, []string{"PhonePe", "Razorpay"}) {
		t.Errorf("Expected overridden targets, got %v", cfg.TargetCompanies)
	}
	if !cfg.RespectRobots {
		t.Error("Expected robots enforcement on")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "shouting")

	if _, err := Load(); err == nil {
		t.Error("Expected validation error for bad log level")
	}
}
