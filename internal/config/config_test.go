package config

import (
	"strings"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{"DATABASE_URL": "postgres://localhost/wms"}))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != 10*time.Minute {
		t.Errorf("Server.WriteTimeout = %v, want 10m", cfg.Server.WriteTimeout)
	}
	if cfg.Database.MaxConns != 20 || cfg.Database.MinConns != 2 {
		t.Errorf("Database conns = %d/%d, want 20/2", cfg.Database.MaxConns, cfg.Database.MinConns)
	}
	if !cfg.Database.Migrate {
		t.Error("Database.Migrate = false, want true")
	}
	if cfg.Import.MaxFileSize != 32<<20 {
		t.Errorf("Import.MaxFileSize = %d, want %d", cfg.Import.MaxFileSize, 32<<20)
	}
	if cfg.Import.MaxConcurrent != 4 {
		t.Errorf("Import.MaxConcurrent = %d, want 4", cfg.Import.MaxConcurrent)
	}
	if cfg.Import.DefaultUserID != "system" {
		t.Errorf("Import.DefaultUserID = %q, want system", cfg.Import.DefaultUserID)
	}
	if cfg.Security.APIKeys != nil {
		t.Errorf("Security.APIKeys = %v, want nil", cfg.Security.APIKeys)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want /metrics", cfg.Metrics.Path)
	}
	if got := cfg.Server.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"DATABASE_URL":          "postgres://localhost/wms",
		"SERVER_PORT":           "9090",
		"IMPORT_MAX_CONCURRENT": "8",
		"IMPORT_MAX_FILE_SIZE":  "512KB",
		"IMPORT_TIMEOUT":        "2m",
		"REQUIRE_API_KEY":       "true",
		"API_KEYS":              " alpha, beta ,,",
		"LOG_FORMAT":            "json",
	}))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Import.MaxConcurrent != 8 {
		t.Errorf("Import.MaxConcurrent = %d, want 8", cfg.Import.MaxConcurrent)
	}
	if cfg.Import.MaxFileSize != 512<<10 {
		t.Errorf("Import.MaxFileSize = %d, want %d", cfg.Import.MaxFileSize, 512<<10)
	}
	if cfg.Import.Timeout != 2*time.Minute {
		t.Errorf("Import.Timeout = %v, want 2m", cfg.Import.Timeout)
	}
	if len(cfg.Security.APIKeys) != 2 || cfg.Security.APIKeys[0] != "alpha" || cfg.Security.APIKeys[1] != "beta" {
		t.Errorf("Security.APIKeys = %v, want [alpha beta]", cfg.Security.APIKeys)
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"DB_URL": "postgres://alt/wms",
		"PORT":   "3000",
	}))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Database.URL != "postgres://alt/wms" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := LoadFrom(env(nil))
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("err = %v, want DATABASE_URL error", err)
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	tests := map[string]string{
		"SERVER_PORT":          "eighty",
		"IMPORT_MAX_WAIT":      "soon",
		"RATE_LIMIT_ENABLED":   "maybe",
		"IMPORT_MAX_FILE_SIZE": "lots",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(env(map[string]string{
				"DATABASE_URL": "postgres://localhost/wms",
				name:           value,
			}))
			if err == nil || !strings.Contains(err.Error(), name) {
				t.Fatalf("err = %v, want mention of %s", err, name)
			}
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	_, err := LoadFrom(env(map[string]string{
		"DATABASE_URL":          "postgres://localhost/wms",
		"DB_MAX_CONNS":          "1",
		"DB_MIN_CONNS":          "5",
		"IMPORT_MAX_CONCURRENT": "0",
		"REQUIRE_API_KEY":       "true",
		"LOG_LEVEL":             "loud",
		"METRICS_PATH":          "metrics",
	}))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"DB_MAX_CONNS (1) must be >= DB_MIN_CONNS (5)",
		"IMPORT_MAX_CONCURRENT must be positive",
		"REQUIRE_API_KEY is true but API_KEYS is empty",
		`LOG_LEVEL ("loud")`,
		`METRICS_PATH ("metrics")`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1048576", 1 << 20},
		{"10B", 10},
		{"4kb", 4 << 10},
		{"32MB", 32 << 20},
		{" 2 GB ", 2 << 30},
	}
	for _, tt := range tests {
		got, err := parseSize(tt.in)
		if err != nil {
			t.Errorf("parseSize(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if _, err := parseSize("MB"); err == nil {
		t.Error("parseSize(MB) should fail")
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"DATABASE_URL":    "postgres://user:hunter2@db/wms",
		"REQUIRE_API_KEY": "true",
		"API_KEYS":        "topsecret",
	}))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	s := cfg.String()
	for _, secret := range []string{"hunter2", "topsecret"} {
		if strings.Contains(s, secret) {
			t.Errorf("String() leaks %q: %s", secret, s)
		}
	}
	if !strings.Contains(s, "APIKeys: 1") {
		t.Errorf("String() = %s", s)
	}
}
