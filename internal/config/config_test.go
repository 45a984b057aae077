package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	got := Load(env(nil))
	want := Config{Port: DefaultPort, DatabaseURL: DefaultDatabaseURL, LogLevel: DefaultLogLevel}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	got := Load(env(map[string]string{
		"PORT":               "9090",
		"DATABASE_URL":       "postgres://fieldops@localhost:5432/fieldops",
		"FIELDOPS_RULES":     "rules/field_service.yaml",
		"FIELDOPS_LOG_LEVEL": "debug",
		"FIELDOPS_DEV":       "true",
		"FIELDOPS_ATLAS_DIR": "migrations",
	}))
	want := Config{
		Port:        9090,
		DatabaseURL: "postgres://fieldops@localhost:5432/fieldops",
		RulesPath:   "rules/field_service.yaml",
		LogLevel:    "debug",
		Dev:         true,
		AtlasDir:    "migrations",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_InvalidValuesKeepDefaults(t *testing.T) {
	got := Load(env(map[string]string{"PORT": "http", "FIELDOPS_DEV": "sometimes"}))
	if got.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", got.Port, DefaultPort)
	}
	if got.Dev {
		t.Error("Dev = true, want false")
	}
}
