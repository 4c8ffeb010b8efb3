package config

import (
	"path/filepath"
	"strings"
	"testing"
)

// isolate points godotenv at a missing file so a developer .env cannot leak in.
func isolate(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_PORT", "PUBLIC_BASE_URL", "STORE_BACKEND", "SEED_SAMPLE_DATA", "QR_SIZE", "LOG_LEVEL", "LOG_CONSOLE",
		"WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID", "GOOGLE_SHEETS_CREDENTIALS_PATH",
		"GOOGLE_SHEET_DATABASE_ID", "REPORT_CRON_SCHEDULE", "TIMEZONE", "SNAPSHOT_KEY", "DEFAULT_FARMER_ID",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load(isolate(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" || cfg.Server.PublicBaseURL != "http://localhost:8080" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Store.Backend != BackendFile || cfg.Store.SnapshotKey != "agri_blockchain_data" || cfg.Store.SeedSample {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Server.QRSize != 256 {
		t.Fatalf("QRSize = %d", cfg.Server.QRSize)
	}
	if cfg.Log.Level != "info" || cfg.Log.Console {
		t.Fatalf("log = %+v", cfg.Log)
	}
	if cfg.Reporting.CronSchedule != "0 20 * * *" {
		t.Fatalf("cron = %q", cfg.Reporting.CronSchedule)
	}
	if cfg.WhatsApp.Enabled() || cfg.Sheets.Enabled() {
		t.Fatalf("optional integrations should be disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("PUBLIC_BASE_URL", "https://trace.example.org/")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/agri.db")
	t.Setenv("SEED_SAMPLE_DATA", "true")
	t.Setenv("QR_SIZE", "512")
	t.Setenv("WHATSAPP_TOKEN", "token")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "555")

	cfg, err := Load(isolate(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Backend != BackendSQLite || cfg.Store.SQLitePath != "/tmp/agri.db" || !cfg.Store.SeedSample {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Server.QRSize != 512 || cfg.Server.PublicBaseURL != "https://trace.example.org/" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if !cfg.WhatsApp.Enabled() {
		t.Fatalf("whatsapp should be enabled")
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "qr size", env: map[string]string{"QR_SIZE": "big"}, want: "QR_SIZE"},
		{name: "seed flag", env: map[string]string{"SEED_SAMPLE_DATA": "sometimes"}, want: "SEED_SAMPLE_DATA"},
		{name: "backend", env: map[string]string{"STORE_BACKEND": "redis"}, want: "STORE_BACKEND"},
		{name: "postgres dsn", env: map[string]string{"STORE_BACKEND": "postgres", "POSTGRES_DSN": ""}, want: "POSTGRES_DSN"},
		{name: "mongo uri", env: map[string]string{"STORE_BACKEND": "mongodb", "MONGODB_URI": ""}, want: "MONGODB_URI"},
		{name: "half whatsapp", env: map[string]string{"WHATSAPP_TOKEN": "token", "WHATSAPP_PHONE_NUMBER_ID": ""}, want: "WHATSAPP_PHONE_NUMBER_ID"},
		{name: "half sheets", env: map[string]string{"GOOGLE_SHEETS_CREDENTIALS_PATH": "creds.json", "GOOGLE_SHEET_DATABASE_ID": ""}, want: "GOOGLE_SHEET_DATABASE_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(isolate(t))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate() on nil config should fail")
	}
}
