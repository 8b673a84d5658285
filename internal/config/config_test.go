package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Idempotency.ReservationTTL() != 5*time.Minute {
		t.Fatalf("ReservationTTL = %v, want 5m", cfg.Idempotency.ReservationTTL())
	}
	if cfg.Idempotency.PollInterval() != 200*time.Millisecond {
		t.Fatalf("PollInterval = %v, want 200ms", cfg.Idempotency.PollInterval())
	}
	if cfg.Idempotency.MaxWait() != 10*time.Second {
		t.Fatalf("MaxWait = %v, want 10s", cfg.Idempotency.MaxWait())
	}
	if !cfg.Sweeper.Enabled {
		t.Fatalf("Sweeper.Enabled = false, want true")
	}
	if cfg.Sweeper.BatchSize != 500 {
		t.Fatalf("Sweeper.BatchSize = %d, want 500", cfg.Sweeper.BatchSize)
	}
	if cfg.Redis.Enabled {
		t.Fatalf("Redis.Enabled = true, want false by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	viper.Reset()
	t.Setenv("IDEMPOTENCY_RESERVATION_TTL_SECONDS", "120")
	t.Setenv("SWEEPER_BATCH_SIZE", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Idempotency.ReservationTTLSeconds != 120 {
		t.Fatalf("ReservationTTLSeconds = %d, want 120", cfg.Idempotency.ReservationTTLSeconds)
	}
	if cfg.Sweeper.BatchSize != 50 {
		t.Fatalf("Sweeper.BatchSize = %d, want 50", cfg.Sweeper.BatchSize)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	viper.Reset()
	base, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"dbname", func(c *Config) { c.Database.DBName = "" }},
		{"ttl", func(c *Config) { c.Idempotency.ReservationTTLSeconds = 0 }},
		{"poll", func(c *Config) { c.Idempotency.PollIntervalMillis = -1 }},
		{"max_wait", func(c *Config) { c.Idempotency.MaxWaitSeconds = 0 }},
		{"poll_exceeds_wait", func(c *Config) {
			c.Idempotency.PollIntervalMillis = 20000
			c.Idempotency.MaxWaitSeconds = 1
		}},
		{"batch", func(c *Config) { c.Sweeper.BatchSize = 0 }},
	}
	for _, tt := range tests {
		cfg := *base
		tt.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate() accepted bad %s config", tt.name)
		}
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "app", DBName: "oncepay", SSLMode: "disable"}
	want := "host=db port=5432 user=app dbname=oncepay sslmode=disable"
	if got := d.DSN(); got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}

	d.Password = "secret"
	want = "host=db port=5432 user=app password=secret dbname=oncepay sslmode=disable"
	if got := d.DSN(); got != want {
		t.Fatalf("DSN() with password = %q, want %q", got, want)
	}
}
