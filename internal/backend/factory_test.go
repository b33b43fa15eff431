package backend

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"
)

func testLogger(buf *bytes.Buffer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = buf
	return log.New(cfg)
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	app := &config.Config{
		DataBackend:       "sqlite",
		SQLiteDBPath:      "/tmp/ledger.db",
		Currency:          "EUR",
		ProgressCacheSize: 10,
		ProgressCacheTTL:  time.Minute,
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != app.SQLiteDBPath || cfg.ProgressCacheSize != 10 {
		t.Errorf("unexpected backend config %+v", cfg)
	}

	app.DataBackend = "sheets"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, Currency: "EUR"}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", Currency: "EUR"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend, Currency: "EUR"}, true},
		{"unknown type", Config{Type: "sheets", Currency: "EUR"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, Currency: "EUR", AMQPURL: "amqp://localhost", AMQPExchange: "ledger"}, true},
		{"no currency", Config{Type: MemoryBackend}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := strings.Join(GetBackendTypeStrings(), ",")
	if got != "sqlite,memory" {
		t.Errorf("GetBackendTypeStrings() = %q", got)
	}
}

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"memory", Config{Type: MemoryBackend, Currency: "EUR"}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db"), Currency: "EUR"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			f := NewFactory(testLogger(&buf))
			ctx := context.Background()

			result, err := f.CreateBackend(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			if result.AMQP != nil {
				t.Error("AMQP client should be nil without a URL")
			}

			// The wired ledger works end to end without a broker.
			c, err := result.Ledger.Categories.Create(ctx, core.Category{
				OwnerID: "u1", Name: "Salary", Type: core.Income, Priority: core.Essential,
			})
			if err != nil {
				t.Fatalf("create category: %v", err)
			}
			if _, err := result.Repository.GetCategory(ctx, "u1", c.ID); err != nil {
				t.Errorf("category not visible through repository: %v", err)
			}

			if err := result.Cleanup(); err != nil {
				t.Errorf("Cleanup: %v", err)
			}
			if !strings.Contains(buf.String(), "Initialized ledger backend") {
				t.Errorf("expected init log, got %q", buf.String())
			}
		})
	}
}
