package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("DEFAULT_TIME_LIMIT_SEC", "")
	t.Setenv("STORE_RETRY_BACKOFF_MS", "")

	cfg := Load()
	if cfg.StoreDriver != "sqlite" {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.DefaultTimeLimitSec != 3600 {
		t.Errorf("DefaultTimeLimitSec = %d", cfg.DefaultTimeLimitSec)
	}
	if cfg.StoreRetryBackoff != 200*time.Millisecond {
		t.Errorf("StoreRetryBackoff = %v", cfg.StoreRetryBackoff)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("DEFAULT_TIME_LIMIT_SEC", "90")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "not-a-number")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg := Load()
	if cfg.StoreDriver != "redis" || cfg.DefaultTimeLimitSec != 90 || !cfg.MinIOUseSSL {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 5*1024*1024 {
		t.Errorf("invalid int should fall back, got %d", cfg.MaxUploadBytes)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"http://a.test", "http://b.test"}) {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestStoreKeys(t *testing.T) {
	cases := map[string]string{
		StoreKey.TestKey("abc"):          "test_abc",
		StoreKey.TestsListKey():          "tests_list",
		StoreKey.AttemptKey("xyz"):       "attempt_xyz",
		StoreKey.AttemptExportKey("xyz"): "attempt_xyz.json",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("key = %q, want %q", got, want)
		}
	}
}
