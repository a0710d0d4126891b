package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_HMAC_SECRET", "test-secret")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ScoreScale != 10 || cfg.ResubmitPolicy != "append" || cfg.DBDriver != "sqlite" || cfg.HTTPAddr != ":8080" {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "examd.yaml")
	body := "httpAddr: \":9000\"\nscoreScale: 100\nresubmitPolicy: reject\ntokenTtl: 2h\ncorsOrigins: [\"https://a.example\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AUTH_HMAC_SECRET", "test-secret")
	t.Setenv("RESUBMIT_POLICY", "Overwrite")
	t.Setenv("CORS_ORIGINS", "https://b.example, https://c.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":9000" || cfg.ScoreScale != 100 || cfg.TokenTTL != 2*time.Hour {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.ResubmitPolicy != "overwrite" {
		t.Fatalf("env should override file: %q", cfg.ResubmitPolicy)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://c.example" {
		t.Fatalf("cors = %v", cfg.CORSOrigins)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("AUTH_HMAC_SECRET", "test-secret")
	cases := map[string]string{
		"SCORE_SCALE":     "0",
		"RESUBMIT_POLICY": "merge",
		"DB_DRIVER":       "mysql",
		"MODE":            "cloud",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			if _, err := Load(""); err == nil {
				t.Fatalf("%s=%s should be rejected", k, v)
			}
		})
	}

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("TOKEN_TTL", "forever")
		_, err := Load("")
		if err == nil || !strings.Contains(err.Error(), "TOKEN_TTL") {
			t.Fatalf("got %v", err)
		}
	})
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("AUTH_HMAC_SECRET", "")
		_, err := Load("")
		if err == nil || !strings.Contains(err.Error(), "AuthSecret") {
			t.Fatalf("got %v", err)
		}
	})
	t.Run("secret from file", func(t *testing.T) {
		t.Setenv("AUTH_HMAC_SECRET", "")
		path := filepath.Join(t.TempDir(), "examd.yaml")
		if err := os.WriteFile(path, []byte("authSecret: from-file\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(path)
		if err != nil || cfg.AuthSecret != "from-file" {
			t.Fatalf("cfg = %+v, err = %v", cfg, err)
		}
	})
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("expected read error")
		}
	})
}
