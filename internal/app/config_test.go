package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SECTION_MAX_DEPTH", "")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" || cfg.DB.Driver != "postgres" || cfg.Tree.MaxDepth != 5 || cfg.Tree.ReadingWPM != 200 {
		t.Fatalf("defaults: got=%+v", cfg)
	}
	if cfg.Redis.LockTTL != 30*time.Second {
		t.Fatalf("lock ttl: want=30s got=%v", cfg.Redis.LockTTL)
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coursestore.yaml")
	body := `
port: "9090"
db:
  driver: sqlite
  sqlite_path: /tmp/cs.db
tree:
  max_depth: 3
  reading_wpm: 250
redis:
  lock_ttl: 10s
cors_origins: ["https://app.example.com"]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("READING_WPM", "")
	t.Setenv("COURSE_LOCK_TTL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("SECTION_MAX_DEPTH", "4")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "9090" || cfg.DB.Driver != "sqlite" || cfg.DB.SQLitePath != "/tmp/cs.db" {
		t.Fatalf("file values: got=%+v", cfg)
	}
	if cfg.Tree.MaxDepth != 4 {
		t.Fatalf("env overrides file: want=4 got=%d", cfg.Tree.MaxDepth)
	}
	if cfg.Tree.ReadingWPM != 250 || cfg.Redis.LockTTL != 10*time.Second {
		t.Fatalf("tree/redis: got=%+v %+v", cfg.Tree, cfg.Redis)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://app.example.com" {
		t.Fatalf("cors: got=%v", cfg.CORSOrigins)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"driver":   {"DB_DRIVER": "mysql"},
		"depth":    {"SECTION_MAX_DEPTH": "0"},
		"port":     {"PORT": "http"},
		"ratio":    {"OTEL_SAMPLE_RATIO": "1.5"},
		"lock ttl": {"COURSE_LOCK_TTL": "10ms"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(ConfigPathEnv, "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig("")
			if err == nil || !strings.Contains(err.Error(), "invalid config") {
				t.Fatalf("want invalid config got=%v", err)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("missing file: want error")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("splitList: got=%v", got)
	}
}
