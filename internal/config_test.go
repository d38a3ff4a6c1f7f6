package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestSQLiteConfig_UnknownDriver(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SQLite.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail validation")
	}
}

func TestProjectConfig_RejectsPaths(t *testing.T) {
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		cfg := NewDefaultConfig()
		cfg.Project.DBFile = name
		if err := cfg.Validate(); err == nil {
			t.Errorf("db_file %q should fail validation", name)
		}
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestResolvePaths_Precedence(t *testing.T) {
	home := t.TempDir()
	wd := t.TempDir()
	marker := filepath.Join(home, ".feat-tree", "current-project")
	if err := os.MkdirAll(filepath.Dir(marker), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(marker, []byte("/from/marker\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	defaults := NewDefaultConfig().Project

	configured := defaults
	configured.Root = "/from/config"

	tests := []struct {
		name string
		cfg  ProjectConfig
		env  map[string]string
		home string
		want string
	}{
		{"config wins", configured, map[string]string{EnvProject: "/from/env"}, home, "/from/config"},
		{"env over marker", defaults, map[string]string{EnvProject: "/from/env"}, home, "/from/env"},
		{"marker over cwd", defaults, nil, home, "/from/marker"},
		{"cwd last", defaults, nil, t.TempDir(), wd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := resolvePaths(tt.cfg, env(tt.env), tt.home, wd)
			if p.Root != filepath.Clean(tt.want) {
				t.Errorf("root = %q, want %q", p.Root, tt.want)
			}
			if p.Database != filepath.Join(p.Root, ".feat-tree", "features.db") {
				t.Errorf("database = %q", p.Database)
			}
		})
	}
}

func TestResolvePaths_RelativeRootAndInfo(t *testing.T) {
	wd := t.TempDir()
	cfg := NewDefaultConfig().Project
	cfg.Root = "sub"

	p := resolvePaths(cfg, env(nil), "", wd)
	if p.Root != filepath.Join(wd, "sub") {
		t.Errorf("root = %q", p.Root)
	}
	if p.MarkerFile != "" || p.MarkerValue != "" {
		t.Errorf("marker without home = %q/%q", p.MarkerFile, p.MarkerValue)
	}

	info := p.Info()
	if info.ProjectRoot != p.Root || info.DocsDir != p.Dir || info.WorkingDir != wd {
		t.Errorf("info = %+v", info)
	}
}
