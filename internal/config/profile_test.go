package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func newTestManager(t *testing.T) *ProfileManager {
	t.Helper()
	return NewProfileManager(filepath.Join(t.TempDir(), ".ruby_agent", "config.json"))
}

func TestGenerateAgentID(t *testing.T) {
	m := newTestManager(t)

	id, err := m.GenerateAgentID("  Dev@Example.COM ")
	if err != nil {
		t.Fatalf("GenerateAgentID: %v", err)
	}
	sum := sha256.Sum256([]byte("dev@example.com"))
	prefix := hex.EncodeToString(sum[:])[:8]
	if !regexp.MustCompile(`^` + prefix + `-[0-9a-f]{8}$`).MatchString(id) {
		t.Errorf("id = %q, want %s-<8 hex>", id, prefix)
	}

	other, err := m.GenerateAgentID("dev@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(other, prefix+"-") {
		t.Errorf("normalized email changed prefix: %q", other)
	}
	if other == id {
		t.Errorf("two ids share a random part: %q", id)
	}
}

func TestProfileSetupLoad(t *testing.T) {
	m := newTestManager(t)

	if m.Exists() {
		t.Fatal("Exists() = true before setup")
	}
	if _, err := m.Load(); !errors.Is(err, ErrNoProfile) {
		t.Errorf("Load() error = %v, want ErrNoProfile", err)
	}

	p, err := m.Setup("Dev", "dev@example.com", "/code", "", "")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if p.Language != DefaultLanguage || p.AgentID == "" {
		t.Errorf("profile = %+v", p)
	}
	if !m.Exists() {
		t.Error("Exists() = false after setup")
	}

	got, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *p {
		t.Errorf("Load() = %+v, want %+v", got, p)
	}

	data, _ := os.ReadFile(m.Path)
	for _, key := range []string{`"user_name"`, `"user_email"`, `"root_path"`, `"language"`, `"agent_id"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("profile file missing %s:\n%s", key, data)
		}
	}
}

func TestProfileSetupKeepsGivenID(t *testing.T) {
	m := newTestManager(t)
	p, err := m.Setup("Dev", "dev@example.com", "/code", "go", "fixed-id")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if p.AgentID != "fixed-id" || p.Language != "go" {
		t.Errorf("profile = %+v", p)
	}
}

func TestLoadCorruptProfile(t *testing.T) {
	m := newTestManager(t)
	if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(m.Path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load(); err == nil || errors.Is(err, ErrNoProfile) {
		t.Errorf("Load() error = %v, want parse error", err)
	}
}

func TestSetupValidators(t *testing.T) {
	if err := ValidateName("  "); err == nil {
		t.Error("ValidateName(blank) succeeded")
	}
	if err := ValidateName("Dev"); err != nil {
		t.Errorf("ValidateName(Dev) = %v", err)
	}
	if err := ValidateEmail("nobody"); err == nil {
		t.Error("ValidateEmail(nobody) succeeded")
	}
	if err := ValidateEmail("a@b"); err != nil {
		t.Errorf("ValidateEmail(a@b) = %v", err)
	}
}

func TestResolveRootPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.rb")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.EvalSymlinks(dir)

	got, err := ResolveRootPath(dir, false)
	if err != nil {
		t.Fatalf("ResolveRootPath(dir): %v", err)
	}
	if got != want {
		t.Errorf("ResolveRootPath = %q, want %q", got, want)
	}

	if _, err := ResolveRootPath(file, false); err == nil {
		t.Error("ResolveRootPath(file) succeeded")
	}
	if _, err := ResolveRootPath(filepath.Join(dir, "missing"), false); err == nil {
		t.Error("ResolveRootPath(missing) succeeded")
	}
	if _, err := ResolveRootPath("", false); err == nil {
		t.Error("ResolveRootPath(\"\") succeeded")
	}

	t.Chdir(dir)
	if _, err := ResolveRootPath(".", true); err == nil || !strings.Contains(err.Error(), "absolute") {
		t.Errorf("relative path in docker error = %v, want absolute-path error", err)
	}
	if _, err := ResolveRootPath(".", false); err != nil {
		t.Errorf("relative path outside docker: %v", err)
	}
}
