package config

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoProfile is returned when no agent profile has been saved.
var ErrNoProfile = errors.New("no agent profile")

const (
	profileDirName  = ".ruby_agent"
	profileFileName = "config.json"
	// DefaultLanguage is recorded when setup leaves the language blank.
	DefaultLanguage = "ruby"
)

// Profile identifies the user and project an agent works for.
type Profile struct {
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	RootPath  string `json:"root_path"`
	Language  string `json:"language"`
	AgentID   string `json:"agent_id"`
}

// ProfilePath returns ~/.ruby_agent/config.json.
func ProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(profileDirName, profileFileName)
	}
	return filepath.Join(home, profileDirName, profileFileName)
}

// ProfileManager reads and writes the profile file at Path.
type ProfileManager struct {
	Path string
}

// NewProfileManager returns a manager for path, or for ProfilePath when
// path is empty.
func NewProfileManager(path string) *ProfileManager {
	if path == "" {
		path = ProfilePath()
	}
	return &ProfileManager{Path: path}
}

// Exists reports whether the profile file is present.
func (m *ProfileManager) Exists() bool {
	_, err := os.Stat(m.Path)
	return err == nil
}

// Load reads the saved profile.
func (m *ProfileManager) Load() (*Profile, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoProfile
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", m.Path, err)
	}
	if p.Language == "" {
		p.Language = DefaultLanguage
	}
	return &p, nil
}

// Save writes p as indented JSON, creating the parent directory.
func (m *ProfileManager) Save(p *Profile) error {
	if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return os.WriteFile(m.Path, data, 0o644)
}

// Setup builds a profile, generating an agent id when agentID is empty,
// and saves it.
func (m *ProfileManager) Setup(name, email, rootPath, language, agentID string) (*Profile, error) {
	if language == "" {
		language = DefaultLanguage
	}
	if agentID == "" {
		id, err := m.GenerateAgentID(email)
		if err != nil {
			return nil, err
		}
		agentID = id
	}
	p := &Profile{
		UserName:  name,
		UserEmail: email,
		RootPath:  rootPath,
		Language:  language,
		AgentID:   agentID,
	}
	if err := m.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// GenerateAgentID returns "<email hash>-<random>": the first 8 hex digits
// of the SHA-256 of the trimmed, lower-cased email and 8 random hex digits.
// If that equals the id already saved at m.Path, the random part is
// widened to 16 digits.
func (m *ProfileManager) GenerateAgentID(email string) (string, error) {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	prefix := hex.EncodeToString(sum[:])[:8]

	suffix, err := randomHex(4)
	if err != nil {
		return "", err
	}
	id := prefix + "-" + suffix

	if existing, err := m.Load(); err == nil && existing.AgentID == id {
		if suffix, err = randomHex(8); err != nil {
			return "", err
		}
		id = prefix + "-" + suffix
	}
	return id, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate agent id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// InDocker reports whether the process runs inside a container.
func InDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

// ValidateName rejects blank names.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name cannot be empty")
	}
	return nil
}

// ValidateEmail requires a non-empty address containing "@".
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return errors.New("please enter a valid email address")
	}
	return nil
}

// ResolveRootPath expands a leading ~, requires an existing directory and,
// inside a container, an absolute path. It returns the cleaned absolute
// path.
func ResolveRootPath(path string, docker bool) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("root path cannot be empty")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	if docker && !filepath.IsAbs(path) {
		return "", errors.New("in Docker, use an absolute container path such as /workspace/project")
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		if docker {
			return "", fmt.Errorf("path %q does not exist in the container; mount it with -v /host/path:/workspace/project", path)
		}
		return "", fmt.Errorf("path %q does not exist or is not a directory", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}
