package policy

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectRelPath and UserRelPath are the two conventional hooks.yaml
// locations consulted in order by Resolve (spec §6.3): a project-local policy
// always takes precedence over the user-global one, and an absent file at
// either location is not an error — it falls through to the next location,
// and ultimately to an empty (allow-everything) Config.
const (
	ProjectRelPath = ".claude/hooks.yaml"
	UserRelPath    = ".claude/hooks.yaml"
)

// Resolve locates the effective policy file for cwd: project-local first
// (cwd/.claude/hooks.yaml), then user-global
// ($HOME/.claude/hooks.yaml). It returns "" if neither exists, which
// Load treats as an empty Config rather than an error (spec §6.3 "Config
// discovery").
func Resolve(cwd string) string {
	if cwd != "" {
		p := filepath.Join(CanonicalizeCwd(cwd), ProjectRelPath)
		if fileExists(p) {
			return p
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, UserRelPath)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// CanonicalizeCwd resolves symlinks in cwd so a project root reached via a
// symlinked path still matches its real hooks.yaml location (spec §4.9 step
// 5). Falls back to the input unchanged if it cannot be resolved (e.g. the
// directory no longer exists).
func CanonicalizeCwd(cwd string) string {
	if real, err := filepath.EvalSymlinks(cwd); err == nil {
		return real
	}
	return cwd
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// Load reads and validates the policy document at path. An empty path
// yields an empty, already-valid Config (fail-closed only applies once a
// rule set exists; no file at all means "no rules configured", which is
// distinct from a malformed file).
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{Version: "1", compiled: map[string]*CompiledRule{}}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates raw YAML bytes into a Config. Unknown fields
// anywhere outside a Metadata map are rejected at this stage (spec §6.3
// "unrecognised keys are a load error"), since a silently-ignored typo in a
// matcher or action key is indistinguishable from a missing one and that
// ambiguity is exactly what a policy engine must not tolerate.
func Parse(raw []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("policy: parse: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = "1"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
