package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest describes one story project (story.yaml).
type Manifest struct {
	Title         string              `yaml:"title"`
	Player        string              `yaml:"player"`
	PlayerKeyword string              `yaml:"player_keyword"`
	Entry         string              `yaml:"entry"`
	Assets        string              `yaml:"assets"`
	Characters    []CharacterManifest `yaml:"characters"`
	// Replacements feed the word filter applied to displayed text.
	Replacements map[string]string `yaml:"replacements"`
	// MaxSteps ends a run after this many instructions. Zero means no limit.
	MaxSteps int `yaml:"max_steps"`
}

// CharacterManifest pre-registers a character. Stats back the check command.
type CharacterManifest struct {
	Key   string         `yaml:"key"`
	Name  string         `yaml:"name"`
	HP    int            `yaml:"hp"`
	AC    int            `yaml:"ac"`
	Stats map[string]int `yaml:"stats"`
}

// LoadManifest reads a manifest file. A relative assets directory is resolved
// against the manifest's own directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !filepath.IsAbs(m.Assets) {
		m.Assets = filepath.Join(filepath.Dir(path), m.Assets)
	}
	return m, nil
}

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Entry == "" {
		return nil, errors.New("manifest has no entry script")
	}
	if m.Assets == "" {
		m.Assets = "."
	}
	if m.MaxSteps < 0 {
		return nil, fmt.Errorf("max_steps must not be negative, got %d", m.MaxSteps)
	}
	seen := make(map[string]bool, len(m.Characters))
	for i, c := range m.Characters {
		if c.Key == "" {
			return nil, fmt.Errorf("character %d has no key", i+1)
		}
		if seen[c.Key] {
			return nil, fmt.Errorf("character %q is declared twice", c.Key)
		}
		seen[c.Key] = true
		if c.Name == "" {
			m.Characters[i].Name = c.Key
		}
	}
	return &m, nil
}
