// Command validate checks a story manifest and every script it ships.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/jwebster45206/dialogue-engine/pkg/asset"
	"github.com/jwebster45206/dialogue-engine/pkg/parser"
	"github.com/jwebster45206/dialogue-engine/pkg/sheet"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <story.yaml>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	validator := &StoryValidator{}

	if err := validator.validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Story is valid! (%d scripts)\n", validator.scripts)
}

type StoryValidator struct {
	errors  []string
	scripts int
}

func (v *StoryValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil
	v.scripts = 0

	// Unknown keys are usually typos of optional fields.
	var strict config.Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&strict); err != nil {
		return fmt.Errorf("file %s failed strict YAML decoding: %w", filename, err)
	}

	m, err := config.LoadManifest(filename)
	if err != nil {
		return err
	}

	v.validateManifest(m)
	v.validateScripts(m)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *StoryValidator) validateManifest(m *config.Manifest) {
	v.validateIDFormat("entry script", m.Entry)
	if m.PlayerKeyword != "" {
		v.validateIDFormat("player keyword", m.PlayerKeyword)
	}

	for _, c := range m.Characters {
		v.validateIDFormat("character key", c.Key)
		if c.HP < 0 {
			v.addError(fmt.Sprintf("character %s has negative hp %d", c.Key, c.HP))
		}
		for stat := range c.Stats {
			if !isValidID(stat) {
				v.addError(fmt.Sprintf("character %s has invalid stat name '%s' - should be lowercase snake_case", c.Key, stat))
			}
		}
	}

	for from, to := range m.Replacements {
		if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
			v.addError(fmt.Sprintf("replacement %q -> %q has an empty side", from, to))
		}
	}
}

func (v *StoryValidator) validateScripts(m *config.Manifest) {
	assets := asset.NewFileSource(m.Assets, slog.New(slog.DiscardHandler))
	if _, err := assets.Text(context.Background(), m.Entry); err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			v.addError(fmt.Sprintf("entry script '%s' not found under %s", m.Entry, filepath.Join(m.Assets, "scripts")))
		} else {
			v.addError(fmt.Sprintf("entry script '%s': %v", m.Entry, err))
		}
	}

	keys, err := scriptKeys(filepath.Join(m.Assets, "scripts"))
	if err != nil {
		v.addError(fmt.Sprintf("cannot list scripts: %v", err))
		return
	}

	sheets := sheet.New(nil)
	p := parser.New(parser.WithExtensions(sheets.Extensions()))
	for _, key := range keys {
		v.scripts++
		for _, part := range strings.Split(key, "/") {
			if !isValidID(strings.TrimPrefix(part, "x.")) {
				v.addError(fmt.Sprintf("script '%s' should be lowercase snake_case", key))
				break
			}
		}
		text, err := assets.Text(context.Background(), key)
		if err != nil {
			v.addError(fmt.Sprintf("script %s: %v", key, err))
			continue
		}
		if _, err := p.Parse(text); err != nil {
			v.addError(fmt.Sprintf("script %s: %v", key, err))
		}
	}
}

// scriptKeys lists the script keys below dir, slash separated and without
// extension.
func scriptKeys(dir string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch filepath.Ext(path) {
		case ".dlg", ".tsv", ".txt":
		default:
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel))))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	sort.Strings(keys)
	return keys, err
}

func (v *StoryValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}

	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *StoryValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
