package stack

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"
)

// Manifest file names, in lookup order.
const (
	ManifestJSON = "boiler.stack.json"
	ManifestYAML = "boiler.stack.yaml"
	ManifestYML  = "boiler.stack.yml"
)

const schemaURL = "https://boiler.dev/schema/boiler.stack.json"

//go:embed schema/stack.schema.json
var schemaJSON string

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

// ErrNoManifest is returned when a directory has no stack
// manifest.
var ErrNoManifest = errors.New(
	"boiler.stack.json not found (run 'bl init' first)",
)

// FileEntry places one snippet in the target directory.
type FileEntry struct {
	// Snippet is a path relative to the stack directory.
	Snippet string `json:"snippet,omitempty"`
	// Ref names a snippet in the store.
	Ref string `json:"ref,omitempty"`
	// Dest is relative to the target directory and may
	// contain variable tokens.
	Dest string            `json:"dest"`
	Set  map[string]string `json:"set,omitempty"`
}

// Manifest is the content of boiler.stack.json.
type Manifest struct {
	ID          string            `json:"id"`
	Version     string            `json:"version"`
	Author      string            `json:"author,omitempty"`
	Description string            `json:"description,omitempty"`
	CreatedAt   *time.Time        `json:"createdAt,omitempty"`
	Ignore      []string          `json:"ignore,omitempty"`
	Set         map[string]string `json:"set,omitempty"`
	Files       []FileEntry       `json:"files,omitempty"`
}

// Name is the store name of the stack, id@version.
func (m *Manifest) Name() string {
	return m.ID + "@" + m.Version
}

// FindManifest returns the path of the manifest in dir.
func FindManifest(dir string) (string, error) {
	for _, name := range []string{ManifestJSON, ManifestYAML, ManifestYML} {
		pa := filepath.Join(dir, name)
		if _, err := os.Stat(pa); err == nil {
			return pa, nil
		}
	}

	return "", fmt.Errorf("%s: %w", dir, ErrNoManifest)
}

// LoadManifest reads and validates the manifest in dir.
func LoadManifest(dir string) (*Manifest, error) {
	const errCtx = "loading stack manifest"

	pa, err := FindManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	data, err := os.ReadFile(pa) //nolint:gosec // stack directory chosen by the user
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	ma, err := ParseManifest(data, filepath.Ext(pa) != ".json")
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, pa, err)
	}

	return ma, nil
}

// ParseManifest decodes and validates manifest content.
// YAML content is converted to JSON first.
func ParseManifest(data []byte, isYAML bool) (*Manifest, error) {
	const errCtx = "parsing manifest"

	if isYAML {
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%s: converting yaml: %w", errCtx, err)
		}

		data = converted
	}

	var document interface{}
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	sch, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := sch.Validate(document); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var ma Manifest
	if err := json.Unmarshal(data, &ma); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &ma, nil
}

// WriteManifest writes ma as boiler.stack.json in dir.
func WriteManifest(dir string, ma *Manifest) error {
	const errCtx = "writing stack manifest"

	data, err := json.MarshalIndent(ma, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	pa := filepath.Join(dir, ManifestJSON)

	if err := os.WriteFile(pa, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// IsManifest reports whether rel names a manifest file at
// the stack root.
func IsManifest(rel string) bool {
	switch filepath.ToSlash(rel) {
	case ManifestJSON, ManifestYAML, ManifestYML:
		return true
	}

	return false
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		if err := compiler.AddResource(
			schemaURL, strings.NewReader(schemaJSON),
		); err != nil {
			schemaErr = err

			return
		}

		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})

	return compiledSchema, schemaErr
}
