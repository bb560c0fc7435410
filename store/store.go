package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/byte4ever/boiler/digester"
	"github.com/byte4ever/boiler/snippet"
	"github.com/byte4ever/boiler/stack"
)

// MetaFile is the store index file name.
const MetaFile = "boiler.meta.json"

var (
	// ErrNotFound is returned for names missing from the index.
	ErrNotFound = errors.New("not found in store")
	// ErrAlreadyStored is returned when importing a version that
	// exists without overwrite.
	ErrAlreadyStored = errors.New("already stored (overwrite to replace)")
	// ErrMissingAuthor is returned for snippets without __author.
	ErrMissingAuthor = errors.New(
		"snippet has no author (add a '// __author Your Name' line)",
	)
)

// Meta is the content of boiler.meta.json.
type Meta struct {
	Stacks   map[string]string `json:"stacks"`
	Snippets map[string]string `json:"snippets"`
}

// Entry is one indexed resource.
type Entry struct {
	ResourceName

	Kind Kind
	Path string
}

// FullName is the index key, e.g. logger@2.js.
func (e Entry) FullName() string {
	return e.ResourceName.String()
}

// Paths locates the store on disk.
type Paths struct {
	Root     string
	Snippets string
	Stacks   string
}

// Store is the local versioned snippet and stack store.
type Store struct {
	mu    sync.Mutex
	paths Paths
	meta  Meta
}

// New returns a store rooted at the given paths. Call Load
// before use.
func New(paths Paths) *Store {
	if paths.Snippets == "" {
		paths.Snippets = filepath.Join(paths.Root, "snippets")
	}

	if paths.Stacks == "" {
		paths.Stacks = filepath.Join(paths.Root, "stacks")
	}

	return &Store{
		paths: paths,
		meta: Meta{
			Stacks:   make(map[string]string),
			Snippets: make(map[string]string),
		},
	}
}

// Open creates a store and loads its index.
func Open(paths Paths) (*Store, error) {
	st := New(paths)

	if err := st.Load(); err != nil {
		return nil, err
	}

	return st, nil
}

func (s *Store) metaPath() string {
	return filepath.Join(s.paths.Root, MetaFile)
}

// Load reads the index, creating it on first use.
func (s *Store) Load() error {
	const errCtx = "loading store index"

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.metaPath())
	if errors.Is(err, os.ErrNotExist) {
		if err := s.save(); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		return nil
	}

	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("%s: %s: %w", errCtx, s.metaPath(), err)
	}

	if meta.Stacks == nil {
		meta.Stacks = make(map[string]string)
	}

	if meta.Snippets == nil {
		meta.Snippets = make(map[string]string)
	}

	s.meta = meta

	return nil
}

// Save writes the index.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save()
}

func (s *Store) save() error {
	const errCtx = "saving store index"

	if err := os.MkdirAll(s.paths.Root, 0o750); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	data, err := json.MarshalIndent(s.meta, "", "    ")
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := os.WriteFile(s.metaPath(), data, 0o600); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func (s *Store) index(kind Kind) map[string]string {
	if kind == KindStack {
		return s.meta.Stacks
	}

	return s.meta.Snippets
}

// Get looks up an exact full name.
func (s *Store) Get(fullName string) (Entry, bool) {
	rn, err := ParseResourceName(fullName)
	if err != nil {
		return Entry{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pa, ok := s.index(rn.Kind())[rn.String()]
	if !ok {
		return Entry{}, false
	}

	return Entry{ResourceName: rn, Kind: rn.Kind(), Path: pa}, true
}

// Resolve finds ref in the index. A ref without a version
// resolves to the highest stored version.
func (s *Store) Resolve(ref string) (Entry, error) {
	const errCtx = "resolving"

	rn, err := ParseResourceName(ref)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if rn.Version == 0 {
		versions := s.Versions(rn)
		if len(versions) == 0 {
			return Entry{}, fmt.Errorf(
				"%s: %s %s: %w", errCtx, rn.Kind(), ref, ErrNotFound,
			)
		}

		rn.Version = versions[len(versions)-1]
	}

	en, ok := s.Get(rn.String())
	if !ok {
		return Entry{}, fmt.Errorf(
			"%s: %s %s: %w", errCtx, rn.Kind(), rn, ErrNotFound,
		)
	}

	return en, nil
}

// ResolveSnippet returns the file path of a snippet ref.
func (s *Store) ResolveSnippet(ref string) (string, error) {
	en, err := s.Resolve(ref)
	if err != nil {
		return "", err
	}

	if en.Kind != KindSnippet {
		return "", fmt.Errorf("resolving %s: not a snippet", ref)
	}

	return en.Path, nil
}

// List returns entries of kind, or of both kinds when kind
// is empty, sorted by name, extension and version.
func (s *Store) List(kind Kind) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry

	for _, k := range []Kind{KindSnippet, KindStack} {
		if kind != "" && kind != k {
			continue
		}

		for full, pa := range s.index(k) {
			rn, err := ParseResourceName(full)
			if err != nil {
				slog.Warn("skipping invalid index entry", "name", full)

				continue
			}

			out = append(out, Entry{ResourceName: rn, Kind: k, Path: pa})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]

		switch {
		case a.Kind != b.Kind:
			return a.Kind == KindSnippet
		case a.Name != b.Name:
			return a.Name < b.Name
		case a.Ext != b.Ext:
			return a.Ext < b.Ext
		default:
			return a.Version < b.Version
		}
	})

	return out
}

// Search returns entries whose full name contains query,
// case-insensitively.
func (s *Store) Search(query string, kind Kind) []Entry {
	query = strings.ToLower(query)

	var out []Entry

	for _, en := range s.List(kind) {
		if strings.Contains(strings.ToLower(en.FullName()), query) {
			out = append(out, en)
		}
	}

	return out
}

// Versions lists the stored versions of rn's name and
// extension in ascending order.
func (s *Store) Versions(rn ResourceName) []int {
	var versions []int

	for _, en := range s.List(rn.Kind()) {
		if en.Name == rn.Name && en.Ext == rn.Ext {
			versions = append(versions, en.Version)
		}
	}

	return versions
}

// NextVersion is one above the highest stored version.
func (s *Store) NextVersion(rn ResourceName) int {
	versions := s.Versions(rn)
	if len(versions) == 0 {
		return 1
	}

	return versions[len(versions)-1] + 1
}

// ImportSnippet copies the snippet at src into the store. An
// empty name uses the file's base name. A snippet without a
// __version is stored as the next free version.
func (s *Store) ImportSnippet(
	src string,
	name string,
	overwrite bool,
) (Entry, error) {
	const errCtx = "storing snippet"

	sn, err := snippet.ParseFile(src)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if strings.TrimSpace(sn.Author) == "" {
		return Entry{}, fmt.Errorf("%s: %s: %w", errCtx, src, ErrMissingAuthor)
	}

	ext := filepath.Ext(src)
	if ext == "" {
		return Entry{}, fmt.Errorf("%s: %s: snippet file needs an extension", errCtx, src)
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(src), ext)
	}

	rn, err := ParseResourceName(strings.TrimSuffix(name, ext) + ext)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	switch {
	case rn.Version != 0:
	case sn.Version > 0:
		rn.Version = sn.Version
	default:
		rn.Version = s.NextVersion(rn)
	}

	if _, exists := s.Get(rn.String()); exists && !overwrite {
		return Entry{}, fmt.Errorf("%s: %s: %w", errCtx, rn, ErrAlreadyStored)
	}

	dest := filepath.Join(
		s.paths.Snippets,
		strings.TrimPrefix(rn.Ext, "."),
		rn.String(),
	)

	if err := copyFile(src, dest); err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := digester.SaveDigest(dest); err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := s.put(KindSnippet, rn.String(), dest); err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info("snippet stored", "name", rn.String(), "path", dest)

	return Entry{ResourceName: rn, Kind: KindSnippet, Path: dest}, nil
}

// ImportStack copies the stack directory dir into the store
// as id@version.
func (s *Store) ImportStack(dir string, overwrite bool) (Entry, error) {
	const errCtx = "storing stack"

	ma, err := stack.LoadManifest(dir)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	version, err := strconv.Atoi(ma.Version)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: invalid version %q: %w", errCtx, ma.Version, err)
	}

	rn := ResourceName{Name: ma.ID, Version: version}

	if _, exists := s.Get(rn.String()); exists && !overwrite {
		return Entry{}, fmt.Errorf("%s: %s: %w", errCtx, rn, ErrAlreadyStored)
	}

	dest := filepath.Join(s.paths.Stacks, rn.String())

	if err := os.RemoveAll(dest); err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := copyDir(dir, dest, ma.Ignore); err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := s.put(KindStack, rn.String(), dest); err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info("stack stored", "name", rn.String(), "path", dest)

	return Entry{ResourceName: rn, Kind: KindStack, Path: dest}, nil
}

// LoadStack resolves ref and loads the stored stack.
func (s *Store) LoadStack(ref string) (*stack.Stack, error) {
	en, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}

	if en.Kind != KindStack {
		return nil, fmt.Errorf("loading stack %s: not a stack", ref)
	}

	return stack.Load(en.Path)
}

func (s *Store) put(kind Kind, fullName string, pa string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index(kind)[fullName] = pa

	return s.save()
}

// Remove deletes a resource's files and index entry.
func (s *Store) Remove(fullName string) error {
	const errCtx = "removing"

	en, ok := s.Get(fullName)
	if !ok {
		return fmt.Errorf("%s: %s: %w", errCtx, fullName, ErrNotFound)
	}

	if err := os.RemoveAll(en.Path); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if en.Kind == KindSnippet {
		if err := digester.RemoveDigest(en.Path); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.index(en.Kind), en.FullName())

	if err := s.save(); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info("removed", "kind", en.Kind, "name", en.FullName())

	return nil
}

// Clear removes every resource of kind, or all resources
// when kind is empty, and returns the count removed.
func (s *Store) Clear(kind Kind) (int, error) {
	const errCtx = "clearing store"

	var n int

	for _, en := range s.List(kind) {
		if err := s.Remove(en.FullName()); err != nil {
			return n, fmt.Errorf("%s: %w", errCtx, err)
		}

		n++
	}

	return n, nil
}

// Verify checks a stored snippet against its digest
// sidecar. Stacks are never verified and report true.
func (s *Store) Verify(fullName string) (bool, error) {
	const errCtx = "verifying"

	en, ok := s.Get(fullName)
	if !ok {
		return false, fmt.Errorf("%s: %s: %w", errCtx, fullName, ErrNotFound)
	}

	if en.Kind == KindStack {
		return true, nil
	}

	ok, err := digester.VerifyDigest(en.Path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	return ok, nil
}
