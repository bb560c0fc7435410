package stack

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/byte4ever/boiler/scaffold"
	"github.com/byte4ever/boiler/snippet"
	"github.com/byte4ever/boiler/templating"
)

// ErrDuplicateDestination is reported for every file after
// the first that renders to an already used destination.
var ErrDuplicateDestination = errors.New("destination already produced by this stack")

// Resolver finds store snippets referenced by manifest entries.
type Resolver interface {
	ResolveSnippet(ref string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ref string) (string, error)

// ResolveSnippet calls f(ref).
func (f ResolverFunc) ResolveSnippet(ref string) (string, error) {
	return f(ref)
}

// Stack is a stack directory and its manifest.
type Stack struct {
	Dir      string
	Manifest *Manifest
}

// Load reads the stack in dir.
func Load(dir string) (*Stack, error) {
	ma, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}

	return &Stack{Dir: dir, Manifest: ma}, nil
}

// Name is the store name of the stack.
func (st *Stack) Name() string {
	return st.Manifest.Name()
}

// Result is the outcome for one destination file.
type Result struct {
	// Dest is the rendered destination, relative to the
	// target directory.
	Dest string
	// Path is the absolute destination path, empty when Dest
	// could not be resolved.
	Path     string
	Source   string
	Outcome  scaffold.Outcome
	Err      error
	Warnings []snippet.Warning
}

// OK reports whether the file was applied.
func (r Result) OK() bool {
	return r.Err == nil
}

// Report lists per-file results in stack order.
type Report struct {
	Name    string
	Results []Result
	// Unused lists caller overrides that no file declares.
	Unused []string
}

// Succeeded counts applied files.
func (r *Report) Succeeded() int {
	n := 0

	for _, re := range r.Results {
		if re.OK() {
			n++
		}
	}

	return n
}

// Failed counts failed files.
func (r *Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Err joins the errors of every failed file, or returns nil.
func (r *Report) Err() error {
	var errs []error

	for _, re := range r.Results {
		if re.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", re.Dest, re.Err))
		}
	}

	return errors.Join(errs...)
}

// Assembler applies snippets and stacks to a target
// directory. Each file either fully succeeds or is reported
// failed; earlier files are never rolled back.
type Assembler struct {
	// Engine renders snippets. Nil uses a zero Engine.
	Engine *templating.Engine
	// Resolver resolves ref entries.
	Resolver Resolver
	// Prefix is the token prefix used for lint warnings.
	Prefix string
	Force  bool
	DryRun bool
	// Parallelism bounds concurrent writes. Values below 2
	// write sequentially.
	Parallelism int
}

type entry struct {
	source string
	dest   string
	set    map[string]string
}

type planned struct {
	content []byte
	mode    fs.FileMode
}

// Apply renders every file of st into targetDir. Caller
// overrides win over entry overrides, which win over
// manifest overrides, which win over snippet defaults.
// The error is non-nil only when the stack itself cannot be
// resolved; per-file failures are in the report.
func (a *Assembler) Apply(
	ctx context.Context,
	st *Stack,
	targetDir string,
	overrides map[string]string,
) (*Report, error) {
	const errCtx = "applying stack"

	entries, err := a.entries(st)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, st.Name(), err)
	}

	slog.Info(
		"applying stack",
		"stack", st.Name(),
		"files", len(entries),
		"target", targetDir,
	)

	return a.run(ctx, st.Name(), entries, targetDir, st.Manifest.Set, overrides), nil
}

// ApplySnippet renders a single snippet file to dest inside
// targetDir.
func (a *Assembler) ApplySnippet(
	ctx context.Context,
	source string,
	dest string,
	targetDir string,
	overrides map[string]string,
) *Report {
	return a.run(
		ctx,
		filepath.Base(source),
		[]entry{{source: source, dest: dest}},
		targetDir,
		nil,
		overrides,
	)
}

// entries lists the files of st in application order.
func (a *Assembler) entries(st *Stack) ([]entry, error) {
	ma := st.Manifest

	if len(ma.Files) == 0 {
		files, err := Walk(st.Dir, ma.Ignore)
		if err != nil {
			return nil, err
		}

		entries := make([]entry, 0, len(files))
		for _, rel := range files {
			entries = append(entries, entry{
				source: filepath.Join(st.Dir, filepath.FromSlash(rel)),
				dest:   rel,
			})
		}

		return entries, nil
	}

	entries := make([]entry, 0, len(ma.Files))

	for i, fe := range ma.Files {
		var (
			source string
			err    error
		)

		switch {
		case fe.Ref != "":
			if a.Resolver == nil {
				return nil, fmt.Errorf("files[%d]: no store to resolve %s", i, fe.Ref)
			}

			source, err = a.Resolver.ResolveSnippet(fe.Ref)
		default:
			source, err = scaffold.Within(st.Dir, filepath.FromSlash(fe.Snippet))
		}

		if err != nil {
			return nil, fmt.Errorf("files[%d]: %w", i, err)
		}

		entries = append(entries, entry{
			source: source,
			dest:   fe.Dest,
			set:    fe.Set,
		})
	}

	return entries, nil
}

// run plans every entry sequentially, then writes them with
// bounded parallelism. Results keep entry order.
func (a *Assembler) run(
	ctx context.Context,
	name string,
	entries []entry,
	targetDir string,
	stackSet map[string]string,
	overrides map[string]string,
) *Report {
	report := &Report{
		Name:    name,
		Results: make([]Result, len(entries)),
	}

	plans := make([]*planned, len(entries))
	seen := make(map[string]int, len(entries))
	used := make(map[string]bool, len(overrides))

	for i, en := range entries {
		re := &report.Results[i]
		re.Source = en.source
		re.Dest = en.dest

		pl, err := a.plan(en, targetDir, stackSet, overrides, re, used)
		if err != nil {
			re.Outcome = scaffold.Failed
			re.Err = err

			continue
		}

		if first, dup := seen[re.Path]; dup {
			re.Outcome = scaffold.Failed
			re.Err = fmt.Errorf(
				"%w: %s (files %d and %d)",
				ErrDuplicateDestination, re.Dest, first+1, i+1,
			)

			continue
		}

		seen[re.Path] = i
		plans[i] = pl
	}

	for oname := range overrides {
		if !used[oname] {
			report.Unused = append(report.Unused, oname)
		}
	}

	sort.Strings(report.Unused)

	a.write(ctx, report, plans)

	return report
}

// plan renders one entry and its destination.
func (a *Assembler) plan(
	en entry,
	targetDir string,
	stackSet map[string]string,
	overrides map[string]string,
	re *Result,
	used map[string]bool,
) (*planned, error) {
	info, err := os.Stat(en.source)
	if err != nil {
		return nil, err
	}

	sn, err := snippet.ParseFile(en.source)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(stackSet)+len(en.set)+len(overrides))

	for _, set := range []map[string]string{stackSet, en.set, overrides} {
		for k, v := range set {
			merged[k] = v
		}
	}

	engine := a.Engine
	if engine == nil {
		engine = &templating.Engine{}
	}

	bindings, err := engine.Resolve(sn.Variables, merged)
	if err != nil {
		return nil, err
	}

	for _, v := range sn.Variables {
		used[v.Name] = true
	}

	// Destinations may also reference overrides the snippet
	// does not declare.
	destBindings := bindings

	for k, v := range merged {
		if _, declared := sn.Lookup(k); declared {
			continue
		}

		if strings.Contains(en.dest, k) {
			used[k] = true
			destBindings = append(destBindings, templating.Binding{Name: k, Value: v})
		}
	}

	re.Dest = filepath.ToSlash(templating.Substitute(en.dest, destBindings))

	pa, err := scaffold.Within(targetDir, filepath.FromSlash(re.Dest))
	if err != nil {
		return nil, err
	}

	re.Path = pa
	re.Warnings = snippet.Lint(sn, a.Prefix)

	return &planned{
		content: []byte(templating.Substitute(sn.Body, bindings)),
		mode:    destMode(info.Mode()),
	}, nil
}

// destMode keeps only the executable bit of a stored file;
// the store's own permissions do not reach the project.
func destMode(m fs.FileMode) fs.FileMode {
	if m.Perm()&0o111 != 0 {
		return 0o755
	}

	return 0o644
}

// write applies the planned files. Destinations are unique,
// so no two workers touch the same path.
func (a *Assembler) write(
	ctx context.Context,
	report *Report,
	plans []*planned,
) {
	parallelism := a.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	var wg sync.WaitGroup

	sem := make(chan struct{}, parallelism)

	for i, pl := range plans {
		if pl == nil {
			continue
		}

		re := &report.Results[i]

		if ctx.Err() != nil {
			re.Outcome = scaffold.Failed
			re.Err = ctx.Err()

			continue
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(re *Result, pl *planned) {
			defer wg.Done()
			defer func() { <-sem }()

			re.Outcome, re.Err = scaffold.Write(
				re.Path,
				pl.content,
				scaffold.Options{
					Force:  a.Force,
					DryRun: a.DryRun,
					Mode:   pl.mode,
				},
			)

			slog.Debug(
				"applied",
				"dest", re.Dest,
				"outcome", re.Outcome,
				"error", re.Err,
			)
		}(re, pl)
	}

	wg.Wait()
}
