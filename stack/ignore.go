package stack

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// defaultIgnore is always excluded from stacks.
var defaultIgnore = []string{".git", ".DS_Store", "*.digest"}

// Ignored reports whether the slash-separated relative path
// rel matches one of patterns. A pattern matches the base
// name of any path element or the whole relative path; a
// trailing slash restricts it to directories by matching
// path prefixes.
func Ignored(patterns []string, rel string) bool {
	rel = filepath.ToSlash(rel)
	elems := strings.Split(rel, "/")

	all := make([]string, 0, len(patterns)+len(defaultIgnore))
	all = append(all, patterns...)
	all = append(all, defaultIgnore...)

	for _, pat := range all {
		pat = strings.TrimPrefix(filepath.ToSlash(pat), "./")
		pat = strings.TrimSuffix(pat, "/")

		if pat == "" {
			continue
		}

		if ok, _ := path.Match(pat, rel); ok {
			return true
		}

		if strings.HasPrefix(rel, pat+"/") {
			return true
		}

		for _, el := range elems {
			if ok, _ := path.Match(pat, el); ok {
				return true
			}
		}
	}

	return false
}

// Walk lists the regular files under dir, relative and
// slash-separated, in lexical order. Ignored entries and the
// manifest are excluded.
func Walk(dir string, ignore []string) ([]string, error) {
	const errCtx = "listing stack files"

	var files []string

	err := filepath.WalkDir(dir, func(pa string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, pa)
		if err != nil {
			return err
		}

		if rel == "." {
			return nil
		}

		rel = filepath.ToSlash(rel)

		if Ignored(ignore, rel) {
			if de.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if de.Type().IsRegular() && !IsManifest(rel) {
			files = append(files, rel)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	sort.Strings(files)

	return files, nil
}
