package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/boiler/registry"
)

// Config holds the settings needed to read a GitLab
// project.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com").
	Host string
	// Repo is the full project path
	// (e.g. "org/project").
	Repo string
	// Ref is the branch, tag or commit to read.
	Ref string
	// AccessToken is optional for public projects.
	AccessToken string
}

// Source reads files through the GitLab repository
// files and tree APIs.
//
// Pattern: Strategy -- implements registry.Source.
type Source struct {
	client *gl.Client
	repo   string
	ref    string
}

// NewSource validates cfg and returns a Source.
func NewSource(cfg Config) (*Source, error) {
	const errCtx = "creating gitlab source"

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = "https://gitlab.com"
	}

	ref := cfg.Ref
	if ref == "" {
		ref = "HEAD"
	}

	client, err := gl.NewClient(
		cfg.AccessToken,
		gl.WithBaseURL(host),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	return &Source{
		client: client,
		repo:   cfg.Repo,
		ref:    ref,
	}, nil
}

// ReadFile returns the raw content of the file at p.
func (s *Source) ReadFile(ctx context.Context, p string) ([]byte, error) {
	const errCtx = "reading gitlab file"

	data, resp, err := s.client.RepositoryFiles.GetRawFile(
		s.repo, strings.Trim(p, "/"),
		&gl.GetRawFileOptions{Ref: gl.Ptr(s.ref)},
		gl.WithContext(ctx),
	)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, p, registry.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return data, nil
}

// ListFiles pages through the recursive tree below dir.
func (s *Source) ListFiles(ctx context.Context, dir string) ([]string, error) {
	const errCtx = "listing gitlab files"

	dir = strings.Trim(dir, "/")

	opt := &gl.ListTreeOptions{
		Path:      gl.Ptr(dir),
		Ref:       gl.Ptr(s.ref),
		Recursive: gl.Ptr(true),
	}
	opt.PerPage = 100
	opt.Page = 1

	var files []string

	for {
		nodes, resp, err := s.client.Repositories.ListTree(
			s.repo, opt, gl.WithContext(ctx),
		)
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %s: %w", errCtx, dir, registry.ErrNotFound)
		}

		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		for _, n := range nodes {
			if n.Type != "blob" {
				continue
			}

			if rel, ok := strings.CutPrefix(n.Path, dir+"/"); ok {
				files = append(files, rel)
			}
		}

		if resp.NextPage == 0 {
			break
		}

		opt.Page++
	}

	sort.Strings(files)

	return files, nil
}
