package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/boiler/registry"
)

// Config holds the settings needed to read a GitHub
// repository.
type Config struct {
	// RepoOwner is the GitHub user or organisation
	// that owns the repository.
	RepoOwner string
	// Repo is the repository name (without owner).
	Repo string
	// Ref is the branch, tag or commit to read. Empty
	// uses the default branch.
	Ref string
	// AccessToken is optional for public repositories.
	AccessToken string
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Leave
	// empty for github.com.
	EnterpriseHost string
	// APIURL overrides the API base URL.
	APIURL string
}

// Source reads files through the GitHub contents and git
// trees APIs.
//
// Pattern: Strategy -- implements registry.Source.
type Source struct {
	client    *gh.Client
	repoOwner string
	repo      string
	ref       string
}

// NewSource validates cfg and returns a Source.
func NewSource(cfg Config) (*Source, error) {
	const errCtx = "creating github source"

	if cfg.RepoOwner == "" {
		return nil, fmt.Errorf(
			"%s: repo owner must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	client := gh.NewClient(nil)

	if cfg.AccessToken != "" {
		client = client.WithAuthToken(cfg.AccessToken)
	}

	switch {
	case cfg.APIURL != "":
		base, err := url.Parse(strings.TrimSuffix(cfg.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("%s: api url: %w", errCtx, err)
		}

		client.BaseURL = base
	case cfg.EnterpriseHost != "":
		baseURL := "https://" +
			cfg.EnterpriseHost + "/api/v3/"
		uploadURL := "https://" +
			cfg.EnterpriseHost + "/api/uploads/"

		var err error

		client, err = client.WithEnterpriseURLs(
			baseURL, uploadURL,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: enterprise urls: %w",
				errCtx, err,
			)
		}
	}

	return &Source{
		client:    client,
		repoOwner: cfg.RepoOwner,
		repo:      cfg.Repo,
		ref:       cfg.Ref,
	}, nil
}

// ReadFile returns the decoded content of the file at p.
func (s *Source) ReadFile(ctx context.Context, p string) ([]byte, error) {
	const errCtx = "reading github file"

	fc, _, resp, err := s.client.Repositories.GetContents(
		ctx, s.repoOwner, s.repo, p,
		&gh.RepositoryContentGetOptions{Ref: s.ref},
	)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, p, registry.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if fc == nil {
		return nil, fmt.Errorf("%s: %s is a directory", errCtx, p)
	}

	content, err := fc.GetContent()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return []byte(content), nil
}

// ListFiles walks the repository tree once and returns the
// blobs below dir.
func (s *Source) ListFiles(ctx context.Context, dir string) ([]string, error) {
	const errCtx = "listing github files"

	ref := s.ref
	if ref == "" {
		ref = "HEAD"
	}

	tree, resp, err := s.client.Git.GetTree(
		ctx, s.repoOwner, s.repo, ref, true,
	)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, ref, registry.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if tree.GetTruncated() {
		return nil, fmt.Errorf("%s: repository tree is too large", errCtx)
	}

	prefix := strings.Trim(dir, "/") + "/"

	var files []string

	for _, en := range tree.Entries {
		if en.GetType() != "blob" {
			continue
		}

		if rel, ok := strings.CutPrefix(en.GetPath(), prefix); ok {
			files = append(files, rel)
		}
	}

	sort.Strings(files)

	return files, nil
}
