package bitbucket

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/byte4ever/boiler/registry"
)

// Config holds the settings needed to read a Bitbucket
// Server repository.
type Config struct {
	// BaseURL is the Bitbucket Server root
	// (e.g. "https://bb.example.com").
	BaseURL string
	// Project is the project key (e.g. "TM").
	Project string
	// Repo is the repository slug.
	Repo string
	// Ref is the branch, tag or commit to read.
	Ref string
	// User is the Bitbucket API username.
	User string
	// Password is the Bitbucket API password (or
	// personal access token).
	Password string
	// RetryMax caps transient-failure retries.
	RetryMax int
}

// Source reads files through the Bitbucket Server REST
// API.
//
// Pattern: Strategy -- implements registry.Source.
type Source struct {
	client   *retryablehttp.Client
	repoURL  string
	ref      string
	user     string
	password string
}

type filesPage struct {
	Values        []string `json:"values"`
	IsLastPage    bool     `json:"isLastPage"`
	NextPageStart int      `json:"nextPageStart"`
}

// NewSource validates cfg and returns a Source.
func NewSource(cfg Config) (*Source, error) {
	const errCtx = "creating bitbucket source"

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf(
			"%s: base url must be set",
			errCtx,
		)
	}

	if cfg.Project == "" {
		return nil, fmt.Errorf(
			"%s: project must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	if cfg.User != "" && cfg.Password == "" {
		return nil, fmt.Errorf(
			"%s: password must be set", errCtx,
		)
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = cfg.RetryMax
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Source{
		client: client,
		repoURL: strings.TrimSuffix(cfg.BaseURL, "/") +
			"/rest/api/1.0/projects/" + url.PathEscape(cfg.Project) +
			"/repos/" + url.PathEscape(cfg.Repo),
		ref:      cfg.Ref,
		user:     cfg.User,
		password: cfg.Password,
	}, nil
}

// ReadFile returns the raw content of the file at p.
func (s *Source) ReadFile(ctx context.Context, p string) ([]byte, error) {
	const errCtx = "reading bitbucket file"

	body, err := s.get(ctx, "/raw/"+escapePath(p), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, p, err)
	}

	return body, nil
}

// ListFiles follows the paged files endpoint until the last
// page.
func (s *Source) ListFiles(ctx context.Context, dir string) ([]string, error) {
	const errCtx = "listing bitbucket files"

	var (
		files []string
		start int
	)

	for {
		query := url.Values{}
		query.Set("start", strconv.Itoa(start))

		body, err := s.get(ctx, "/files/"+escapePath(dir), query)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", errCtx, dir, err)
		}

		var page filesPage

		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("%s: decode page: %w", errCtx, err)
		}

		files = append(files, page.Values...)

		if page.IsLastPage || page.NextPageStart <= start {
			break
		}

		start = page.NextPageStart
	}

	sort.Strings(files)

	return files, nil
}

func (s *Source) get(
	ctx context.Context,
	suffix string,
	query url.Values,
) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}

	if s.ref != "" {
		query.Set("at", s.ref)
	}

	target := s.repoURL + suffix
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(
		ctx, http.MethodGet, target, nil,
	)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if s.user != "" {
		req.SetBasicAuth(s.user, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, registry.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		slog.Warn(
			"bitbucket response",
			"status", resp.Status,
			"body", string(body),
		)

		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return body, nil
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}

	return strings.Join(parts, "/")
}
