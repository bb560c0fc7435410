package bitbucket_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/boiler/registry"
	bb "github.com/byte4ever/boiler/registry/bitbucket"
)

func TestNewSource_valid(t *testing.T) {
	t.Parallel()

	src, err := bb.NewSource(bb.Config{
		BaseURL:  "https://bb.example.com",
		Project:  "TM",
		Repo:     "boiler",
		User:     "admin",
		Password: "secret",
	})

	require.NoError(t, err)
	assert.NotNil(t, src)
}

func TestNewSource_missing_fields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  bb.Config
		want string
	}{
		{
			name: "base url",
			cfg:  bb.Config{Project: "TM", Repo: "boiler"},
			want: "base url",
		},
		{
			name: "project",
			cfg:  bb.Config{BaseURL: "https://bb", Repo: "boiler"},
			want: "project must be set",
		},
		{
			name: "repo",
			cfg:  bb.Config{BaseURL: "https://bb", Project: "TM"},
			want: "repo must be set",
		},
		{
			name: "password",
			cfg: bb.Config{
				BaseURL: "https://bb", Project: "TM",
				Repo: "boiler", User: "admin",
			},
			want: "password",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src, err := bb.NewSource(tt.cfg)

			assert.Nil(t, src)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func newSource(t *testing.T, h http.HandlerFunc) *bb.Source {
	t.Helper()

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	src, err := bb.NewSource(bb.Config{
		BaseURL:  ts.URL,
		Project:  "TM",
		Repo:     "boiler",
		Ref:      "main",
		User:     "admin",
		Password: "secret",
	})
	require.NoError(t, err)

	return src
}

func TestSource_ReadFile(t *testing.T) {
	t.Parallel()

	src := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "main", r.URL.Query().Get("at"))

		if r.URL.Path != "/rest/api/1.0/projects/TM/repos/boiler/raw/store/snippets/js/logger@1.js" {
			http.NotFound(w, r)

			return
		}

		fmt.Fprint(w, "log()")
	})

	got, err := src.ReadFile(context.Background(), "store/snippets/js/logger@1.js")
	require.NoError(t, err)
	assert.Equal(t, "log()", string(got))

	_, err = src.ReadFile(context.Background(), "store/snippets/js/ghost@1.js")
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestSource_ListFiles_pages(t *testing.T) {
	t.Parallel()

	src := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/1.0/projects/TM/repos/boiler/files/store/stacks/api@1", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")

		if r.URL.Query().Get("start") == "2" {
			fmt.Fprint(w, `{"values":["a.js"],"isLastPage":true}`)

			return
		}

		fmt.Fprint(w, `{"values":["src/b.js","boiler.stack.json"],"isLastPage":false,"nextPageStart":2}`)
	})

	got, err := src.ListFiles(context.Background(), "store/stacks/api@1")

	require.NoError(t, err)
	assert.Equal(t, []string{"a.js", "boiler.stack.json", "src/b.js"}, got)
}

func TestSource_server_error(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	src := newSource(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, err := src.ReadFile(context.Background(), "a.js")

	require.Error(t, err)
	assert.ErrorContains(t, err, "403")
	assert.Equal(t, int32(1), calls.Load())
}
