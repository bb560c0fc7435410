package stamper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/valyala/fasttemplate"

	"github.com/byte4ever/boiler/exec"
)

// Builtin stamp names.
const (
	KeyDate    = "date"
	KeyYear    = "year"
	KeyAuthor  = "author"
	KeyProject = "project"
	KeyOS      = "os"
)

// Builtins collects the builtin stamps. Nil fields fall back
// to the real clock and to git config.
type Builtins struct {
	Now    func() time.Time
	Author func(ctx context.Context) (string, error)
}

// Collect returns the builtin stamps for a render into
// projectDir.
func (b Builtins) Collect(
	ctx context.Context,
	projectDir string,
) map[string]interface{} {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	author := GitAuthor
	if b.Author != nil {
		author = b.Author
	}

	ts := now()

	stamps := map[string]interface{}{
		KeyDate: ts.Format("2006-01-02"),
		KeyYear: ts.Format("2006"),
		KeyOS:   runtime.GOOS,
	}

	if projectDir != "" {
		if abs, err := filepath.Abs(projectDir); err == nil {
			stamps[KeyProject] = filepath.Base(abs)
		}
	}

	name, err := author(ctx)
	if err != nil || name == "" {
		slog.Debug("author stamp unavailable", "error", err)

		name = os.Getenv("USER")
	}

	if name != "" {
		stamps[KeyAuthor] = name
	}

	return stamps
}

// GitAuthor returns git's configured user.name.
func GitAuthor(ctx context.Context) (string, error) {
	const errCtx = "reading git author"

	name, err := exec.Output(ctx, "git", "config", "user.name")
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return name, nil
}

// LoadStamps reads stamp files and merges them into a single
// map. Each line is "KEY VALUE" with the first space as
// delimiter. Lines without a space are silently skipped and
// later files win.
func LoadStamps(
	infoFiles []string,
) (map[string]interface{}, error) {
	const errCtx = "loading stamps"

	stamps := make(map[string]interface{})

	for _, sf := range infoFiles {
		content, err := os.ReadFile(sf) //nolint:gosec // paths from CLI flags
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		for _, line := range strings.Split(
			string(content), "\n",
		) {
			key, val, ok := strings.Cut(strings.TrimRight(line, "\r"), " ")
			if ok && key != "" {
				stamps[key] = val
			}
		}
	}

	return stamps, nil
}

// Merge combines stamp maps. Later maps win.
func Merge(maps ...map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})

	for _, ma := range maps {
		for k, v := range ma {
			out[k] = v
		}
	}

	return out
}

// Stamp substitutes {KEY} placeholders in format. Unknown
// placeholders are preserved as-is.
func Stamp(
	stamps map[string]interface{},
	format string,
) string {
	return fasttemplate.ExecuteStringStd(
		format, "{", "}", stamps,
	)
}
