package digester

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Suffix is appended to a file path to name its digest
// sidecar.
const Suffix = ".digest"

// DigestBytes returns the SHA256 hex digest of data.
func DigestBytes(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// CalculateDigest computes the SHA256 hex digest of the file at
// path. Returns empty string with no error if the file does not
// exist.
func CalculateDigest(path string) (result string, retErr error) {
	const errCtx = "calculating digest"

	fi, err := os.Open(path) //nolint:gosec // store and destination paths
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	ha := sha256.New()

	if _, err := io.Copy(ha, fi); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return hex.EncodeToString(ha.Sum(nil)), nil
}

// Matches reports whether the file at path exists and has
// exactly the content data.
func Matches(path string, data []byte) (bool, error) {
	const errCtx = "comparing digest"

	calc, err := CalculateDigest(path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	return calc != "" && calc == DigestBytes(data), nil
}

// GetDigest reads a stored digest from the sidecar of path.
// Returns empty string with no error if the sidecar does not
// exist.
func GetDigest(path string) (string, error) {
	const errCtx = "getting stored digest"

	digest, err := os.ReadFile(path + Suffix) //nolint:gosec // store paths
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return strings.TrimSpace(string(digest)), nil
}

// VerifyDigest compares the calculated digest of the file
// against its stored sidecar digest. A file without a
// sidecar does not verify.
func VerifyDigest(path string) (bool, error) {
	const errCtx = "verifying digest"

	stored, err := GetDigest(path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	if stored == "" {
		return false, nil
	}

	calc, err := CalculateDigest(path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	return calc == stored, nil
}

// SaveDigest calculates the digest of a file and writes it
// to its sidecar.
func SaveDigest(path string) error {
	const errCtx = "saving digest"

	digest, err := CalculateDigest(path)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if digest == "" {
		return fmt.Errorf("%s: %s: %w", errCtx, path, os.ErrNotExist)
	}

	if err := os.WriteFile(path+Suffix, []byte(digest), 0o600); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// RemoveDigest deletes the sidecar of path if present.
func RemoveDigest(path string) error {
	const errCtx = "removing digest"

	err := os.Remove(path + Suffix)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
