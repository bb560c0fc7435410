package store

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Kind distinguishes snippets from stacks.
type Kind string

// Resource kinds.
const (
	KindSnippet Kind = "snippet"
	KindStack   Kind = "stack"
)

// ResourceName is a parsed store name such as logger@2.js.
// Version 0 means unspecified.
type ResourceName struct {
	Name    string
	Version int
	Ext     string
}

// ParseResourceName splits name@version.ext. Names with an
// extension are snippets, names without are stacks.
func ParseResourceName(resource string) (ResourceName, error) {
	const errCtx = "parsing resource name"

	var rn ResourceName

	base, ver, hasVer := strings.Cut(resource, "@")

	if hasVer {
		rn.Ext = filepath.Ext(ver)
		ver = strings.TrimSuffix(ver, rn.Ext)

		n, err := strconv.Atoi(ver)
		if err != nil || n <= 0 {
			return ResourceName{}, fmt.Errorf(
				"%s: %q: version %q is not a positive integer",
				errCtx, resource, ver,
			)
		}

		rn.Version = n
	}

	if rn.Ext == "" {
		rn.Ext = filepath.Ext(base)
		base = strings.TrimSuffix(base, rn.Ext)
	}

	rn.Name = base

	if rn.Name == "" || strings.ContainsAny(rn.Name, `/\`) {
		return ResourceName{}, fmt.Errorf(
			"%s: %q: invalid name", errCtx, resource,
		)
	}

	return rn, nil
}

// Kind returns KindSnippet when the name has an extension.
func (rn ResourceName) Kind() Kind {
	if rn.Ext == "" {
		return KindStack
	}

	return KindSnippet
}

// String formats the name back to name@version.ext.
func (rn ResourceName) String() string {
	if rn.Version == 0 {
		return rn.Name + rn.Ext
	}

	return rn.Name + "@" + strconv.Itoa(rn.Version) + rn.Ext
}

// WithVersion returns a copy with version v.
func (rn ResourceName) WithVersion(v int) ResourceName {
	rn.Version = v

	return rn
}

// Unversioned is the destination file name of a snippet,
// e.g. logger.js.
func (rn ResourceName) Unversioned() string {
	return rn.Name + rn.Ext
}
