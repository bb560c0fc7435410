// Package gitrepo reads a registry from any git remote by keeping a
// partial, sparse clone on disk.
//
// Clone creates a Repo restricted to the registry subtree. Update
// fetches the tracked branch again. Repo satisfies registry.Source by
// reading from its working tree.
package gitrepo
