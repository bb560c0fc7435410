// Package registry fetches snippets and stacks from a hosted
// repository so they can be imported into the local store.
//
// The Source interface abstracts file access. Implementations exist
// for GitHub, GitLab and Bitbucket Server in sub-packages, plus
// gitrepo, which works with any git remote through a sparse clone.
// Funcs lets plain functions satisfy the interface.
package registry
