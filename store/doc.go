// Package store manages the local versioned store of snippets and
// stacks. Snippets live under snippets/<ext>/name@version.ext with a
// .digest sidecar, stacks under stacks/id@version, and
// boiler.meta.json indexes both.
package store
