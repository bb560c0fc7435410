// Package github implements a registry.Source that reads snippets and
// stacks from a GitHub repository (cloud or enterprise). Configure with
// a Config containing the repository owner, name and optional token.
// Set EnterpriseHost for GitHub Enterprise installations.
package github
