// Package gitlab implements a registry.Source backed by the GitLab
// repository files API. Supports both gitlab.com and self-hosted
// instances via the Host field in Config.
package gitlab
