// Package bitbucket implements a registry.Source for Bitbucket Server
// using its REST API 1.0 raw and files endpoints with basic
// authentication.
package bitbucket
