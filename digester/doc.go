// Package digester computes SHA256 digests of snippet files and
// rendered output. The store keeps a digest in a .digest sidecar
// next to every imported snippet, and the scaffold writer compares
// digests to detect destinations that would not change.
package digester
