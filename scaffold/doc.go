// Package scaffold writes rendered snippets to their destination
// files. Writes either create the file exclusively or, when forced,
// replace it atomically; a destination that already holds the same
// content is left untouched.
package scaffold
