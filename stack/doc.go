// Package stack resolves multi-file scaffolds. A stack is a
// directory with a boiler.stack.json (or .yaml) manifest that either
// lists its files explicitly, each with a destination and optional
// overrides, or lets every file in the directory map to the same
// relative path. The Assembler renders each file and writes it
// independently, collecting per-file results in a Report.
package stack
