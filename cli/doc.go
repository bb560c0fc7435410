// Package cli implements bl, the Boiler command line.
//
// App wires the cobra command tree to the store, the stack
// assembler, the remote registries and the installer. Tests
// drive it through Execute with a temporary configuration and
// replace Prompter, Now, OpenSource and RunScript.
package cli
