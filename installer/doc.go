// Package installer serves Boiler's install endpoints.
//
// GET /install sniffs the User-Agent, fetches install.ps1 for Windows
// and PowerShell clients or install.sh otherwise from the configured
// script location, and returns it as plain text. The root path
// redirects to the public repository and any other path is a plain
// text 404 pointing there.
package installer
