// Package stamper provides the stamp values that variable defaults
// may reference with single-brace placeholders such as {author} or
// {year}. Builtins collects the values Boiler knows about; LoadStamps
// reads extra KEY VALUE stamp files; Stamp substitutes a format
// string.
package stamper
