// Package output renders command results for xpipe-cli as aligned tables,
// indented JSON or YAML.
//
// Commands hand a Printer both the raw value (for JSON and YAML) and a
// Table built from it; types that know their tabular form implement
// Tabular instead.
package output
