// Package config loads coursecache settings from YAML and builds the
// components they describe.
//
// String values may reference environment variables as ${VAR}. A reference
// to an unset variable fails the load; write $$ for a literal dollar sign.
package config
