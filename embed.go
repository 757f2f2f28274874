// Package phonebook provides embedded runtime resources.
package phonebook

import _ "embed"

// DefaultConfig is the annotated config file written by "phonebook init".
//
//go:embed templates/config.yaml
var DefaultConfig []byte
