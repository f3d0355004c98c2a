package blink

import _ "embed"

// DefaultCatalog is the protocol catalog used when neither --catalog nor the
// config file names one
//
//go:embed examples/catalog.yaml
var DefaultCatalog []byte
