// Package api holds the OpenAPI description of the HTTP adapter.
package api

import _ "embed"

// Document is the OpenAPI 3 document served at /openapi.yaml and used to
// validate incoming requests.
//
//go:embed openapi.yaml
var Document []byte
