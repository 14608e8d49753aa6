package docs

import (
	_ "embed"
	"log/slog"
	"net/http"
)

//go:embed openapi.json
var openAPI []byte

// OpenAPI returns the raw document.
func OpenAPI() []byte {
	return openAPI
}

// ServeOpenAPI writes the embedded document.
func ServeOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(openAPI); err != nil {
		slog.Error("Error writing OpenAPI document", "error", err)
	}
}
