// Package llm provides the internal representations of conversation turns and
// completion requests shared by the chat handler, the provider clients and tracing.
package llm

// ErrorResponse is the JSON error body returned by the HTTP API.
type ErrorResponse struct {
	Error string `json:"error"`
}
