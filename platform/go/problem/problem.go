// Package problem implements the RFC 7807 problem-details responses the API
// returns on every error path.
package problem

import (
	"encoding/json"
	"net/http"
)

// Problem types exposed by the API.
const (
	TypeValidation = "https://conecta.network/problems/validation-error"
	TypeForbidden  = "https://conecta.network/problems/forbidden"
	TypeNotFound   = "https://conecta.network/problems/not-found"
	TypeConflict   = "https://conecta.network/problems/conflict"
	TypeInternal   = "https://conecta.network/problems/internal-error"
)

// Details is an RFC 7807 response body. Errors carries field-level validation
// issues when present.
type Details struct {
	Type   string              `json:"type"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// New builds a Details value.
func New(problemType, title string, status int, detail string) Details {
	return Details{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

// Write serializes the problem to the response with the matching status code.
func Write(w http.ResponseWriter, p Details) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
