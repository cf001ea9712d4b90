// Package dto holds the JSON payloads of the HTTP API.
package dto

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error             string `json:"error"`
	Kind              string `json:"kind,omitempty"`
	Stage             string `json:"stage,omitempty"`
	Output            string `json:"output,omitempty"`
	NeedsIntervention bool   `json:"needs_intervention,omitempty"`
}
