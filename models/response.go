package models

// HealthCheckResponse returns the health check response duh
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}

// ErrorResponse is the JSON envelope written for every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageResponse is written by delete endpoints
type MessageResponse struct {
	Message string `json:"message"`
}
