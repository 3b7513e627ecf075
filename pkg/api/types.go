package api

import (
	"github.com/ssargent/slippc/pkg/storage"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind string
	Port int
	// APIKey protects /api/v1 when set
	APIKey         string
	MaxUploadBytes int64
}

// DecodeError describes a capture the server could not decode
type DecodeError struct {
	Kind   string `json:"kind"`
	Offset int    `json:"offset"`
	Detail string `json:"detail"`
}

// MatchStore is the catalog the server lists and records matches in
type MatchStore interface {
	Get(matchID string) (storage.Entry, error)
	List() ([]storage.Entry, error)
	Put(e storage.Entry) error
}
