// Package completion defines the text-completion provider port.
package completion

import "context"

// Result is the outcome of one completion call.
type Result struct {
	Text   string `json:"text"`
	IsMock bool   `json:"isMock"`
}

// Provider turns a system/user prompt pair into completion text.
// Non-success upstream responses are returned as *domain.UpstreamError.
type Provider interface {
	Complete(ctx context.Context, system, user string) (Result, error)
	// Configured reports whether a real completion service is wired in.
	Configured() bool
}
