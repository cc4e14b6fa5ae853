// Package mq publishes contest lifecycle events to an external broker so
// other systems (score dashboards, notification bots) can react to phase
// changes, entries, and votes. The broker is pluggable; publishing is always
// fire-and-forget from the contest's point of view, and consumers live
// outside this process.
package mq

import "context"

// Backend defines the broker operations the contest needs.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Publish sends a message to the named channel and returns its broker id.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
