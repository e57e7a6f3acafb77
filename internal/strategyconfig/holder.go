package strategyconfig

import "sync/atomic"

// Holder keeps the current policy for readers while Watch swaps it
type Holder struct {
	cur atomic.Pointer[Config]
}

// NewHolder creates a holder with an initial policy
func NewHolder(cfg *Config) *Holder {
	h := &Holder{}
	h.cur.Store(cfg)
	return h
}

// Get returns the current policy
func (h *Holder) Get() *Config {
	return h.cur.Load()
}

// Set replaces the current policy
func (h *Holder) Set(cfg *Config) {
	h.cur.Store(cfg)
}
