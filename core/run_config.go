package core

import "time"

// RunConfig carries per-invocation execution limits. It is a plain value
// object copied onto every InvocationContext.
type RunConfig struct {
	// MaxModelCalls caps model backend calls per invocation. 0 means unlimited.
	MaxModelCalls int `json:"max_model_calls" yaml:"max_model_calls"`
	// MaxToolIterations caps call/response rounds a model agent performs per turn.
	MaxToolIterations int `json:"max_tool_iterations" yaml:"max_tool_iterations"`
	// EventBufferSize sets channel buffering for the runner's event stream.
	EventBufferSize int `json:"event_buffer_size" yaml:"event_buffer_size"`
}

// DefaultRunConfig returns the limits used when no configuration is supplied.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		MaxModelCalls:     100,
		MaxToolIterations: 5,
		EventBufferSize:   64,
	}
}

// CacheConfig controls the in-process model response cache. It is a value
// object carried alongside RunConfig; model agents honor it when generating.
type CacheConfig struct {
	Enabled    bool          `json:"enabled" yaml:"enabled"`
	TTL        time.Duration `json:"ttl" yaml:"ttl"`
	MaxEntries int           `json:"max_entries" yaml:"max_entries"`
}

// DefaultCacheConfig returns a disabled cache with sane limits for opt-in use.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{Enabled: false, TTL: 5 * time.Minute, MaxEntries: 256}
}
