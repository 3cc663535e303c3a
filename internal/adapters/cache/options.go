package cache

// DefaultMaxSize bounds the number of cached results.
const DefaultMaxSize = 256

type options struct {
	maxSize int
}

// Option applies a configuration option to the cache.
type Option func(*options)

// WithMaxSize sets the maximum number of entries. Zero or negative disables
// caching.
func WithMaxSize(maxSize int) Option {
	return func(o *options) {
		o.maxSize = maxSize
	}
}
