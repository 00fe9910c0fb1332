package pubsub

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithBufferSize sets the per-subscriber message buffer.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}
