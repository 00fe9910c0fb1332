package repository

import "time"

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithTimeout bounds every store call, including time spent queued.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}
