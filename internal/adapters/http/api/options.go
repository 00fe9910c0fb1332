package api

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS allow-list for /api routes.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = append([]string(nil), origins...)
		}
	}
}
