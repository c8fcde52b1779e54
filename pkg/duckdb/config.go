package duckdb

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds DuckDB configuration. The store is a single local file;
// connection limits mostly matter for concurrent readers.
type ClientConfig struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

// WithPath sets the database file path.
func WithPath(path string) ClientOption {
	return func(c *ClientConfig) {
		c.Path = path
	}
}

// WithMaxConnections sets max open and idle connections.
func WithMaxConnections(maxOpen, maxIdle int) ClientOption {
	return func(c *ClientConfig) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
	}
}
