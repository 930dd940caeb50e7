// Package config loads runtime settings for the placekeeper client.
//
// Sources and precedence: built-in defaults, then an optional JSON file
// (selected via -c or -config), then command-line flags. Later sources win.
package config

import "time"

// Config holds the client's runtime settings.
type Config struct {
	// ServerEndpointAddr is the base URL of the remote store API.
	ServerEndpointAddr string

	// DatabasePath is the local SQLite file. ":memory:" works for throwaway
	// sessions.
	DatabasePath string

	// OnlineCheckInterval is how often the client probes server reachability.
	OnlineCheckInterval time.Duration

	// SyncInterval drives background auto-sync; zero disables it.
	SyncInterval time.Duration

	// RequestTimeout bounds each remote call.
	RequestTimeout time.Duration

	// SyncBatchSize and SyncMaxRetries tune the sync manager.
	SyncBatchSize  int
	SyncMaxRetries int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "placekeeper.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 30 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.SyncBatchSize = 50
	c.SyncMaxRetries = 5
}

// LoadConfig builds a Config by applying defaults, then the JSON file, then
// flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
