package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/placekeeper/internal/flagx"
	"github.com/dmitrijs2005/placekeeper/internal/timex"
)

// jsonConfig is the file DTO. Durations accept "3s" strings or integer
// nanoseconds. Absent fields leave the current value untouched.
type jsonConfig struct {
	ServerEndpointAddr  *string         `json:"server_endpoint_addr"`
	DatabasePath        *string         `json:"database_path"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	SyncInterval        *timex.Duration `json:"sync_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	SyncBatchSize       *int            `json:"sync_batch_size"`
	SyncMaxRetries      *int            `json:"sync_max_retries"`
}

// parseJson overlays cfg with values from the file named by -c/-config, when
// one was given. Malformed files panic: a half-applied config is worse than a
// crash at startup.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *jc.ServerEndpointAddr
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.SyncInterval != nil {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.SyncBatchSize != nil {
		cfg.SyncBatchSize = *jc.SyncBatchSize
	}
	if jc.SyncMaxRetries != nil {
		cfg.SyncMaxRetries = *jc.SyncMaxRetries
	}
}
