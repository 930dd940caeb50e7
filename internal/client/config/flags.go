package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/flagx"
)

// parseFlags overlays selected Config fields from command-line flags.
//
//	-a string   base URL of the remote store API
//	-d string   local database file
//	-i int      online check interval, seconds
//	-s int      auto-sync interval, seconds (0 disables)
//
// Args are pre-filtered so flags owned by other components pass through.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-i", "-s"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the remote store API")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database file")
	onlineCheck := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (seconds)")
	syncEvery := fs.Int("s", int(cfg.SyncInterval.Seconds()), "auto-sync interval (seconds, 0 disables)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheck) * time.Second
	cfg.SyncInterval = time.Duration(*syncEvery) * time.Second
}
