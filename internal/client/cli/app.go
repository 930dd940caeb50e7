// Package cli is the interactive curator console: an offline-first REPL over
// the local store, with explicit and background sync against the remote API.
package cli

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/client/api"
	"github.com/dmitrijs2005/placekeeper/internal/client/config"
	"github.com/dmitrijs2005/placekeeper/internal/client/store"
	syncer "github.com/dmitrijs2005/placekeeper/internal/client/sync"
	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/logging"
)

// Mode is the client's view of server reachability. Purely informational:
// every command works offline, sync catches up later.
type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// remoteAPI is everything the console needs from the server. *api.HTTPClient
// satisfies it; tests plug in fakes.
type remoteAPI interface {
	api.Client
	Register(ctx context.Context, login, name, password string) (*api.AuthResult, error)
	Login(ctx context.Context, login, password string) (*api.AuthResult, error)
}

// identityHolder carries the session token handed out at login. It implements
// the identity contract consumed by the HTTP client.
type identityHolder struct {
	mu    sync.RWMutex
	token string
}

func (h *identityHolder) CurrentIdentity(context.Context) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.token == "" {
		return "", common.ErrUnauthorized
	}
	return h.token, nil
}

func (h *identityHolder) set(token string) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
}

type App struct {
	cfg      *config.Config
	logger   logging.Logger
	store    *store.Store
	remote   remoteAPI
	manager  *syncer.Manager
	resolver *syncer.Resolver
	identity *identityHolder

	sess store.Session
	mode Mode

	reader *bufio.Reader
	out    io.Writer

	autoSync *syncer.Task
}

// NewApp wires the console against the local database at cfg.DatabasePath
// and the remote endpoint at cfg.ServerEndpointAddr.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	st, err := store.Open(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	identity := &identityHolder{}
	client := api.NewHTTPClient(cfg.ServerEndpointAddr, identity, cfg.RequestTimeout)
	manager := syncer.NewManager(st, client, logger, syncer.Config{
		BatchSize:  cfg.SyncBatchSize,
		MaxRetries: cfg.SyncMaxRetries,
	})

	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		remote:   client,
		manager:  manager,
		resolver: syncer.NewResolver(st, logger),
		identity: identity,
		mode:     ModeOffline,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

// Run drives the REPL until exit or ctx cancellation.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	go a.watchOnlineStatus(ctx)
	return a.repl(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.sess.CuratorID != ""
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	if a.mode == mode {
		return
	}
	a.mode = mode
	a.printf("switched to %s mode\n", mode)

	// Coming back online is the moment queued work can drain.
	if mode == ModeOnline && a.isLoggedIn() {
		if _, err := a.manager.Sync(ctx, a.sess); err != nil {
			a.logger.Warn(ctx, "reconnect sync failed", "error", err)
		}
	}
}

// watchOnlineStatus probes the server and flips the mode on transitions.
func (a *App) watchOnlineStatus(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.OnlineCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.remote.Ping(pingCtx)
			cancel()
			if err != nil {
				a.setMode(ctx, ModeOffline)
			} else {
				a.setMode(ctx, ModeOnline)
			}
		}
	}
}

// startAutoSync launches background sync after login.
func (a *App) startAutoSync(ctx context.Context) {
	if a.cfg.SyncInterval <= 0 || a.autoSync != nil {
		return
	}
	a.autoSync = a.manager.StartAuto(ctx, a.sess, a.cfg.SyncInterval)
}
