package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/condenser/internal/adapters/conductor/memory"
	"github.com/bnema/condenser/internal/adapters/conductor/ws"
	overviewadapter "github.com/bnema/condenser/internal/adapters/render/overview"
	chainstore "github.com/bnema/condenser/internal/adapters/storage/chain"
	"github.com/bnema/condenser/internal/application"
	"github.com/bnema/condenser/internal/config"
	"github.com/bnema/condenser/internal/metrics"
	"github.com/bnema/condenser/internal/ports"
)

type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	storage  ports.KeyValueStore
	ledger   *application.NotificationLedger
	settings *application.NotificationSettingsStore
	metrics  *metrics.Metrics

	overviewRenderer func(application.Overview, overviewadapter.RenderOptions) (string, error)
	cravingRenderer  func(application.CravingDetail, overviewadapter.RenderOptions) (string, error)
	lobbyRenderer    func(application.LobbyDetail, overviewadapter.RenderOptions) (string, error)
	now              func() time.Time
}

func wireApp() (*app, error) {
	cfg, _, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Logging, os.Stderr)

	storage, err := chainstore.NewTOMLFirstWithFileFallback(cfg.Storage.Path, cfg.Storage.FallbackDir)
	if err != nil {
		return nil, fmt.Errorf("wire storage chain: %w", err)
	}

	return &app{
		cfg:              cfg,
		logger:           logger,
		storage:          storage,
		ledger:           application.NewNotificationLedger(storage, ports.SystemClock{}, logger),
		settings:         application.NewNotificationSettingsStore(storage, logger),
		metrics:          metrics.New(),
		overviewRenderer: overviewadapter.Render,
		cravingRenderer:  overviewadapter.RenderCraving,
		lobbyRenderer:    overviewadapter.RenderLobby,
		now:              time.Now,
	}, nil
}

// session is one connection to the conductor and the index built over it.
type session struct {
	client ports.AppClient
	store  *application.CondenserStore
	close  func() error
}

func (s *session) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// dial opens the configured backend without building the index.
func (a *app) dial(ctx context.Context) (ports.AppClient, func() error, error) {
	switch a.cfg.Conductor.Backend {
	case config.BackendMemory:
		network, err := loadNetwork(a.cfg.Conductor.StatePath)
		if err != nil {
			return nil, nil, err
		}
		conductor := network.Conductor(a.cfg.Conductor.AppID, a.cfg.Conductor.Agent)
		return conductor, func() error {
			return saveNetwork(a.cfg.Conductor.StatePath, network)
		}, nil

	default:
		var opts []ws.Option
		opts = append(opts, ws.WithLogger(a.logger))
		if a.cfg.Conductor.Origin != "" {
			opts = append(opts, ws.WithOrigin(a.cfg.Conductor.Origin))
		}
		client, err := ws.Dial(ctx, a.cfg.Conductor.URL, a.cfg.Conductor.AppID, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to conductor at %s: %w", a.cfg.Conductor.URL, err)
		}
		return client, client.Close, nil
	}
}

func (a *app) storeConfig() application.CondenserStoreConfig {
	gatewayOpts := []application.GatewayOption{
		application.WithMetrics(a.metrics),
		application.WithLogger(a.logger),
	}
	if a.cfg.Conductor.RequestTimeout > 0 {
		gatewayOpts = append(gatewayOpts, application.WithCallTimeout(a.cfg.Conductor.RequestTimeout))
	}

	return application.CondenserStoreConfig{
		Intervals:      a.cfg.Poll.Intervals(),
		JoinGrace:      a.cfg.Lobby.JoinGrace,
		GatewayOptions: gatewayOpts,
		PollerOptions: []application.PollerOption{
			application.WithPollMetrics(a.metrics),
			application.WithPollLogger(a.logger),
		},
		Metrics: a.metrics,
		Logger:  a.logger,
	}
}

// connect dials the conductor and builds the first index.
func (a *app) connect(ctx context.Context) (*session, error) {
	client, closeFn, err := a.dial(ctx)
	if err != nil {
		return nil, err
	}

	store, err := application.ConnectCondenserStore(ctx, client, a.ledger, a.storeConfig())
	if err != nil {
		if closeErr := closeFn(); closeErr != nil {
			a.logger.Warn("close conductor connection", "error", closeErr)
		}
		return nil, fmt.Errorf("index cells: %w", err)
	}

	return &session{client: client, store: store, close: closeFn}, nil
}

// withSession runs fn against a fresh session and closes it afterwards, keeping the first error.
func (a *app) withSession(ctx context.Context, fn func(*session) error) (err error) {
	s, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close session: %w", closeErr)
		}
	}()

	return fn(s)
}

func loadNetwork(path string) (*memory.Network, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return memory.NewNetwork(), nil
		}
		return nil, fmt.Errorf("read conductor state: %w", err)
	}
	return memory.LoadNetwork(raw)
}

func saveNetwork(path string, network *memory.Network) error {
	raw, err := network.Save()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create conductor state directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".network-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp conductor state: %w", err)
	}
	tmpPath := tmpFile.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmpFile.Write(raw); err != nil {
		_ = tmpFile.Close()
		cleanup()
		return fmt.Errorf("write conductor state: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close conductor state: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		cleanup()
		return fmt.Errorf("chmod conductor state: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("replace conductor state: %w", err)
	}
	return nil
}
