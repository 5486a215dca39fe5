package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/oshokin/songbook-offline/internal/catalog"
	"github.com/oshokin/songbook-offline/internal/config"
	"github.com/oshokin/songbook-offline/internal/constants"
	"github.com/oshokin/songbook-offline/internal/history"
	"github.com/oshokin/songbook-offline/internal/library"
	"github.com/oshokin/songbook-offline/internal/logger"
	"github.com/oshokin/songbook-offline/internal/scheduler"
	"github.com/oshokin/songbook-offline/internal/service/download"
	"github.com/oshokin/songbook-offline/internal/transfer"
	transporthttp "github.com/oshokin/songbook-offline/internal/transport/http"
	"github.com/oshokin/songbook-offline/internal/utils"
)

// ErrNoManifest indicates that the command needs a manifest but none is configured.
var ErrNoManifest = errors.New("manifest location is not configured, use 'config set-manifest' or --manifest")

// App holds the components of one command run.
type App struct {
	cfg     *config.Config
	db      *gorm.DB
	manager *scheduler.Manager
	repo    library.Repository
	loader  catalog.Loader
	service download.Service
	// progressOutput receives the progress bar, nil hides it.
	progressOutput io.Writer
}

// New opens the offline library and starts the scheduler and the download service.
// Close must be called to stop them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := library.OpenDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	manifestClient := transporthttp.NewRestyClient(transporthttp.ClientConfig{
		UserAgent:    cfg.UserAgent,
		MaxLogLength: cfg.ParsedMaxLogLength,
		Timeout:      cfg.ParsedHTTPTimeout,
	})

	loader, err := catalog.NewLoader(manifestClient, catalog.DefaultCacheSize)
	if err != nil {
		_ = library.CloseDatabase(db)

		return nil, err
	}

	// Transfers are bounded by cancellation only, a large score may take longer than any timeout.
	transferClient := transporthttp.NewRestyClient(transporthttp.ClientConfig{
		UserAgent:    cfg.UserAgent,
		MaxLogLength: cfg.ParsedMaxLogLength,
	})

	adapter := transfer.NewHTTPAdapter(transferClient, transfer.Config{SpeedLimit: cfg.ParsedDownloadSpeedLimit})

	manager := scheduler.NewManager(adapter, scheduler.Config{
		ConcurrencyLimit: int(cfg.MaxConcurrentDownloads),
		RetryLimit:       int(cfg.RetryAttemptsCount),
		RetryBase:        cfg.ParsedRetryBasePause,
	})

	repo := library.NewRepository(db, cfg.OutputPath)

	service := download.NewService(ctx, manager, repo, history.NewFileStore(cfg.HistoryPath), download.Config{
		HistoryProgressStep: float64(cfg.HistoryProgressStep),
	})

	a := &App{
		cfg:     cfg,
		db:      db,
		manager: manager,
		repo:    repo,
		loader:  loader,
		service: service,
	}

	if logger.Level() == zapcore.InfoLevel {
		a.progressOutput = os.Stderr
	}

	return a, nil
}

// Close cancels unfinished jobs, waits for them and closes the database.
func (a *App) Close(ctx context.Context) {
	a.manager.Shutdown()
	a.service.Close()

	if err := library.CloseDatabase(a.db); err != nil {
		logger.Warnf(ctx, "Failed to close the library database: %v", err)
	}
}

func (a *App) loadManifest(ctx context.Context) (*catalog.Manifest, error) {
	if a.cfg.ManifestURL == "" {
		return nil, ErrNoManifest
	}

	manifest, err := a.loader.Load(ctx, a.cfg.ManifestURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	return manifest, nil
}

// selectItems resolves arguments against the manifest. No arguments select every item.
func (a *App) selectItems(ctx context.Context, args []string) ([]*catalog.Item, error) {
	itemIDs, err := expandItemIDs(args)
	if err != nil {
		return nil, err
	}

	manifest, err := a.loadManifest(ctx)
	if err != nil {
		return nil, err
	}

	if len(itemIDs) == 0 {
		return manifest.Items, nil
	}

	return manifest.Find(itemIDs)
}

// expandItemIDs replaces arguments that name .txt files with the item IDs listed in them, one per line.
func expandItemIDs(args []string) ([]string, error) {
	itemIDs := make([]string, 0, len(args))

	for _, arg := range args {
		if !strings.EqualFold(filepath.Ext(arg), constants.ExtensionTXT) {
			itemIDs = append(itemIDs, arg)

			continue
		}

		lines, err := utils.ReadUniqueLinesFromFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read item IDs from '%s': %w", arg, err)
		}

		itemIDs = append(itemIDs, lines...)
	}

	return utils.UniqueNonEmpty(itemIDs), nil
}

func itemIDsOf(items []*catalog.Item) []string {
	return utils.Map(items, func(item *catalog.Item) string { return item.ID })
}
