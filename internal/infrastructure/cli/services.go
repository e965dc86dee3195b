package cli

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openclaw/routekit/internal/application"
	"github.com/openclaw/routekit/internal/infrastructure/config"
	"github.com/openclaw/routekit/pkg/sdk"
)

// Services bundles the constructed client and application services for
// one command invocation.
type Services struct {
	Config    *config.Config
	Client    *sdk.Client
	Resolver  *application.ResolverService
	Snapshots *application.SnapshotService
	Changes   *application.ChangeService
}

// loadServices builds everything from explicit configuration. There is
// no ambient global: each command invocation constructs its own client.
func loadServices() (*Services, error) {
	path := configPath
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".routekit.yaml")
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewCLIError(err.Error(), "Create ~/.routekit.yaml or export the ROUTEKIT_* variables", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	opts := []sdk.Option{
		sdk.WithLogger(logger),
		sdk.WithActor(cfg.ActorID),
		sdk.WithTool(cfg.Tool),
	}
	if cfg.AttemptTimeout > 0 {
		opts = append(opts, sdk.WithAttemptTimeout(cfg.AttemptTimeout))
	}
	client, err := sdk.New(cfg.BaseURL, cfg.APIKey, opts...)
	if err != nil {
		return nil, err
	}

	return &Services{
		Config:    cfg,
		Client:    client,
		Resolver:  application.NewResolverService(client, logger),
		Snapshots: application.NewSnapshotService(client, logger),
		Changes:   application.NewChangeService(client, logger),
	}, nil
}
