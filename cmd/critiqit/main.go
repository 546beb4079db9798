package main

import (
	"context"
	"log/slog"
	"os"

	"critiqit/config"
	"critiqit/internal/delivery"
	"critiqit/internal/delivery/http"
	"critiqit/internal/delivery/http/middleware"
	"critiqit/internal/delivery/http/router/handler"
	"critiqit/internal/domain/lifecycle"
	"critiqit/internal/domain/service"
	"critiqit/internal/infra/blob"
	"critiqit/internal/infra/captcha"
	logs "critiqit/internal/infra/log"
	"critiqit/internal/infra/metrics"
	"critiqit/internal/infra/supabase"
	"critiqit/internal/usecase"
	"critiqit/internal/usecase/impl"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		supabase.NewClient,
		metrics.NewRegistry,
		newSyncMetrics,
		newRelayMetrics,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			supabase.NewProfileRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			newAuthProvider,
			captcha.NewTurnstileVerifier,
			newAppStateNotifier,
			newObjectUploader,
		),
	)
}

// newAppStateNotifier drives the foreground/background transitions off the
// process lifecycle: starting the app is entering the foreground, which in
// turn starts session auto-refresh.
func newAppStateNotifier(lc fx.Lifecycle) lifecycle.AppStateNotifier {
	notifier := lifecycle.NewAppStateNotifier()
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			notifier.Notify(lifecycle.StateForeground)

			return nil
		},
		OnStop: func(context.Context) error {
			notifier.Notify(lifecycle.StateBackground)

			return nil
		},
	})

	return notifier
}

// newAuthProvider wires the provider client and stops its background token
// refresh on shutdown.
func newAuthProvider(lc fx.Lifecycle, api *supabase.Client, cfg *config.Config, logger *slog.Logger) service.AuthProvider {
	provider := supabase.NewAuthClient(api, cfg, logger)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			provider.StopAutoRefresh()

			return nil
		},
	})

	return provider
}

// newObjectUploader selects where avatar bytes land. Local development can
// point uploads at a directory-backed bucket instead of the hosted storage.
func newObjectUploader(lc fx.Lifecycle, api *supabase.Client, provider service.AuthProvider, cfg *config.Config) (service.ObjectUploader, error) {
	if cfg.Storage != nil && cfg.Storage.Provider == "local" {
		uploader, err := blob.NewLocalUploader(cfg.Storage.LocalDir, cfg.Storage.LocalBaseURL)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return uploader.(interface{ Close() error }).Close()
			},
		})

		return uploader, nil
	}

	return supabase.NewStorageUploader(api, provider, cfg)
}

func newSyncMetrics(reg *prometheus.Registry) *metrics.SyncMetrics {
	return metrics.NewSyncMetrics(reg)
}

func newRelayMetrics(reg *prometheus.Registry) *metrics.RelayMetrics {
	return metrics.NewRelayMetrics(reg)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			newSessionStore,
			newCurrentUserSynchronizer,
			impl.NewAccountService,
			impl.NewAvatarService,
		),
	)
}

// newSessionStore releases the store's app-state subscription on shutdown.
func newSessionStore(lc fx.Lifecycle, params impl.SessionStoreParams) usecase.SessionStore {
	store := impl.NewSessionStore(params)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			store.Close()

			return nil
		},
	})

	return store
}

// newCurrentUserSynchronizer closes the synchronizer on shutdown so no state
// is written after the server stops.
func newCurrentUserSynchronizer(lc fx.Lifecycle, params impl.CurrentUserSynchronizerParams) usecase.CurrentUserSynchronizer {
	synchronizer := impl.NewCurrentUserSynchronizer(params)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			synchronizer.Close()

			return nil
		},
	})

	return synchronizer
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewErrorMiddleware,
			middleware.NewRequestIDMiddleware,
			newRateLimiter,
		),
	)
}

// newRateLimiter stops the limiter's cleanup goroutine on shutdown.
func newRateLimiter(lc fx.Lifecycle, logger *slog.Logger) *middleware.RateLimiter {
	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(), logger)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			limiter.Stop()

			return nil
		},
	})

	return limiter
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewOTPHandler,
			handler.NewAccountHandler,
			handler.NewUserHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
