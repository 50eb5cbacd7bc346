package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"

	"github.com/davidbz/ember/internal/config"
	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/http"
	"github.com/davidbz/ember/internal/http/middleware"
	"github.com/davidbz/ember/internal/observability"
	"github.com/davidbz/ember/internal/provider/echo"
	"github.com/davidbz/ember/internal/provider/ollama"
	"github.com/davidbz/ember/internal/provider/openai"
	"github.com/davidbz/ember/internal/provider/registry"
	"github.com/davidbz/ember/internal/store/memory"
	"github.com/davidbz/ember/internal/store/redis"
)

const shutdownTimeout = 10 * time.Second

// Stores groups the persistence collaborators of the chat service.
type Stores struct {
	dig.Out

	Sessions domain.SessionStore
	Profiles domain.PromptContextProvider
}

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *http.Server) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})
	if err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Invoke(func() error {
		_, err := observability.InitLogger()
		return err
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Provider Registry
	if err := container.Provide(newRegistry); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}
	if err := container.Provide(func(reg *registry.Registry) domain.ProviderSelector {
		return reg
	}); err != nil {
		log.Fatalf("Failed to provide provider selector: %v", err)
	}

	// Stores
	if err := container.Provide(newStores); err != nil {
		log.Fatalf("Failed to provide stores: %v", err)
	}

	// Domain Services
	if err := container.Provide(domain.NewChatService); err != nil {
		log.Fatalf("Failed to provide chat service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

// newRegistry registers every built-in provider kind. Kinds are constructed
// lazily, so an unconfigured kind only fails when it is selected.
func newRegistry(llm *config.LLMConfig, ollamaCfg *ollama.Config, openaiCfg *openai.Config) (*registry.Registry, error) {
	reg := registry.NewRegistry(llm.Provider)

	registrations := []struct {
		name        string
		constructor registry.Constructor
		defaults    domain.ProviderConfig
	}{
		{name: "ollama", constructor: registry.Adapt(ollama.NewProvider), defaults: ollama.ProviderConfig(*ollamaCfg)},
		{name: "openai", constructor: registry.Adapt(openai.NewProvider), defaults: openai.ProviderConfig(*openaiCfg)},
		{name: "echo", constructor: registry.Adapt(echo.NewProvider), defaults: domain.ProviderConfig{}},
	}

	for _, r := range registrations {
		if err := reg.Register(r.name, r.constructor, r.defaults); err != nil {
			return nil, fmt.Errorf("failed to register %s provider: %w", r.name, err)
		}
	}

	observability.FromContext(context.Background()).Info("providers registered",
		observability.Strings("providers", reg.List(context.Background())),
		observability.String("configured", llm.Provider))

	return reg, nil
}

// newStores selects Redis when an address is configured and in-memory stores otherwise.
func newStores(cfg *redis.Config) (Stores, error) {
	ctx := context.Background()
	logger := observability.FromContext(ctx)

	if !cfg.Enabled() {
		logger.Warn("REDIS_ADDR not set, sessions are kept in memory")
		return Stores{
			Sessions: memory.NewSessionStore(),
			Profiles: memory.NewProfileStore(),
		}, nil
	}

	client := redis.NewClient(cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		return Stores{}, errors.Join(fmt.Errorf("failed to reach redis at %s: %w", cfg.Addr, err), client.Close())
	}

	logger.Info("using redis stores", observability.String("addr", cfg.Addr))

	return Stores{
		Sessions: redis.NewSessionStore(client, cfg.KeyPrefix),
		Profiles: redis.NewProfileStore(client, cfg.KeyPrefix),
	}, nil
}
