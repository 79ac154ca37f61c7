package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ShipCreekGroup/email-parser/internal/config"
	"github.com/ShipCreekGroup/email-parser/internal/handler"
	"github.com/ShipCreekGroup/email-parser/internal/parser"
	"github.com/ShipCreekGroup/email-parser/internal/parser/claude"
	"github.com/ShipCreekGroup/email-parser/internal/parser/gemini"
	"github.com/ShipCreekGroup/email-parser/internal/parser/openai"
	"github.com/ShipCreekGroup/email-parser/internal/port"
	"github.com/ShipCreekGroup/email-parser/internal/router"
	"github.com/ShipCreekGroup/email-parser/internal/schema"
	"github.com/ShipCreekGroup/email-parser/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	registerProviders()

	validator, err := schema.New()
	if err != nil {
		return fmt.Errorf("failed to compile email schema: %w", err)
	}

	streamer, err := buildStreamer(&cfg.Parser)
	if err != nil {
		return fmt.Errorf("failed to initialize parser providers: %w", err)
	}

	primary := cfg.Parser.PrimaryConfig()
	parseSvc := service.NewParseService(streamer, validator, cfg.Limits, primary.DefaultModel)

	parseH := handler.NewParseHandler(parseSvc)
	exportH := handler.NewExportHandler(validator)
	healthH := handler.NewHealthHandler(primary.Provider)

	r := router.Setup(cfg.CORS.AllowedOrigins, parseH, exportH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Printf("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func registerProviders() {
	parser.RegisterProvider("gemini", func(cfg *config.ParserProviderConfig) (port.ChunkStreamer, error) {
		return gemini.NewStreamer(cfg), nil
	})
	parser.RegisterProvider("openai", func(cfg *config.ParserProviderConfig) (port.ChunkStreamer, error) {
		return openai.NewStreamer(cfg), nil
	})
	parser.RegisterProvider("claude", func(cfg *config.ParserProviderConfig) (port.ChunkStreamer, error) {
		return claude.NewStreamer(cfg), nil
	})
}

// buildStreamer wires the primary provider, wrapped in a fallback chain
// when a secondary one is configured.
func buildStreamer(cfg *config.ParserConfig) (port.ChunkStreamer, error) {
	primaryCfg := cfg.PrimaryConfig()
	primary, err := parser.NewStreamer(primaryCfg)
	if err != nil {
		return nil, err
	}

	secondaryCfg := cfg.SecondaryConfig()
	if secondaryCfg == nil {
		return primary, nil
	}
	secondary, err := parser.NewStreamer(secondaryCfg)
	if err != nil {
		return nil, err
	}

	return parser.NewFallbackStreamer(
		[]port.ChunkStreamer{primary, secondary},
		[]string{primaryCfg.Provider, secondaryCfg.Provider},
	), nil
}
