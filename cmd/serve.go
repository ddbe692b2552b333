// ABOUTME: Serve command that runs the gateway HTTP server
// ABOUTME: Loads configuration, wires logging, tracing and the webhook client, then serves until signalled

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/famquest/gateway/config"
	"github.com/famquest/gateway/logger"
	"github.com/famquest/gateway/server"
	"github.com/famquest/gateway/services"
	"github.com/famquest/gateway/tracing"
)

const serviceName = "famquest-gateway"

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	Long: `Run the gateway HTTP server. Webhook URLs and server settings are read from
the environment (and an optional .env file). Missing webhook URLs are reported
at startup; the affected routes answer with a configuration error until set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		logger.Init("info", "text")

		cfg, err := config.Load()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			return err
		}
		logger.Init(cfg.LogLevel, cfg.LogFormat)

		addr := listenAddr
		if addr == "" {
			addr = ":" + cfg.Port
		}
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}

		return serve(ctx, cfg, l)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (overrides PORT)")
}

// serve runs the gateway on l until ctx is done.
func serve(ctx context.Context, cfg *config.Config, l net.Listener) error {
	slog.Info("Starting FamQuest gateway", "environment", cfg.Environment, "cookie_secure", cfg.CookieSecure)

	if cfg.TracingEnabled {
		provider, err := tracing.Setup(ctx, serviceName, os.Stderr)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Failed to flush traces", "error", err)
			}
		}()
		slog.Info("Tracing enabled")
	}

	webhook, err := services.NewWebhookClient(cfg.UpstreamTimeout, cfg.UpstreamAllProxy)
	if err != nil {
		return fmt.Errorf("failed to create webhook client: %w", err)
	}
	defer webhook.CloseIdleConnections()
	if cfg.UpstreamAllProxy != "" {
		slog.Info("Upstream traffic tunnelled through proxy")
	}

	for _, m := range cfg.Upstreams.Missing() {
		slog.Warn("Upstream webhook not configured", "family", m.Family, "key", m.Key)
	}
	if cfg.FrontendURL != "" {
		slog.Info("Proxying pages to frontend", "url", cfg.FrontendURL)
	} else {
		slog.Info("Serving built-in page shell")
	}

	return server.New(ctx, cfg, webhook).Run(ctx, l)
}
