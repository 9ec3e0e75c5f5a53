// PagerDuty MCP Server - A Model Context Protocol server for PagerDuty
// Provides read-only tools for services and the current user's context
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/base"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/config"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/services"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/users"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/tools"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/tracing"
)

const ServerName = "pagerduty-mcp-server"

// ServerVersion is set at build time with -ldflags "-X main.ServerVersion=..."
var ServerVersion = "1.0.0"

const instructions = `PagerDuty MCP Server provides read-only access to PagerDuty services.

Available tools:
- pagerduty_list_services: List services, scoped to the current user's teams by default
- pagerduty_show_service: Get one service by ID
- pagerduty_build_user_context: Resolve the current user's ID, teams and services
- pagerduty_show_current_user: Get the current user's profile

Listings larger than 500 results return a LIMIT_EXCEEDED error instead of results.

Configure via environment variables:
- PAGERDUTY_API_KEY: REST API key (required)
- PAGERDUTY_API_HOST: API host (default https://api.pagerduty.com)
- PAGERDUTY_FROM_EMAIL: Requester email for account-level keys`

// options holds the root command flags
type options struct {
	configPath  string
	httpAddr    string
	metricsAddr string
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   ServerName,
		Short: "MCP server for PagerDuty services",
		Long: `Start the PagerDuty Model Context Protocol server.

By default the server speaks JSON-RPC over stdio. Use --http to serve the
streamable HTTP transport instead.

Examples:
  # Stdio mode (for desktop MCP clients)
  pagerduty-mcp-server

  # HTTP mode with Prometheus metrics
  pagerduty-mcp-server --http :8080 --metrics-addr :9090`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (environment variables override it)")
	cmd.Flags().StringVar(&opts.httpAddr, "http", "", "Serve streamable HTTP on this address instead of stdio")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s version %s\n", ServerName, ServerVersion)
		},
	}
}

func run(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := opts.logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	// Logging goes to stderr, stdout is used for the MCP protocol
	logger, err := newLogger(os.Stderr, level)
	if err != nil {
		return err
	}

	tracingConfig := tracing.DefaultConfig()
	tracingConfig.ServiceVersion = ServerVersion
	shutdownTracing, err := tracing.Setup(ctx, tracingConfig)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	server := newServer(cfg, logger)

	if opts.metricsAddr != "" {
		go func() {
			if err := serveHTTP(ctx, opts.metricsAddr, metricsHandler()); err != nil {
				logger.Error("Metrics server failed", "addr", opts.metricsAddr, "error", err)
			}
		}()
	}

	logger.Info("Starting PagerDuty MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"api_host", cfg.APIHost,
		"transport", transportName(opts.httpAddr),
	)

	if opts.httpAddr != "" {
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return server
		}, nil)
		return serveHTTP(ctx, opts.httpAddr, handler)
	}
	return server.Run(ctx, &mcp.StdioTransport{})
}

// newServer wires the PagerDuty clients into an MCP server with all tools
func newServer(cfg *config.Config, logger *slog.Logger, opts ...base.ClientOption) *mcp.Server {
	opts = append([]base.ClientOption{base.WithLogger(logger)}, opts...)
	client := base.NewClient(cfg, opts...)
	servicesClient := services.NewClient(client)
	usersClient := users.NewClient(client, servicesClient)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Instructions: instructions,
	})

	tools.NewHandlerRegistry(servicesClient, usersClient, logger).RegisterAll(server)
	return server
}

// newLogger creates a text logger at the named level
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if level != "" {
		if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// serveHTTP serves handler on addr until ctx is cancelled
func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func transportName(httpAddr string) string {
	if httpAddr != "" {
		return "http"
	}
	return "stdio"
}
