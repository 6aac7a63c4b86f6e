package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/alanmeadows/lit-critic/internal/config"
	"github.com/alanmeadows/lit-critic/internal/core"
	"github.com/alanmeadows/lit-critic/internal/llm/registry"
	"github.com/alanmeadows/lit-critic/internal/prompts"
	"github.com/alanmeadows/lit-critic/internal/server"
	"github.com/spf13/cobra"
)

var serveAddrFlag string

func init() {
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", ":4097", "Address to bind the HTTP transport to")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the core service as an HTTP transport",
	Long: `Run the stateless core service behind an HTTP transport, exposing
/v1/analyze, /v1/discuss, and /v1/re-evaluate-finding.

The transport carries no session state of its own; every request is
self-contained per the core service contract. Runs in the foreground
until interrupted.`,
	Example: `  lit-critic serve
  lit-critic serve --addr :9090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.New(registry.Options{
			DiscoveryEnabled: appConfig.Discovery.Enabled,
			TTL:              time.Duration(appConfig.Discovery.TTLSeconds) * time.Second,
			Timeout:          time.Duration(appConfig.Discovery.TimeoutSeconds) * time.Second,
			CachePath:        config.ExpandCachePath(appConfig.Discovery.CachePath),
		})
		svc := core.New(reg, factories(), prompts.NewTemplateBuilder())

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", serveAddrFlag)
		return server.RunServer(ctx, serveAddrFlag, svc)
	},
}
