package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/soyeahso/sidekick/internal/config"
	"github.com/soyeahso/sidekick/internal/gateway"
	"github.com/soyeahso/sidekick/internal/llm"
	"github.com/soyeahso/sidekick/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show Sidekick status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			b := version.Current()
			fmt.Fprintf(out, "Sidekick %s (commit %s)\n\n", b.Version, b.ShortCommit())

			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Prompts: %s\n", paths.Prompts)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(out)

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v (using defaults)\n", err)
			} else if _, statErr := os.Stat(paths.Config); os.IsNotExist(statErr) {
				fmt.Fprintln(out, "Config:  not found (using defaults)")
			}

			fmt.Fprintf(out, "Provider: %s\n", cfg.Provider)
			if cfg.Provider.IsLocal() {
				fmt.Fprintf(out, "Ollama:   model=%s url=%s (%s)\n",
					cfg.Ollama.Model, cfg.Ollama.BaseURL, ollamaState(cmd.Context(), cfg))
			}
			fmt.Fprintf(out, "Perms:    files=%v folders=%v web=%v\n",
				cfg.Permissions.OpenFiles, cfg.Permissions.OpenFolders, cfg.Permissions.WebSearch)
			fmt.Fprintf(out, "Watcher:  %v\n", cfg.ClipboardWatcher)

			fmt.Fprintf(out, "Gateway:  port=%d bind=%s auth=%s (%s)\n",
				cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.Auth.Mode, gatewayState(cfg.Gateway))

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}

// ollamaState probes the local model server.
func ollamaState(ctx context.Context, cfg config.Config) string {
	if ctx == nil {
		ctx = context.Background()
	}
	models, err := llm.NewDefaultRegistry(log).ListModels(ctx, cfg)
	if err != nil {
		return "unreachable"
	}
	return fmt.Sprintf("%d models", len(models))
}

// gatewayState asks a running daemon for its health.
func gatewayState(gw config.GatewayConfig) string {
	host := "127.0.0.1"
	if gw.Bind == "custom" && gw.CustomBindHost != "" && gw.CustomBindHost != "0.0.0.0" {
		host = gw.CustomBindHost
	}
	url := "http://" + net.JoinHostPort(host, strconv.Itoa(gw.Port)) + "/health"

	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return "not running"
	}
	defer resp.Body.Close()

	var health gateway.HealthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&health); err != nil || health.Status == "" {
		return "responding, unknown service"
	}
	return "running, " + health.Status
}
