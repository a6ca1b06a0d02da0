package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soyeahso/sidekick/internal/clipboard"
	"github.com/soyeahso/sidekick/internal/config"
	"github.com/soyeahso/sidekick/internal/gateway"
	"github.com/soyeahso/sidekick/internal/hooks"
	"github.com/soyeahso/sidekick/internal/logging"
	"github.com/soyeahso/sidekick/internal/metrics"
	"github.com/soyeahso/sidekick/internal/plugin"
	"github.com/soyeahso/sidekick/internal/store"
	"github.com/soyeahso/sidekick/internal/window"
	"github.com/spf13/cobra"
)

func newGatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Manage the Sidekick gateway daemon",
	}

	cmd.AddCommand(newGatewayRunCmd())
	cmd.AddCommand(newGatewayTokenCmd())
	return cmd
}

func newGatewayRunCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the gateway daemon for the desktop shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			// A broken settings file must not keep the shell's backend down.
			cfg, err := config.Load(paths.Config)
			if err != nil {
				log.Warn().Err(err).Str("path", paths.Config).Msg("using default settings")
			}

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			if cfg.Logging.File {
				level := logLevel
				if level == "" {
					level = cfg.Logging.Level
				}
				log = logging.NewWithFile(level, logging.FileOptions{
					Path: paths.LogFile(),
				})
				defer log.Close()
			}

			if creds := gateway.LoadCredentials(cfg.Gateway.Auth, ""); creds.Mode == gateway.AuthModeToken && creds.Token == "" {
				if _, err := gateway.EnsureToken(paths.TokenFile()); err != nil {
					return err
				}
				log.Info().Str("path", paths.TokenFile()).Msg("using gateway token file")
			}

			hookMgr := hooks.NewManager(log)
			m := metrics.New()

			activity := plugin.NewActivityLog(plugin.DefaultActivitySize)
			plugins := plugin.NewRegistry(hookMgr, log)
			if err := plugins.Register(activity); err != nil {
				return err
			}
			if err := plugins.InitAll(cmd.Context()); err != nil {
				return fmt.Errorf("initializing plugins: %w", err)
			}
			defer plugins.CloseAll()

			db := openStats()
			if db != nil {
				defer db.Close()
				if _, err := db.Prune(cmd.Context(), time.Now().Add(-store.DefaultRetention)); err != nil {
					log.Warn().Err(err).Msg("pruning stats failed")
				}
			}

			cb := systemClipboard()
			svc := newService().
				WithHooks(hookMgr).
				WithMetrics(m).
				WithStats(db)

			srv := gateway.New(cfg, log,
				gateway.WithService(svc),
				gateway.WithMetrics(m),
				gateway.WithTokenFile(paths.TokenFile()),
			)

			srv.Handle("activity.recent", func(rc *gateway.RequestContext) {
				var params struct {
					Limit int `json:"limit"`
				}
				if err := rc.Params(&params); err != nil {
					rc.RespondError("invalid_params", err.Error())
					return
				}
				rc.Respond(map[string]any{"entries": activity.Recent(params.Limit)})
			})

			// The shell owns the window; commands reach it as gateway events.
			win := window.NewRemote(srv)
			svc.WithWindow(win).
				WithSelection(newSelection(cb, win), cb)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				return srv.Start(ctx)
			})

			if cfg.ClipboardWatcher {
				g.Go(func() error {
					return clipboard.NewWatcher(cb, srv, log).Run(ctx)
				})
			}

			g.Go(func() error {
				return config.Watch(ctx, paths.Config, log, func(next config.Config) {
					srv.Emit(gateway.EventSettingsChanged, map[string]any{"provider": next.Provider})
					hookMgr.Emit(ctx, hooks.EventSettingsChanged, map[string]any{
						"provider": string(next.Provider),
						"source":   "file",
					})
				})
			})

			err = g.Wait()
			hookMgr.Wait()
			return err
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}

func newGatewayTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the gateway token, generating one if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := gateway.EnsureToken(paths.TokenFile())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
}
