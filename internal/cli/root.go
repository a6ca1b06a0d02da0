// Package cli implements the sidekick command line.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soyeahso/sidekick/internal/config"
	"github.com/soyeahso/sidekick/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// set by setup before any subcommand runs
	paths config.Paths
	log   *logging.Logger
)

// setup resolves the data layout and builds the logger. The --log-level
// flag wins over logging.level in the config file.
func setup(cmd *cobra.Command, _ []string) error {
	if logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return err
		}
	}

	var err error
	if paths, err = config.ResolvePaths(); err != nil {
		return err
	}
	if cfgFile != "" {
		paths.Config = cfgFile
	}

	level := logLevel
	if level == "" {
		cfg, _ := config.Load(paths.Config)
		level = cfg.Logging.Level
	}
	log = logging.New(cmd.ErrOrStderr(), level)
	return nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "sidekick",
		Short:             "Sidekick, a clipboard-driven text assistant",
		Long:              "Sidekick rewrites the text you select with an LLM and pastes the result back in place.",
		PersistentPreRunE: setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default ~/.sidekick/config.yaml, or under $%s)", config.HomeEnv))
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level ("+strings.Join(logging.Levels, ", ")+")")

	groups := []struct {
		group *cobra.Group
		cmds  []*cobra.Command
	}{
		{&cobra.Group{ID: "text", Title: "Text commands:"},
			[]*cobra.Command{newTransformCmd(), newCaptureCmd(), newClassifyCmd(), newModelsCmd()}},
		{&cobra.Group{ID: "daemon", Title: "Daemon commands:"},
			[]*cobra.Command{newGatewayCmd(), newStatusCmd(), newStatsCmd()}},
	}
	for _, g := range groups {
		cmd.AddGroup(g.group)
		for _, c := range g.cmds {
			c.GroupID = g.group.ID
			cmd.AddCommand(c)
		}
	}
	cmd.AddCommand(newConfigCmd(), newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
