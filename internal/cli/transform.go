package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/soyeahso/sidekick/internal/prompt"
	"github.com/spf13/cobra"
)

func newTransformCmd() *cobra.Command {
	var (
		copyOut bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "transform <operation> [text...]",
		Short: "Transform text with the configured LLM provider",
		Long: "Transform runs an operation (" + strings.Join(prompt.Operations(), ", ") + ", or a custom prompt name)\n" +
			"over the given text. Without text arguments the input is read from stdin.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := args[0]
			if !prompt.ValidName(op) {
				return fmt.Errorf("invalid operation name %q", op)
			}

			input := strings.Join(args[1:], " ")
			if len(args) == 1 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				input = string(data)
			}
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("no input text")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db := openStats()
			if db != nil {
				defer db.Close()
			}
			svc := newService().WithStats(db)

			res, err := svc.RunTextTransform(ctx, op, input)
			if err != nil {
				return err
			}

			if copyOut {
				if err := systemClipboard().WriteText(res.Output); err != nil {
					return fmt.Errorf("writing clipboard: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintln(out, res.Output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyOut, "copy", false, "also put the result on the clipboard")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")

	return cmd
}

func newCaptureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capture",
		Short: "Copy the current selection from the focused application and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cb := systemClipboard()
			svc := newService()
			svc.WithSelection(newSelection(cb, svc.Window()), cb)

			text := svc.CaptureSelection(ctx)
			if text == "" {
				return fmt.Errorf("nothing selected")
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models installed on the local Ollama server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := newService().ListLocalModels(context.Background())
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no models installed)")
				return nil
			}
			for _, m := range models {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
}
