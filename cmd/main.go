package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/app"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain/tier"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "artvision",
		Short:        "ArtVision API server",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newTiersCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until SIGINT or SIGTERM.

Configuration is read from defaults, then the YAML file named by CONFIG_FILE,
then environment variables (SECTION_FIELD, e.g. GEMINI_API_KEY, POSTGRES_HOST).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, log, cfg)
			if err != nil {
				log.Error("Startup failed", "error", err)
				log.Sync()
				return err
			}
			defer a.Close()

			if err := a.Run(ctx); err != nil {
				log.Error("Server stopped with error", "error", err)
				return err
			}
			log.Info("Server stopped")
			return nil
		},
	}
}

func newTiersCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tiers [chat-count]",
		Short: "Print the tier table, or classify a chat count",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("chat-count must be an integer: %w", err)
				}
				return printProgress(out, tier.ProgressFor(n), asJSON)
			}
			return printBands(out, tier.All(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printBands(w io.Writer, bands []tier.Band, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(bands)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tLABEL\tCOLOR\tCHATS")
	for _, b := range bands {
		span := fmt.Sprintf("%d+", b.Lower)
		if b.Upper > 0 {
			span = fmt.Sprintf("%d-%d", b.Lower, b.Upper-1)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Tier, b.Label, b.Color, span)
	}
	return tw.Flush()
}

func printProgress(w io.Writer, p tier.Progress, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(p)
	}
	if p.NextTierAt != nil {
		_, err := fmt.Fprintf(w, "%s (%s), next tier at %d chats\n", p.Label, p.Tier, *p.NextTierAt)
		return err
	}
	_, err := fmt.Fprintf(w, "%s (%s), top tier\n", p.Label, p.Tier)
	return err
}
