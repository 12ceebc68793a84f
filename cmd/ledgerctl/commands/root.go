package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"donationledger/internal/bootstrap"
	"donationledger/internal/infra"
	"donationledger/internal/ledger"
)

// opener builds the ledger a command works on.
type opener func(ctx context.Context) (*ledger.Ledger, error)

// Execute runs the root command.
func Execute(ctx context.Context, out io.Writer) error {
	return newRootCommand(out, openFromEnv).ExecuteContext(ctx)
}

func openFromEnv(ctx context.Context) (*ledger.Ledger, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := infra.NewLoggerTo(cfg.AppEnv, os.Stderr).Level(zerolog.WarnLevel)
	return bootstrap.OpenLedger(ctx, cfg, logger)
}

func newRootCommand(out io.Writer, open opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Administer the donation ledger",
		Long: `ledgerctl works on the same backend the API server would select from
DATABASE_URL, DATABASE_TYPE and APP_ENV.`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)

	rootCmd.AddCommand(newBackendCommand(open))
	rootCmd.AddCommand(newTotalsCommand(open))
	rootCmd.AddCommand(newExportCommand(open))
	rootCmd.AddCommand(newImportCommand(open))
	rootCmd.AddCommand(newClearCommand(open))

	return rootCmd
}

// withLedger opens the ledger for the duration of fn.
func withLedger(cmd *cobra.Command, open opener, fn func(*ledger.Ledger) error) error {
	l, err := open(cmd.Context())
	if err != nil {
		return err
	}
	defer l.Close()
	return fn(l)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
