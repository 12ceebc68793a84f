package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"donationledger/internal/domain"
	"donationledger/internal/ledger"
)

func newBackendCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Show the selected backend and test its connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, open, func(l *ledger.Ledger) error {
				info := l.Info()
				out := map[string]any{"info": info, "connected": true}
				if err := l.Ping(cmd.Context()); err != nil {
					out["connected"] = false
					out["error"] = err.Error()
				} else if stats, err := l.Stats(cmd.Context()); err == nil {
					out["stats"] = stats
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newTotalsCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "totals",
		Short: "Print the general and today's totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, open, func(l *ledger.Ledger) error {
				totals, err := l.ComputeTotals(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), totals)
			})
		},
	}
}

func newExportCommand(open opener) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every record as a JSON snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, open, func(l *ledger.Ledger) error {
				snap, err := l.Export(cmd.Context())
				if err != nil {
					return err
				}
				if outPath == "" {
					return printJSON(cmd.OutOrStdout(), snap)
				}
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()
				if err := printJSON(f, snap); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d donations and %d daily totals to %s\n",
					len(snap.Donations), len(snap.DailyTotals), outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newImportCommand(open opener) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace every record with the contents of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("import replaces all data; pass --yes to confirm")
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read snapshot: %w", err)
			}
			var snap domain.Snapshot
			if err := json.Unmarshal(raw, &snap); err != nil {
				return fmt.Errorf("failed to parse snapshot: %w", err)
			}
			return withLedger(cmd, open, func(l *ledger.Ledger) error {
				if err := l.Import(cmd.Context(), snap); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d donations and %d daily totals\n",
					len(snap.Donations), len(snap.DailyTotals))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm replacing all data")
	return cmd
}

func newClearCommand(open opener) *cobra.Command {
	var (
		yes           bool
		donationsOnly bool
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("clear deletes data; pass --yes to confirm")
			}
			return withLedger(cmd, open, func(l *ledger.Ledger) error {
				if donationsOnly {
					if err := l.ClearDonations(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "donations cleared")
					return nil
				}
				if err := l.ClearAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "all data cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	cmd.Flags().BoolVar(&donationsOnly, "donations-only", false, "keep daily totals")
	return cmd
}
