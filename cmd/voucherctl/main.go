// =============================================================================
// voucherctl - Offline voucher checker
// =============================================================================
//
// voucherctl runs the voucher calculator and submit rules against a voucher
// file without a server or database. It uses the same configuration file as
// cmd/server, so policies (tax base, auto-balance account) match.
//
// USAGE:
//   voucherctl check journal.yaml
//   voucherctl check --config config.yaml --catalog chart.yaml invoice.json
//   voucherctl version
//
// EXIT CODES:
//   0  voucher is valid
//   1  voucher is invalid, or the file could not be read
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	cfgFile string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "voucherctl",
		Short: "Check voucher documents against the ledger rules",
		Long: `voucherctl computes totals for a voucher file (journal, opening balance,
purchase or sales invoice, payment or receipt) and reports every issue that
would block saving it.

Example Usage:
  voucherctl check journal.yaml
  voucherctl check --catalog chart.yaml sales.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "",
		"Path to the YAML configuration file (defaults apply without it)")

	root.AddCommand(newCheckCmd(opts), newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// the report has already been printed for invalid vouchers
		if !errors.Is(err, errInvalidVoucher) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
