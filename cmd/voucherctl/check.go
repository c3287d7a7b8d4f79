// =============================================================================
// voucherctl - Check Command
// =============================================================================
//
// COMMAND USAGE:
//   voucherctl check <file.json|file.yaml> [--catalog chart.yaml]
//
// FILE FORMATS:
//   .json        the voucher JSON the API returns (dates in RFC 3339)
//   .yaml/.yml   same fields in YAML, dates as 2025-01-10
//
// PIPELINE:
//   1. Load configuration (policies, account codes)
//   2. Load the catalog into an in-memory store (built-in chart by default)
//   3. Resolve names, compute totals, run the submit rules
//   4. Print totals and issues
//
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/warp/voucher-ledger/catalog"
	"github.com/warp/voucher-ledger/config"
	"github.com/warp/voucher-ledger/money"
	"github.com/warp/voucher-ledger/store/memory"
	"github.com/warp/voucher-ledger/voucher"
)

var errInvalidVoucher = errors.New("voucher is invalid")

// catalogFile is the --catalog document.
type catalogFile struct {
	Accounts []catalog.Account `yaml:"accounts"`
	Products []catalog.Product `yaml:"products"`
}

func newCheckCmd(opts *options) *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "check <file.json|file.yaml>",
		Short: "Compute totals and validate a voucher file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), opts.cfgFile, catalogPath, args[0])
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "",
		"YAML file with accounts and products (default: built-in chart)")
	return cmd
}

func runCheck(ctx context.Context, out io.Writer, cfgPath, catalogPath, path string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	v, err := readVoucher(path)
	if err != nil {
		return err
	}

	store := memory.New()
	if err := loadCatalog(ctx, store, catalogPath); err != nil {
		return err
	}
	policies, accounts, err := cfg.Vouchers.Resolve(ctx, store)
	if err != nil {
		return fmt.Errorf("resolve voucher accounts: %w", err)
	}
	svc := voucher.NewService(store, store, voucher.NewCalculator(policies), accounts, nil)

	prepared, err := svc.Prepare(ctx, v)
	var verrs voucher.ValidationErrors
	if err != nil && !errors.As(err, &verrs) {
		return err
	}

	printReport(out, prepared, verrs)
	if len(verrs) > 0 {
		return errInvalidVoucher
	}
	return nil
}

func readVoucher(path string) (voucher.Voucher, error) {
	var decode func([]byte, any) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		decode = json.Unmarshal
	case ".yaml", ".yml":
		decode = yaml.Unmarshal
	default:
		return voucher.Voucher{}, fmt.Errorf("unsupported file type %q (want .json, .yaml or .yml)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return voucher.Voucher{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var v voucher.Voucher
	if err := decode(data, &v); err != nil {
		return voucher.Voucher{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return v, nil
}

func loadCatalog(ctx context.Context, store *memory.Store, path string) error {
	if path == "" {
		return catalog.SeedDefaults(ctx, store)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	for _, a := range cf.Accounts {
		if err := store.SaveAccount(ctx, a); err != nil {
			return fmt.Errorf("account %s: %w", a.ID, err)
		}
	}
	for _, p := range cf.Products {
		if err := store.SaveProduct(ctx, p); err != nil {
			return fmt.Errorf("product %s: %w", p.ID, err)
		}
	}
	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func printReport(out io.Writer, v voucher.Voucher, verrs voucher.ValidationErrors) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	date := "-"
	if !v.Date.IsZero() {
		date = v.Date.Format("2006-01-02")
	}
	fmt.Fprintf(tw, "Kind:\t%s\n", v.Kind)
	fmt.Fprintf(tw, "Date:\t%s\n", date)

	switch v.Kind.Family() {
	case voucher.FamilyInvoice:
		for i, item := range v.Items {
			a := voucher.ComputeLineItem(item)
			fmt.Fprintf(tw, "  %d\t%s\t%s x %s\t%s\n", i+1, item.ProductName,
				a.FinalQuantity.String(), money.Format(item.Rate), money.Format(a.Total))
		}
		t := v.Totals.Invoice
		fmt.Fprintf(tw, "Subtotal:\t%s\n", money.Format(t.Subtotal))
		fmt.Fprintf(tw, "Discount:\t%s (%s%%)\n", money.Format(t.Discount), money.Format(t.DiscountRate))
		fmt.Fprintf(tw, "Tax:\t%s\n", money.Format(t.Tax))
		fmt.Fprintf(tw, "Grand total:\t%s\n", money.Format(t.GrandTotal))
	case voucher.FamilyPayment:
		for i, p := range v.Payments {
			fmt.Fprintf(tw, "  %d\t%s\t%s\n", i+1, p.LedgerName, money.Format(p.Amount))
		}
		fmt.Fprintf(tw, "Total:\t%s\n", money.Format(v.Totals.Payment.Total))
	default:
		for i, l := range v.Lines {
			name := l.AccountName
			if l.System {
				name += " (auto)"
			}
			fmt.Fprintf(tw, "  %d\t%s\tDr %s\tCr %s\n", i+1, name, money.Format(l.Debit), money.Format(l.Credit))
		}
		t := v.Totals.Ledger
		fmt.Fprintf(tw, "Debit:\t%s\n", money.Format(t.TotalDebit))
		fmt.Fprintf(tw, "Credit:\t%s\n", money.Format(t.TotalCredit))
		fmt.Fprintf(tw, "Difference:\t%s\n", money.Format(t.Difference))
	}

	if len(verrs) == 0 {
		fmt.Fprintln(tw, "Result:\tOK")
		return
	}
	fmt.Fprintf(tw, "Result:\tINVALID (%d issues)\n", len(verrs))
	for _, e := range verrs {
		fmt.Fprintf(tw, "  [%s]\t%s\n", e.Code, e.Error())
	}
}
