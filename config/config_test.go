package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/voucher-ledger/catalog"
	"github.com/warp/voucher-ledger/config"
	"github.com/warp/voucher-ledger/store/memory"
	"github.com/warp/voucher-ledger/validation"
	"github.com/warp/voucher-ledger/voucher"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, config.Default().Validate())
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9090
  shutdown_timeout: 5s
logging:
  level: debug
  format: text
vouchers:
  sales_tax_base: pre-discount
  adjustment_account_code: ""
`)

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "unset fields keep defaults")
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, voucher.TaxBasePreDiscount, cfg.Vouchers.SalesTaxBase)
	assert.Empty(t, cfg.Vouchers.AdjustmentAccountCode)
	assert.Equal(t, catalog.CodeSales, cfg.Vouchers.Postings.Sales)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := writeFile(t, `
server:
  port: 0
logging:
  level: loud
vouchers:
  purchase_tax_base: sometimes
`)

	_, err := config.Load(path)

	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "logging.level")
	assert.Contains(t, err.Error(), "purchase_tax_base")
}

func TestValidate_FieldPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = ""
	cfg.Server.ShutdownTimeout = -time.Second
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000", ""}
	cfg.Logging.Format = "xml"

	err := cfg.Validate()

	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
	var fields validation.Errors
	require.True(t, errors.As(err, &fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Field
	}
	assert.ElementsMatch(t, []string{
		"server.shutdown_timeout",
		"server.allowed_origins[1]",
		"database.path",
		"logging.format",
	}, names)
	assert.Contains(t, err.Error(), "database.path is required")
	assert.Contains(t, err.Error(), "logging.format must be one of: json text")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}

func TestResolve_UsesCatalogIDs(t *testing.T) {
	// GIVEN: a catalog seeded with the default chart
	ctx := context.Background()
	st := memory.New()
	for _, a := range catalog.DefaultChart() {
		require.NoError(t, st.SaveAccount(ctx, a))
	}

	// WHEN
	policies, accounts, err := config.Default().Vouchers.Resolve(ctx, st)

	// THEN
	require.NoError(t, err)
	opening := policies[voucher.KindOpeningBalance]
	assert.True(t, opening.AutoBalance)
	assert.Equal(t, "acc-opening-diff", opening.AdjustmentAccountID)
	assert.Equal(t, "Opening Balance Difference", opening.AdjustmentAccountName)
	assert.Equal(t, voucher.TaxBasePostDiscount, policies[voucher.KindSalesInvoice].TaxBase)
	assert.Equal(t, voucher.PostingAccounts{
		Purchases: "acc-purchases",
		Sales:     "acc-sales",
		InputTax:  "acc-input-tax",
		OutputTax: "acc-output-tax",
	}, accounts)
}

func TestResolve_BlankAdjustmentDisablesAutoBalance(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	for _, a := range catalog.DefaultChart() {
		require.NoError(t, st.SaveAccount(ctx, a))
	}
	vc := config.Default().Vouchers
	vc.AdjustmentAccountCode = ""

	policies, _, err := vc.Resolve(ctx, st)

	require.NoError(t, err)
	assert.False(t, policies[voucher.KindOpeningBalance].AutoBalance)
}

func TestResolve_UnknownCode(t *testing.T) {
	_, _, err := config.Default().Vouchers.Resolve(context.Background(), memory.New())

	assert.True(t, catalog.IsNotFound(err))
}
