// =============================================================================
// Voucher Ledger - Configuration
// =============================================================================
//
// Configuration is read from a single YAML file. Every field has a default,
// so an empty or missing file yields a working development setup. Command
// line flags in cmd/server override the loaded values.
//
// Account settings are given as chart-of-accounts CODES, not IDs. They are
// resolved against the catalog once at startup (Resolve) and the calculator
// only ever sees the resolved account IDs.
//
// =============================================================================

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/voucher-ledger/catalog"
	"github.com/warp/voucher-ledger/validation"
	"github.com/warp/voucher-ledger/voucher"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Vouchers VoucherConfig  `yaml:"vouchers"`
}

type ServerConfig struct {
	// Port the HTTP server listens on.
	// Default: 8080
	Port int `yaml:"port" validate:"min=1,max=65535"`

	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`

	// AllowedOrigins for CORS. Default: localhost dev servers.
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,required"`
}

type DatabaseConfig struct {
	// Path to the SQLite file, or ":memory:".
	// Default: "vouchers.db"
	Path string `yaml:"path" validate:"required"`

	// SeedDefaults loads the default chart of accounts and products into an
	// empty database.
	SeedDefaults bool `yaml:"seed_defaults"`
}

type LoggingConfig struct {
	// Level: "debug", "info", "warn", "error". Default: "info"
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format: "json" or "text". Default: "json"
	Format string `yaml:"format" validate:"oneof=json text"`
}

// VoucherConfig holds the calculation policy knobs.
type VoucherConfig struct {
	PurchaseTaxBase voucher.TaxBase `yaml:"purchase_tax_base" validate:"oneof=pre-discount post-discount"`
	SalesTaxBase    voucher.TaxBase `yaml:"sales_tax_base" validate:"oneof=pre-discount post-discount"`

	// AdjustmentAccountCode absorbs opening balance differences.
	// Empty disables auto-balance. Default: "3004"
	AdjustmentAccountCode string `yaml:"adjustment_account_code"`

	Postings PostingCodes `yaml:"postings"`
}

// PostingCodes are the account codes invoices post to.
type PostingCodes struct {
	Purchases string `yaml:"purchases"`
	Sales     string `yaml:"sales"`
	InputTax  string `yaml:"input_tax"`
	OutputTax string `yaml:"output_tax"`
}

// =============================================================================
// LOADING
// =============================================================================

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Path:         "vouchers.db",
			SeedDefaults: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Vouchers: VoucherConfig{
			PurchaseTaxBase:       voucher.TaxBasePreDiscount,
			SalesTaxBase:          voucher.TaxBasePostDiscount,
			AdjustmentAccountCode: catalog.CodeOpeningDifference,
			Postings: PostingCodes{
				Purchases: catalog.CodePurchases,
				Sales:     catalog.CodeSales,
				InputTax:  catalog.CodeInputTax,
				OutputTax: catalog.CodeOutputTax,
			},
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validation.New("yaml")

// Validate checks the validate tags and collects every problem into one
// error, naming fields by their YAML path.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve looks up the configured account codes in the catalog and returns
// the calculator policies and posting accounts built from them.
func (c VoucherConfig) Resolve(ctx context.Context, cat catalog.Catalog) (map[voucher.Kind]voucher.Policy, voucher.PostingAccounts, error) {
	p := c.Postings
	accounts, err := catalog.ResolveCodes(ctx, cat,
		c.AdjustmentAccountCode, p.Purchases, p.Sales, p.InputTax, p.OutputTax)
	if err != nil {
		return nil, voucher.PostingAccounts{}, err
	}

	policies := voucher.DefaultPolicies()

	opening := policies[voucher.KindOpeningBalance]
	if adj, ok := accounts[c.AdjustmentAccountCode]; ok {
		opening.AdjustmentAccountID = adj.ID
		opening.AdjustmentAccountName = adj.Name
	} else {
		opening.AutoBalance = false
	}
	policies[voucher.KindOpeningBalance] = opening

	purchase := policies[voucher.KindPurchaseInvoice]
	purchase.TaxBase = c.PurchaseTaxBase
	policies[voucher.KindPurchaseInvoice] = purchase

	sales := policies[voucher.KindSalesInvoice]
	sales.TaxBase = c.SalesTaxBase
	policies[voucher.KindSalesInvoice] = sales

	posting := voucher.PostingAccounts{
		Purchases: accounts[p.Purchases].ID,
		Sales:     accounts[p.Sales].ID,
		InputTax:  accounts[p.InputTax].ID,
		OutputTax: accounts[p.OutputTax].ID,
	}
	return policies, posting, nil
}
