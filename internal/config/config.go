// Package config loads the scheduler's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/scheduler/internal/ledger"
	"github.com/matthewbaird/scheduler/internal/render"
	"github.com/matthewbaird/scheduler/internal/schema"
	"github.com/matthewbaird/scheduler/internal/types"
)

const (
	DefaultCommissionRate = 0.9
	DefaultUnitPrice      = 5.0
	DefaultCurrency       = "RUB"
	DefaultLocale         = "ru-RU"
	DefaultResourceField  = "resource_id"
	DefaultConfirmTimeout = 30 * time.Second
	DefaultLogLevel       = "info"
	DefaultEventsFile     = "events.json"
	DefaultActivityFile   = "activity.jsonl"
)

// Config is the top-level application configuration.
type Config struct {
	// CommissionRate is the fraction of the total price kept as income.
	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate"`

	// DefaultUnitPrice seeds new service lines.
	DefaultUnitPrice float64 `yaml:"default_unit_price" json:"default_unit_price"`

	// Currency is an ISO 4217 code; Locale a BCP 47 tag. Together they drive
	// amount formatting.
	Currency string `yaml:"currency" json:"currency"`
	Locale   string `yaml:"locale" json:"locale"`

	// ResourceField names the event attribute holding the owning resource.
	ResourceField string `yaml:"resource_field" json:"resource_field"`

	// ConfirmTimeout bounds the external confirm hook.
	ConfirmTimeout time.Duration `yaml:"confirm_timeout" json:"confirm_timeout"`

	// RequireContact makes the built-in name and phone fields required.
	RequireContact bool `yaml:"require_contact" json:"require_contact"`

	// SeedServiceLine opens new bookings with one default service line.
	SeedServiceLine bool `yaml:"seed_service_line" json:"seed_service_line"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// SchemaFile is an optional CUE file of field declarations, resolved
	// relative to the config file. Its fields come before Fields.
	SchemaFile string `yaml:"schema_file,omitempty" json:"schema_file,omitempty"`

	// Fields are inline custom field declarations.
	Fields []schema.FieldDecl `yaml:"fields" json:"fields"`

	// Services is the catalog offered by the line-item service select.
	Services []schema.Option `yaml:"services" json:"services"`

	// EventsFile is where the CLI keeps its event list, relative to the
	// config file.
	EventsFile string `yaml:"events_file" json:"events_file"`

	// ActivityFile is the CLI's append-only booking history.
	ActivityFile string `yaml:"activity_file" json:"activity_file"`

	Translations render.Translations `yaml:"translations" json:"translations"`

	dir string
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		CommissionRate:   DefaultCommissionRate,
		DefaultUnitPrice: DefaultUnitPrice,
		Currency:         DefaultCurrency,
		Locale:           DefaultLocale,
		ResourceField:    DefaultResourceField,
		ConfirmTimeout:   DefaultConfirmTimeout,
		LogLevel:         DefaultLogLevel,
		Fields:           []schema.FieldDecl{},
		Services:         []schema.Option{},
		EventsFile:       DefaultEventsFile,
		ActivityFile:     DefaultActivityFile,
		Translations:     render.DefaultTranslations(),
	}
}

// Normalize fills in missing or out-of-range values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.CommissionRate <= 0 || c.CommissionRate > 1 {
		c.CommissionRate = DefaultCommissionRate
	}
	if c.DefaultUnitPrice < 0 {
		c.DefaultUnitPrice = DefaultUnitPrice
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if c.Locale == "" {
		c.Locale = DefaultLocale
	}
	if c.ResourceField == "" {
		c.ResourceField = DefaultResourceField
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = DefaultConfirmTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Fields == nil {
		c.Fields = []schema.FieldDecl{}
	}
	if c.Services == nil {
		c.Services = []schema.Option{}
	}
	if c.EventsFile == "" {
		c.EventsFile = DefaultEventsFile
	}
	if c.ActivityFile == "" {
		c.ActivityFile = DefaultActivityFile
	}
	c.Translations = c.Translations.WithDefaults()
}

// Load loads configuration from the given YAML path. A missing file is
// created with the defaults (0600) and the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			cfg.dir = filepath.Dir(path)
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Normalize()
	cfg.dir = filepath.Dir(path)
	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file and rename, with 0600
// permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".scheduler-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Resolve returns p relative to the config file's directory.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// LedgerOptions converts the money settings to exact decimals.
func (c *Config) LedgerOptions() (ledger.Options, error) {
	rate, err := types.DecimalFromFloat(c.CommissionRate)
	if err != nil {
		return ledger.Options{}, fmt.Errorf("commission_rate: %w", err)
	}
	price, err := types.DecimalFromFloat(c.DefaultUnitPrice)
	if err != nil {
		return ledger.Options{}, fmt.Errorf("default_unit_price: %w", err)
	}
	return ledger.Options{DefaultUnitPrice: price, CommissionRate: rate}, nil
}

// BuiltinOptions returns the built-in field settings.
func (c *Config) BuiltinOptions() schema.BuiltinOptions {
	return schema.BuiltinOptions{RequireContact: c.RequireContact}
}

// Schema composes the built-ins with the CUE schema file and the inline
// fields.
func (c *Config) Schema() (*schema.Schema, error) {
	var custom []schema.FieldDecl
	if c.SchemaFile != "" {
		decls, err := schema.LoadCUEFile(c.Resolve(c.SchemaFile))
		if err != nil {
			return nil, err
		}
		custom = append(custom, decls...)
	}
	custom = append(custom, c.Fields...)
	return schema.Compose(custom, c.BuiltinOptions())
}

// CurrencyFormatter builds the amount formatter for Locale and Currency.
func (c *Config) CurrencyFormatter() (*render.CurrencyFormatter, error) {
	return render.NewCurrencyFormatter(c.Locale, c.Currency)
}
