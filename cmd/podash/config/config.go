// Package config turns viper settings into the configuration structs of the
// dashboard packages.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"po-outstanding-dashboard/internal/dashboard"
	"po-outstanding-dashboard/internal/models"
	"po-outstanding-dashboard/internal/parsers"
	"po-outstanding-dashboard/internal/reconciler"
	"po-outstanding-dashboard/internal/server"
	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Viper keys
const (
	KeyDataDir        = "data-dir"
	KeyLedger         = "sources.ledger"
	KeySystemMapping  = "sources.system-mapping"
	KeyManualMapping  = "sources.manual-mapping"
	KeyDimension      = "sources.dimension"
	KeyCurrencyPrefix = "currency-prefix"
	KeyDelimiter      = "delimiter"
	KeyColumnAliases  = "column-aliases"
	KeyServerAddr     = "server.addr"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
	KeyLogFile        = "log.file"
	KeyVerbose        = "verbose"
)

// EnvPrefix is prepended to every environment variable viper reads
const EnvPrefix = "PODASH"

// SourceFiles names the four extracts
type SourceFiles struct {
	Ledger        string `yaml:"ledger"`
	SystemMapping string `yaml:"system-mapping"`
	ManualMapping string `yaml:"manual-mapping"`
	Dimension     string `yaml:"dimension"`
}

// ServerSettings holds the serve command settings
type ServerSettings struct {
	Addr string `yaml:"addr"`
}

// LogSettings holds the logger settings
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// Settings is the effective configuration of one CLI run
type Settings struct {
	DataDir        string            `yaml:"data-dir"`
	Sources        SourceFiles       `yaml:"sources"`
	CurrencyPrefix string            `yaml:"currency-prefix"`
	Delimiter      string            `yaml:"delimiter"`
	ColumnAliases  map[string]string `yaml:"column-aliases,omitempty"`
	Server         ServerSettings    `yaml:"server"`
	Log            LogSettings       `yaml:"log"`
	Verbose        bool              `yaml:"verbose"`
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDataDir, ".")
	v.SetDefault(KeyLedger, reconciler.DefaultLedgerFile)
	v.SetDefault(KeySystemMapping, reconciler.DefaultSystemMappingFile)
	v.SetDefault(KeyManualMapping, reconciler.DefaultManualMappingFile)
	v.SetDefault(KeyDimension, reconciler.DefaultDimensionFile)
	v.SetDefault(KeyCurrencyPrefix, dashboard.DefaultCurrencyPrefix)
	v.SetDefault(KeyDelimiter, ",")
	v.SetDefault(KeyServerAddr, server.DefaultConfig().Addr)
	v.SetDefault(KeyLogLevel, string(logger.InfoLevel))
	v.SetDefault(KeyLogFormat, string(logger.TextFormat))
}

// Load reads the settings from v
func Load(v *viper.Viper) (*Settings, error) {
	aliases, err := columnAliases(v.GetStringMapString(KeyColumnAliases))
	if err != nil {
		return nil, err
	}

	s := &Settings{
		DataDir: v.GetString(KeyDataDir),
		Sources: SourceFiles{
			Ledger:        v.GetString(KeyLedger),
			SystemMapping: v.GetString(KeySystemMapping),
			ManualMapping: v.GetString(KeyManualMapping),
			Dimension:     v.GetString(KeyDimension),
		},
		CurrencyPrefix: v.GetString(KeyCurrencyPrefix),
		Delimiter:      v.GetString(KeyDelimiter),
		ColumnAliases:  aliases,
		Server:         ServerSettings{Addr: v.GetString(KeyServerAddr)},
		Log: LogSettings{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
			File:   v.GetString(KeyLogFile),
		},
		Verbose: v.GetBool(KeyVerbose),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings before any file is read
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.DataDir) == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, KeyDataDir, s.DataDir, nil)
	}

	files := []struct {
		key  string
		name string
	}{
		{KeyLedger, s.Sources.Ledger},
		{KeySystemMapping, s.Sources.SystemMapping},
		{KeyManualMapping, s.Sources.ManualMapping},
		{KeyDimension, s.Sources.Dimension},
	}
	for _, f := range files {
		if strings.TrimSpace(f.name) == "" {
			return errors.ConfigurationError(errors.CodeMissingConfig, f.key, f.name, nil)
		}
		if !supportedExtension(f.name) {
			return errors.ConfigurationError(errors.CodeInvalidConfig, f.key, f.name, nil).
				WithSuggestion("use a .csv, .txt, .xlsx, .xlsm or .xls file")
		}
	}

	if utf8.RuneCountInString(s.Delimiter) != 1 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, KeyDelimiter, s.Delimiter, nil).
			WithSuggestion("the delimiter must be a single character")
	}

	if err := s.LoggerConfig().Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "log", s.Log, err)
	}

	return nil
}

// SourcePaths resolves the source file names against the data directory.
// Absolute names are kept as given.
func (s *Settings) SourcePaths() reconciler.Sources {
	resolve := func(name string) string {
		if filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(s.DataDir, name)
	}

	return reconciler.Sources{
		Ledger:        resolve(s.Sources.Ledger),
		SystemMapping: resolve(s.Sources.SystemMapping),
		ManualMapping: resolve(s.Sources.ManualMapping),
		Dimension:     resolve(s.Sources.Dimension),
	}
}

// TableConfigs builds the reader settings of the four tables
func (s *Settings) TableConfigs() (*reconciler.TableConfigs, error) {
	delimiter, _ := utf8.DecodeRuneInString(s.Delimiter)

	build := func(name string) (*parsers.TableConfig, error) {
		tc := parsers.DefaultTableConfig(name)
		tc.Delimiter = delimiter
		for standard, actual := range s.ColumnAliases {
			tc.ColumnAliases[standard] = actual
		}
		if err := tc.Validate(); err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, name, tc, err)
		}
		return tc, nil
	}

	configs := &reconciler.TableConfigs{}
	var err error
	if configs.Ledger, err = build("ledger"); err != nil {
		return nil, err
	}
	if configs.SystemMapping, err = build("system_mapping"); err != nil {
		return nil, err
	}
	if configs.ManualMapping, err = build("manual_mapping"); err != nil {
		return nil, err
	}
	if configs.Dimension, err = build("dimension"); err != nil {
		return nil, err
	}
	return configs, nil
}

// LoggerConfig returns the logger configuration. Verbose forces debug and a
// log file replaces stderr.
func (s *Settings) LoggerConfig() *logger.Config {
	config := logger.DefaultConfig()
	config.Level = logger.Level(strings.ToLower(s.Log.Level))
	config.Format = logger.Format(strings.ToLower(s.Log.Format))
	if s.Log.File != "" {
		config.Output = logger.FileOutput
		config.File = s.Log.File
	}
	if s.Verbose {
		config.Level = logger.DebugLevel
	}
	return config
}

// ServerConfig returns the HTTP server configuration
func (s *Settings) ServerConfig() *server.Config {
	config := server.DefaultConfig()
	config.Addr = s.Server.Addr
	config.CurrencyPrefix = s.CurrencyPrefix
	return config
}

// YAML renders the settings as a YAML document
func (s *Settings) YAML() ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	return out, nil
}

var knownColumns = []string{
	models.ColumnPONumber,
	models.ColumnPTJNumber,
	models.ColumnPOBalance,
	models.ColumnPOTotal,
	models.ColumnVendorName,
	models.ColumnPostingDate,
	models.ColumnDivision,
	models.ColumnSector,
	models.ColumnUnitCode,
	models.ColumnDimUnitID,
}

// columnAliases maps alias keys back to the canonical column names. Viper
// lowercases map keys, so keys are matched without regard to case.
func columnAliases(raw map[string]string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	aliases := make(map[string]string, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		column := ""
		for _, known := range knownColumns {
			if strings.EqualFold(strings.TrimSpace(key), known) {
				column = known
				break
			}
		}
		if column == "" {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyColumnAliases+"."+key, raw[key], nil).
				WithSuggestion("alias keys must name a known column such as " + models.ColumnPONumber)
		}
		aliases[column] = raw[key]
	}
	return aliases, nil
}

func supportedExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".xlsx", ".xlsm", ".xls":
		return true
	default:
		return false
	}
}
