package config

import (
	"path/filepath"
	"strings"
	"testing"

	"po-outstanding-dashboard/internal/models"
	"po-outstanding-dashboard/internal/reconciler"
	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	settings, err := Load(newViper())
	if err != nil {
		t.Fatalf("defaults should load: %v", err)
	}

	if settings.DataDir != "." {
		t.Errorf("expected data dir '.', got '%s'", settings.DataDir)
	}
	if settings.Sources.Ledger != reconciler.DefaultLedgerFile {
		t.Errorf("expected ledger '%s', got '%s'", reconciler.DefaultLedgerFile, settings.Sources.Ledger)
	}
	if settings.Sources.ManualMapping != reconciler.DefaultManualMappingFile {
		t.Errorf("expected manual mapping '%s', got '%s'", reconciler.DefaultManualMappingFile, settings.Sources.ManualMapping)
	}
	if settings.CurrencyPrefix != "RM" {
		t.Errorf("expected currency prefix 'RM', got '%s'", settings.CurrencyPrefix)
	}
	if settings.Delimiter != "," {
		t.Errorf("expected delimiter ',', got '%s'", settings.Delimiter)
	}
	if settings.Server.Addr != ":8080" {
		t.Errorf("expected addr ':8080', got '%s'", settings.Server.Addr)
	}
	if settings.ColumnAliases != nil {
		t.Errorf("expected no aliases, got %v", settings.ColumnAliases)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(v *viper.Viper)
		wantCode errors.ErrorCode
	}{
		{
			name:   "defaults",
			modify: func(v *viper.Viper) {},
		},
		{
			name:     "empty data dir",
			modify:   func(v *viper.Viper) { v.Set(KeyDataDir, " ") },
			wantCode: errors.CodeMissingConfig,
		},
		{
			name:     "empty ledger name",
			modify:   func(v *viper.Viper) { v.Set(KeyLedger, "") },
			wantCode: errors.CodeMissingConfig,
		},
		{
			name:     "unsupported extension",
			modify:   func(v *viper.Viper) { v.Set(KeyDimension, "DimPTJ.json") },
			wantCode: errors.CodeInvalidConfig,
		},
		{
			name:   "spreadsheet source",
			modify: func(v *viper.Viper) { v.Set(KeyLedger, "ME2N.XLSX") },
		},
		{
			name:     "multi character delimiter",
			modify:   func(v *viper.Viper) { v.Set(KeyDelimiter, ";;") },
			wantCode: errors.CodeInvalidConfig,
		},
		{
			name:   "tab delimiter",
			modify: func(v *viper.Viper) { v.Set(KeyDelimiter, "\t") },
		},
		{
			name:     "unknown log level",
			modify:   func(v *viper.Viper) { v.Set(KeyLogLevel, "chatty") },
			wantCode: errors.CodeInvalidConfig,
		},
		{
			name:     "unknown alias column",
			modify:   func(v *viper.Viper) { v.Set(KeyColumnAliases, map[string]string{"Amount": "Jumlah"}) },
			wantCode: errors.CodeInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			tt.modify(v)

			_, err := Load(v)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			dashErr, ok := errors.AsDashboardError(err)
			if !ok {
				t.Fatalf("expected dashboard error, got %v", err)
			}
			if dashErr.Category != errors.CategoryConfiguration {
				t.Errorf("expected configuration category, got %s", dashErr.Category)
			}
			if dashErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, dashErr.Code)
			}
		})
	}
}

func TestSourcePaths(t *testing.T) {
	absolute := filepath.Join(t.TempDir(), "custom.csv")

	v := newViper()
	v.Set(KeyDataDir, "/srv/extracts")
	v.Set(KeyManualMapping, absolute)

	settings, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}

	paths := settings.SourcePaths()
	if paths.Ledger != filepath.Join("/srv/extracts", reconciler.DefaultLedgerFile) {
		t.Errorf("ledger path = %s", paths.Ledger)
	}
	if paths.Dimension != filepath.Join("/srv/extracts", reconciler.DefaultDimensionFile) {
		t.Errorf("dimension path = %s", paths.Dimension)
	}
	if paths.ManualMapping != absolute {
		t.Errorf("absolute manual mapping path should be kept, got %s", paths.ManualMapping)
	}
}

func TestTableConfigs(t *testing.T) {
	v := newViper()
	v.Set(KeyDelimiter, ";")
	// viper hands map keys back lowercased
	v.Set(KeyColumnAliases, map[string]string{
		"po number":   "Purchasing Document",
		"PO BALANCE ": "Still to be delivered (value)",
	})

	settings, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}

	if settings.ColumnAliases[models.ColumnPONumber] != "Purchasing Document" {
		t.Errorf("aliases = %v", settings.ColumnAliases)
	}
	if settings.ColumnAliases[models.ColumnPOBalance] != "Still to be delivered (value)" {
		t.Errorf("aliases = %v", settings.ColumnAliases)
	}

	tables, err := settings.TableConfigs()
	if err != nil {
		t.Fatal(err)
	}

	for name, tc := range map[string]interface{ GetColumnName(string) string }{
		"ledger":         tables.Ledger,
		"system_mapping": tables.SystemMapping,
		"manual_mapping": tables.ManualMapping,
		"dimension":      tables.Dimension,
	} {
		if got := tc.GetColumnName(models.ColumnPONumber); got != "Purchasing Document" {
			t.Errorf("%s: PO column = %s", name, got)
		}
		if got := tc.GetColumnName(models.ColumnVendorName); got != models.ColumnVendorName {
			t.Errorf("%s: unaliased column = %s", name, got)
		}
	}

	if tables.Ledger.Delimiter != ';' || tables.Dimension.Delimiter != ';' {
		t.Errorf("delimiter not applied: %q %q", tables.Ledger.Delimiter, tables.Dimension.Delimiter)
	}
	if tables.Ledger.Name != "ledger" || tables.Dimension.Name != "dimension" {
		t.Errorf("unexpected table names %s %s", tables.Ledger.Name, tables.Dimension.Name)
	}
}

func TestLoggerConfig(t *testing.T) {
	v := newViper()
	v.Set(KeyLogLevel, "WARN")
	v.Set(KeyLogFormat, "JSON")

	settings, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}

	config := settings.LoggerConfig()
	if config.Level != logger.WarnLevel {
		t.Errorf("expected warn level, got %s", config.Level)
	}
	if config.Format != logger.JSONFormat {
		t.Errorf("expected json format, got %s", config.Format)
	}
	if config.Output != logger.StderrOutput {
		t.Errorf("expected stderr output, got %s", config.Output)
	}

	settings.Verbose = true
	if settings.LoggerConfig().Level != logger.DebugLevel {
		t.Error("verbose should force debug level")
	}

	settings.Log.File = "/var/log/podash.log"
	config = settings.LoggerConfig()
	if config.Output != logger.FileOutput || config.File != "/var/log/podash.log" {
		t.Errorf("log file not applied: %+v", config)
	}
}

func TestServerConfig(t *testing.T) {
	v := newViper()
	v.Set(KeyServerAddr, "127.0.0.1:9000")
	v.Set(KeyCurrencyPrefix, "MYR")

	settings, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}

	config := settings.ServerConfig()
	if config.Addr != "127.0.0.1:9000" || config.CurrencyPrefix != "MYR" {
		t.Errorf("server config = %+v", config)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("server config should be valid: %v", err)
	}
}

func TestYAML(t *testing.T) {
	v := newViper()
	v.Set(KeyColumnAliases, map[string]string{"ptj number": "Unit"})

	settings, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}

	out, err := settings.YAML()
	if err != nil {
		t.Fatal(err)
	}

	text := string(out)
	for _, want := range []string{"data-dir:", "dimension: DimPTJ.csv", "currency-prefix: RM", "PTJ Number: Unit"} {
		if !strings.Contains(text, want) {
			t.Errorf("YAML missing %q:\n%s", want, text)
		}
	}

	var decoded Settings
	if err := yaml.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("YAML does not decode: %v", err)
	}
	if decoded.Sources != settings.Sources || decoded.Log != settings.Log {
		t.Errorf("round trip changed settings: %+v", decoded)
	}
}
