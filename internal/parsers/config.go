package parsers

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// TableFormat is the on-disk encoding of a source table
type TableFormat string

const (
	FormatCSV  TableFormat = "csv"
	FormatXLSX TableFormat = "xlsx"
	FormatXLS  TableFormat = "xls"
)

// DetectFormat picks the table format from the file extension. Anything that
// is not a workbook is read as delimited text.
func DetectFormat(filePath string) TableFormat {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	default:
		return FormatCSV
	}
}

// TableConfig describes how one source table is read
type TableConfig struct {
	Name          string            `json:"name" yaml:"name"`
	Delimiter     rune              `json:"delimiter" yaml:"delimiter"`
	ColumnAliases map[string]string `json:"column_aliases,omitempty" yaml:"column_aliases,omitempty"`
}

// Validate checks if the table configuration is valid
func (tc *TableConfig) Validate() error {
	if strings.TrimSpace(tc.Name) == "" {
		return fmt.Errorf("table name cannot be empty")
	}

	if tc.Delimiter == 0 || tc.Delimiter == '\r' || tc.Delimiter == '\n' ||
		tc.Delimiter == '"' || tc.Delimiter == utf8.RuneError {
		return fmt.Errorf("invalid delimiter %q for table %s", tc.Delimiter, tc.Name)
	}

	for standard, actual := range tc.ColumnAliases {
		if strings.TrimSpace(actual) == "" {
			return fmt.Errorf("alias for column %q cannot be empty", standard)
		}
	}

	return nil
}

// GetColumnName returns the header used in the file for a standard column,
// checking aliases first
func (tc *TableConfig) GetColumnName(standardName string) string {
	if alias, exists := tc.ColumnAliases[standardName]; exists {
		return alias
	}
	return standardName
}

// parseConfig derives the reader settings for this table
func (tc *TableConfig) parseConfig() *ParseConfig {
	config := DefaultParseConfig()
	config.Delimiter = tc.Delimiter
	return config
}

// DefaultTableConfig returns a comma-delimited configuration without aliases
func DefaultTableConfig(name string) *TableConfig {
	return &TableConfig{
		Name:          name,
		Delimiter:     ',',
		ColumnAliases: make(map[string]string),
	}
}
