// Package parsers loads the dashboard's source extracts into typed records.
//
// Every extract is a header-first table. The format is chosen from the file
// extension:
//   - .csv (and anything unrecognized as a spreadsheet): delimited UTF-8 text,
//     optional byte-order mark
//   - .xlsx: first worksheet, read with excelize
//   - .xls: first worksheet of a legacy workbook, read with extrame/xls
//
// Headers are trimmed before matching. Cell values are kept as text; the
// normalize package decides what they mean.
//
// Parser types:
//   - LedgerParser: the purchase-order ledger (ME2N)
//   - MappingParser: PO-to-unit mappings, system (ME2K) or manual overrides
//   - DimensionParser: the unit dimension table (DimPTJ)
//
// Example usage:
//
//	parser, err := NewLedgerParser(DefaultTableConfig("ledger"))
//	orders, stats, err := parser.ParseLedger(ctx, "data/ME2N.csv")
package parsers

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"po-outstanding-dashboard/internal/normalize"
	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"
)

// ParseError represents a row that could not be turned into a record
type ParseError struct {
	Line    int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error at line %d (%s='%s'): %s: %v",
			e.Line, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("parse error at line %d (%s='%s'): %s",
		e.Line, e.Field, e.Value, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseConfig holds configuration for reading delimited extracts
type ParseConfig struct {
	Delimiter        rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
	LazyQuotes       bool
	ValidateEncoding bool
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
		LazyQuotes:       true,
		ValidateEncoding: true,
	}
}

// rowReader yields table rows, header first, and io.EOF at the end
type rowReader interface {
	Read() ([]string, error)
	Close() error
}

// BaseParser provides the reading steps shared by every table parser
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a new BaseParser with the given configuration
func NewBaseParser(config *ParseConfig) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}

	log := logger.GetGlobalLogger().WithComponent("table_loader")
	log.WithFields(logger.Fields{
		"delimiter":         string(config.Delimiter),
		"validate_encoding": config.ValidateEncoding,
	}).Debug("Created base parser")

	return &BaseParser{
		config: config,
		logger: log,
	}
}

// ParseContext holds state while one table is being read
type ParseContext struct {
	File        string
	LineNumber  int
	Headers     []string
	HeaderMap   map[string]int
	RecordCount int
	ctx         context.Context
}

// NewParseContext creates a new parsing context for a file
func NewParseContext(ctx context.Context, file string) *ParseContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ParseContext{
		File:      file,
		Headers:   make([]string, 0),
		HeaderMap: make(map[string]int),
		ctx:       ctx,
	}
}

// IsCancelled checks if the parsing context has been cancelled
func (pc *ParseContext) IsCancelled() bool {
	select {
	case <-pc.ctx.Done():
		return true
	default:
		return false
	}
}

// GetColumnIndex returns the index of a column by name, or -1 if not found.
// An exact match is preferred over a case-insensitive one.
func (pc *ParseContext) GetColumnIndex(name string) int {
	if index, exists := pc.HeaderMap[name]; exists {
		return index
	}

	for i, header := range pc.Headers {
		if strings.EqualFold(header, name) {
			return i
		}
	}

	return -1
}

// HasColumn reports whether the table has the named column
func (pc *ParseContext) HasColumn(name string) bool {
	return pc.GetColumnIndex(name) != -1
}

// Open opens a source table, choosing the reader from the file extension
func (bp *BaseParser) Open(filePath string) (rowReader, error) {
	bp.logger.WithField("file_path", filePath).Debug("Opening source table")

	switch DetectFormat(filePath) {
	case FormatXLSX:
		return openXLSX(filePath)
	case FormatXLS:
		return openXLS(filePath)
	default:
		return bp.openCSV(filePath)
	}
}

func (bp *BaseParser) openCSV(filePath string) (rowReader, error) {
	file, err := openSourceFile(filePath)
	if err != nil {
		bp.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open CSV file")
		return nil, err
	}

	if bp.config.ValidateEncoding {
		if err := bp.validateEncoding(file, filePath); err != nil {
			file.Close()
			bp.logger.WithError(err).WithField("file_path", filePath).Error("File encoding validation failed")
			return nil, err
		}

		if _, err := file.Seek(0, io.SeekStart); err != nil {
			file.Close()
			return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
		}
	}

	reader := csv.NewReader(file)
	bp.configureReader(reader)

	return &csvRowReader{file: file, reader: reader}, nil
}

// openSourceFile opens a file and classifies the failure
func openSourceFile(filePath string) (*os.File, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}
	return file, nil
}

// configureReader sets up the CSV reader with our configuration
func (bp *BaseParser) configureReader(reader *csv.Reader) {
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = bp.config.TrimLeadingSpace
	reader.LazyQuotes = bp.config.LazyQuotes
	reader.FieldsPerRecord = -1
}

// validateEncoding checks that the first lines are valid UTF-8
func (bp *BaseParser) validateEncoding(file *os.File, filePath string) error {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0

	for scanner.Scan() && lineNum < 100 {
		lineNum++
		if !utf8.Valid(scanner.Bytes()) {
			return errors.ParseError(
				errors.CodeEncodingError,
				filePath,
				lineNum,
				"encoding",
				"",
				fmt.Errorf("invalid UTF-8 encoding detected"),
			).WithSuggestion("Re-export the extract as CSV UTF-8")
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	return nil
}

type csvRowReader struct {
	file   *os.File
	reader *csv.Reader
}

func (r *csvRowReader) Read() ([]string, error) {
	return r.reader.Read()
}

func (r *csvRowReader) Close() error {
	return r.file.Close()
}

// ReadHeaders reads the header row and checks that every required column is
// present. Headers are trimmed and a leading byte-order mark is dropped.
func (bp *BaseParser) ReadHeaders(reader rowReader, parseCtx *ParseContext, requiredHeaders []string) error {
	headers, err := reader.Read()
	switch {
	case err == io.EOF:
		// an empty file has no columns; the required check below reports it
		bp.logger.WithField("file_path", parseCtx.File).Warn("File is empty")
		headers = nil
	case err != nil:
		return errors.ParseError(
			errors.CodeInvalidFormat,
			parseCtx.File,
			1,
			"headers",
			"",
			err,
		)
	default:
		parseCtx.LineNumber++
	}

	parseCtx.Headers = normalize.Headers(headers)
	bp.buildHeaderMap(parseCtx)

	bp.logger.WithFields(logger.Fields{
		"file_path": parseCtx.File,
		"headers":   parseCtx.Headers,
	}).Debug("Read headers")

	missing := bp.findMissingHeaders(parseCtx, requiredHeaders)
	if len(missing) > 0 {
		bp.logger.WithFields(logger.Fields{
			"file_path":         parseCtx.File,
			"missing_headers":   missing,
			"available_headers": parseCtx.Headers,
		}).Error("Required headers are missing")

		return errors.ParseError(
			errors.CodeMissingColumn,
			parseCtx.File,
			parseCtx.LineNumber,
			strings.Join(missing, ", "),
			"",
			nil,
		).WithSuggestion(fmt.Sprintf("Ensure the extract contains these headers: %s", strings.Join(missing, ", ")))
	}

	return nil
}

// buildHeaderMap indexes headers by name; the first of duplicate names wins
func (bp *BaseParser) buildHeaderMap(parseCtx *ParseContext) {
	parseCtx.HeaderMap = make(map[string]int, len(parseCtx.Headers))
	for i, header := range parseCtx.Headers {
		if _, exists := parseCtx.HeaderMap[header]; !exists {
			parseCtx.HeaderMap[header] = i
		}
	}
}

func (bp *BaseParser) findMissingHeaders(parseCtx *ParseContext, required []string) []string {
	var missing []string
	for _, header := range required {
		if !parseCtx.HasColumn(header) {
			missing = append(missing, header)
		}
	}
	return missing
}

// ReadRecord returns the next non-empty data row, or io.EOF
func (bp *BaseParser) ReadRecord(reader rowReader, parseCtx *ParseContext) ([]string, error) {
	for {
		if parseCtx.IsCancelled() {
			return nil, errors.InternalError(
				errors.CodeUnexpectedError,
				"table_loading",
				parseCtx.ctx.Err(),
			)
		}

		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil, err
			}
			return nil, errors.ParseError(
				errors.CodeInvalidFormat,
				parseCtx.File,
				parseCtx.LineNumber+1,
				"record",
				"",
				err,
			)
		}

		parseCtx.LineNumber++

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}

		parseCtx.RecordCount++
		return record, nil
	}
}

// isEmptyRecord checks if all fields in a record are empty or whitespace
func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// GetFieldValue returns the raw cell for a column. A missing column or a
// short row yields "" and false.
func (bp *BaseParser) GetFieldValue(record []string, parseCtx *ParseContext, fieldName string) (string, bool) {
	index := parseCtx.GetColumnIndex(fieldName)
	if index == -1 || index >= len(record) {
		return "", false
	}
	return record[index], true
}

// Passthrough collects every column not listed in known, keyed by header
func (bp *BaseParser) Passthrough(record []string, parseCtx *ParseContext, known map[string]struct{}) map[string]string {
	extra := make(map[string]string)
	for i, header := range parseCtx.Headers {
		if header == "" {
			continue
		}
		if _, skip := known[header]; skip {
			continue
		}
		if parseCtx.HeaderMap[header] != i {
			continue
		}
		if i < len(record) {
			extra[header] = strings.TrimSpace(record[i])
		} else {
			extra[header] = ""
		}
	}
	return extra
}

// ParseStats holds statistics about loading one table
type ParseStats struct {
	TotalLines     int
	RecordsParsed  int
	RecordsSkipped int
	Errors         []*ParseError
}

// NewParseStats creates a new ParseStats instance
func NewParseStats() *ParseStats {
	return &ParseStats{
		Errors: make([]*ParseError, 0),
	}
}

// AddError records a row that was skipped
func (ps *ParseStats) AddError(err *ParseError) {
	ps.Errors = append(ps.Errors, err)
	ps.RecordsSkipped++
}

// HasErrors returns true if any row was skipped
func (ps *ParseStats) HasErrors() bool {
	return len(ps.Errors) > 0
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d lines, %d records, %d skipped",
		ps.TotalLines, ps.RecordsParsed, ps.RecordsSkipped)
}

// GetSampleErrors returns a sample of the parsing errors for logging
func (ps *ParseStats) GetSampleErrors(maxSamples int) []string {
	if len(ps.Errors) == 0 {
		return nil
	}

	limit := len(ps.Errors)
	if maxSamples > 0 && maxSamples < limit {
		limit = maxSamples
	}

	samples := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		samples = append(samples, ps.Errors[i].Error())
	}
	return samples
}
