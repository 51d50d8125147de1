package parsers

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"po-outstanding-dashboard/internal/models"
	"po-outstanding-dashboard/internal/normalize"
	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"
)

var dimensionColumns = []string{
	models.ColumnDimUnitID,
	models.ColumnSector,
	models.ColumnDivision,
	models.ColumnUnitCode,
}

// DimensionParser reads the unit dimension table
type DimensionParser struct {
	*BaseParser
	config *TableConfig
	logger logger.Logger
}

// NewDimensionParser creates a new DimensionParser with the given configuration
func NewDimensionParser(config *TableConfig) (*DimensionParser, error) {
	if config == nil {
		config = DefaultTableConfig("dimension")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"dimension_table_config",
			config.Name,
			err,
		)
	}

	return &DimensionParser{
		BaseParser: NewBaseParser(config.parseConfig()),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("table_loader"),
	}, nil
}

// ParseDimension loads every dimension row in file order. The unit
// identifier column is mandatory: without it no record can be joined, so its
// absence is a configuration error rather than a parse error.
func (dp *DimensionParser) ParseDimension(ctx context.Context, filePath string) ([]models.UnitDimension, *ParseStats, error) {
	timer := logger.StartOperation(dp.logger, "load_dimension", logger.Fields{"file_path": filePath})

	reader, err := dp.Open(filePath)
	if err != nil {
		timer.CompleteWithError(err)
		return nil, nil, err
	}
	defer reader.Close()

	parseCtx := NewParseContext(ctx, filePath)
	stats := NewParseStats()

	if err := dp.ReadHeaders(reader, parseCtx, nil); err != nil {
		timer.CompleteWithError(err)
		return nil, stats, err
	}

	unitColumn := dp.config.GetColumnName(models.ColumnDimUnitID)
	if !parseCtx.HasColumn(unitColumn) {
		err := errors.ConfigurationError(
			errors.CodeMissingColumn,
			filepath.Base(filePath),
			unitColumn,
			nil,
		).WithContext("file_path", filePath).
			WithContext("available_headers", parseCtx.Headers)
		timer.CompleteWithError(err)
		return nil, stats, err
	}

	known := make(map[string]struct{}, len(dimensionColumns))
	for _, column := range dimensionColumns {
		known[dp.config.GetColumnName(column)] = struct{}{}
	}

	var units []models.UnitDimension
	for {
		record, err := dp.ReadRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if dashErr, ok := errors.AsDashboardError(err); ok && dashErr.Category == errors.CategoryInternal {
				timer.CompleteWithError(err)
				return units, stats, err
			}
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   "record",
				Message: "unreadable dimension row",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++

		field := func(column string) string {
			value, _ := dp.GetFieldValue(record, parseCtx, dp.config.GetColumnName(column))
			return value
		}

		units = append(units, models.UnitDimension{
			UnitID:   normalize.UnitIdentifier(field(models.ColumnDimUnitID)),
			Sector:   strings.TrimSpace(field(models.ColumnSector)),
			Division: strings.TrimSpace(field(models.ColumnDivision)),
			UnitCode: strings.TrimSpace(field(models.ColumnUnitCode)),
			Extra:    dp.Passthrough(record, parseCtx, known),
			Line:     parseCtx.LineNumber,
		})
	}

	stats.TotalLines = parseCtx.LineNumber

	if stats.HasErrors() {
		dp.logger.WithField("sample_errors", stats.GetSampleErrors(3)).Warn("Skipped unreadable dimension rows")
	}
	timer.Complete(len(units), logger.Fields{"skipped": stats.RecordsSkipped})

	return units, stats, nil
}
