package parsers

import (
	"context"
	"io"

	"po-outstanding-dashboard/internal/models"
	"po-outstanding-dashboard/internal/normalize"
	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"
)

// MappingParser reads a PO-to-unit mapping extract. The same layout serves
// the system mapping and the manual override template; the provenance is
// fixed per parser.
type MappingParser struct {
	*BaseParser
	config     *TableConfig
	provenance models.Provenance
	logger     logger.Logger
}

// NewMappingParser creates a parser that tags every row with provenance
func NewMappingParser(config *TableConfig, provenance models.Provenance) (*MappingParser, error) {
	if config == nil {
		config = DefaultTableConfig(provenance.String() + "_mapping")
	}

	if !provenance.IsValid() {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"mapping_provenance",
			provenance,
			nil,
		)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"mapping_table_config",
			config.Name,
			err,
		)
	}

	return &MappingParser{
		BaseParser: NewBaseParser(config.parseConfig()),
		config:     config,
		provenance: provenance,
		logger: logger.GetGlobalLogger().WithComponent("table_loader").
			WithField("provenance", provenance.String()),
	}, nil
}

// ParseMappings loads every mapping row in file order with normalized PO and
// unit identifiers. Rows with an empty unit are kept; the resolver decides
// what to do with them.
func (mp *MappingParser) ParseMappings(ctx context.Context, filePath string) ([]models.UnitMapping, *ParseStats, error) {
	timer := logger.StartOperation(mp.logger, "load_mapping", logger.Fields{"file_path": filePath})

	reader, err := mp.Open(filePath)
	if err != nil {
		timer.CompleteWithError(err)
		return nil, nil, err
	}
	defer reader.Close()

	parseCtx := NewParseContext(ctx, filePath)
	stats := NewParseStats()

	poColumn := mp.config.GetColumnName(models.ColumnPONumber)
	unitColumn := mp.config.GetColumnName(models.ColumnPTJNumber)
	if err := mp.ReadHeaders(reader, parseCtx, []string{poColumn, unitColumn}); err != nil {
		timer.CompleteWithError(err)
		return nil, stats, err
	}

	var mappings []models.UnitMapping
	for {
		record, err := mp.ReadRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if dashErr, ok := errors.AsDashboardError(err); ok && dashErr.Category == errors.CategoryInternal {
				timer.CompleteWithError(err)
				return mappings, stats, err
			}
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   "record",
				Message: "unreadable mapping row",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++

		po, _ := mp.GetFieldValue(record, parseCtx, poColumn)
		unit, _ := mp.GetFieldValue(record, parseCtx, unitColumn)

		mapping := models.UnitMapping{
			PONumber:   normalize.Identifier(po),
			UnitID:     normalize.UnitIdentifier(unit),
			Provenance: mp.provenance,
			Line:       parseCtx.LineNumber,
		}
		if err := mapping.Validate(); err != nil {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   "provenance",
				Value:   mapping.Provenance.String(),
				Message: "invalid mapping row",
				Err:     err,
			})
			continue
		}

		mappings = append(mappings, mapping)
	}

	stats.TotalLines = parseCtx.LineNumber

	if stats.HasErrors() {
		mp.logger.WithField("sample_errors", stats.GetSampleErrors(3)).Warn("Skipped unreadable mapping rows")
	}
	timer.Complete(len(mappings), logger.Fields{"skipped": stats.RecordsSkipped})

	return mappings, stats, nil
}
