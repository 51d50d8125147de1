package parsers

import (
	"context"
	"io"
	"strings"

	"po-outstanding-dashboard/internal/models"
	"po-outstanding-dashboard/internal/normalize"
	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"
)

// ledgerColumns are the ledger columns mapped onto PurchaseOrder fields.
// Everything else is carried as passthrough.
var ledgerColumns = []string{
	models.ColumnPONumber,
	models.ColumnPOBalance,
	models.ColumnPOTotal,
	models.ColumnVendorName,
	models.ColumnPostingDate,
}

// LedgerParser reads the purchase-order ledger extract
type LedgerParser struct {
	*BaseParser
	config *TableConfig
	logger logger.Logger
}

// NewLedgerParser creates a new LedgerParser with the given configuration
func NewLedgerParser(config *TableConfig) (*LedgerParser, error) {
	if config == nil {
		config = DefaultTableConfig("ledger")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"ledger_table_config",
			config.Name,
			err,
		)
	}

	return &LedgerParser{
		BaseParser: NewBaseParser(config.parseConfig()),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("table_loader"),
	}, nil
}

// ParseLedger loads every ledger row in file order. Only the PO number
// column is required; the amount and descriptive columns degrade to empty
// text when absent.
func (lp *LedgerParser) ParseLedger(ctx context.Context, filePath string) ([]models.PurchaseOrder, *ParseStats, error) {
	timer := logger.StartOperation(lp.logger, "load_ledger", logger.Fields{"file_path": filePath})

	reader, err := lp.Open(filePath)
	if err != nil {
		timer.CompleteWithError(err)
		return nil, nil, err
	}
	defer reader.Close()

	parseCtx := NewParseContext(ctx, filePath)
	stats := NewParseStats()

	poColumn := lp.config.GetColumnName(models.ColumnPONumber)
	if err := lp.ReadHeaders(reader, parseCtx, []string{poColumn}); err != nil {
		timer.CompleteWithError(err)
		return nil, stats, err
	}

	balanceColumn := lp.config.GetColumnName(models.ColumnPOBalance)
	totalColumn := lp.config.GetColumnName(models.ColumnPOTotal)
	hasBalance := parseCtx.HasColumn(balanceColumn)
	hasTotal := parseCtx.HasColumn(totalColumn)
	if !hasBalance {
		lp.logger.WithField("file_path", filePath).Warnf("Ledger has no %q column, balances default to 0", balanceColumn)
	}

	known := make(map[string]struct{}, len(ledgerColumns))
	for _, column := range ledgerColumns {
		known[lp.config.GetColumnName(column)] = struct{}{}
	}

	var orders []models.PurchaseOrder
	for {
		record, err := lp.ReadRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if dashErr, ok := errors.AsDashboardError(err); ok && dashErr.Category == errors.CategoryInternal {
				timer.CompleteWithError(err)
				return orders, stats, err
			}
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   "record",
				Message: "unreadable ledger row",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++
		orders = append(orders, lp.orderFromRecord(record, parseCtx, known, hasBalance, hasTotal))
	}

	stats.TotalLines = parseCtx.LineNumber

	if stats.HasErrors() {
		lp.logger.WithField("sample_errors", stats.GetSampleErrors(3)).Warn("Skipped unreadable ledger rows")
	}
	timer.Complete(len(orders), logger.Fields{"skipped": stats.RecordsSkipped})

	return orders, stats, nil
}

func (lp *LedgerParser) orderFromRecord(record []string, parseCtx *ParseContext, known map[string]struct{}, hasBalance, hasTotal bool) models.PurchaseOrder {
	field := func(column string) string {
		value, _ := lp.GetFieldValue(record, parseCtx, lp.config.GetColumnName(column))
		return value
	}

	return models.PurchaseOrder{
		PONumber:       normalize.Identifier(field(models.ColumnPONumber)),
		VendorName:     field(models.ColumnVendorName),
		PostingDate:    strings.TrimSpace(field(models.ColumnPostingDate)),
		Balance:        field(models.ColumnPOBalance),
		TotalAmount:    field(models.ColumnPOTotal),
		Sector:         strings.TrimSpace(field(models.ColumnSector)),
		Division:       strings.TrimSpace(field(models.ColumnDivision)),
		UnitCode:       strings.TrimSpace(field(models.ColumnUnitCode)),
		HasBalance:     hasBalance,
		HasTotalAmount: hasTotal,
		Extra:          lp.Passthrough(record, parseCtx, known),
		Line:           parseCtx.LineNumber,
	}
}
