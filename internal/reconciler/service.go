package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"po-outstanding-dashboard/internal/mapping"
	"po-outstanding-dashboard/internal/models"
	"po-outstanding-dashboard/internal/parsers"
	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"
)

// Default file names of the four extracts
const (
	DefaultLedgerFile        = "ME2N.csv"
	DefaultSystemMappingFile = "ME2K.csv"
	DefaultManualMappingFile = "Manual_PTJ_template.csv"
	DefaultDimensionFile     = "DimPTJ.csv"
)

// LastUpdatedLayout renders the newest source modification date
const LastUpdatedLayout = "02/01/2006"

// NotAvailable is shown when no source file exists
const NotAvailable = "N/A"

// Sources holds the paths of the four source tables
type Sources struct {
	Ledger        string `json:"ledger" yaml:"ledger"`
	SystemMapping string `json:"system_mapping" yaml:"system_mapping"`
	ManualMapping string `json:"manual_mapping" yaml:"manual_mapping"`
	Dimension     string `json:"dimension" yaml:"dimension"`
}

// SourcesIn returns the default file names inside dir
func SourcesIn(dir string) Sources {
	return Sources{
		Ledger:        filepath.Join(dir, DefaultLedgerFile),
		SystemMapping: filepath.Join(dir, DefaultSystemMappingFile),
		ManualMapping: filepath.Join(dir, DefaultManualMappingFile),
		Dimension:     filepath.Join(dir, DefaultDimensionFile),
	}
}

// Paths lists the sources in load order
func (s Sources) Paths() []string {
	return []string{s.Ledger, s.SystemMapping, s.ManualMapping, s.Dimension}
}

// Missing lists every source path that does not exist, in load order
func (s Sources) Missing() []string {
	var missing []string
	for _, path := range s.Paths() {
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			missing = append(missing, path)
		}
	}
	return missing
}

// Check fails with one error naming every missing source
func (s Sources) Check() error {
	if missing := s.Missing(); len(missing) > 0 {
		return errors.SourceFilesMissing(missing)
	}
	return nil
}

// LastUpdated formats the newest modification time among the sources that
// exist, or returns NotAvailable when none does
func (s Sources) LastUpdated() string {
	var newest time.Time
	for _, path := range s.Paths() {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	if newest.IsZero() {
		return NotAvailable
	}
	return newest.Format(LastUpdatedLayout)
}

// Snapshot is one immutable build of the unified dataset
type Snapshot struct {
	ID          string                    `json:"id"`
	Records     []models.ReconciledRecord `json:"-"`
	Stats       *Stats                    `json:"stats"`
	LoadedAt    time.Time                 `json:"loaded_at"`
	LastUpdated string                    `json:"last_updated"`
	Sources     Sources                   `json:"sources"`
}

// TableConfigs carries the reader settings of each source table
type TableConfigs struct {
	Ledger        *parsers.TableConfig
	SystemMapping *parsers.TableConfig
	ManualMapping *parsers.TableConfig
	Dimension     *parsers.TableConfig
}

// DefaultTableConfigs returns comma-delimited configurations for every table
func DefaultTableConfigs() *TableConfigs {
	return &TableConfigs{
		Ledger:        parsers.DefaultTableConfig("ledger"),
		SystemMapping: parsers.DefaultTableConfig("system_mapping"),
		ManualMapping: parsers.DefaultTableConfig("manual_mapping"),
		Dimension:     parsers.DefaultTableConfig("dimension"),
	}
}

// Service loads the source tables and builds snapshots
type Service struct {
	ledgerParser    *parsers.LedgerParser
	systemParser    *parsers.MappingParser
	manualParser    *parsers.MappingParser
	dimensionParser *parsers.DimensionParser
	logger          logger.Logger
}

// NewService creates a Service with one parser per source table
func NewService(configs *TableConfigs) (*Service, error) {
	if configs == nil {
		configs = DefaultTableConfigs()
	}

	ledgerParser, err := parsers.NewLedgerParser(configs.Ledger)
	if err != nil {
		return nil, err
	}
	systemParser, err := parsers.NewMappingParser(configs.SystemMapping, models.ProvenanceSystem)
	if err != nil {
		return nil, err
	}
	manualParser, err := parsers.NewMappingParser(configs.ManualMapping, models.ProvenanceManual)
	if err != nil {
		return nil, err
	}
	dimensionParser, err := parsers.NewDimensionParser(configs.Dimension)
	if err != nil {
		return nil, err
	}

	return &Service{
		ledgerParser:    ledgerParser,
		systemParser:    systemParser,
		manualParser:    manualParser,
		dimensionParser: dimensionParser,
		logger:          logger.GetGlobalLogger().WithComponent("reconciler"),
	}, nil
}

// Build checks that every source exists, loads the four tables, resolves
// the unit mapping and reconciles the ledger into a new snapshot
func (s *Service) Build(ctx context.Context, sources Sources) (*Snapshot, error) {
	if err := sources.Check(); err != nil {
		s.logger.WithError(err).Error("Source files missing")
		return nil, err
	}

	timer := logger.StartOperation(s.logger, "build_dataset", nil)

	ledger, _, err := s.ledgerParser.ParseLedger(ctx, sources.Ledger)
	if err != nil {
		timer.CompleteWithError(err)
		return nil, err
	}

	system, _, err := s.systemParser.ParseMappings(ctx, sources.SystemMapping)
	if err != nil {
		timer.CompleteWithError(err)
		return nil, err
	}

	manual, _, err := s.manualParser.ParseMappings(ctx, sources.ManualMapping)
	if err != nil {
		timer.CompleteWithError(err)
		return nil, err
	}

	dimension, _, err := s.dimensionParser.ParseDimension(ctx, sources.Dimension)
	if err != nil {
		timer.CompleteWithError(err)
		return nil, err
	}

	resolution := mapping.Resolve(system, manual)

	records, stats, err := Reconcile(ledger, resolution, dimension)
	if err != nil {
		timer.CompleteWithError(err)
		return nil, err
	}

	snapshot := &Snapshot{
		ID:          uuid.NewString(),
		Records:     records,
		Stats:       stats,
		LoadedAt:    time.Now(),
		LastUpdated: sources.LastUpdated(),
		Sources:     sources,
	}

	timer.Complete(len(records), logger.Fields{"snapshot_id": snapshot.ID})
	return snapshot, nil
}
