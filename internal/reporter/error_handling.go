package reporter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"po-outstanding-dashboard/internal/dashboard"
	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with error handling and fallbacks
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("Check the report format and option values")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely renders the report, falling back to the console
// format when a structured format fails before anything was written
func (srg *SafeReportGenerator) GenerateReportSafely(report *dashboard.Report, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Debug("Starting report generation")

	if err := srg.validateInputs(report, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	if err := srg.generateWithFallback(report, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed")
		return err
	}

	srg.logger.WithField("rows", len(report.Rows)).Debug("Report generation completed")
	return nil
}

// ExportToFile writes the report to path. When path cannot be created the
// output goes to a sibling backup file and its path is returned.
func (srg *SafeReportGenerator) ExportToFile(report *dashboard.Report, path string) (string, error) {
	if err := srg.validateInputs(report, io.Discard); err != nil {
		return "", err
	}

	written, err := srg.writeFile(report, path)
	if err == nil {
		srg.logger.WithFields(logger.Fields{
			"file": written,
			"rows": len(report.Rows),
		}).Info("Report exported")
		return written, nil
	}

	if !isFileError(err) {
		return "", srg.wrapGenerationError(err)
	}

	backupPath := generateBackupPath(path)
	srg.logger.WithFields(logger.Fields{
		"original_file": path,
		"backup_file":   backupPath,
	}).WithError(err).Warn("Attempting output fallback")

	if _, backupErr := srg.writeFile(report, backupPath); backupErr != nil {
		return "", errors.InternalError(
			errors.CodeUnexpectedError,
			"report_output_fallback",
			fmt.Errorf("both primary and backup output failed: primary=%v, backup=%v", err, backupErr),
		)
	}

	srg.logger.WithField("backup_file", backupPath).Warn("Report saved to backup location")
	return backupPath, nil
}

func (srg *SafeReportGenerator) writeFile(report *dashboard.Report, path string) (string, error) {
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if err := srg.GenerateReport(report, file); err != nil {
		file.Close()
		return "", err
	}

	if err := file.Close(); err != nil {
		return "", err
	}
	return path, nil
}

func (srg *SafeReportGenerator) validateInputs(report *dashboard.Report, writer io.Writer) error {
	if report == nil {
		return errors.ValidationError(
			errors.CodeMissingField,
			"report",
			nil,
			nil,
		).WithSuggestion("Build the report from a loaded snapshot first")
	}

	if writer == nil {
		return errors.ValidationError(
			errors.CodeMissingField,
			"writer",
			nil,
			nil,
		).WithSuggestion("Provide a valid output writer")
	}

	return nil
}

// generateWithFallback renders into a buffer first so a failed structured
// format never leaves half a document behind
func (srg *SafeReportGenerator) generateWithFallback(report *dashboard.Report, writer io.Writer) error {
	if srg.config.Format == FormatConsole {
		if err := srg.GenerateReport(report, writer); err != nil {
			return srg.wrapGenerationError(err)
		}
		return nil
	}

	var buf bytes.Buffer
	err := srg.GenerateReport(report, &buf)
	if err == nil {
		if _, err := buf.WriteTo(writer); err != nil {
			return srg.wrapGenerationError(err)
		}
		return nil
	}

	srg.logger.WithError(err).Warn("Primary report generation failed, attempting fallback")
	return srg.generateWithFormatFallback(report, writer, err)
}

func (srg *SafeReportGenerator) generateWithFormatFallback(report *dashboard.Report, writer io.Writer, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole

	srg.logger.WithField("fallback_format", FormatConsole).Info("Attempting format fallback")

	fallbackGenerator, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}

	fmt.Fprintf(writer, "NOTE: Report generated in fallback format due to error with requested format\n")
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := fallbackGenerator.GenerateReport(report, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}

	srg.logger.Info("Report generated using format fallback")
	return nil
}

func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if dashErr, ok := errors.AsDashboardError(err); ok {
		return dashErr
	}

	return errors.InternalError(
		errors.CodeProcessingError,
		"report_generation",
		err,
	).WithSuggestion("Check the output destination and report format settings")
}

func isFileError(err error) bool {
	return os.IsPermission(err) ||
		os.IsNotExist(err) ||
		os.IsExist(err) ||
		isSpaceError(err)
}

func generateBackupPath(originalPath string) string {
	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	if _, err := os.Stat(dir); err != nil {
		dir = os.TempDir()
	}

	return filepath.Join(dir, fmt.Sprintf("%s_backup%s", name, ext))
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}

func isSpaceError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no space left") ||
		strings.Contains(msg, "disk full") ||
		strings.Contains(msg, "device full")
}
