package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"po-outstanding-dashboard/internal/dashboard"
	"po-outstanding-dashboard/internal/models"
	"po-outstanding-dashboard/internal/reporter"
)

// Query parameters of the three filter levels
const (
	ParamSector   = "sector"
	ParamDivision = "division"
	ParamVendor   = "vendor"
)

var levelParams = map[string]string{
	models.ColumnSector:     ParamSector,
	models.ColumnDivision:   ParamDivision,
	models.ColumnVendorName: ParamVendor,
}

// filtersFromRequest reads the cascade selection from the query string.
// Missing parameters read as All.
func filtersFromRequest(r *http.Request) []dashboard.Filter {
	q := r.URL.Query()
	return dashboard.Selection(q.Get(ParamSector), q.Get(ParamDivision), q.Get(ParamVendor))
}

func (s *Server) buildReport(r *http.Request) (*dashboard.Report, error) {
	snapshot, err := s.cache.Get(r.Context())
	if err != nil {
		return nil, err
	}
	return reporter.FromSnapshot(snapshot, filtersFromRequest(r), s.config.CurrencyPrefix), nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"status": "ok"}

	if missing := s.cache.Sources().Missing(); len(missing) > 0 {
		status["status"] = "degraded"
		status["missing"] = missing
		s.writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	report, err := s.buildReport(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, reporter.FormatCSV, "text/csv; charset=utf-8")
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, reporter.FormatXLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

// export renders the whole download before writing headers so a failure
// still produces a JSON error instead of a truncated file
func (s *Server) export(w http.ResponseWriter, r *http.Request, format reporter.OutputFormat, contentType string) {
	report, err := s.buildReport(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	config := reporter.DefaultReportConfig()
	config.Format = format
	generator, err := reporter.NewReportGenerator(config)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(report, &buf); err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.WithError(err).Warn("Export download interrupted")
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	report, err := s.buildReport(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, newPageData(report, r)); err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.WithError(err).Warn("Page response interrupted")
	}
}
