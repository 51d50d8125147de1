package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	out     io.Writer
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler writing to out
func NewCLIErrorHandler(out io.Writer) *CLIErrorHandler {
	if out == nil {
		out = os.Stderr
	}
	return &CLIErrorHandler{
		logger: logger.GetGlobalLogger().WithComponent("cli"),
		out:    out,
	}
}

// WithVerbose shows underlying causes
func (h *CLIErrorHandler) WithVerbose(verbose bool) *CLIErrorHandler {
	h.verbose = verbose
	return h
}

// HandleError prints err and returns the process exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	if dashErr, ok := errors.AsDashboardError(err); ok {
		return h.handleDashboardError(dashErr)
	}

	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleDashboardError(err *errors.DashboardError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	if missing, ok := err.Context["missing_files"].([]string); ok {
		fmt.Fprintf(h.out, "\nMissing files:\n")
		for _, path := range missing {
			fmt.Fprintf(h.out, "  - %s\n", path)
		}
	} else if len(err.Context) > 0 {
		fmt.Fprintf(h.out, "\nContext:\n")
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	if h.isDiskFullError(err) {
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	fmt.Fprintf(h.out, "Run 'podash --help' for usage.\n")
	return 1
}

func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• The four extracts ME2N.csv, ME2K.csv, Manual_PTJ_template.csv and DimPTJ.csv must all be present
• Point --data-dir at the directory that holds them, or set sources.* in the config file
• Ensure you have permission to read the files`

	case errors.CategoryParse:
		return `Parse error help:
• Check that the header row contains the required columns
• Save the extract as UTF-8 (a byte order mark is fine)
• Check the delimiter setting if the extract is not comma separated`

	case errors.CategoryValidation:
		return `Validation error help:
• Check the flag values against 'podash <command> --help'`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and PODASH_* environment variables
• Verify configuration file syntax if using --config
• Run 'podash config' to see the effective settings`

	case errors.CategoryNetwork:
		return `Network error help:
• Choose a free address with --addr
• Addresses below 1024 may need elevated privileges`

	default:
		return `For more help:
• Use 'podash --help' for general help
• Run with --verbose for debug logging`
	}
}

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func (h *CLIErrorHandler) isDiskFullError(err error) bool {
	if err == syscall.ENOSPC {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no space left") ||
		strings.Contains(msg, "disk full") ||
		strings.Contains(msg, "device full")
}
