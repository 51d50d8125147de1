package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"po-outstanding-dashboard/cmd/podash/config"
	"po-outstanding-dashboard/internal/reconciler"
	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// app carries the state shared by the commands of one invocation
type app struct {
	v        *viper.Viper
	settings *config.Settings
	logger   logger.Logger

	cfgFile string
	envFile string
}

// newRootCmd builds the command tree with a fresh viper instance
func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "podash",
		Short: "Procurement outstanding-balance dashboard",
		Long: `Podash reconciles the purchase-order ledger (ME2N) with the PO-to-unit
mapping (ME2K), the manual override mapping and the unit dimension table
(DimPTJ), and reports outstanding balances filtered by sector, division and
vendor.

Examples:
  podash summary --data-dir ./data
  podash summary --sector "SEKTOR A" --format json
  podash export --format xlsx --output baki.xlsx
  podash serve --addr :8080
  podash config`,
		Version:           getVersionString(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (optional, YAML/TOML/JSON)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.String("data-dir", ".", "directory holding the source extracts")
	flags.String("log-format", "text", "log format: text, json")

	a.v.BindPFlag(config.KeyVerbose, flags.Lookup("verbose"))
	a.v.BindPFlag(config.KeyDataDir, flags.Lookup("data-dir"))
	a.v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))

	rootCmd.AddCommand(
		newSummaryCmd(a),
		newExportCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)

	return rootCmd
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		return NewCLIErrorHandler(rootCmd.ErrOrStderr()).WithVerbose(verbose).HandleError(err)
	}
	return 0
}

// setup loads .env, the config file and the environment, validates the
// settings and installs the global logger
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !os.IsNotExist(err) {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "env-file", a.envFile, err)
		}
	}

	config.SetDefaults(a.v)
	a.v.SetEnvPrefix(config.EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "config", a.cfgFile, err).
				WithSuggestion("check that the config file exists and its syntax is valid")
		}
	}

	settings, err := config.Load(a.v)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(settings.LoggerConfig())
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "log", settings.Log, err)
	}
	logger.SetGlobalLogger(log)

	a.settings = settings
	a.logger = log.WithComponent("cli")

	if a.cfgFile != "" {
		a.logger.WithField("file", a.v.ConfigFileUsed()).Debug("Using config file")
	}
	return nil
}

// buildSnapshot loads and reconciles the sources once
func (a *app) buildSnapshot(ctx context.Context) (*reconciler.Snapshot, error) {
	service, err := a.newService()
	if err != nil {
		return nil, err
	}
	return service.Build(ctx, a.settings.SourcePaths())
}

func (a *app) newService() (*reconciler.Service, error) {
	tables, err := a.settings.TableConfigs()
	if err != nil {
		return nil, err
	}
	return reconciler.NewService(tables)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
