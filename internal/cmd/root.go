package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/ailink/driver"
	"github.com/stocklens/stocklens/internal/appid"
	"github.com/stocklens/stocklens/internal/config"
	"github.com/stocklens/stocklens/internal/observability"
	"github.com/stocklens/stocklens/internal/server/handlers"
)

var (
	cfgFile   string
	verbose   bool
	traceFile string

	appIdentity = appid.Get()

	// Version info set by main package
	versionInfo = handlers.BuildInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"}

	stopTracing func()
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo = handlers.BuildInfo{Version: version, Commit: commit, BuildDate: buildDate}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appIdentity.BinaryName,
	Short: appIdentity.Description,
	Long: fmt.Sprintf(`%s - %s

Checks an image against copyright, platform, depicted-persons and minors
policies, and drafts a stock title, description and tags when all pass.`, appIdentity.BinaryName, appIdentity.Description),
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopTracing != nil {
			stopTracing()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Commands run without telemetry until serve enables the exporter.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", appIdentity.ConfigName))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace remote requests/responses to an NDJSON file")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig sets up the CLI logger, tracing and configuration.
func initConfig() {
	if err := appIdentity.Validate(); err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Invalid app identity", err)
	}

	if err := observability.InitCLILogger(appIdentity.BinaryName, verbose); err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize logger", err)
	}
	observability.DisableMetrics()

	if traceFile != "" {
		cleanup, err := driver.EnableTracing(traceFile)
		if err != nil {
			observability.CLILogger.Warn("Failed to enable tracing", zap.Error(err))
		} else {
			observability.CLILogger.Debug("Request tracing enabled", zap.String("file", traceFile))
			stopTracing = cleanup
		}
	}

	cfg, err := config.Load(viper.GetViper(), config.Options{ConfigFile: cfgFile, Identity: appIdentity})
	if err != nil {
		code := foundry.ExitConfigInvalid
		if cfgFile != "" {
			if _, statErr := os.Stat(cfgFile); statErr != nil {
				code = foundry.ExitFileNotFound
			}
		}
		ExitWithCode(observability.CLILogger, code, "Failed to load configuration", err)
	}

	if used := config.ConfigFileUsed(viper.GetViper()); used != "" {
		observability.CLILogger.Debug("Using config file", zap.String("path", filepath.Clean(used)))
	} else {
		observability.CLILogger.Debug("No config file found, using defaults and environment variables")
	}
	observability.CLILogger.Debug("Configuration loaded",
		zap.String("default_provider", cfg.AILink.DefaultProvider),
		zap.Bool("credential", hasCredential(cfg)))
}

func hasCredential(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}
	for _, p := range cfg.AILink.Providers {
		for _, c := range p.Credentials {
			if c.Enabled && c.APIKey != "" {
				return true
			}
		}
	}
	return false
}
