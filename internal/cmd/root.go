package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/scribe/internal/config"
	"github.com/Iron-Ham/scribe/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Long-form document generator",
	Long: `Scribe turns a short project brief into a complete long-form document.

An architect agent plans the outline, a pool of writers drafts every section
on a model tier chosen per section, images are curated for each section, and
a quality gate reviews and rewrites weak sections before the document is
written out as markdown (and optionally HTML) with a JSON bundle.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/scribe/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/scribe")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SCRIBE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., SCRIBE_WRITER_POOL_SIZE for writer.pool_size
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newLogger builds the run logger from the logging section. Interactive runs
// without a log dir write to the config directory instead of stderr.
func newLogger(cfg *config.Config, interactive bool) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	dir := cfg.Logging.Dir
	if dir == "" && interactive {
		dir = filepath.Join(config.ConfigDir(), "logs")
	}
	return logging.NewLogger(dir, cfg.Logging.Level)
}
