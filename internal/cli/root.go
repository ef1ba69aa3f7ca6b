package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time with -ldflags "-X .../internal/cli.version=..."
var version = "v0.1.0"

var (
	cfgFile string
	dbPath  string
	verbose bool
	logger  = slog.Default()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "openplag",
	Short: "openplag - semantic plagiarism detection",
	Long: `openplag compares a submitted document against a local corpus of prior
submissions and against pages found on the web, and reports which passages
are semantically similar to which sources.

Similarity is evidence for review, not a verdict of misconduct.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of openplag.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("openplag " + version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.openplag/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "corpus database path, \":memory:\" for a throwaway corpus (overrides corpus.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("corpus.path", rootCmd.PersistentFlags().Lookup("db"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	// A missing .env is the normal case
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".openplag"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	} else if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
	}
}

// bindEnv maps OPENPLAG_* variables and the common provider variables onto
// config keys
func bindEnv() {
	// Read in environment variables that match OPENPLAG_*
	viper.SetEnvPrefix("OPENPLAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Provider keys are commonly exported without the prefix
	_ = viper.BindEnv("embedding.api_key", "OPENPLAG_EMBEDDING_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv("summary.api_key", "OPENPLAG_SUMMARY_API_KEY")
	_ = viper.BindEnv("summary.base_url", "OPENPLAG_SUMMARY_BASE_URL")
	_ = viper.BindEnv("embedding.base_url", "OPENPLAG_EMBEDDING_BASE_URL", "OLLAMA_BASE_URL")
	_ = viper.BindEnv("web.http_proxy", "OPENPLAG_WEB_HTTP_PROXY", "HTTP_PROXY")
	_ = viper.BindEnv("web.https_proxy", "OPENPLAG_WEB_HTTPS_PROXY", "HTTPS_PROXY")
}
