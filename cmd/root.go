// Package cmd provides the command-line interface for the exempla application.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/logging"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
	"github.com/let-userName-Brian/exempla-ai/internal/config"
)

// EnvPrefix namespaces every environment override, e.g. EXEMPLA_DATABASE_HOST.
const EnvPrefix = "EXEMPLA"

//nolint:gochecknoglobals // Standard Cobra CLI state.
var (
	cfgFile string
	v       = viper.New()
	rootCmd = newRootCmd()
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exempla",
		Short: "Embed VMware inventory datasets and chat over them",
		Long: `Exempla turns imported RVTools inventory datasets into vector embeddings
and answers questions about them with retrieval-augmented chat.

The system supports:
- Batch embedding of VM and host records with Gemini, Ollama or OpenAI
- Vector storage and similarity search with PostgreSQL/pgvector
- Embedding status tracking, optionally streamed over NATS JetStream`,
		SilenceUsage: true,
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "Log format (json, text)")

	if err := v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-level flag: %v\n", err)
	}
	if err := v.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-format flag: %v\n", err)
	}
}

func initConfig() {
	configureViper(v, cfgFile)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

// configureViper registers defaults, the config file search path and the
// environment binding.
func configureViper(v *viper.Viper, file string) {
	config.SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadConfig decodes the configuration and installs the configured logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := slogger.Configure(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stdout",
	}); err != nil {
		return nil, fmt.Errorf("configure logger: %w", err)
	}
	return cfg, nil
}
