package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nsxbet/cypher-guard/pkg/config"
	"github.com/nsxbet/cypher-guard/pkg/logger"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

var cfgFile string

// version is set at build time.
var version = "dev"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cypher-guard",
	Short: "A safety rewriter for LLM generated Cypher queries",
	Long: `Cypher Guard certifies graph queries before they reach the database.

It rejects queries that could write to the graph or call unsafe procedures,
and rewrites deprecated constructs into the form the target dialect version
prefers. Every decision is reported with an auditable change log.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cypher-guard.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output")
	rootCmd.PersistentFlags().String("log-format", "text", "log format on stderr (text, json)")

	// Policy flags shared by rewrite and serve
	rootCmd.PersistentFlags().StringP("policy", "p", "", "path to policy file (YAML or JSON)")
	rootCmd.PersistentFlags().String("dialect", "", "Cypher dialect version (V4, V5)")
	rootCmd.PersistentFlags().String("server-version", "", "database server version to derive the dialect from (e.g. 5.12.0)")
	rootCmd.PersistentFlags().Bool("allow-apoc", false, "allow the read-only APOC subset")
	rootCmd.PersistentFlags().Bool("strict", false, "only allow CALL of known read-only procedures")
	rootCmd.PersistentFlags().StringSlice("apoc-allow-list", nil, "APOC procedures or namespaces (ending in '.') allowed when APOC is enabled")

	// Bind flags to viper
	for _, name := range []string{"verbose", "debug", "log-format", "policy", "dialect", "server-version", "allow-apoc", "strict", "apoc-allow-list"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".cypher-guard" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".cypher-guard")
	}

	viper.SetEnvPrefix("CYPHER_GUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// A missing config file is fine; flags and defaults still apply.
	if err := viper.ReadInConfig(); err == nil && viper.GetBool("debug") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger from the verbosity flags. Logs go to
// stderr so stdout stays parseable.
func newLogger() *logger.Logger {
	level := slog.LevelWarn
	if viper.GetBool("debug") {
		level = slog.LevelDebug
	} else if viper.GetBool("verbose") {
		level = slog.LevelInfo
	}
	l := logger.NewWithWriter(os.Stderr, level, viper.GetString("log-format") == "json")
	slog.SetDefault(l.GetSlogLogger())
	return l
}

// loadPolicy resolves the rewriter configuration from the policy file, then
// lets flags and environment variables override it.
func loadPolicy() (types.Config, error) {
	policy := config.DefaultConfig("default")
	if path := viper.GetString("policy"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return types.Config{}, err
		}
		policy = loaded
	}

	if v := viper.GetString("dialect"); v != "" {
		policy.Version = types.ParseVersion(v)
		if !policy.Version.IsValid() {
			return types.Config{}, errors.Errorf("unsupported dialect: %s", v)
		}
		policy.ServerVersion = ""
	}
	if sv := viper.GetString("server-version"); sv != "" {
		policy.ServerVersion = sv
		if viper.GetString("dialect") == "" {
			policy.Version = types.Version_VERSION_UNSPECIFIED
		}
	}
	if viper.IsSet("allow-apoc") {
		policy.AllowApoc = viper.GetBool("allow-apoc")
	}
	if viper.IsSet("strict") {
		policy.Strict = viper.GetBool("strict")
	}
	if list := viper.GetStringSlice("apoc-allow-list"); len(list) > 0 {
		policy.ApocAllowList = list
	}

	slog.Debug("Resolved policy", "id", policy.ID, "version", policy.Version, "server_version", policy.ServerVersion, "allow_apoc", policy.AllowApoc, "strict", policy.Strict)
	return policy.RewriteConfig()
}
