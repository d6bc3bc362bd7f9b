package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medrag/config"
	"medrag/internal/bootstrap"
	"medrag/internal/logger"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "medrag",
	Short: "Medical RAG assistant - answer questions grounded in retrieved PubMed abstracts",
	Long: `medrag answers medical research questions using only passages retrieved
from a prebuilt abstract index, and reports a quality score with citations.

Example usage:
  medrag ask -q "What is the mechanism of action of metformin?"
  medrag retrieve -q "statins and stroke" -k 5 --json
  medrag serve --addr :8080
  medrag batch questions/ --parallel 4
  medrag inspect`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		logger.InitWithWriter(cmd.ErrOrStderr(), level, cfg.Logging.Format)

		return nil
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./medrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory for relative asset paths (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// openApp loads the index and corpus and wires providers.
func openApp(ctx context.Context) (*bootstrap.App, error) {
	app, err := bootstrap.New(ctx, GetConfig(), GetRootDir())
	if err != nil {
		if bootstrap.IsStartupError(err) {
			return nil, fmt.Errorf("cannot start: %w", err)
		}
		return nil, err
	}
	return app, nil
}
