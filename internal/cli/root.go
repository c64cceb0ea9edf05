package cli

import (
	"errors"
	"io/fs"
	"os"

	"certprep-study-service/internal/config"
	"certprep-study-service/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "certprep",
		Short:        "Study service for the 정보보안기사 exam: quizzes, mock exams and wrong-answer review",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on (overrides server.port)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewRoutesCmd(&configPath))
	cmd.AddCommand(NewPreviewCmd(&configPath))
	return cmd
}

// loadConfig falls back to built-in defaults when the file does not exist,
// so the bundled-content, in-memory setup runs without any config.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Defaults()
		err = nil
	}
	if err != nil {
		return cfg, err
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		return cfg, err
	}
	logger.Get().Debug("config loaded", zap.String("path", path), zap.String("content", cfg.Content.Source), zap.String("storage", cfg.Storage.Backend))
	return cfg, nil
}
