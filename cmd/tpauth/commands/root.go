package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/auth"
	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/config"
	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/logging"
)

const version = "0.1.0"

var (
	configPath string
	envPath    string
	headed     bool
)

var rootCmd = &cobra.Command{
	Use:          "tpauth",
	Short:        "Authenticate against the TrainingPeaks platform",
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env-file", "", "path to a dotenv file (default .env)")
	rootCmd.PersistentFlags().BoolVar(&headed, "headed", false, "run the browser with a visible window")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(logoutCmd)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig builds the effective config: defaults, then the YAML file, then
// TP_* environment variables, then flags.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envPath); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if headed {
		cfg.Headless = false
	}
	return cfg, nil
}

// sessionPath is where the CLI persists the session between invocations.
func sessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".tpsdk", "session.json"), nil
}

// newAuthenticator wires an Authenticator backed by file storage so sessions
// survive across CLI runs. The caller owns Close.
func newAuthenticator(cfg *config.Config) (*auth.Authenticator, *logging.Logger, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, nil, err
	}
	storage, err := auth.NewFileStorage(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	log, err := logging.NewLogger("tpauth")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	authenticator := auth.New(cfg,
		auth.WithStorage(storage),
		auth.WithLogger(log),
	)
	return authenticator, log, nil
}
