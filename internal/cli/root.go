package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/meshflow/internal/config"
)

// rootOptions holds the persistent flags every command shares.
type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
}

// NewRootCmd creates the root meshflow command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "meshflow",
		Short: "Animated traffic for service mesh graphs",
		Long: `meshflow animates the traffic flowing along the edges of a service mesh
graph. Points are spawned at the rate each edge carries, travel at a speed
derived from its latency and are marked when requests fail.

Serve a live graph to the browser, play scenarios on a virtual clock, or
render them frame by frame to PNG.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML or JSON config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading MESHFLOW_* variables")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(opts),
		newSimulateCmd(opts),
		newRenderCmd(opts),
		newGenerateCmd(),
		newPublishCmd(opts),
	)

	return root
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	level, err := log.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	if o.envFile != "" {
		err := godotenv.Load(o.envFile)
		// A missing default .env is normal; a missing explicit one is not.
		if err != nil && (cmd.Flags().Changed("env-file") || !errors.Is(err, fs.ErrNotExist)) {
			return fmt.Errorf("loading env file: %w", err)
		}
	}
	return nil
}

// loadConfig reads the --config file, then MESHFLOW_* overrides.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.configPath != "" {
		log.WithField("path", o.configPath).Debug("config loaded")
	}
	return cfg, nil
}
