package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	appconfig "github.com/fedutinova/meshgen/internal/config"
)

var (
	outputFormat string
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:   "img2mesh",
	Short: "Turn images into 3D meshes with a hosted Hunyuan3D Space",
	Long: `img2mesh runs the meshgen pipeline locally: it sends an image to the
configured Hugging Face Space, stores the returned GLB next to the server's
models and optionally converts it to OBJ. Configuration is read from the same
environment variables and .env files as the server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging to stderr")
}

func IsJSONOutput() bool {
	return outputFormat == "json"
}

func loadConfig() (appconfig.Config, error) {
	cfg := appconfig.Load()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(output))
	return nil
}
