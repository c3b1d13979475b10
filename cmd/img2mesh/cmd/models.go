package cmd

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fedutinova/meshgen/internal/storage"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List stored models, newest first",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout, err := storage.NewLayout(cfg.UploadDir, cfg.OutputDir)
	if err != nil {
		return err
	}

	models, err := layout.ListModels()
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(map[string]any{
			"models": models,
			"total":  len(models),
		})
	}

	if len(models) == 0 {
		fmt.Println("No models stored in", layout.OutputDir())
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Job ID", "Created", "Download URL")
	for _, m := range models {
		sec, frac := math.Modf(m.CreatedAt)
		created := time.Unix(int64(sec), int64(frac*1e9)).Local().Format(time.DateTime)
		table.Append(m.JobID, created, m.GLBURL)
	}
	table.Render()
	fmt.Printf("\nTotal models: %d\n", len(models))
	return nil
}
