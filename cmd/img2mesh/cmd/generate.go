package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fedutinova/meshgen/internal/generator"
	"github.com/fedutinova/meshgen/internal/job"
	"github.com/fedutinova/meshgen/internal/pipeline"
	"github.com/fedutinova/meshgen/internal/storage"
	"github.com/fedutinova/meshgen/internal/validation"
)

var generateOpts struct {
	format           string
	steps            int
	guidanceScale    float64
	seed             int
	octreeResolution int
	numChunks        int
	removeBackground bool
	randomizeSeed    bool
}

var generateCmd = &cobra.Command{
	Use:   "generate <image>",
	Short: "Generate a 3D model from a local image",
	Long: `Upload a local png, jpg, jpeg or webp image to the configured Space and
store the resulting GLB in the output directory under a new job ID. With
--format obj the GLB is also converted to OBJ.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	defaults := job.DefaultParams()
	f := generateCmd.Flags()
	f.StringVar(&generateOpts.format, "format", "glb", "output format: glb or obj")
	f.IntVar(&generateOpts.steps, "steps", defaults[job.ParamSteps].(int), "generation steps")
	f.Float64Var(&generateOpts.guidanceScale, "guidance-scale", defaults[job.ParamGuidanceScale].(float64), "guidance scale")
	f.IntVar(&generateOpts.seed, "seed", defaults[job.ParamSeed].(int), "random seed")
	f.IntVar(&generateOpts.octreeResolution, "octree-resolution", defaults[job.ParamOctreeResolution].(int), "octree resolution")
	f.IntVar(&generateOpts.numChunks, "num-chunks", defaults[job.ParamNumChunks].(int), "number of chunks")
	f.BoolVar(&generateOpts.removeBackground, "remove-background", defaults[job.ParamRemoveBackground].(bool), "remove the image background")
	f.BoolVar(&generateOpts.randomizeSeed, "randomize-seed", defaults[job.ParamRandomizeSeed].(bool), "let the Space pick a random seed")
}

func generateParams() job.Params {
	return job.Params{
		job.ParamSteps:            generateOpts.steps,
		job.ParamGuidanceScale:    generateOpts.guidanceScale,
		job.ParamSeed:             generateOpts.seed,
		job.ParamOctreeResolution: generateOpts.octreeResolution,
		job.ParamNumChunks:        generateOpts.numChunks,
		job.ParamRemoveBackground: generateOpts.removeBackground,
		job.ParamRandomizeSeed:    generateOpts.randomizeSeed,
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	imagePath := args[0]
	if !validation.AllowedFile(filepath.Base(imagePath)) {
		return fmt.Errorf("file type not allowed. Allowed: %s", validation.AllowedList())
	}
	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Errorf("cannot read image: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout, err := storage.NewLayout(cfg.UploadDir, cfg.OutputDir)
	if err != nil {
		return err
	}
	space, err := generator.NewSpaceClient(generator.SpaceOptions{
		Space:      cfg.Space,
		SpaceURL:   cfg.SpaceURL,
		APIName:    cfg.APIName,
		HubAPIBase: cfg.HubAPIBase,
		Token:      cfg.HFToken,
		CacheDir:   cfg.CacheDir,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := &pipeline.Pipeline{Store: layout, Generator: space}
	jobID := job.NewID()
	fmt.Fprintf(os.Stderr, "Generating %s (job %s), this can take several minutes...\n", imagePath, jobID)

	out, err := p.Run(ctx, jobID, imagePath, generateParams(), job.ParseFormat(generateOpts.format))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generation failed. The Hugging Face Space may be overloaded.\nTry it directly: %s\n", space.FallbackURL())
		return err
	}

	if IsJSONOutput() {
		return printJSON(map[string]any{
			"job_id":   out.Result.JobID,
			"status":   out.Result.Status,
			"glb_path": out.GLBPath,
			"obj_path": out.OBJPath,
		})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	table.Append("Job ID", out.Result.JobID)
	table.Append("Status", string(out.Result.Status))
	table.Append("GLB", out.GLBPath)
	if out.OBJPath != "" {
		table.Append("OBJ", out.OBJPath)
	}
	table.Render()
	return nil
}
