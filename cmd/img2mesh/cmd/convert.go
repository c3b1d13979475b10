package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fedutinova/meshgen/internal/mesh"
)

var convertOut string

var convertCmd = &cobra.Command{
	Use:   "convert <file.glb>",
	Short: "Convert a GLB file to OBJ",
	Long: `Write <out>/<name>/<name>.obj together with material.mtl and any textures
embedded in the GLB. The output root defaults to the GLB's directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&convertOut, "out", "", "output root directory")
}

func runConvert(cmd *cobra.Command, args []string) error {
	out := convertOut
	if out == "" {
		out = filepath.Dir(args[0])
	}

	objPath, err := mesh.Convert(args[0], out)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(map[string]string{"obj_path": objPath})
	}
	fmt.Println(objPath)
	return nil
}
