package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/miki725/subui/pkg/suite"
)

// graphCommand creates the "graph" command.
func (c *CLI) graphCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "graph <suite.toml>",
		Short: "Render a suite as a workflow graph",
		Long:  `Renders the suite's steps as a directed graph. The output format is taken from the output file extension: .dot, .svg, or .png. Without --output the DOT source is printed to stdout.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := suite.LoadFile(args[0])
			if err != nil {
				return err
			}

			dot := suite.ToDOT(def)
			if output == "" {
				fmt.Print(dot)
				return nil
			}

			var data []byte
			switch ext := strings.ToLower(filepath.Ext(output)); ext {
			case ".dot":
				data = []byte(dot)
			case ".svg":
				data, err = suite.RenderSVG(dot)
			case ".png":
				data, err = suite.RenderPNG(dot)
			default:
				return fmt.Errorf("unsupported output format %q (use .dot, .svg, or .png)", ext)
			}
			if err != nil {
				return err
			}

			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Rendered %s", def.Name)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.dot, .svg, or .png)")

	return cmd
}
