package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/miki725/subui/pkg/suite"
)

// routesCommand creates the "routes" command.
func (c *CLI) routesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes <suite.toml>",
		Short: "Print the routes a suite declares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := suite.LoadFile(args[0])
			if err != nil {
				return err
			}

			names := make([]string, 0, len(def.Routes))
			for name := range def.Routes {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				printKeyValue(name, def.Routes[name])
			}
			return nil
		},
	}
}
