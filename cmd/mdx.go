package cmd

import (
	"errors"
	"net/http"

	"github.com/dwh-tools/tablepull/internal"
	"github.com/spf13/cobra"
)

// cellsetDriver is replaced in tests.
var cellsetDriver internal.CellsetDriver = &internal.XMLADriver{Client: http.DefaultClient}

func newMdxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mdx [query]",
		Short: "Run an MDX query and print the flattened cellset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := cmd.Flags().GetString("server")
			if err != nil {
				return err
			}
			cube, err := cmd.Flags().GetString("cube")
			if err != nil {
				return err
			}
			hierarchy, err := cmd.Flags().GetBool("hierarchy")
			if err != nil {
				return err
			}
			file, err := cmd.Flags().GetString("file")
			if err != nil {
				return err
			}

			var query string
			if len(args) == 1 {
				query = args[0]
			} else if file != "" {
				query, err = internal.ReadQueryFile(cmd.Context(), file)
				if err != nil {
					return err
				}
			} else {
				return errors.New("pass a query or --file")
			}

			log, err := newLogger(cmd)
			if err != nil {
				return err
			}

			adapter := internal.NewCubeAdapter(server, cube, cellsetDriver, log)
			t, err := adapter.Execute(cmd.Context(), query, hierarchy)
			if err != nil {
				return err
			}
			return printTable(cmd, adapter, t)
		},
	}

	cmd.Flags().String("server", envOr("TABLEPULL_OLAP_SERVER", internal.DefaultCubeServer), "OLAP server or XMLA endpoint")
	cmd.Flags().String("cube", envOr("TABLEPULL_CUBE", internal.DefaultCube), "Cube (initial catalog)")
	cmd.Flags().Bool("hierarchy", false, "Prepend row hierarchy captions")
	cmd.Flags().StringP("file", "f", "", "Read the query from a file or s3:// URL")

	return cmd
}
