package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/dwh-tools/tablepull/internal"
	"github.com/spf13/cobra"
)

func addSqlFlags(cmd *cobra.Command) {
	cmd.Flags().String("server", envOr("TABLEPULL_SQL_SERVER", internal.DefaultSqlServer), "SQL Server host")
	cmd.Flags().StringP("database", "d", envOr("TABLEPULL_DATABASE", ""), "Database name")
	cmd.Flags().String("url", envOr("TABLEPULL_SQL_URL", ""), "Connection URL, overrides --server and --database")
}

func newSqlAdapter(cmd *cobra.Command) (*internal.SqlAdapter, error) {
	server, err := cmd.Flags().GetString("server")
	if err != nil {
		return nil, err
	}
	database, err := cmd.Flags().GetString("database")
	if err != nil {
		return nil, err
	}
	urlStr, err := cmd.Flags().GetString("url")
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}

	adapter := internal.NewSqlAdapter(database, server, log)
	adapter.URL = urlStr
	return adapter, nil
}

// splitTable splits schema.table; a bare name has no schema.
func splitTable(name string) (string, string) {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func newReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <query>",
		Short: "Run a SQL query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := newSqlAdapter(cmd)
			if err != nil {
				return err
			}
			t, err := adapter.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printTable(cmd, adapter, t)
		},
	}
	addSqlFlags(cmd)
	return cmd
}

func newReadFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read-file <path>",
		Short: "Run a SQL template file after substituting --param KEY=VALUE pairs",
		Long: "Run a SQL template file after substituting --param KEY=VALUE pairs.\n\n" +
			"Substitution is plain text replacement: values are not quoted or escaped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := cmd.Flags().GetStringArray("param")
			if err != nil {
				return err
			}
			params, err := internal.ParseParams(pairs)
			if err != nil {
				return err
			}

			adapter, err := newSqlAdapter(cmd)
			if err != nil {
				return err
			}
			t, err := adapter.ReadFile(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return printTable(cmd, adapter, t)
		},
	}
	addSqlFlags(cmd)
	cmd.Flags().StringArrayP("param", "p", nil, "Template parameter KEY=VALUE, applied in order")
	return cmd
}

func newReadTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read-table <table>",
		Short: "Select every row of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := newSqlAdapter(cmd)
			if err != nil {
				return err
			}
			t, err := adapter.ReadTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printTable(cmd, adapter, t)
		},
	}
	addSqlFlags(cmd)
	return cmd
}

func newCreateTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-table <schema.table>",
		Short: "Create a table unless it exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := cmd.Flags().GetStringArray("column")
			if err != nil {
				return err
			}
			cols, err := internal.ParseColumnDefs(pairs)
			if err != nil {
				return err
			}

			adapter, err := newSqlAdapter(cmd)
			if err != nil {
				return err
			}
			schema, table := splitTable(args[0])
			return adapter.CreateTable(cmd.Context(), schema, table, cols)
		},
	}
	addSqlFlags(cmd)
	cmd.Flags().StringArrayP("column", "c", nil, "Column NAME=TYPE, in table order")
	return cmd
}

func newDropTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drop-table <schema.table>",
		Short: "Drop a table if it exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := newSqlAdapter(cmd)
			if err != nil {
				return err
			}
			schema, table := splitTable(args[0])
			return adapter.DropTable(cmd.Context(), schema, table)
		},
	}
	addSqlFlags(cmd)
	return cmd
}

func newTruncateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "truncate <schema.table>",
		Short: "Delete every row of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := newSqlAdapter(cmd)
			if err != nil {
				return err
			}
			schema, table := splitTable(args[0])
			return adapter.Truncate(cmd.Context(), schema, table)
		},
	}
	addSqlFlags(cmd)
	return cmd
}

func newBulkInsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk-insert <schema.table> <csv-file>",
		Short: "Insert CSV rows positionally into a table",
		Long: "Insert CSV rows positionally into a table.\n\n" +
			"The header line is skipped; CSV columns must be in the table's column order.\n" +
			"Empty fields are written as NULL unless --keep-empty is set.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keepEmpty, err := cmd.Flags().GetBool("keep-empty")
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := internal.ReadCSV(f, !keepEmpty)
			if err != nil {
				return err
			}

			adapter, err := newSqlAdapter(cmd)
			if err != nil {
				return err
			}
			schema, table := splitTable(args[0])
			if err := adapter.BulkInsert(cmd.Context(), schema, table, rows); err != nil {
				return err
			}

			log, err := newLogger(cmd)
			if err != nil {
				return err
			}
			log.Printf("Inserted %d rows into %s", rows.NumRows(), args[0])
			return nil
		},
	}
	addSqlFlags(cmd)
	cmd.Flags().Bool("keep-empty", false, "Insert empty CSV fields as empty strings instead of NULL")
	return cmd
}

func newAggCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agg <func> <schema.table> <column>",
		Short: "Print an aggregate of one column, e.g. agg SUM dbo.Sales Amount",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := newSqlAdapter(cmd)
			if err != nil {
				return err
			}
			schema, table := splitTable(args[1])
			v, err := adapter.GetAgg(cmd.Context(), args[0], schema, table, args[2])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(os.Stdout, internal.FormatValue(v))
			return err
		},
	}
	addSqlFlags(cmd)
	return cmd
}
