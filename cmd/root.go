package cmd

import (
	"fmt"
	"os"

	"github.com/dwh-tools/tablepull/internal"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tablepull",
		Short:         "Pull OLAP cellsets and warehouse queries into flat tables",
		Long:          "Pull OLAP cellsets and warehouse queries into flat tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("format", "text", "Output format (text, json, csv)")
	rootCmd.PersistentFlags().Bool("quiet", false, "Disable progress logging")

	rootCmd.AddCommand(
		newMdxCmd(),
		newReadCmd(),
		newReadFileCmd(),
		newReadTableCmd(),
		newCreateTableCmd(),
		newDropTableCmd(),
		newTruncateCmd(),
		newBulkInsertCmd(),
		newAggCmd(),
	)

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command) (*internal.Logger, error) {
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return nil, err
	}
	return internal.NewLogger(os.Stderr, !quiet), nil
}

func newFormatter(cmd *cobra.Command) (internal.Formatter, error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}

	newFormatter, found := internal.Formatters[format]
	if !found {
		return nil, fmt.Errorf("formatter %q is not supported", format)
	}
	return newFormatter(os.Stdout), nil
}

func printTable(cmd *cobra.Command, adapter internal.DataStoreAdapter, t *internal.Table) error {
	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	log.Printf("%s", internal.Summary(adapter, t))

	if err := formatter.AddTable(t); err != nil {
		return err
	}
	return formatter.Flush()
}

func envOr(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
