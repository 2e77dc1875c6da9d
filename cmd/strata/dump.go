package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stratabuild/strata/config"
)

var (
	dumpFormat string
	dumpSort   bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump <config>",
	Short: "Print the merged configuration",
	Long: `Resolves includes and lockfiles, merges the configuration left to
right and prints the result. Mapping keys keep their configuration order
unless --sort is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dumpFormat, "format", "yaml", "output format (yaml or json)")
	dumpCmd.Flags().BoolVar(&dumpSort, "sort", false, "sort mapping keys alphabetically")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	if dumpFormat != "yaml" && dumpFormat != "json" {
		return fmt.Errorf("unknown format %q", dumpFormat)
	}

	p, err := loadProject(args[0])
	if err != nil {
		return err
	}

	out, err := config.Encode(p.Config(), dumpFormat, dumpSort)
	if err != nil {
		return err
	}
	cmd.OutOrStdout().Write(out)
	return nil
}
