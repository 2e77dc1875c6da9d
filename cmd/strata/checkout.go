package main

import (
	"github.com/spf13/cobra"
)

var checkoutUpdate bool

var checkoutCmd = &cobra.Command{
	Use:   "checkout <config>",
	Short: "Check out all repositories the configuration defines",
	Long: `Resolves the configuration's include graph and brings every managed
repository to its configured state: clone if absent, then switch to the
pinned commit or the floating tag or branch.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckout,
}

func init() {
	checkoutCmd.Flags().BoolVar(&checkoutUpdate, "update", false,
		"fetch existing checkouts before switching")
	rootCmd.AddCommand(checkoutCmd)
}

func runCheckout(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args[0])
	if err != nil {
		return err
	}
	if err := p.Checkout(checkoutUpdate); err != nil {
		return err
	}
	cmd.Printf("Checked out %d repositories.\n", len(p.Repos()))
	return nil
}
