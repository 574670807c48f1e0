package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := newServeCommand()

	root := &cobra.Command{
		Use:           "fairway-server",
		Short:         "Tee-time slot scheduling service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running the binary without a subcommand serves.
		RunE: serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newTokenCommand())
	return root
}
