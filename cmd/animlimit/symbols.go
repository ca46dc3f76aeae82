package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pboyd/animlimit/internal/symbols"
)

func init() {
	rootCmd.AddCommand(newSymbolsCmd())
}

func newSymbolsCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "symbols [binary]",
		Short: "List function symbols of an object file",
		Long: `The symbols command lists the function symbols of an ELF, Mach-O
or PE file, which is what the --symbols resolver finds code sites with.
Without an argument it reads the running executable.

Example:
  animlimit symbols --filter internal/host.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSymbols(args, filter)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Only list symbols containing this string")

	return cmd
}

func runSymbols(args []string, filter string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		exe, err := os.Executable()
		if err != nil {
			return err
		}
		path = exe
	}

	table, err := symbols.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read symbols: %w", err)
	}
	if filter != "" {
		table = table.Match(filter)
	}

	for _, s := range table {
		printInfo("0x%016x %8d %s\n", s.Addr, s.Size, s.Name)
	}
	return nil
}
