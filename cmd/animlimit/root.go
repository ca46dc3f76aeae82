package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pboyd/animlimit/hook"
	"github.com/pboyd/animlimit/internal/host"
	"github.com/pboyd/animlimit/internal/symbols"
)

var (
	// Global flags
	verbose    bool
	useSymbols bool
)

var rootCmd = &cobra.Command{
	Use:   "animlimit",
	Short: "Override the host's animation file limit at runtime",
	Long: `animlimit patches the routines a host uses to cap the number of
animation files it registers, so the cap comes from an INI file instead of
being hardcoded. The host here is a built-in simulation.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().
		BoolVar(&useSymbols, "symbols", false, "Find code sites through the executable's symbol table")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo prints to stdout.
func printInfo(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format, args...)
}

func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// siteResolver returns the resolver for the host's code sites.
func siteResolver() (hook.Resolver, error) {
	if !useSymbols {
		return host.Resolver(), nil
	}

	name, addr := host.Anchor()
	r, err := symbols.Executable(name, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to read symbols: %w", err)
	}
	r.Names = host.SymbolNames()
	return r, nil
}
