package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pboyd/animlimit/limit"
	"github.com/pboyd/animlimit/plugin"
	"github.com/pboyd/animlimit/trampoline"
)

func init() {
	rootCmd.AddCommand(newSitesCmd())
}

func newSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "Show the code sites the plugin patches",
		Long: `The sites command resolves every code site and disassembles the
instructions a hook would displace. Nothing is patched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSites()
		},
	}
}

func runSites() error {
	resolver, err := siteResolver()
	if err != nil {
		return err
	}

	for _, b := range plugin.DefaultBindings(limit.Unset(), plugin.HostDefaultLimit) {
		site, err := b.Spec.Resolve(resolver)
		if err != nil {
			return err
		}

		code := site.Span.Read()
		n, err := trampoline.Measure(code)
		if err != nil {
			return fmt.Errorf("site %s: %w", site.ID, err)
		}

		asm, err := trampoline.Disassemble(code[:n], site.Span.Addr())
		if err != nil {
			return fmt.Errorf("site %s: %w", site.ID, err)
		}

		printInfo("%s\n", site)
		printInfo("  displaces %d of %d bytes\n", n, site.Length)
		printInfo("%s\n", asm)
	}
	return nil
}
