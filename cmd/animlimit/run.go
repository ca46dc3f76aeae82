package main

import (
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/pboyd/animlimit/config"
	"github.com/pboyd/animlimit/hook"
	"github.com/pboyd/animlimit/internal/host"
	"github.com/pboyd/animlimit/internal/logger"
	"github.com/pboyd/animlimit/plugin"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

type runOptions struct {
	iniPath string
	files   int
	logDir  string
	dump    bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the plugin into the host and register animation files",
		Long: `The run command loads the plugin the way the host would, then
registers --files animation files and reports how many the host accepted.

Example:
  animlimit run --ini DynamicAnimationReplacer.ini --files 70000
  animlimit run --files 300 --dump`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts)
		},
	}

	cmd.Flags().StringVar(&opts.iniPath, "ini", config.DefaultPath, "Path to the INI file")
	cmd.Flags().IntVar(&opts.files, "files", host.AnimationLimit+1, "Number of animation files to register")
	cmd.Flags().StringVar(&opts.logDir, "log-dir", "", "Directory to write the plugin log to")
	cmd.Flags().BoolVar(&opts.dump, "dump", false, "Dump the installed patch records")

	return cmd
}

func runRun(opts runOptions) error {
	resolver, err := siteResolver()
	if err != nil {
		return err
	}

	var console io.Writer
	if verbose {
		console = os.Stderr
	}

	p, ok := plugin.Load(plugin.LoadOptions{
		LogDir:   opts.logDir,
		LogLevel: logLevel(),
		Console:  console,
		INIPath:  opts.iniPath,
		Resolver: resolver,
	})
	defer logger.Close()
	if !ok {
		return fmt.Errorf("plugin failed to load: %w", p.Err())
	}
	defer p.Detach()

	if opts.dump {
		dumpRecords(os.Stdout, p.Records())
	}

	registry := host.NewRegistry()
	capacity := registry.Reserve(opts.files)
	for i := range opts.files {
		registry.Register(fmt.Sprintf("meshes/actors/character/animations/%06d.hkx", i))
	}

	printInfo("limit: %d\n", host.Limit())
	printInfo("capacity: %d\n", capacity)
	printInfo("registered: %d\n", registry.Len())
	printInfo("rejected: %d\n", registry.Rejected())
	if path := logger.Path(); path != "" {
		printInfo("log: %s\n", path)
	}
	return nil
}

type recordDump struct {
	Site     hook.SiteID
	Kind     string
	Status   string
	Target   string
	Slot     string
	Original []byte
	Patched  []byte
	Code     []byte
}

func dumpRecords(w io.Writer, records []*hook.PatchRecord) {
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}
	for _, rec := range records {
		cfg.Fdump(w, recordDump{
			Site:     rec.Site.ID,
			Kind:     rec.Site.Capability.String(),
			Status:   rec.Status.String(),
			Target:   rec.Target().String(),
			Slot:     rec.Slot().Span().String(),
			Original: rec.Original,
			Patched:  rec.Patched,
			Code:     rec.Slot().Code(),
		})
	}
}
