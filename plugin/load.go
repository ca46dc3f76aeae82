package plugin

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/pboyd/animlimit/config"
	"github.com/pboyd/animlimit/hook"
	"github.com/pboyd/animlimit/internal/logger"
	"github.com/pboyd/animlimit/limit"
)

const (
	Name    = "AnimationLimit"
	Version = "1.0.0"
)

// LoadOptions configures Load.
type LoadOptions struct {
	// LogDir is where <Name>.log is written. No log file is written if
	// empty.
	LogDir   string
	LogLevel slog.Level
	Console  io.Writer

	// INIPath defaults to config.DefaultPath.
	INIPath string

	Resolver hook.Resolver
}

// Load is the plugin entry point. It sets up logging, reads the configured
// limit and installs the hooks. It returns false if the plugin must not be
// considered loaded; the host is then unmodified.
func Load(opts LoadOptions) (*Plugin, bool) {
	err := logger.Init(logger.Options{
		Dir:     opts.LogDir,
		Name:    Name,
		Level:   opts.LogLevel,
		Console: opts.Console,
	})
	if err != nil {
		// Loading carries on without a log, the same as having no log
		// directory.
		logger.Close()
	}

	logger.Info(fmt.Sprintf("%s v%s", Name, Version))

	path := opts.INIPath
	if path == "" {
		path = config.DefaultPath
	}
	state := readLimit(path)

	logger.Info("Installing hooks and trampolines")
	p := New(Options{
		Resolver: opts.Resolver,
		Limit:    state,
		Logger:   logger.L,
	})
	if !p.InstallAllHooks() {
		return p, false
	}

	logger.Info(fmt.Sprintf("%s loaded", Name))
	return p, true
}

func readLimit(path string) *limit.State {
	settings, err := config.Load(path)

	logger.Info(config.Section)
	if err != nil {
		logger.Warn("ignoring configuration", "path", path, "err", err)
		return limit.Unset()
	}

	state := settings.State()
	if v, ok := state.Override(); ok {
		logger.Info(fmt.Sprintf("  > %s  =  %d", config.KeyAnimationLimit, v))
	}
	return state
}
