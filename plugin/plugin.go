// Package plugin installs the animation limit hooks into the host as a
// single unit: either every site is patched or none is.
package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/pboyd/animlimit/hook"
	"github.com/pboyd/animlimit/internal/logger"
	"github.com/pboyd/animlimit/limit"
	"github.com/pboyd/animlimit/trampoline"
)

// ErrNoResolver is returned when a Plugin has no way to find its sites.
var ErrNoResolver = errors.New("no address resolver")

// Options configures a Plugin.
type Options struct {
	Resolver hook.Resolver

	// Limit is the configured override. It is only used to build the
	// default bindings.
	Limit *limit.State

	// Bindings defaults to DefaultBindings(Limit, HostDefaultLimit).
	Bindings []Binding

	// Logger defaults to the global logger.
	Logger *slog.Logger
}

// Plugin owns the hooks for one host process.
type Plugin struct {
	resolver hook.Resolver
	bindings []Binding
	log      *slog.Logger

	mu        sync.Mutex
	state     State
	err       error
	installer *hook.Installer
	records   []*hook.PatchRecord

	// beforeCommit runs ahead of each Commit. Tests use it to change a
	// site between Prepare and Commit.
	beforeCommit func(*hook.PatchRecord)
}

func New(opts Options) *Plugin {
	p := &Plugin{
		resolver: opts.Resolver,
		bindings: opts.Bindings,
		log:      opts.Logger,
	}
	if p.bindings == nil {
		p.bindings = DefaultBindings(opts.Limit, HostDefaultLimit)
	}
	if p.log == nil {
		p.log = logger.L
	}
	return p
}

// State returns the current installation state.
func (p *Plugin) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the error that made installation fail.
func (p *Plugin) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Records returns the installed hooks.
func (p *Plugin) Records() []*hook.PatchRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.records)
}

// InstallAllHooks patches every site. It must run before the host reaches
// any of them.
//
// It returns false if any site could not be patched, in which case the host
// is left unmodified. Calling it again returns the result of the first call
// without touching the host.
func (p *Plugin) InstallAllHooks() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case Installed:
		return true
	case Uninitialized:
	default:
		return false
	}

	if err := p.install(); err != nil {
		p.err = err
		p.setState(Failed)
		p.log.Error("failed to install hooks", "err", err)
		return false
	}

	p.setState(Installed)
	return true
}

func (p *Plugin) setState(s State) {
	p.log.Debug("state change", "from", p.state, "to", s)
	p.state = s
}

func (p *Plugin) install() error {
	if p.resolver == nil {
		return ErrNoResolver
	}

	p.setState(Resolving)
	sites := make([]hook.CodeSite, len(p.bindings))
	for i, b := range p.bindings {
		site, err := b.Spec.Resolve(p.resolver)
		if err != nil {
			return err
		}
		p.log.Debug("resolved site", "site", site.ID, "addr", fmt.Sprintf("0x%x", site.Span.Addr()))
		sites[i] = site
	}

	p.setState(Allocating)
	in := hook.NewInstaller(trampoline.NewAllocator(len(p.bindings)))
	records := make([]*hook.PatchRecord, 0, len(p.bindings))
	for i, b := range p.bindings {
		rec, err := in.Prepare(sites[i], b.Logic, b.Original)
		if err != nil {
			for _, r := range records {
				in.Discard(r)
			}
			return err
		}
		records = append(records, rec)
	}

	p.setState(Patching)
	for i, rec := range records {
		if p.beforeCommit != nil {
			p.beforeCommit(rec)
		}
		if err := in.Commit(rec); err != nil {
			return errors.Join(err, rollback(in, records[:i], records[i+1:]))
		}
		p.log.Debug("installed hook", "site", rec.Site.ID, "slot", rec.Slot().Span())
	}

	p.installer = in
	p.records = records
	return nil
}

// rollback restores the committed records and drops the pending ones.
func rollback(in *hook.Installer, committed, pending []*hook.PatchRecord) error {
	var errs []error
	for _, rec := range slices.Backward(committed) {
		if err := in.Restore(rec); err != nil {
			errs = append(errs, fmt.Errorf("rollback: %w", err))
		}
	}
	for _, rec := range pending {
		in.Discard(rec)
	}
	return errors.Join(errs...)
}

// Detach restores every patched site. Nothing may be running injected logic
// when it is called.
func (p *Plugin) Detach() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Installed {
		return fmt.Errorf("cannot detach, plugin is %s", p.state)
	}

	var errs []error
	for _, rec := range slices.Backward(p.records) {
		if err := p.installer.Restore(rec); err != nil {
			errs = append(errs, err)
		}
	}
	p.records = nil
	p.setState(Detached)
	return errors.Join(errs...)
}
