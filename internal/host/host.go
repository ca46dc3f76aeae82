// Package host is a stand-in for the host process: it enforces a hardcoded
// animation file ceiling through two small routines, which are the code
// sites the plugin patches.
package host

import (
	"runtime"
	"sync"

	"github.com/pboyd/animlimit/hook"
	"github.com/pboyd/animlimit/plugin"
)

// AnimationLimit is the ceiling the host enforces when nothing is patched.
const AnimationLimit = 65535

//go:noinline
func animationLimit() int {
	return AnimationLimit
}

//go:noinline
func tableCapacity(requested int) int {
	if requested > AnimationLimit {
		return AnimationLimit
	}
	if requested < 0 {
		return 0
	}
	return requested
}

// Limit returns the number of animation files the host accepts.
func Limit() int {
	return animationLimit()
}

// Capacity returns the number of table entries the host reserves when asked
// for requested.
func Capacity(requested int) int {
	return tableCapacity(requested)
}

// Registry is the host's table of animation files.
type Registry struct {
	mu       sync.Mutex
	files    []string
	rejected int
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Reserve sizes the table for n files and returns the capacity it got.
func (r *Registry) Reserve(n int) int {
	c := tableCapacity(n)

	r.mu.Lock()
	defer r.mu.Unlock()
	if c > cap(r.files) {
		files := make([]string, len(r.files), c)
		copy(files, r.files)
		r.files = files
	}
	return c
}

// Register adds an animation file. It reports false, and drops the file,
// once the limit is reached.
func (r *Registry) Register(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.files) >= animationLimit() {
		r.rejected++
		return false
	}
	r.files = append(r.files, path)
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

func (r *Registry) Rejected() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rejected
}

// Resolver returns the addresses of the host's code sites.
func Resolver() hook.MapResolver {
	return hook.MapResolver{
		plugin.SiteAnimationLimit: hook.FuncAddr(animationLimit),
		plugin.SiteTableCapacity:  hook.FuncAddr(tableCapacity),
	}
}

// SymbolNames returns the symbol that holds each code site.
func SymbolNames() map[hook.SiteID]string {
	return map[hook.SiteID]string{
		plugin.SiteAnimationLimit: funcName(animationLimit),
		plugin.SiteTableCapacity:  funcName(tableCapacity),
	}
}

// Anchor returns the symbol name and loaded address of a host function, for
// working out how far the image was moved from its link address.
func Anchor() (string, uintptr) {
	return funcName(Limit), hook.FuncAddr(Limit)
}

func funcName(fn any) string {
	f := runtime.FuncForPC(hook.FuncAddr(fn))
	if f == nil {
		return ""
	}
	return f.Name()
}
