package plugin

import "github.com/pboyd/animlimit/hook"

func SetBeforeCommit(p *Plugin, fn func(*hook.PatchRecord)) {
	p.beforeCommit = fn
}
