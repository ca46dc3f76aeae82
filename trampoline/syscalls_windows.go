//go:build windows

package trampoline

import (
	"syscall"

	"golang.org/x/sys/windows"
)

const (
	protExec = windows.PAGE_EXECUTE
	protRX   = windows.PAGE_EXECUTE_READ
	protRWX  = windows.PAGE_EXECUTE_READWRITE
)

func makeWritable(s Span) (func() error, error) {
	region := pageRegion(s, syscall.Getpagesize())

	var oldFlags uint32
	err := windows.VirtualProtect(region.addr, uintptr(region.size), protRWX, &oldFlags)
	if err != nil {
		return nil, err
	}

	return func() error {
		var ignored uint32
		return windows.VirtualProtect(region.addr, uintptr(region.size), oldFlags, &ignored)
	}, nil
}
