//go:build unix

package trampoline

import "golang.org/x/sys/unix"

const (
	protExec = unix.PROT_EXEC
	protRX   = unix.PROT_READ | unix.PROT_EXEC
	protRWX  = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
)

// makeWritable adds write permission to the pages under s. There is no
// portable way to query the current protection, so code pages are assumed to
// be read+execute and are put back that way.
func makeWritable(s Span) (func() error, error) {
	region := pageRegion(s, unix.Getpagesize()).bytes()

	if err := unix.Mprotect(region, protRWX); err != nil {
		return nil, err
	}

	return func() error {
		return unix.Mprotect(region, protRX)
	}, nil
}
