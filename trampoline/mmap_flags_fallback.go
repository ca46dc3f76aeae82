//go:build !(linux && amd64)

package trampoline

// Only Linux has MAP_32BIT. Elsewhere we have to trust the OS to place the
// arena close enough; Allocate checks every slot and fails when it did not.
const map32bit = 0
