package trampoline

import "golang.org/x/sys/unix"

// Ask for the arena in the low 2GB so slots land within a rel32 jump of the
// executable's text.
const map32bit = unix.MAP_32BIT
