// Package trampoline builds the machine code behind a hook: it measures and
// relocates the instructions a hook displaces, encodes the jumps written over
// code sites and manages the executable slots the relocated code lives in.
//
// Only amd64 has an encoder. Other architectures compile, but every encoding
// function returns ErrUnsupportedArch.
package trampoline
