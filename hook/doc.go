// Package hook redirects resolved code sites in the running process to
// injected Go functions.
//
// A hook overwrites the first whole instructions of a code site with a jump
// into a trampoline slot. For a Detour the slot starts with the displaced
// instructions, relocated, followed by a jump back into the site, so the
// original behavior stays callable. For a Replace the slot only relays into
// the injected function.
//
// Limitations:
//   - Only amd64 has an encoder
//   - Writing to code pages must be permitted (Linux and Windows are)
//   - Installation assumes no thread is executing the site while it is patched
//   - Silently has no effect on call sites the compiler inlined
package hook
