package trampoline

// Only amd64 has an encoder, and x86 keeps the instruction cache coherent
// with stores, so there is nothing to flush.
func cacheflush(buf []byte) {}
