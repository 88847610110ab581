package core

import "runtime"

// getGoroutineID extracts the numeric goroutine id from the current
// goroutine's stack trace header ("goroutine 123 [running]: ..."). Go
// exposes no public goroutine-local-storage primitive, so this id is the
// closest available substitute for caller-context identity, the same
// technique used internally by event-loop implementations to detect
// loop-thread affinity.
//
// This is deliberately not exported: callers should go through GroupLatch,
// which is the only consumer that needs per-goroutine identity.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
