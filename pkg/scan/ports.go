package scan

import (
	"context"
	"errors"
)

// PortAllocator hands out magic source ports for SYN probes without reuse
// until Release. Each SYNScanner owns one allocator and reserves a single
// port per host scan (syn_scanner.go's scanHost): the port tags every SYN
// sent for that host so replies on the capture socket can be matched back
// to the scan that sent them, even with several hosts scanning
// concurrently. Adapted from the teacher's general-purpose lock-free
// allocator down to the single channel-backed free list this scanner's
// one-reservation-per-goroutine usage actually needs.
type PortAllocator struct {
	start uint16
	end   uint16

	// free holds every port not currently reserved. Capacity equals the
	// full range, so Release never blocks.
	free chan uint16
}

// ErrNoPorts names an exhausted port range. Reserve does not return it:
// with no free port, Reserve blocks until one is released and returns
// ctx.Err() if ctx is done first.
var ErrNoPorts = errors.New("no ports available")

// NewPortAllocator builds an allocator for [start, end] inclusive.
// Panics if start or end is zero or start > end.
func NewPortAllocator(start, end uint16) *PortAllocator {
	if start == 0 || end == 0 || start > end {
		panic("NewPortAllocator: invalid port range")
	}

	cnt := int(end-start) + 1

	a := &PortAllocator{
		start: start,
		end:   end,
		free:  make(chan uint16, cnt),
	}

	for p := start; ; p++ {
		a.free <- p

		if p == end {
			break
		}
	}

	return a
}

// Reserve blocks until a port is free or ctx is done.
func (a *PortAllocator) Reserve(ctx context.Context) (uint16, error) {
	select {
	case p := <-a.free:
		return p, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Release returns port to the free list. Safe to call with a port this
// allocator never issued; it is ignored.
func (a *PortAllocator) Release(port uint16) {
	if port < a.start || port > a.end {
		return
	}

	select {
	case a.free <- port:
	default:
		// Full free list means port was already released; drop silently.
	}
}

// Available reports how many ports are currently free.
func (a *PortAllocator) Available() int {
	return len(a.free)
}
