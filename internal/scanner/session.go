package scanner

import (
	"context"
	"sync"
)

// Session tracks the scan the operator is currently working on. A new scan
// supersedes the previous one: its in-flight request is cancelled and any
// result that still arrives for it is discarded. The scan string is the
// correlation token.
type Session struct {
	mu     sync.Mutex
	latest string
	gen    uint64
	cancel context.CancelFunc
}

// Ticket identifies one request issued for a scan
type Ticket struct {
	Scan string
	gen  uint64
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{}
}

// Begin makes scan the current one and returns the context its request
// must run under. The previous scan's request is cancelled.
func (s *Session) Begin(parent context.Context, scan string) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.latest = scan
	s.cancel = cancel

	return ctx, Ticket{Scan: scan, gen: s.gen}
}

// Current reports whether a result for ticket may still be shown
func (s *Session) Current(ticket Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ticket.Scan == s.latest
}

// Latest returns the current scan, empty when nothing was scanned
func (s *Session) Latest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Done releases the context of ticket's request. Later requests keep theirs.
func (s *Session) Done(ticket Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.gen == s.gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Reset forgets the current scan and cancels its request
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.latest = ""
}
