package scanner

import (
	"errors"
	"sync"
	"time"

	"github.com/mmynk/scanbill/internal/barcode"
)

// ErrAlreadyActive is returned by Start while a scan session is running.
var ErrAlreadyActive = errors.New("scanner already active")

// Result classifies what happened to one decoded string.
type Result int

const (
	// Accepted means the code was forwarded to the sink.
	Accepted Result = iota
	// Debounced means the code arrived during cooldown or repeated the last code.
	Debounced
	// Empty means the decoded text was blank after trimming.
	Empty
	// Stale means the callback belongs to a stopped scan session.
	Stale
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Debounced:
		return "debounced"
	case Empty:
		return "empty"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// DecodeFunc is handed to a decoder and invoked once per decoded string.
type DecodeFunc func(decodedText string) Result

// Session tracks one decoder lifecycle. Each Start begins a new generation
// with fresh debounce state; callbacks from older generations are ignored.
type Session struct {
	mu         sync.Mutex
	active     bool
	generation uint64
	window     time.Duration
	now        func() time.Time
	debouncer  *Debouncer
	sink       func(code string)
}

// NewSession creates an inactive session that forwards accepted codes to sink.
func NewSession(sink func(code string), window time.Duration, now func() time.Time) *Session {
	return &Session{
		window: window,
		now:    now,
		sink:   sink,
	}
}

// Start activates scanning and returns the callback for the decoder.
func (s *Session) Start() (DecodeFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return nil, ErrAlreadyActive
	}
	s.active = true
	s.generation++
	s.debouncer = NewDebouncer(s.window, s.now)

	gen := s.generation
	return func(decodedText string) Result {
		return s.decode(gen, decodedText)
	}, nil
}

// Stop deactivates scanning. Callbacks firing afterwards return Stale.
// Stopping an inactive session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
	s.debouncer = nil
}

// Active reports whether a scan session is running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// decode holds s.mu across the sink call so a concurrent Stop cannot let a
// stale code reach the draft.
func (s *Session) decode(gen uint64, decodedText string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || gen != s.generation {
		return Stale
	}
	code := barcode.Normalize(decodedText)
	if code == "" {
		return Empty
	}
	if !s.debouncer.Accept(code) {
		return Debounced
	}
	s.sink(code)
	return Accepted
}
