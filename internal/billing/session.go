package billing

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/scanbill/internal/draft"
	"github.com/mmynk/scanbill/internal/scanner"
)

// Session is the counter's application context: the bill being assembled,
// the payment flag and the scanner lifecycle. All methods are safe for
// concurrent use; they are serialized by one mutex.
//
// Lock order is Session.mu then the scanner's own mutex. The scanner sink
// only runs inside Decode, so it touches the draft with Session.mu held.
type Session struct {
	mu sync.Mutex

	svc              *Service
	draft            *draft.Draft
	paymentConfirmed bool
	scanner          *scanner.Session
	decode           scanner.DecodeFunc
	onScan           func(scanner.Result)
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	window time.Duration
	now    func() time.Time
	onScan func(scanner.Result)
}

// WithClock sets the clock used for scan debouncing.
func WithClock(now func() time.Time) SessionOption {
	return func(c *sessionConfig) { c.now = now }
}

// WithCooldown overrides the scan cooldown window.
func WithCooldown(d time.Duration) SessionOption {
	return func(c *sessionConfig) { c.window = d }
}

// WithScanObserver registers fn to be called with every decode result.
func WithScanObserver(fn func(scanner.Result)) SessionOption {
	return func(c *sessionConfig) { c.onScan = fn }
}

// NewSession creates a session with an empty draft and the scanner stopped.
func NewSession(svc *Service, opts ...SessionOption) *Session {
	cfg := sessionConfig{
		window: scanner.CooldownWindow,
		now:    time.Now,
		onScan: func(scanner.Result) {},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		svc:    svc,
		draft:  draft.New(),
		onScan: cfg.onScan,
	}
	s.scanner = scanner.NewSession(s.addScanned, cfg.window, cfg.now)
	return s
}

// addScanned is the scanner sink. Called with s.mu held.
func (s *Session) addScanned(code string) {
	s.draft.AddScanned(code)
}

// StartScanner begins a scan session with fresh debounce state.
func (s *Session) StartScanner() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn, err := s.scanner.Start()
	if err != nil {
		return err
	}
	s.decode = fn
	return nil
}

// StopScanner ends the scan session. Decodes arriving afterwards are ignored.
func (s *Session) StopScanner() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scanner.Stop()
	s.decode = nil
}

// Decode feeds one decoded string from the scanner.
func (s *Session) Decode(decodedText string) scanner.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := scanner.Stale
	if s.decode != nil {
		result = s.decode(decodedText)
	}
	s.onScan(result)
	return result
}

// SetPrice sets the price of the line at index from raw input.
func (s *Session) SetPrice(index int, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.SetPrice(index, raw)
}

// RemoveAt removes the line at index.
func (s *Session) RemoveAt(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.RemoveAt(index)
}

// ConfirmPayment sets the payment-confirmed flag.
func (s *Session) ConfirmPayment(confirmed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paymentConfirmed = confirmed
}

// DraftView is a point-in-time copy of the session state.
type DraftView struct {
	Lines            []draft.Line
	Total            decimal.Decimal
	PaymentConfirmed bool
	CanCommit        bool
	// Reason explains why CanCommit is false.
	Reason   string
	Scanning bool
}

// Snapshot returns the current draft state.
func (s *Session) Snapshot() DraftView {
	s.mu.Lock()
	defer s.mu.Unlock()

	reason := s.draft.Reason(s.paymentConfirmed)
	return DraftView{
		Lines:            s.draft.Lines(),
		Total:            s.draft.Total(),
		PaymentConfirmed: s.paymentConfirmed,
		CanCommit:        reason == "",
		Reason:           reason,
		Scanning:         s.scanner.Active(),
	}
}

// Checkout commits the draft. On success the draft is cleared and the
// payment flag reset; on failure both are left as they were.
func (s *Session) Checkout(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.svc.Commit(ctx, s.draft, s.paymentConfirmed, now)
	if err != nil {
		return 0, err
	}
	s.draft.Clear()
	s.paymentConfirmed = false
	return id, nil
}
