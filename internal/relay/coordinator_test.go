package relay

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap/zaptest"
)

// stubSigner returns a fixed signature, an error, or blocks until released.
type stubSigner struct {
	signature []byte
	err       error
	block     chan struct{}
	calls     atomic.Int64
}

func (s *stubSigner) Sign(ctx context.Context, payload []byte, derivationPath string) ([]byte, error) {
	s.calls.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.signature, s.err
}

func newTestCoordinator(t *testing.T, sgn *stubSigner, clock func() time.Time) *Coordinator {
	t.Helper()

	c, err := New(&Config{
		Signer:         sgn,
		DerivationPath: "m/44'/60'/0'/0/0",
		ChainID:        137,
		MintContract:   common.HexToAddress("0x00000000000000000000000000000000deadbeef"),
		GasLimit:       120_000,
		PendingTimeout: time.Minute,
		Logger:         zaptest.NewLogger(t),
		Clock:          clock,
	})
	if err != nil {
		t.Fatalf("create coordinator: %v", err)
	}
	return c
}

// drainResult applies the next asynchronous signing outcome synchronously so
// tests do not need the Run loop.
func drainResult(t *testing.T, c *Coordinator) {
	t.Helper()

	select {
	case res := <-c.results:
		c.onSignatureResult(res)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for signature result")
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	sgn := &stubSigner{signature: bytes.Repeat([]byte{1}, 65)}

	tests := []struct {
		name   string
		config *Config
	}{
		{name: "nil-config", config: nil},
		{name: "nil-signer", config: &Config{Logger: logger, PendingTimeout: time.Minute}},
		{name: "nil-logger", config: &Config{Signer: sgn, PendingTimeout: time.Minute}},
		{name: "zero-pending-timeout", config: &Config{Signer: sgn, Logger: logger}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := New(tt.config); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCoordinator_CreateAndSign(t *testing.T) {
	t.Parallel()

	sgn := &stubSigner{signature: bytes.Repeat([]byte{0xcd}, 65)}
	c := newTestCoordinator(t, sgn, nil)
	winner := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")

	idx, err := c.Create(context.Background(), 1, winner, 5_000_000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if idx != 0 {
		t.Errorf("first index = %d, want 0", idx)
	}

	tx, err := c.Get(idx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if tx.Status != StatusPending {
		t.Errorf("status = %s, want pending", tx.Status)
	}
	if tx.Nonce != 0 {
		t.Errorf("nonce = %d, want 0", tx.Nonce)
	}
	if len(tx.Payload) == 0 {
		t.Error("payload should be built at creation")
	}

	drainResult(t, c)

	tx, _ = c.Get(idx)
	if tx.Status != StatusSigned {
		t.Errorf("status = %s, want signed", tx.Status)
	}
	if len(tx.SignedPayload) == 0 {
		t.Error("signed payload should be set")
	}

	select {
	case event := <-c.Ready():
		if event.Index != idx || event.RoundID != 1 {
			t.Errorf("ready event = %+v", event)
		}
		if !bytes.Equal(event.SignedPayload, tx.SignedPayload) {
			t.Error("ready event payload mismatch")
		}
	default:
		t.Fatal("expected a ready event")
	}
}

func TestCoordinator_Create_DuplicateRound(t *testing.T) {
	t.Parallel()

	sgn := &stubSigner{signature: bytes.Repeat([]byte{1}, 65)}
	c := newTestCoordinator(t, sgn, nil)
	winner := common.HexToAddress("0x0000000000000000000000000000000000000001")

	if _, err := c.Create(context.Background(), 1, winner, 100); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := c.Create(context.Background(), 1, winner, 100)
	if !errors.Is(err, ErrDuplicateRound) {
		t.Fatalf("expected ErrDuplicateRound, got %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}

	// A different round is fine and gets the next nonce.
	idx, err := c.Create(context.Background(), 2, winner, 100)
	if err != nil {
		t.Fatalf("create second round: %v", err)
	}
	tx, _ := c.Get(idx)
	if tx.Nonce != 1 {
		t.Errorf("nonce = %d, want 1", tx.Nonce)
	}
}

func TestCoordinator_SignatureFailure(t *testing.T) {
	t.Parallel()

	sgn := &stubSigner{err: errors.New("mpc unavailable")}
	c := newTestCoordinator(t, sgn, nil)

	idx, err := c.Create(context.Background(), 1, common.Address{}, 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	drainResult(t, c)

	tx, _ := c.Get(idx)
	if tx.Status != StatusFailed {
		t.Errorf("status = %s, want failed", tx.Status)
	}

	select {
	case <-c.Ready():
		t.Fatal("failed transaction must not emit a ready event")
	default:
	}
}

func TestCoordinator_StatusTransitions(t *testing.T) {
	t.Parallel()

	sgn := &stubSigner{signature: bytes.Repeat([]byte{1}, 65)}
	c := newTestCoordinator(t, sgn, nil)

	idx, _ := c.Create(context.Background(), 1, common.Address{}, 100)
	drainResult(t, c)

	// Signed -> Confirmed skips Relayed and must be rejected.
	if err := c.UpdateStatus(idx, StatusConfirmed, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("skip to confirmed: expected ErrInvalidTransition, got %v", err)
	}

	// Signed -> Signed is an idempotent no-op.
	if err := c.UpdateStatus(idx, StatusSigned, ""); err != nil {
		t.Fatalf("repeat signed: %v", err)
	}

	if err := c.UpdateStatus(idx, StatusRelayed, "0xhash"); err != nil {
		t.Fatalf("relayed: %v", err)
	}
	tx, _ := c.Get(idx)
	if tx.ExternalTxHash != "0xhash" {
		t.Errorf("external tx hash = %q, want 0xhash", tx.ExternalTxHash)
	}

	// Relayed -> Relayed is also a no-op.
	if err := c.UpdateStatus(idx, StatusRelayed, ""); err != nil {
		t.Fatalf("repeat relayed: %v", err)
	}

	if err := c.UpdateStatus(idx, StatusConfirmed, ""); err != nil {
		t.Fatalf("confirmed: %v", err)
	}

	// Confirmed is terminal.
	if err := c.UpdateStatus(idx, StatusRelayed, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("leave confirmed: expected ErrInvalidTransition, got %v", err)
	}
	if err := c.UpdateStatus(idx, StatusFailed, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("fail confirmed: expected ErrInvalidTransition, got %v", err)
	}
}

func TestCoordinator_FailFromAnyNonTerminal(t *testing.T) {
	t.Parallel()

	sgn := &stubSigner{signature: bytes.Repeat([]byte{1}, 65)}
	c := newTestCoordinator(t, sgn, nil)

	idx, _ := c.Create(context.Background(), 1, common.Address{}, 100)
	drainResult(t, c)
	if err := c.UpdateStatus(idx, StatusRelayed, ""); err != nil {
		t.Fatalf("relayed: %v", err)
	}

	// A relayed transaction can still fail (e.g. reverted on chain).
	if err := c.UpdateStatus(idx, StatusFailed, ""); err != nil {
		t.Fatalf("fail relayed: %v", err)
	}
	tx, _ := c.Get(idx)
	if tx.Status != StatusFailed {
		t.Errorf("status = %s, want failed", tx.Status)
	}
}

func TestCoordinator_UpdateStatus_NotFound(t *testing.T) {
	t.Parallel()

	sgn := &stubSigner{signature: bytes.Repeat([]byte{1}, 65)}
	c := newTestCoordinator(t, sgn, nil)

	if err := c.UpdateStatus(0, StatusRelayed, ""); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
	if _, err := c.Get(0); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestCoordinator_ListPending(t *testing.T) {
	t.Parallel()

	sgn := &stubSigner{signature: bytes.Repeat([]byte{1}, 65)}
	c := newTestCoordinator(t, sgn, nil)
	ctx := context.Background()

	// Round 1 ends up Signed, round 2 Confirmed, round 3 stays Pending.
	a, _ := c.Create(ctx, 1, common.Address{}, 100)
	drainResult(t, c)
	b, _ := c.Create(ctx, 2, common.Address{}, 100)
	drainResult(t, c)
	_ = c.UpdateStatus(b, StatusRelayed, "")
	_ = c.UpdateStatus(b, StatusConfirmed, "")

	blocked := &stubSigner{block: make(chan struct{})}
	t.Cleanup(func() { close(blocked.block) })
	c.signer = blocked
	third, _ := c.Create(ctx, 3, common.Address{}, 100)

	pending := c.ListPending()
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].Index != a || pending[1].Index != third {
		t.Errorf("pending indices = %d,%d, want %d,%d",
			pending[0].Index, pending[1].Index, a, third)
	}
}

func TestCoordinator_PendingTimeoutSweep(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	blocked := &stubSigner{block: make(chan struct{})}
	t.Cleanup(func() { close(blocked.block) })
	c := newTestCoordinator(t, blocked, clock)

	idx, err := c.Create(context.Background(), 1, common.Address{}, 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Inside the window: nothing happens.
	c.sweepTimeouts()
	tx, _ := c.Get(idx)
	if tx.Status != StatusPending {
		t.Fatalf("status = %s, want pending", tx.Status)
	}

	// Past the window: the sweeper fails it.
	now = now.Add(2 * time.Minute)
	c.sweepTimeouts()
	tx, _ = c.Get(idx)
	if tx.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", tx.Status)
	}

	// A late signature result for a swept transaction is ignored.
	c.onSignatureResult(signatureResult{index: idx, signature: bytes.Repeat([]byte{1}, 65)})
	tx, _ = c.Get(idx)
	if tx.Status != StatusFailed {
		t.Errorf("late result must not resurrect, status = %s", tx.Status)
	}
}

func TestCoordinator_RunAppliesResults(t *testing.T) {
	t.Parallel()

	sgn := &stubSigner{signature: bytes.Repeat([]byte{0xee}, 65)}
	c := newTestCoordinator(t, sgn, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	idx, err := c.Create(ctx, 1, common.Address{}, 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	select {
	case event := <-c.Ready():
		if event.Index != idx {
			t.Errorf("ready index = %d, want %d", event.Index, idx)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ready event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run loop did not stop")
	}
}
