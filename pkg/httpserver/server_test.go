package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap/zaptest"

	"github.com/predictpool/settlement/internal/engine"
	"github.com/predictpool/settlement/internal/ledger"
	"github.com/predictpool/settlement/internal/prediction"
	"github.com/predictpool/settlement/internal/relay"
	"github.com/predictpool/settlement/internal/round"
	"github.com/predictpool/settlement/internal/signer"
	"github.com/predictpool/settlement/pkg/healthprobe"
)

const (
	testOwner = "owner"
	testToken = "secret-token"
)

type testServer struct {
	handler     http.Handler
	ledger      *ledger.MemoryLedger
	coordinator *relay.Coordinator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zaptest.NewLogger(t)
	led := ledger.NewMemoryLedger(&ledger.MemoryConfig{Logger: logger})

	sgn, err := signer.NewEphemeralSigner()
	if err != nil {
		t.Fatalf("create signer: %v", err)
	}

	coordinator, err := relay.New(&relay.Config{
		Signer:         sgn,
		ChainID:        137,
		GasLimit:       120_000,
		PendingTimeout: time.Minute,
		Logger:         logger,
	})
	if err != nil {
		t.Fatalf("create coordinator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go coordinator.Run(ctx)

	eng, err := engine.New(&engine.Config{
		Owner:               testOwner,
		FeeBasisPoints:      100,
		MinPredictionAmount: 1_000_000,
		Rounds:              round.NewStore(),
		Predictions:         prediction.NewStore(),
		Ledger:              led,
		Relayer:             coordinator,
		Logger:              logger,
	})
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}

	hc := healthprobe.New()
	hc.SetReady(true)

	srv := New(&Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: hc,
		Engine:        eng,
		Coordinator:   coordinator,
		Faucet:        led,
		OwnerToken:    testToken,
	})

	return &testServer{
		handler:     srv.Handler(),
		ledger:      led,
		coordinator: coordinator,
	}
}

// do executes a request against the router and decodes the JSON response
// into out when it is non-nil.
func (ts *testServer) do(t *testing.T, method, path, callerID string, body interface{}, out interface{}, asOwner bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if callerID != "" {
		req.Header.Set("X-Caller-Id", callerID)
	}
	if asOwner {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec
}

func TestServer_FullRoundLifecycle(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	// Create a round.
	var created struct {
		ID uint64 `json:"id"`
	}
	rec := ts.do(t, http.MethodPost, "/api/rounds", testOwner,
		map[string]string{"title": "Will BTC close above 100k"}, &created, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create round: status = %d, body = %s", rec.Code, rec.Body)
	}
	if created.ID != 1 {
		t.Fatalf("round id = %d, want 1", created.ID)
	}

	// Fund the predictors through the dev faucet.
	for _, c := range []struct {
		account string
		amount  uint64
	}{{"alice", 5_000_000}, {"bob", 3_000_000}} {
		rec = ts.do(t, http.MethodPost, "/api/admin/credit", testOwner,
			map[string]interface{}{"account": c.account, "amount": c.amount}, nil, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("credit %s: status = %d, body = %s", c.account, rec.Code, rec.Body)
		}
	}

	// Place opposing predictions.
	var placed struct {
		Index uint64 `json:"index"`
	}
	rec = ts.do(t, http.MethodPost, "/api/predictions", "alice",
		map[string]interface{}{"round_id": 1, "side": "yes", "amount": 5_000_000}, &placed, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("alice prediction: status = %d, body = %s", rec.Code, rec.Body)
	}
	aliceIdx := placed.Index

	rec = ts.do(t, http.MethodPost, "/api/predictions", "bob",
		map[string]interface{}{"round_id": 1, "side": "no", "amount": 3_000_000}, &placed, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("bob prediction: status = %d, body = %s", rec.Code, rec.Body)
	}

	// The round shows both pools.
	var rounds []round.Round
	rec = ts.do(t, http.MethodGet, "/api/rounds", "", nil, &rounds, false)
	if rec.Code != http.StatusOK || len(rounds) != 1 {
		t.Fatalf("list rounds: status = %d, count = %d", rec.Code, len(rounds))
	}
	if rounds[0].TotalYesAmount != 5_000_000 || rounds[0].TotalNoAmount != 3_000_000 {
		t.Fatalf("pools = %d/%d", rounds[0].TotalYesAmount, rounds[0].TotalNoAmount)
	}

	// Close and settle with a winner address so a relay transaction spawns.
	rec = ts.do(t, http.MethodPost, "/api/rounds/1/close", testOwner, nil, nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("close: status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = ts.do(t, http.MethodPost, "/api/rounds/1/settle", testOwner,
		map[string]interface{}{
			"result":         true,
			"winner_address": "0x1234567890abcdef1234567890abcdef12345678",
		}, nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("settle: status = %d, body = %s", rec.Code, rec.Body)
	}

	// Alice claims the exact proportional payout.
	claimPath := fmt.Sprintf("/api/predictions/%d/claim", aliceIdx)
	var claim struct {
		Payout uint64 `json:"payout"`
	}
	rec = ts.do(t, http.MethodPost, claimPath, "alice", nil, &claim, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("claim: status = %d, body = %s", rec.Code, rec.Body)
	}
	if claim.Payout != 7_970_000 {
		t.Fatalf("payout = %d, want 7970000", claim.Payout)
	}

	// A second claim conflicts.
	rec = ts.do(t, http.MethodPost, claimPath, "alice", nil, nil, false)
	if rec.Code != http.StatusConflict {
		t.Fatalf("double claim: status = %d, want 409", rec.Code)
	}

	// Bob, on the losing side, also conflicts.
	rec = ts.do(t, http.MethodPost, "/api/predictions/1/claim", "bob", nil, nil, false)
	if rec.Code != http.StatusConflict {
		t.Fatalf("losing claim: status = %d, want 409", rec.Code)
	}

	// Bob cannot claim alice's prediction.
	rec = ts.do(t, http.MethodPost, claimPath, "bob", nil, nil, false)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign claim: status = %d, want 403", rec.Code)
	}

	// The settlement spawned exactly one relay transaction.
	if ts.coordinator.Len() != 1 {
		t.Fatalf("relay transactions = %d, want 1", ts.coordinator.Len())
	}
}

func TestServer_RelayEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	// Drive one round to settlement to spawn a relay transaction.
	ts.do(t, http.MethodPost, "/api/rounds", testOwner,
		map[string]string{"title": "round"}, nil, true)
	ts.do(t, http.MethodPost, "/api/admin/credit", testOwner,
		map[string]interface{}{"account": "alice", "amount": 5_000_000}, nil, true)
	ts.do(t, http.MethodPost, "/api/predictions", "alice",
		map[string]interface{}{"round_id": 1, "side": "yes", "amount": 5_000_000}, nil, false)
	ts.do(t, http.MethodPost, "/api/rounds/1/close", testOwner, nil, nil, true)
	ts.do(t, http.MethodPost, "/api/rounds/1/settle", testOwner,
		map[string]interface{}{
			"result":         true,
			"winner_address": "0x1234567890abcdef1234567890abcdef12345678",
		}, nil, true)

	// Wait for the ephemeral signer's asynchronous result.
	deadline := time.Now().Add(5 * time.Second)
	for {
		tx, err := ts.coordinator.Get(0)
		if err == nil && tx.Status == relay.StatusSigned {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("transaction never reached signed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var pending []relay.Transaction
	rec := ts.do(t, http.MethodGet, "/api/relay/pending", "", nil, &pending, false)
	if rec.Code != http.StatusOK || len(pending) != 1 {
		t.Fatalf("pending: status = %d, count = %d", rec.Code, len(pending))
	}
	if len(pending[0].SignedPayload) == 0 {
		t.Error("signed payload missing from pending transaction")
	}

	// Progress the transaction through the relay states.
	rec = ts.do(t, http.MethodPost, "/api/relay/0/status", "",
		map[string]string{"status": "relayed", "external_tx_hash": "0xhash"}, nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("relayed: status = %d, body = %s", rec.Code, rec.Body)
	}

	// Repeating the report is a no-op, not an error.
	rec = ts.do(t, http.MethodPost, "/api/relay/0/status", "",
		map[string]string{"status": "relayed"}, nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat relayed: status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/relay/0/status", "",
		map[string]string{"status": "confirmed"}, nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirmed: status = %d", rec.Code)
	}

	// Backward movement conflicts.
	rec = ts.do(t, http.MethodPost, "/api/relay/0/status", "",
		map[string]string{"status": "relayed"}, nil, false)
	if rec.Code != http.StatusConflict {
		t.Fatalf("backward transition: status = %d, want 409", rec.Code)
	}

	var tx relay.Transaction
	rec = ts.do(t, http.MethodGet, "/api/relay/0", "", nil, &tx, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}
	if tx.Status != relay.StatusConfirmed || tx.ExternalTxHash != "0xhash" {
		t.Errorf("tx = %+v", tx)
	}

	rec = ts.do(t, http.MethodGet, "/api/relay/99", "", nil, nil, false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing tx: status = %d, want 404", rec.Code)
	}
}

func TestServer_AuthAndValidation(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	// Owner endpoints demand the bearer token.
	rec := ts.do(t, http.MethodPost, "/api/rounds", testOwner,
		map[string]string{"title": "round"}, nil, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d, want 401", rec.Code)
	}

	// Token alone is not enough: the engine still checks the caller identity.
	rec = ts.do(t, http.MethodPost, "/api/rounds", "mallory",
		map[string]string{"title": "round"}, nil, true)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("non-owner caller: status = %d, want 401", rec.Code)
	}

	// Validation errors map to 400.
	rec = ts.do(t, http.MethodPost, "/api/rounds", testOwner,
		map[string]string{"title": ""}, nil, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty title: status = %d, want 400", rec.Code)
	}

	// Predictions demand a caller identity.
	rec = ts.do(t, http.MethodPost, "/api/predictions", "",
		map[string]interface{}{"round_id": 1, "side": "yes", "amount": 1_000_000}, nil, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing caller: status = %d, want 400", rec.Code)
	}

	// Unknown side is rejected.
	ts.do(t, http.MethodPost, "/api/rounds", testOwner,
		map[string]string{"title": "round"}, nil, true)
	rec = ts.do(t, http.MethodPost, "/api/predictions", "alice",
		map[string]interface{}{"round_id": 1, "side": "maybe", "amount": 1_000_000}, nil, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad side: status = %d, want 400", rec.Code)
	}

	// Unfunded stake maps to 402.
	rec = ts.do(t, http.MethodPost, "/api/predictions", "alice",
		map[string]interface{}{"round_id": 1, "side": "yes", "amount": 1_000_000}, nil, false)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("unfunded stake: status = %d, want 402", rec.Code)
	}

	// Unknown round maps to 404.
	rec = ts.do(t, http.MethodGet, "/api/rounds/99", "", nil, nil, false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing round: status = %d, want 404", rec.Code)
	}
}

func TestServer_OperationalEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		rec := ts.do(t, http.MethodGet, path, "", nil, nil, false)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}

func TestServer_PauseGate(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/admin/pause", testOwner, nil, nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause: status = %d", rec.Code)
	}

	// Paused platform refuses new rounds with 503.
	rec = ts.do(t, http.MethodPost, "/api/rounds", testOwner,
		map[string]string{"title": "round"}, nil, true)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("paused create: status = %d, want 503", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/admin/unpause", testOwner, nil, nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("unpause: status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/rounds", testOwner,
		map[string]string{"title": "round"}, nil, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create after unpause: status = %d, want 201", rec.Code)
	}
}
