package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"virtualphone-platform/internal/activecall"
	"virtualphone-platform/internal/auth"
	"virtualphone-platform/internal/billing"
	"virtualphone-platform/internal/calls"
	"virtualphone-platform/internal/notify"
	"virtualphone-platform/internal/plan"
	"virtualphone-platform/internal/pricing"
	"virtualphone-platform/internal/registry"
	"virtualphone-platform/internal/sms"
	"virtualphone-platform/internal/telephony"
	"virtualphone-platform/internal/voicemail"
	"virtualphone-platform/internal/wallet"
	"virtualphone-platform/internal/webhook"
)

type apiFixture struct {
	router   *gin.Engine
	sessions *calls.MemoryStore
	index    *activecall.MemoryIndex
	wallet   *wallet.Service
	plans    *plan.MemoryRepo
	vm       *voicemail.MemoryRepo
	provider *telephony.FakeProvider
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	now := time.Unix(1700000000, 0).UTC()

	sessions := calls.NewMemoryStore()
	index := activecall.NewMemoryIndex()
	history := calls.NewMemoryHistory()

	numbers := registry.NewMemoryRepo()
	numbers.Put(registry.OwnedNumber{
		ID: "n1", AccountID: "acct-1", PhoneNumber: "+15551234567",
		CountryCode: "US", Status: registry.NumberStatusAssigned,
	})

	rates := pricing.NewService(&pricing.MemoryRepo{Rates: []pricing.MinuteRate{{
		ID: "r1", CountryCode: "US", Currency: "USD",
		RatePerMinuteMinor: 150, BillingIncrementSeconds: 60,
		Status: pricing.RateStatusActive, EffectiveFrom: now.Add(-time.Hour),
	}}})

	planRepo := plan.NewMemoryRepo()
	planSvc := plan.NewService(planRepo)
	walletSvc := wallet.NewService(wallet.NewMemoryRepo())
	engine := billing.NewEngine(sessions, numbers, rates, planSvc, walletSvc)
	correlator := webhook.NewCorrelator(sessions, index, numbers, engine, history, notify.Noop{})

	vmRepo := voicemail.NewMemoryRepo()
	provider := telephony.NewFakeProvider()

	h := Handlers{
		Sessions:        sessions,
		History:         history,
		Correlator:      correlator,
		Provider:        provider,
		Wallet:          walletSvc,
		Plans:           planSvc,
		Voicemails:      vmRepo,
		Messages:        sms.NewService(sms.NewMemoryRepo(), numbers, notify.Noop{}),
		Numbers:         numbers,
		Limiter:         UnlimitedCalls{},
		CallbackBaseURL: "https://api.example",
	}

	r := gin.New()
	v1 := r.Group("/v1")
	v1.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithAccount(c.Request.Context(), "acct-1"))
		c.Next()
	})
	h.Mount(v1)

	return &apiFixture{
		router:   r,
		sessions: sessions,
		index:    index,
		wallet:   walletSvc,
		plans:    planRepo,
		vm:       vmRepo,
		provider: provider,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) topUp(t *testing.T, amount int64) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/v1/wallet/topup", topUpRequest{
		AmountMinor: amount, Currency: "USD", IdempotencyKey: "topup-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("top-up failed: %d %s", w.Code, w.Body.String())
	}
}

func TestInitiateCallCreatesSessionAndRegisters(t *testing.T) {
	f := newAPIFixture(t)
	f.topUp(t, 1000)

	w := f.do(t, http.MethodPost, "/v1/calls", initiateCallRequest{
		From: "+15551234567", To: "+447700900123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", w.Code, w.Body.String())
	}

	var s calls.Session
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if s.ExternalCallID == "" {
		t.Fatalf("response must carry the provider call id")
	}

	stored, found, _ := f.sessions.FindByExternalCallID(context.Background(), s.ExternalCallID)
	if !found || stored.SessionID != s.SessionID {
		t.Fatalf("session must be findable by external id")
	}
	if _, ok, _ := f.index.Get(context.Background(), s.ExternalCallID); !ok {
		t.Fatalf("initiation must populate the active-call index")
	}
}

func TestInitiateCallRequiresFunds(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/v1/calls", initiateCallRequest{
		From: "+15551234567", To: "+447700900123",
	})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 with empty wallet and no plan, got %d", w.Code)
	}
}

func TestInitiateCallPlanAllowanceSuffices(t *testing.T) {
	f := newAPIFixture(t)
	f.plans.Put(plan.Plan{
		ID: "p1", AccountID: "acct-1", CountryCode: "US",
		MinutesLimit: 100, MinutesUsed: 10,
		Status: plan.PlanStatusActive, ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	})

	w := f.do(t, http.MethodPost, "/v1/calls", initiateCallRequest{
		From: "+15551234567", To: "+447700900123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("plan allowance must permit the call, got %d %s", w.Code, w.Body.String())
	}
}

func TestInitiateCallRejectsUnownedFrom(t *testing.T) {
	f := newAPIFixture(t)
	f.topUp(t, 1000)

	w := f.do(t, http.MethodPost, "/v1/calls", initiateCallRequest{
		From: "+19998887777", To: "+447700900123",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unowned from number, got %d", w.Code)
	}
}

func TestHangupCallDelegatesToProvider(t *testing.T) {
	f := newAPIFixture(t)
	f.topUp(t, 1000)

	w := f.do(t, http.MethodPost, "/v1/calls", initiateCallRequest{
		From: "+15551234567", To: "+447700900123",
	})
	var s calls.Session
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	w = f.do(t, http.MethodPost, "/v1/calls/"+s.SessionID+"/hangup", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d %s", w.Code, w.Body.String())
	}

	hangups := f.provider.Hangups()
	if len(hangups) != 1 || hangups[0] != s.ExternalCallID {
		t.Fatalf("provider must receive the hangup, got %v", hangups)
	}
}

func TestHangupUnknownCall(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodPost, "/v1/calls/nope/hangup", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestWalletTopUpAndBalance(t *testing.T) {
	f := newAPIFixture(t)
	f.topUp(t, 2500)

	w := f.do(t, http.MethodGet, "/v1/wallet/balance", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var bal wallet.Balance
	if err := json.Unmarshal(w.Body.Bytes(), &bal); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if bal.BalanceMinor != 2500 {
		t.Fatalf("expected 2500, got %d", bal.BalanceMinor)
	}
}

func TestVoicemailReadAndDelete(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	_ = f.vm.Create(ctx, voicemail.Recording{
		RecordingID: "vm1", RecordingSid: "RE1", AccountID: "acct-1",
		From: "+447700900123", To: "+15551234567",
		Status: voicemail.StatusFinalized, DurationSeconds: 12,
		CreatedAt: time.Now().UTC(),
	})

	if w := f.do(t, http.MethodPost, "/v1/voicemails/vm1/read", nil); w.Code != http.StatusOK {
		t.Fatalf("mark read failed: %d", w.Code)
	}
	rec, _, _ := f.vm.FindBySid(ctx, "RE1")
	if !rec.Read {
		t.Fatalf("voicemail must be marked read")
	}

	if w := f.do(t, http.MethodDelete, "/v1/voicemails/vm1", nil); w.Code != http.StatusOK {
		t.Fatalf("delete failed: %d", w.Code)
	}
	if _, found, _ := f.vm.FindBySid(ctx, "RE1"); found {
		t.Fatalf("voicemail must be gone")
	}

	if w := f.do(t, http.MethodPost, "/v1/voicemails/vm1/read", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestSendMessageStoresOutbound(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/v1/messages", sendMessageRequest{
		From: "+15551234567", To: "+447700900123", Body: "hi there",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", w.Code, w.Body.String())
	}

	var m sms.Message
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if m.Direction != sms.DirectionOutbound || m.ExternalMessageID == "" {
		t.Fatalf("wrong outbound message: %+v", m)
	}

	w = f.do(t, http.MethodGet, "/v1/messages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
