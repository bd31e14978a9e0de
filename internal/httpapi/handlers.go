package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"virtualphone-platform/internal/auth"
	"virtualphone-platform/internal/calls"
	"virtualphone-platform/internal/plan"
	"virtualphone-platform/internal/registry"
	"virtualphone-platform/internal/sms"
	"virtualphone-platform/internal/telephony"
	"virtualphone-platform/internal/voicemail"
	"virtualphone-platform/internal/wallet"
	"virtualphone-platform/internal/webhook"
	"virtualphone-platform/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth       *auth.Manager
	Sessions   calls.Store
	History    calls.HistoryStore
	Correlator *webhook.Correlator
	Provider   telephony.Provider
	Wallet     *wallet.Service
	Plans      *plan.Service
	Voicemails voicemail.Repository
	Messages   *sms.Service
	Numbers    registry.Repository
	Limiter    CallSlotLimiter

	// CallbackBaseURL is the public base for the provider's status
	// callbacks on calls this API initiates.
	CallbackBaseURL string

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Mount registers the account-scoped routes. The caller applies the
// access-token middleware to rg.
func (h Handlers) Mount(rg *gin.RouterGroup) {
	rg.POST("/calls", h.InitiateCall)
	rg.POST("/calls/:session_id/hangup", h.HangupCall)
	rg.GET("/calls", h.ListCalls)

	rg.GET("/voicemails", h.ListVoicemails)
	rg.POST("/voicemails/:recording_id/read", h.MarkVoicemailRead)
	rg.DELETE("/voicemails/:recording_id", h.DeleteVoicemail)

	rg.GET("/messages", h.ListMessages)
	rg.POST("/messages", h.SendMessage)
	rg.POST("/messages/:message_id/read", h.MarkMessageRead)

	rg.GET("/wallet/balance", h.GetWalletBalance)
	rg.GET("/wallet/transactions", h.ListWalletTransactions)
	rg.POST("/wallet/topup", h.TopUpWallet)
}

func accountOrAbort(c *gin.Context) (string, bool) {
	accountID, err := auth.AccountID(c.Request.Context())
	if err != nil || accountID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account required"})
		return "", false
	}
	return accountID, true
}

// --- Auth ---

type loginRequest struct {
	AccountID string `json:"account_id"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AccountID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "account_id required"})
		return
	}
	pair, err := h.Auth.IssuePair(h.now(), req.AccountID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Calls ---

type initiateCallRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// InitiateCall places an outbound call. The caller must own the From
// number and either hold a positive balance or an active plan covering
// the destination; the already-terminated-call settlement path is the
// only one exempt from that gate.
func (h Handlers) InitiateCall(c *gin.Context) {
	log := logger.FromGin(c)
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}

	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.From == "" || req.To == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to required"})
		return
	}

	ctx := c.Request.Context()

	owned, found, err := h.Numbers.FindByNumber(ctx, req.From)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "number lookup failed"})
		return
	}
	if !found || owned.AccountID != accountID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "from number not owned by account"})
		return
	}

	if ok, err := h.canPlaceCall(c, accountID, owned.CountryCode); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "balance check failed"})
		return
	} else if !ok {
		c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient balance"})
		return
	}

	acquired, err := h.Limiter.Acquire(ctx, accountID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "limiter unavailable"})
		return
	}
	if !acquired {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "concurrent call limit reached"})
		return
	}

	s := calls.Session{
		SessionID: uuid.NewString(),
		AccountID: accountID,
		From:      req.From,
		To:        req.To,
		Direction: calls.DirectionOutbound,
		Status:    calls.StatusInitiated,
		StartedAt: h.now().UTC(),
	}
	if err := h.Sessions.Create(ctx, s); err != nil {
		h.Limiter.Release(ctx, accountID)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session create failed"})
		return
	}

	res, err := h.Provider.Connect(ctx, telephony.ConnectRequest{
		From:              req.From,
		To:                req.To,
		StatusCallbackURL: h.CallbackBaseURL + "/webhooks/call-status",
		RequestedAt:       h.now().UTC(),
	})
	if err != nil {
		h.Limiter.Release(ctx, accountID)
		// The session stays; a failed terminal status would reach it via
		// webhook if the provider partially connected.
		log.Error("provider connect failed", "session_id", s.SessionID, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "call connect failed"})
		return
	}

	if err := h.Correlator.Register(ctx, res.ExternalCallID, s.SessionID); err != nil {
		log.Error("external id registration failed",
			"session_id", s.SessionID, "external_call_id", res.ExternalCallID, "err", err)
	}
	s.ExternalCallID = res.ExternalCallID

	c.JSON(http.StatusCreated, s)
}

// canPlaceCall gates new outbound calls on funds: a positive wallet
// balance or an active plan with remaining allowance.
func (h Handlers) canPlaceCall(c *gin.Context, accountID, countryCode string) (bool, error) {
	ctx := c.Request.Context()
	bal, err := h.Wallet.GetBalance(ctx, accountID)
	if err != nil && !errors.Is(err, wallet.ErrNotFound) {
		return false, err
	}
	if bal.BalanceMinor > 0 {
		return true, nil
	}
	return h.Plans.HasAllowance(ctx, accountID, countryCode)
}

func (h Handlers) HangupCall(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	sessionID := c.Param("session_id")

	s, err := h.Sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	if s.AccountID != accountID {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	if s.Status.IsTerminal() {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call already ended"})
		return
	}
	if s.ExternalCallID == "" {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call not yet connected"})
		return
	}

	// The provider confirms the hangup through a call-status callback;
	// the state machine and settlement run from there, not here.
	if err := h.Provider.Hangup(c.Request.Context(), s.ExternalCallID); err != nil {
		logger.FromGin(c).Error("provider hangup failed", "session_id", sessionID, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "hangup failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "hangup requested"})
}

func (h Handlers) ListCalls(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	records, err := h.History.ListByAccount(c.Request.Context(), accountID, limitParam(c, 50))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": records})
}

// --- Voicemail ---

func (h Handlers) ListVoicemails(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	recordings, err := h.Voicemails.ListByAccount(c.Request.Context(), accountID, limitParam(c, 50))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "voicemail lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"voicemails": recordings})
}

func (h Handlers) MarkVoicemailRead(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	err := h.Voicemails.MarkRead(c.Request.Context(), accountID, c.Param("recording_id"))
	if err != nil {
		if errors.Is(err, voicemail.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "voicemail not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (h Handlers) DeleteVoicemail(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	err := h.Voicemails.Delete(c.Request.Context(), accountID, c.Param("recording_id"))
	if err != nil {
		if errors.Is(err, voicemail.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "voicemail not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// --- Messages ---

func (h Handlers) ListMessages(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	messages, err := h.Messages.List(c.Request.Context(), accountID, limitParam(c, 50))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "message lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type sendMessageRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

func (h Handlers) SendMessage(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.From == "" || req.To == "" || req.Body == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from, to, body required"})
		return
	}

	ctx := c.Request.Context()
	owned, found, err := h.Numbers.FindByNumber(ctx, req.From)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "number lookup failed"})
		return
	}
	if !found || owned.AccountID != accountID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "from number not owned by account"})
		return
	}

	res, err := h.Provider.SendMessage(ctx, telephony.SendMessageRequest{
		From: req.From, To: req.To, Body: req.Body,
	})
	if err != nil {
		logger.FromGin(c).Error("provider send failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "send failed"})
		return
	}

	m, err := h.Messages.RecordOutbound(ctx, accountID, sms.InboundEvent{
		ExternalMessageID: res.ExternalMessageID,
		From:              req.From,
		To:                req.To,
		Body:              req.Body,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "message store failed"})
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h Handlers) MarkMessageRead(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	err := h.Messages.MarkRead(c.Request.Context(), accountID, c.Param("message_id"))
	if err != nil {
		if errors.Is(err, sms.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// --- Wallet ---

func (h Handlers) GetWalletBalance(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	bal, err := h.Wallet.GetBalance(c.Request.Context(), accountID)
	if err != nil && !errors.Is(err, wallet.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed"})
		return
	}
	c.JSON(http.StatusOK, bal)
}

func (h Handlers) ListWalletTransactions(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	entries, err := h.Wallet.ListEntries(c.Request.Context(), accountID, limitParam(c, 50))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "transaction lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}

type topUpRequest struct {
	AmountMinor    int64  `json:"amount_minor"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (h Handlers) TopUpWallet(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	entry, bal, err := h.Wallet.Credit(c.Request.Context(), accountID, wallet.CreditRequest{
		AmountMinor:    req.AmountMinor,
		Currency:       req.Currency,
		ExternalRef:    "topup",
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid top-up request"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "top-up failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry, "balance": bal})
}

func limitParam(c *gin.Context, def int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
