package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"virtualphone-platform/internal/activecall"
	"virtualphone-platform/internal/auth"
	"virtualphone-platform/internal/billing"
	"virtualphone-platform/internal/calls"
	"virtualphone-platform/internal/config"
	"virtualphone-platform/internal/httpapi"
	"virtualphone-platform/internal/notify"
	"virtualphone-platform/internal/plan"
	"virtualphone-platform/internal/pricing"
	"virtualphone-platform/internal/registry"
	"virtualphone-platform/internal/sms"
	"virtualphone-platform/internal/telephony"
	"virtualphone-platform/internal/voicemail"
	"virtualphone-platform/internal/wallet"
	"virtualphone-platform/internal/webhook"
	"virtualphone-platform/pkg/utils"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, cfg config.Config, authManager *auth.Manager, db *sql.DB, rdb *redis.Client) error {
	// Durable stores on Postgres; plan/voicemail/message stores are
	// in-memory until their Postgres implementations land.
	numbers := registry.NewPostgresRepo(db)
	walletSvc := wallet.NewService(wallet.NewPostgresRepo(db))
	sessions := calls.NewPostgresStore(db)
	history := calls.NewPostgresHistory(db)

	planSvc := plan.NewService(plan.NewMemoryRepo())
	vmRepo := voicemail.NewMemoryRepo()
	smsRepo := sms.NewMemoryRepo()

	index, err := activecall.NewRedisIndex(rdb, cfg.Billing.ActiveCallTTL)
	if err != nil {
		return fmt.Errorf("active-call index init: %w", err)
	}

	hub := notify.NewHub()

	// Rate table is in-memory and empty until rate administration lands;
	// settlement treats a missing rate as non-billable.
	rates := pricing.NewService(&pricing.MemoryRepo{})
	engine := billing.NewEngine(sessions, numbers, rates, planSvc, walletSvc)
	correlator := webhook.NewCorrelator(sessions, index, numbers, engine, history, hub)
	reconciler := voicemail.NewReconciler(vmRepo, hub, cfg.Billing.VoicemailReconcileWindow)
	smsSvc := sms.NewService(smsRepo, numbers, hub)

	var provider telephony.Provider
	if cfg.Twilio.AccountSID != "" {
		provider = telephony.NewTwilioProvider(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
	} else {
		provider = telephony.NewFakeProvider()
	}

	limiter := httpapi.NewRedisCallLimiter(rdb, cfg.Billing.MaxConcurrentCalls, cfg.Billing.ActiveCallTTL)
	correlator.OnCallFinished(func(ctx context.Context, s calls.Session) {
		if s.Direction == calls.DirectionOutbound {
			limiter.Release(ctx, s.AccountID)
		}
	})

	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider webhooks (public).
	// NOTE: These endpoints should be protected by provider signature
	// validation in production.
	wh := &webhook.Handlers{
		Correlator:      correlator,
		Voicemails:      reconciler,
		Messages:        smsSvc,
		Numbers:         numbers,
		Sessions:        sessions,
		CallbackBaseURL: cfg.Twilio.CallbackBaseURL,
	}
	wh.Mount(r.Group("/webhooks"))

	api := httpapi.Handlers{
		Auth:            authManager,
		Sessions:        sessions,
		History:         history,
		Correlator:      correlator,
		Provider:        provider,
		Wallet:          walletSvc,
		Plans:           planSvc,
		Voicemails:      vmRepo,
		Messages:        smsSvc,
		Numbers:         numbers,
		Limiter:         limiter,
		CallbackBaseURL: cfg.Twilio.CallbackBaseURL,
	}

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	r.POST("/v1/auth/login", api.Login)

	// protected API group
	authMW := auth.RequireAccessToken(authManager)

	v1 := r.Group("/v1")
	v1.Use(authMW)
	api.Mount(v1)

	v1.GET("/me", func(c *gin.Context) {
		accountID, _ := auth.AccountID(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"account_id": accountID})
	})

	// Realtime event stream (call_ended, message_received,
	// voicemail_received).
	r.GET("/ws", authMW, hub.Handler(func(c *gin.Context) (string, bool) {
		accountID, err := auth.AccountID(c.Request.Context())
		return accountID, err == nil
	}))

	return nil
}
