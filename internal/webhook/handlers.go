package webhook

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"virtualphone-platform/internal/calls"
	"virtualphone-platform/internal/registry"
	"virtualphone-platform/internal/sms"
	"virtualphone-platform/internal/telephony"
	"virtualphone-platform/internal/voicemail"
	"virtualphone-platform/pkg/logger"
	"virtualphone-platform/pkg/utils"
)

// Handlers exposes the provider callback endpoints. Every handler
// acknowledges within the provider's timeout window regardless of the
// downstream outcome: a non-2xx answer only triggers provider retries,
// and a retry cannot fix a logic-level correlation miss.
type Handlers struct {
	Correlator *Correlator
	Voicemails *voicemail.Reconciler
	Messages   *sms.Service
	Numbers    registry.Repository
	Sessions   calls.Store

	// CallbackBaseURL is the public base for callback URLs embedded in
	// TwiML answers.
	CallbackBaseURL string

	// DeviceResolver maps an account to its registered device number for
	// inbound dial-through. Unregistered accounts go straight to
	// voicemail.
	DeviceResolver func(ctx *gin.Context, accountID string) (string, bool)

	Now func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Mount registers the webhook routes. They are unauthenticated by
// design: the provider cannot carry bearer tokens.
func (h *Handlers) Mount(rg *gin.RouterGroup) {
	rg.POST("/voice", h.HandleVoice)
	rg.POST("/call-status", h.HandleCallStatus)
	rg.POST("/dial-action", h.HandleDialAction)
	rg.POST("/recording-status", h.HandleRecordingStatus)
	rg.POST("/sms", h.HandleMessage)
}

// HandleVoice answers an inbound call to an owned number: it creates the
// session, registers the provider call id, and returns a TwiML plan that
// dials the owner's device or drops to voicemail.
func (h *Handlers) HandleVoice(c *gin.Context) {
	log := logger.FromGin(c)
	utils.WebhookEventsTotal.WithLabelValues("voice").Inc()

	form, err := ParseVoiceForm(c.Request)
	if err != nil {
		log.Warn("voice webhook parse failed", "err", err)
		h.answer(c, telephony.AnswerPlan{Action: telephony.AnswerActionReject})
		return
	}

	owned, ok, err := h.Numbers.FindByNumber(c.Request.Context(), form.To)
	if err != nil {
		log.Error("voice webhook registry lookup failed", "to", form.To, "err", err)
		h.answer(c, telephony.AnswerPlan{Action: telephony.AnswerActionReject})
		return
	}
	if !ok {
		log.Warn("voice webhook for unowned number rejected", "to", form.To)
		h.answer(c, telephony.AnswerPlan{Action: telephony.AnswerActionReject})
		return
	}

	s := calls.Session{
		SessionID: uuid.NewString(),
		AccountID: owned.AccountID,
		From:      form.From,
		To:        form.To,
		Direction: calls.DirectionInbound,
		Status:    calls.StatusInitiated,
		StartedAt: h.now().UTC(),
	}
	if err := h.Sessions.Create(c.Request.Context(), s); err != nil {
		log.Error("voice webhook session create failed", "err", err)
		h.answer(c, telephony.AnswerPlan{Action: telephony.AnswerActionReject})
		return
	}
	if err := h.Correlator.Register(c.Request.Context(), form.CallSid, s.SessionID); err != nil {
		log.Error("voice webhook register failed", "session_id", s.SessionID, "err", err)
	}

	plan := telephony.AnswerPlan{
		Action:             telephony.AnswerActionVoicemail,
		DialActionURL:      h.CallbackBaseURL + "/webhooks/dial-action",
		RecordingStatusURL: h.CallbackBaseURL + "/webhooks/recording-status",
	}
	if h.DeviceResolver != nil {
		if device, ok := h.DeviceResolver(c, owned.AccountID); ok {
			plan.Action = telephony.AnswerActionDial
			plan.DialTo = device
		}
	}
	h.answer(c, plan)
}

// HandleCallStatus ingests call lifecycle events.
func (h *Handlers) HandleCallStatus(c *gin.Context) {
	log := logger.FromGin(c)
	utils.WebhookEventsTotal.WithLabelValues("call-status").Inc()

	form, err := ParseCallStatusForm(c.Request)
	if err != nil {
		log.Warn("call-status parse failed", "err", err)
		c.String(http.StatusOK, "ok")
		return
	}

	if err := h.Correlator.HandleCallStatus(c.Request.Context(), CallStatusEvent{
		ExternalCallID:  form.CallSid,
		RawStatus:       form.CallStatus,
		From:            form.From,
		To:              form.To,
		DurationSeconds: form.DurationSeconds,
	}); err != nil {
		// Infrastructure failure. The provider will retry and the
		// idempotency design absorbs the redelivery.
		log.Error("call-status processing failed", "call_sid", form.CallSid, "err", err)
	}
	c.String(http.StatusOK, "ok")
}

// HandleDialAction captures the dial outcome. An unanswered leg with a
// recording becomes a provisional voicemail (phase 1).
func (h *Handlers) HandleDialAction(c *gin.Context) {
	log := logger.FromGin(c)
	utils.WebhookEventsTotal.WithLabelValues("dial-action").Inc()

	form, err := ParseDialActionForm(c.Request)
	if err != nil {
		log.Warn("dial-action parse failed", "err", err)
		h.answer(c, telephony.AnswerPlan{Action: telephony.AnswerActionHangup})
		return
	}

	if form.RecordingSid != "" {
		ev := voicemail.ActionEvent{
			From:         form.From,
			To:           form.To,
			RecordingSid: form.RecordingSid,
			RecordingURL: form.RecordingURL,
		}
		if s, found, err := h.Correlator.Lookup(c.Request.Context(), form.CallSid); err != nil {
			log.Error("dial-action session lookup failed", "call_sid", form.CallSid, "err", err)
		} else if found {
			ev.SessionID = s.SessionID
			ev.AccountID = s.AccountID
			ev.From = s.From
			ev.To = s.To
		} else if owned, ok, err := h.Numbers.FindByNumber(c.Request.Context(), form.To); err == nil && ok {
			ev.AccountID = owned.AccountID
		}

		if ev.AccountID == "" {
			log.Warn("dial-action recording unattributable, discarded", "recording_sid", form.RecordingSid)
		} else if _, err := h.Voicemails.RecordAction(c.Request.Context(), ev); err != nil {
			log.Error("dial-action voicemail capture failed", "recording_sid", form.RecordingSid, "err", err)
		}
	}

	// The dialed leg already ended; nothing more to do on this call.
	h.answer(c, telephony.AnswerPlan{Action: telephony.AnswerActionHangup})
}

// HandleRecordingStatus finalizes a voicemail's duration (phase 2).
func (h *Handlers) HandleRecordingStatus(c *gin.Context) {
	log := logger.FromGin(c)
	utils.WebhookEventsTotal.WithLabelValues("recording-status").Inc()

	form, err := ParseRecordingStatusForm(c.Request)
	if err != nil {
		log.Warn("recording-status parse failed", "err", err)
		c.String(http.StatusOK, "ok")
		return
	}

	if err := h.Voicemails.RecordStatus(c.Request.Context(), voicemail.StatusEvent{
		RecordingSid:    form.RecordingSid,
		RecordingURL:    form.RecordingURL,
		DurationSeconds: form.DurationSeconds,
		Status:          form.RecordingStatus,
	}); err != nil {
		log.Error("recording-status processing failed", "recording_sid", form.RecordingSid, "err", err)
	}
	c.String(http.StatusOK, "ok")
}

// HandleMessage ingests inbound SMS.
func (h *Handlers) HandleMessage(c *gin.Context) {
	log := logger.FromGin(c)
	utils.WebhookEventsTotal.WithLabelValues("sms").Inc()

	form, err := ParseMessageForm(c.Request)
	if err != nil {
		log.Warn("sms webhook parse failed", "err", err)
		c.String(http.StatusOK, "ok")
		return
	}

	if _, _, err := h.Messages.ReceiveInbound(c.Request.Context(), sms.InboundEvent{
		ExternalMessageID: form.MessageSid,
		From:              form.From,
		To:                form.To,
		Body:              form.Body,
	}); err != nil {
		log.Error("sms webhook processing failed", "message_sid", form.MessageSid, "err", err)
	}
	c.String(http.StatusOK, "ok")
}

func (h *Handlers) answer(c *gin.Context, plan telephony.AnswerPlan) {
	xml, err := telephony.RenderTwiML(plan)
	if err != nil {
		logger.FromGin(c).Error("twiml render failed", "err", err)
		c.String(http.StatusOK, "")
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, xml)
}
