package webhook

import (
	"net/http"
	"strconv"
	"strings"
)

// Provider webhooks arrive as application/x-www-form-urlencoded with
// bit-exact field names. Parsing stays here, at the adapter boundary;
// business logic never touches the raw forms.

// CallStatusForm is the call-status callback.
type CallStatusForm struct {
	CallSid    string
	CallStatus string
	From       string
	To         string
	Direction  string

	// CallDuration (seconds) is only present on completed calls; some
	// provider API versions send it as Duration.
	DurationSeconds int
}

func ParseCallStatusForm(r *http.Request) (CallStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return CallStatusForm{}, err
	}
	f := CallStatusForm{
		CallSid:    r.PostFormValue("CallSid"),
		CallStatus: r.PostFormValue("CallStatus"),
		From:       normalizePhone(r.PostFormValue("From")),
		To:         normalizePhone(r.PostFormValue("To")),
		Direction:  r.PostFormValue("Direction"),
	}
	raw := r.PostFormValue("CallDuration")
	if raw == "" {
		raw = r.PostFormValue("Duration")
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		f.DurationSeconds = n
	}
	return f, nil
}

// VoiceForm is the initial inbound-call callback that expects a TwiML
// answer.
type VoiceForm struct {
	CallSid string
	From    string
	To      string
}

func ParseVoiceForm(r *http.Request) (VoiceForm, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceForm{}, err
	}
	return VoiceForm{
		CallSid: r.PostFormValue("CallSid"),
		From:    normalizePhone(r.PostFormValue("From")),
		To:      normalizePhone(r.PostFormValue("To")),
	}, nil
}

// DialActionForm is the dial-outcome callback. When the dialed leg went
// unanswered and a recording was captured, the recording fields are set;
// RecordingDuration here is unreliable and ignored in favor of the
// recording-status callback.
type DialActionForm struct {
	CallSid        string
	From           string
	To             string
	DialCallStatus string
	RecordingSid   string
	RecordingURL   string
}

func ParseDialActionForm(r *http.Request) (DialActionForm, error) {
	if err := r.ParseForm(); err != nil {
		return DialActionForm{}, err
	}
	return DialActionForm{
		CallSid:        r.PostFormValue("CallSid"),
		From:           normalizePhone(r.PostFormValue("From")),
		To:             normalizePhone(r.PostFormValue("To")),
		DialCallStatus: r.PostFormValue("DialCallStatus"),
		RecordingSid:   r.PostFormValue("RecordingSid"),
		RecordingURL:   r.PostFormValue("RecordingUrl"),
	}, nil
}

// RecordingStatusForm is the post-processing callback that carries the
// recording's true duration.
type RecordingStatusForm struct {
	RecordingSid    string
	RecordingURL    string
	RecordingStatus string
	DurationSeconds int
}

func ParseRecordingStatusForm(r *http.Request) (RecordingStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return RecordingStatusForm{}, err
	}
	f := RecordingStatusForm{
		RecordingSid:    r.PostFormValue("RecordingSid"),
		RecordingURL:    r.PostFormValue("RecordingUrl"),
		RecordingStatus: r.PostFormValue("RecordingStatus"),
	}
	if n, err := strconv.Atoi(r.PostFormValue("RecordingDuration")); err == nil && n >= 0 {
		f.DurationSeconds = n
	}
	return f, nil
}

// MessageForm is the inbound SMS callback.
type MessageForm struct {
	MessageSid string
	From       string
	To         string
	Body       string
}

func ParseMessageForm(r *http.Request) (MessageForm, error) {
	if err := r.ParseForm(); err != nil {
		return MessageForm{}, err
	}
	return MessageForm{
		MessageSid: r.PostFormValue("MessageSid"),
		From:       normalizePhone(r.PostFormValue("From")),
		To:         normalizePhone(r.PostFormValue("To")),
		Body:       r.PostFormValue("Body"),
	}, nil
}

func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	// The provider sometimes sends "anonymous" or empty; keep as-is.
	return s
}
