package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only include primitives we need at the adapter boundary.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlReject struct {
	XMLName xml.Name `xml:"Reject"`
	Reason  string   `xml:"reason,attr,omitempty"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlDial struct {
	XMLName xml.Name `xml:"Dial"`
	Action  string   `xml:"action,attr,omitempty"`
	Timeout int      `xml:"timeout,attr,omitempty"`
	Number  string   `xml:"Number,omitempty"`
}

type twimlRecord struct {
	XMLName                 xml.Name `xml:"Record"`
	Action                  string   `xml:"action,attr,omitempty"`
	RecordingStatusCallback string   `xml:"recordingStatusCallback,attr,omitempty"`
	MaxLength               int      `xml:"maxLength,attr,omitempty"`
	PlayBeep                bool     `xml:"playBeep,attr"`
}

// AnswerAction describes what should happen to an inbound call.
type AnswerAction string

const (
	AnswerActionReject    AnswerAction = "reject"
	AnswerActionHangup    AnswerAction = "hangup"
	AnswerActionDial      AnswerAction = "dial"
	AnswerActionVoicemail AnswerAction = "voicemail"
)

// AnswerPlan is the adapter-boundary decision for an inbound call.
type AnswerPlan struct {
	Action AnswerAction

	// DialTo is required for the dial action.
	DialTo string

	// DialActionURL receives the dial outcome; unanswered legs fall
	// through to voicemail from there.
	DialActionURL string
	DialTimeout   int

	// Voicemail settings, used by the voicemail action.
	VoicemailPrompt    string
	RecordingStatusURL string
	MaxRecordSeconds   int
}

// RenderTwiML maps an AnswerPlan to TwiML.
func RenderTwiML(plan AnswerPlan) (string, error) {
	var r twimlResponse

	switch plan.Action {
	case AnswerActionReject:
		r.Verbs = append(r.Verbs, twimlReject{Reason: "busy"})
	case AnswerActionHangup:
		r.Verbs = append(r.Verbs, twimlHangup{})
	case AnswerActionDial:
		if strings.TrimSpace(plan.DialTo) == "" {
			return "", errors.New("telephony: dial_to required for dial action")
		}
		timeout := plan.DialTimeout
		if timeout <= 0 {
			timeout = 20
		}
		r.Verbs = append(r.Verbs, twimlDial{
			Action:  plan.DialActionURL,
			Timeout: timeout,
			Number:  plan.DialTo,
		})
	case AnswerActionVoicemail:
		prompt := plan.VoicemailPrompt
		if prompt == "" {
			prompt = "The person you are calling is unavailable. Please leave a message after the beep."
		}
		maxLen := plan.MaxRecordSeconds
		if maxLen <= 0 {
			maxLen = 120
		}
		r.Verbs = append(r.Verbs,
			twimlSay{Text: prompt},
			twimlRecord{
				Action:                  plan.DialActionURL,
				RecordingStatusCallback: plan.RecordingStatusURL,
				MaxLength:               maxLen,
				PlayBeep:                true,
			},
			twimlHangup{},
		)
	default:
		return "", errors.New("telephony: unknown answer action")
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
