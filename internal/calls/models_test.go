package calls

import "testing"

func TestCanTransition_Forward(t *testing.T) {
	if !CanTransition(StatusInitiated, StatusRinging) {
		t.Fatalf("initiated -> ringing must be allowed")
	}
	if !CanTransition(StatusRinging, StatusInProgress) {
		t.Fatalf("ringing -> in_progress must be allowed")
	}
	if !CanTransition(StatusInProgress, StatusCompleted) {
		t.Fatalf("in_progress -> completed must be allowed")
	}
	if !CanTransition(StatusRinging, StatusBusy) {
		t.Fatalf("ringing -> busy must be allowed")
	}
	if !CanTransition(StatusInitiated, StatusCanceled) {
		t.Fatalf("initiated -> canceled must be allowed")
	}
	// First observed event for a reconstructed session may be terminal.
	if !CanTransition(StatusInitiated, StatusBusy) {
		t.Fatalf("initiated -> busy must be allowed")
	}
}

func TestCanTransition_Backward(t *testing.T) {
	if CanTransition(StatusInProgress, StatusRinging) {
		t.Fatalf("in_progress -> ringing must be rejected")
	}
	if CanTransition(StatusCompleted, StatusRinging) {
		t.Fatalf("completed -> ringing must be rejected")
	}
	if CanTransition(StatusRinging, StatusRinging) {
		t.Fatalf("repeated ringing must be rejected")
	}
	// Terminal states absorb everything, including other terminals.
	if CanTransition(StatusBusy, StatusCompleted) {
		t.Fatalf("busy -> completed must be rejected")
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusBusy, StatusNoAnswer, StatusFailed, StatusCanceled} {
		if !s.IsTerminal() {
			t.Fatalf("%s must be terminal", s)
		}
	}
	for _, s := range []Status{StatusInitiated, StatusRinging, StatusInProgress} {
		if s.IsTerminal() {
			t.Fatalf("%s must not be terminal", s)
		}
	}
}

func TestParseProviderStatus(t *testing.T) {
	if s, ok := ParseProviderStatus("no-answer"); !ok || s != StatusNoAnswer {
		t.Fatalf("expected no_answer, got %q ok=%v", s, ok)
	}
	if s, ok := ParseProviderStatus("in-progress"); !ok || s != StatusInProgress {
		t.Fatalf("expected in_progress, got %q ok=%v", s, ok)
	}
	if s, ok := ParseProviderStatus("queued"); !ok || s != StatusInitiated {
		t.Fatalf("expected initiated, got %q ok=%v", s, ok)
	}
	if _, ok := ParseProviderStatus("garbage"); ok {
		t.Fatalf("unknown status must not parse")
	}
}
