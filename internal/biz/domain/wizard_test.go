package domain

import (
	"errors"
	"testing"
)

func TestWizard_FullWalk(t *testing.T) {
	var w Wizard
	if w.Active() {
		t.Fatal("expected zero wizard to be idle")
	}

	w, err := w.Begin()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Phase != PhaseAwaitNamespace {
		t.Fatalf("expected namespace phase, got %s", w.Phase)
	}

	w = w.ChooseNamespace(NamespaceUser, "msg-1")
	if w.Phase != PhaseAwaitName || !w.Targets("msg-1") {
		t.Fatalf("expected name phase anchored at msg-1, got %s/%s", w.Phase, w.AnchorID)
	}

	w = w.SetName("ping", "msg-2")
	if w.Phase != PhaseAwaitAnswer || !w.Targets("msg-2") {
		t.Fatalf("expected answer phase anchored at msg-2, got %s/%s", w.Phase, w.AnchorID)
	}
	if w.Targets("msg-1") {
		t.Error("expected old anchor to no longer match")
	}

	w = w.SetAnswer("pong!")
	if w.Phase != PhaseAwaitConfirm {
		t.Fatalf("expected confirm phase, got %s", w.Phase)
	}
	if w.Namespace != NamespaceUser || w.PendingName != "ping" || w.PendingAnswer != "pong!" {
		t.Error("expected accumulated fields to survive the walk")
	}

	w = w.Reset()
	if w.Active() || w.AnchorID != "" || w.PendingName != "" {
		t.Error("expected reset to discard everything")
	}
}

func TestWizard_BeginWhileBusy(t *testing.T) {
	w, err := Wizard{}.Begin()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := w.Begin(); !errors.Is(err, ErrWizardBusy) {
		t.Fatalf("expected ErrWizardBusy, got %v", err)
	}
}

func TestWizard_TargetsEmptyReply(t *testing.T) {
	var w Wizard
	if w.Targets("") {
		t.Error("expected empty reply target never to match")
	}
}
