package domain

// WizardPhase is the current step of the add-command dialog
type WizardPhase int

const (
	// PhaseIdle means no dialog is in flight
	PhaseIdle WizardPhase = iota
	// PhaseAwaitNamespace waits for the admin/user button choice
	PhaseAwaitNamespace
	// PhaseAwaitName waits for a reply carrying the command name
	PhaseAwaitName
	// PhaseAwaitAnswer waits for a reply carrying the answer text
	PhaseAwaitAnswer
	// PhaseAwaitConfirm waits for the commit/no_commit button choice
	PhaseAwaitConfirm
)

// String returns the phase name for logs.
func (p WizardPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitNamespace:
		return "awaiting_namespace_choice"
	case PhaseAwaitName:
		return "awaiting_command_name"
	case PhaseAwaitAnswer:
		return "awaiting_answer_text"
	case PhaseAwaitConfirm:
		return "awaiting_commit_confirmation"
	}
	return "unknown"
}

// Wizard is the add-command dialog state. It is a plain value: every
// transition takes the current state and returns the next one, so the
// holder decides where the state lives. The process keeps exactly one
// slot; distinct admins share it and coordinate out of band.
//
// Not persisted: a restart silently abandons an in-flight dialog.
type Wizard struct {
	Phase         WizardPhase
	AnchorID      string // outbound prompt the next reply must target
	Namespace     Namespace
	PendingName   string
	PendingAnswer string
}

// Active reports whether a dialog is in flight.
func (w Wizard) Active() bool {
	return w.Phase != PhaseIdle
}

// Targets reports whether a reply to msgID is aimed at the current prompt.
func (w Wizard) Targets(msgID string) bool {
	return msgID != "" && msgID == w.AnchorID
}

// Begin starts a new dialog. While one is already in flight the caller
// gets ErrWizardBusy and must finish or reset it first.
func (w Wizard) Begin() (Wizard, error) {
	if w.Active() {
		return w, ErrWizardBusy
	}
	return Wizard{Phase: PhaseAwaitNamespace}, nil
}

// ChooseNamespace records the namespace choice and the anchor of the
// "send the command name" prompt.
func (w Wizard) ChooseNamespace(ns Namespace, anchorID string) Wizard {
	w.Phase = PhaseAwaitName
	w.Namespace = ns
	w.AnchorID = anchorID
	return w
}

// SetName records the validated command name and the anchor of the
// "send the answer text" prompt.
func (w Wizard) SetName(name, anchorID string) Wizard {
	w.Phase = PhaseAwaitAnswer
	w.PendingName = name
	w.AnchorID = anchorID
	return w
}

// SetAnswer records the answer text and moves to the confirmation step.
func (w Wizard) SetAnswer(answer string) Wizard {
	w.Phase = PhaseAwaitConfirm
	w.PendingAnswer = answer
	return w
}

// Reset discards all accumulated fields and returns to idle.
func (w Wizard) Reset() Wizard {
	return Wizard{}
}
