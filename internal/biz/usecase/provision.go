package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/anthropics/feishu-reply-bot/internal/biz/domain"
	"github.com/anthropics/feishu-reply-bot/internal/biz/repo"
)

// Prompt texts for the add-command dialog.
const (
	promptNamespace = "Who should be able to answer to this command?"
	promptName      = "This will be a %q command. Now please reply to this message " +
		"with the command you'd like to add. It can't contain any space."
	promptNameTaken = "That command already exists. Please reply to the previous " +
		"message again with a different one, or reset the procedure with " +
		"/addcommand reset. You can also delete a command with /delcommand."
	promptNameSpaces = "The command contains spaces, which are not allowed. " +
		"Please reply to the previous message again."
	promptAnswer = "Alright, now reply to this message with the desired answer. " +
		"It can contain text and emojis, formatted as you wish."
	promptRecap = "Alright! Let's recap the new command.\n" +
		"Command type: %s\nCommand: /%s\nAnswer: %s\n" +
		"Do you want to commit this command?"
	noticeCommitted = "The command has been added!"
	noticeCancelled = "The command has not been added and the process has been reset."
	noticeReset     = "The process of adding a new command has been reset."
)

// NoticeBusy is the guidance sent when /addcommand arrives while a
// dialog is already in flight. Exported for the dispatcher.
const NoticeBusy = "A new command is already being added, please complete the " +
	"process or reset it with /addcommand reset."

// ProvisioningUsecase walks an admin through the add-command dialog.
// The process holds exactly one wizard slot; a second admin starting a
// dialog while one is in flight is told to finish or reset it. Runs on
// the dispatcher's single event loop.
type ProvisioningUsecase struct {
	commands  *CommandUsecase
	messenger repo.MessengerRepo

	wizard domain.Wizard

	log zerolog.Logger
}

// NewProvisioningUsecase creates the wizard holder with an idle slot.
func NewProvisioningUsecase(commands *CommandUsecase, messenger repo.MessengerRepo, log zerolog.Logger) *ProvisioningUsecase {
	return &ProvisioningUsecase{
		commands:  commands,
		messenger: messenger,
		log:       log,
	}
}

// Active reports whether a dialog is in flight.
func (uc *ProvisioningUsecase) Active() bool {
	return uc.wizard.Active()
}

// Targets reports whether a reply to msgID is aimed at the current
// prompt.
func (uc *ProvisioningUsecase) Targets(msgID string) bool {
	return uc.wizard.Targets(msgID)
}

// Start opens a new dialog with the namespace-choice prompt. Returns
// ErrWizardBusy while another dialog is in flight.
func (uc *ProvisioningUsecase) Start(ctx context.Context, chatID string) error {
	next, err := uc.wizard.Begin()
	if err != nil {
		return err
	}
	keyboard := [][]domain.Button{{
		{Label: "Admin", Payload: "ns:admin"},
		{Label: "User", Payload: "ns:user"},
	}}
	if _, err := uc.messenger.SendPrompt(ctx, chatID, promptNamespace, keyboard); err != nil {
		return fmt.Errorf("send namespace prompt: %w", err)
	}
	uc.wizard = next
	uc.log.Debug().Str("phase", uc.wizard.Phase.String()).Msg("wizard started")
	return nil
}

// Reset discards the dialog from any phase and notifies the chat.
func (uc *ProvisioningUsecase) Reset(ctx context.Context, chatID string) error {
	uc.wizard = uc.wizard.Reset()
	_, err := uc.messenger.SendText(ctx, chatID, noticeReset)
	return err
}

// HandleNamespace consumes the admin/user button press.
func (uc *ProvisioningUsecase) HandleNamespace(ctx context.Context, press *domain.ButtonPress, ns domain.Namespace) error {
	if uc.wizard.Phase != domain.PhaseAwaitNamespace || !ns.Valid() {
		return nil
	}
	if err := uc.messenger.RemoveKeyboard(ctx, press.MsgID); err != nil {
		uc.log.Warn().Err(err).Msg("remove namespace keyboard failed")
	}
	anchorID, err := uc.messenger.SendText(ctx, press.ChatID, fmt.Sprintf(promptName, ns))
	if err != nil {
		return fmt.Errorf("send name prompt: %w", err)
	}
	uc.wizard = uc.wizard.ChooseNamespace(ns, anchorID)
	uc.log.Debug().Str("phase", uc.wizard.Phase.String()).Str("namespace", string(ns)).Msg("namespace chosen")
	return nil
}

// HandleReply consumes a text message replying to the current anchor.
// Returns false when the message does not target the anchor, so the
// dispatcher can fall through to other classifications.
func (uc *ProvisioningUsecase) HandleReply(ctx context.Context, msg *domain.TextMessage) (bool, error) {
	if !uc.wizard.Targets(msg.ReplyTo) {
		return false, nil
	}

	switch uc.wizard.Phase {
	case domain.PhaseAwaitName:
		return true, uc.handleNameReply(ctx, msg)
	case domain.PhaseAwaitAnswer:
		return true, uc.handleAnswerReply(ctx, msg)
	}
	return false, nil
}

// handleNameReply validates the proposed name. A failure keeps the
// phase and anchor unchanged so the admin can reply to the same prompt
// again.
func (uc *ProvisioningUsecase) handleNameReply(ctx context.Context, msg *domain.TextMessage) error {
	if err := domain.ValidateCommandName(msg.Text); err != nil {
		_, err := uc.messenger.SendText(ctx, msg.ChatID, promptNameSpaces)
		return err
	}
	if uc.commands.Exists(msg.Text) {
		_, err := uc.messenger.SendText(ctx, msg.ChatID, promptNameTaken)
		return err
	}
	anchorID, err := uc.messenger.SendText(ctx, msg.ChatID, promptAnswer)
	if err != nil {
		return fmt.Errorf("send answer prompt: %w", err)
	}
	uc.wizard = uc.wizard.SetName(msg.Text, anchorID)
	uc.log.Debug().Str("phase", uc.wizard.Phase.String()).Str("command", msg.Text).Msg("name recorded")
	return nil
}

func (uc *ProvisioningUsecase) handleAnswerReply(ctx context.Context, msg *domain.TextMessage) error {
	next := uc.wizard.SetAnswer(msg.Text)
	recap := fmt.Sprintf(promptRecap, next.Namespace, next.PendingName, next.PendingAnswer)
	keyboard := [][]domain.Button{{
		{Label: "Yes", Payload: "commit"},
		{Label: "No", Payload: "no_commit"},
	}}
	if _, err := uc.messenger.SendPrompt(ctx, msg.ChatID, recap, keyboard); err != nil {
		return fmt.Errorf("send recap prompt: %w", err)
	}
	uc.wizard = next
	uc.log.Debug().Str("phase", uc.wizard.Phase.String()).Msg("answer recorded")
	return nil
}

// HandleDecision consumes the commit/no_commit button press. Commit
// writes the accumulated command through the store; either way the slot
// returns to idle.
func (uc *ProvisioningUsecase) HandleDecision(ctx context.Context, press *domain.ButtonPress, commit bool) error {
	if uc.wizard.Phase != domain.PhaseAwaitConfirm {
		return nil
	}
	if err := uc.messenger.RemoveKeyboard(ctx, press.MsgID); err != nil {
		uc.log.Warn().Err(err).Msg("remove confirm keyboard failed")
	}

	if !commit {
		uc.wizard = uc.wizard.Reset()
		_, err := uc.messenger.SendText(ctx, press.ChatID, noticeCancelled)
		return err
	}

	w := uc.wizard
	if err := uc.commands.Add(ctx, press.From, w.PendingName, w.PendingAnswer, w.Namespace); err != nil {
		// Keep prior store state authoritative; the dialog is over
		// either way.
		uc.wizard = uc.wizard.Reset()
		_, sendErr := uc.messenger.SendText(ctx, press.ChatID,
			fmt.Sprintf("The command could not be added: %v", err))
		if sendErr != nil {
			return sendErr
		}
		return err
	}
	uc.wizard = uc.wizard.Reset()
	_, err := uc.messenger.SendText(ctx, press.ChatID, noticeCommitted)
	return err
}
