package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/anthropics/feishu-reply-bot/internal/biz/domain"
	"github.com/anthropics/feishu-reply-bot/internal/biz/repo"
	"github.com/anthropics/feishu-reply-bot/internal/biz/usecase"
)

// Notices outside the provisioning dialog.
const (
	noticeGreeting = "Hello, %s!\nI'm a reply bot: I answer slash commands in " +
		"group chats from a table my admins maintain. If you're not an admin, " +
		"please don't send me private messages, I'm not instructed to handle them."
	noticeClaimed = "Congratulations %s! You are now my owner. " +
		"You can add new admins with the /addadmin command."
	noticeOwned          = "I'm sorry, but I already have an owner."
	noticeForwardContact = "Alright, now forward me the contact card of the " +
		"person you wish to add as an admin."
	noticeReplyToAdd = "To add an admin, reply to a message from the person " +
		"you wish to add with the /addadmin command."
	noticeAdminAdded    = "%s has been added as an admin!"
	noticeAlreadyAdmin  = "%s is already an admin."
	noticeAdminRemoved  = "%s has been removed from the admins."
	noticeWhichAdmin    = "Who would you like to remove?"
	noticeNoAdmins      = "There are no admins to remove."
	noticeWhichCommand  = "Which command do you wish to remove?"
	noticeNoCommands    = "There are no commands to remove."
	noticeCommandGone   = "The /%s command has been deleted."
	noticeReloaded      = "Commands reloaded."
	noticeWriteFailed   = "Sorry, something went wrong while saving. Nothing was changed."
)

const (
	payloadNamespace     = "ns:"
	payloadCommit        = "commit"
	payloadNoCommit      = "no_commit"
	payloadRemoveAdmin   = "remove_admin:"
	payloadRemoveCommand = "remove_command:"
)

// Dispatcher routes inbound events to the usecases. It consumes one
// event at a time on a single goroutine; that loop is the
// mutual-exclusion boundary for every store, so none of them locks.
type Dispatcher struct {
	perm      *usecase.PermissionUsecase
	commands  *usecase.CommandUsecase
	prov      *usecase.ProvisioningUsecase
	messenger repo.MessengerRepo

	queue chan *domain.Event
	done  chan struct{}

	log zerolog.Logger
}

// NewDispatcher wires the dispatcher. All collaborators are injected;
// nothing is looked up from globals.
func NewDispatcher(
	perm *usecase.PermissionUsecase,
	commands *usecase.CommandUsecase,
	prov *usecase.ProvisioningUsecase,
	messenger repo.MessengerRepo,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		perm:      perm,
		commands:  commands,
		prov:      prov,
		messenger: messenger,
		queue:     make(chan *domain.Event, 64),
		done:      make(chan struct{}),
		log:       log,
	}
}

// Enqueue hands an inbound event to the loop.
func (d *Dispatcher) Enqueue(ev *domain.Event) {
	d.queue <- ev
}

// Start runs the event loop.
func (d *Dispatcher) Start() {
	go func() {
		for ev := range d.queue {
			d.dispatch(ev)
		}
		close(d.done)
	}()
}

// Stop drains and stops the loop. Call after the transport has stopped
// producing events.
func (d *Dispatcher) Stop() {
	close(d.queue)
	<-d.done
}

func (d *Dispatcher) dispatch(ev *domain.Event) {
	ctx := domain.WithEventID(context.Background(), ev.ID)
	log := d.log.With().Str("event_id", ev.ID).Logger()

	switch ev.Type {
	case domain.EventText:
		d.handleText(ctx, log, ev.Text)
	case domain.EventPress:
		d.handlePress(ctx, log, ev.Press)
	case domain.EventForward:
		d.handleForward(ctx, log, ev.Forward)
	default:
		log.Warn().Str("type", string(ev.Type)).Msg("unknown event type")
	}
}

func (d *Dispatcher) handleText(ctx context.Context, log zerolog.Logger, msg *domain.TextMessage) {
	if msg == nil || msg.Text == "" {
		return
	}

	// A reply targeting the wizard anchor wins over every other
	// classification.
	if d.prov.Active() && msg.ReplyTo != "" && d.perm.IsAdmin(msg.From.ID) {
		handled, err := d.prov.HandleReply(ctx, msg)
		if err != nil {
			log.Error().Err(err).Msg("wizard reply failed")
		}
		if handled {
			return
		}
	}

	if !strings.HasPrefix(msg.Text, "/") {
		return
	}

	fields := strings.Fields(msg.Text)
	word := strings.TrimPrefix(fields[0], "/")
	// Group members may address a specific bot: /ping@MyBot
	if i := strings.Index(word, "@"); i >= 0 {
		word = word[:i]
	}
	if word == "" {
		return
	}

	switch word {
	case "start":
		d.handleStart(ctx, msg)
	case "claim":
		d.handleClaim(ctx, log, msg)
	case "reload":
		d.handleReload(ctx, log, msg)
	case "addcommand":
		d.handleAddCommand(ctx, log, msg, fields[1:])
	case "delcommand":
		d.handleDelCommand(ctx, log, msg)
	case "addadmin":
		d.handleAddAdmin(ctx, log, msg)
	case "deladmin":
		d.handleDelAdmin(ctx, log, msg)
	default:
		d.handleLookup(ctx, log, msg, word)
	}
}

func (d *Dispatcher) handleStart(ctx context.Context, msg *domain.TextMessage) {
	if msg.ChatType != domain.ChatTypeP2P {
		return
	}
	d.reply(ctx, msg.ChatID, fmt.Sprintf(noticeGreeting, msg.From.Name))
}

func (d *Dispatcher) handleClaim(ctx context.Context, log zerolog.Logger, msg *domain.TextMessage) {
	if msg.ChatType != domain.ChatTypeP2P {
		return
	}
	err := d.perm.Claim(ctx, msg.From)
	switch {
	case err == nil:
		d.reply(ctx, msg.ChatID, fmt.Sprintf(noticeClaimed, msg.From.Name))
	case errors.Is(err, domain.ErrAlreadyOwned):
		d.reply(ctx, msg.ChatID, noticeOwned)
	default:
		log.Error().Err(err).Msg("claim failed")
		d.reply(ctx, msg.ChatID, noticeWriteFailed)
	}
}

func (d *Dispatcher) handleReload(ctx context.Context, log zerolog.Logger, msg *domain.TextMessage) {
	if msg.ChatType != domain.ChatTypeP2P {
		return
	}
	err := d.commands.Reload(ctx, msg.From)
	switch {
	case err == nil:
		d.reply(ctx, msg.ChatID, noticeReloaded)
	case errors.Is(err, domain.ErrUnauthorized):
		log.Debug().Str("user", msg.From.ID).Msg("reload denied")
	default:
		log.Error().Err(err).Msg("reload failed")
	}
}

func (d *Dispatcher) handleAddCommand(ctx context.Context, log zerolog.Logger, msg *domain.TextMessage, args []string) {
	if msg.ChatType != domain.ChatTypeP2P || !d.perm.IsAdmin(msg.From.ID) {
		return
	}
	if len(args) > 0 {
		if args[0] == "reset" {
			if err := d.prov.Reset(ctx, msg.ChatID); err != nil {
				log.Error().Err(err).Msg("wizard reset failed")
			}
		}
		return
	}
	err := d.prov.Start(ctx, msg.ChatID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrWizardBusy):
		d.reply(ctx, msg.ChatID, usecase.NoticeBusy)
	default:
		log.Error().Err(err).Msg("wizard start failed")
	}
}

func (d *Dispatcher) handleDelCommand(ctx context.Context, log zerolog.Logger, msg *domain.TextMessage) {
	if msg.ChatType != domain.ChatTypeP2P || !d.perm.IsAdmin(msg.From.ID) {
		return
	}
	names := d.commands.Names()
	if len(names) == 0 {
		d.reply(ctx, msg.ChatID, noticeNoCommands)
		return
	}
	buttons := make([]domain.Button, 0, len(names))
	for _, name := range names {
		buttons = append(buttons, domain.Button{
			Label:   "/" + name,
			Payload: payloadRemoveCommand + name,
		})
	}
	if _, err := d.messenger.SendPrompt(ctx, msg.ChatID, noticeWhichCommand, layoutRows(buttons, 4)); err != nil {
		log.Error().Err(err).Msg("send delcommand menu failed")
	}
}

func (d *Dispatcher) handleAddAdmin(ctx context.Context, log zerolog.Logger, msg *domain.TextMessage) {
	if !d.perm.IsOwner(msg.From.ID) {
		return
	}

	switch msg.ChatType {
	case domain.ChatTypeP2P:
		d.perm.MarkPendingPrivateAdd(msg.ChatID)
		d.reply(ctx, msg.ChatID, noticeForwardContact)

	case domain.ChatTypeGroup:
		if msg.ReplyTo == "" {
			d.reply(ctx, msg.ChatID, noticeReplyToAdd)
			return
		}
		newAdmin, err := d.messenger.MessageSender(ctx, msg.ReplyTo)
		if err != nil {
			log.Error().Err(err).Msg("resolve replied-to sender failed")
			return
		}
		d.addAdmin(ctx, log, msg.From, newAdmin, msg.ChatID)
	}
}

func (d *Dispatcher) handleDelAdmin(ctx context.Context, log zerolog.Logger, msg *domain.TextMessage) {
	if msg.ChatType != domain.ChatTypeP2P || !d.perm.IsOwner(msg.From.ID) {
		return
	}
	admins := d.perm.Admins()
	if len(admins) == 0 {
		d.reply(ctx, msg.ChatID, noticeNoAdmins)
		return
	}
	buttons := make([]domain.Button, 0, len(admins))
	for _, admin := range admins {
		label := admin.Name
		if label == "" {
			label = admin.ID
		}
		buttons = append(buttons, domain.Button{
			Label:   label,
			Payload: payloadRemoveAdmin + admin.ID,
		})
	}
	if _, err := d.messenger.SendPrompt(ctx, msg.ChatID, noticeWhichAdmin, layoutRows(buttons, 3)); err != nil {
		log.Error().Err(err).Msg("send deladmin menu failed")
	}
}

// handleLookup answers generic slash commands in group chats. Misses
// are logged and silently ignored, so typos and other bots' commands
// produce no noise.
func (d *Dispatcher) handleLookup(ctx context.Context, log zerolog.Logger, msg *domain.TextMessage, name string) {
	if msg.ChatType != domain.ChatTypeGroup {
		log.Debug().Str("command", name).Msg("ignoring slash command outside group chat")
		return
	}
	answer, ok := d.commands.Lookup(ctx, name, msg.From)
	if !ok {
		log.Warn().Str("command", name).Msg("command not found")
		return
	}
	d.reply(ctx, msg.ChatID, answer)
}

func (d *Dispatcher) handlePress(ctx context.Context, log zerolog.Logger, press *domain.ButtonPress) {
	if press == nil {
		return
	}
	if !d.perm.IsAdmin(press.From.ID) {
		log.Debug().Str("user", press.From.ID).Msg("button press from non-admin ignored")
		return
	}

	switch {
	case strings.HasPrefix(press.Payload, payloadNamespace):
		ns := domain.Namespace(strings.TrimPrefix(press.Payload, payloadNamespace))
		if err := d.prov.HandleNamespace(ctx, press, ns); err != nil {
			log.Error().Err(err).Msg("namespace choice failed")
		}

	case press.Payload == payloadCommit || press.Payload == payloadNoCommit:
		if err := d.prov.HandleDecision(ctx, press, press.Payload == payloadCommit); err != nil {
			log.Error().Err(err).Msg("commit decision failed")
		}

	case strings.HasPrefix(press.Payload, payloadRemoveAdmin):
		d.handleRemoveAdmin(ctx, log, press)

	case strings.HasPrefix(press.Payload, payloadRemoveCommand):
		d.handleRemoveCommand(ctx, log, press)

	default:
		log.Warn().Str("payload", press.Payload).Msg("unknown button payload")
	}
}

func (d *Dispatcher) handleRemoveAdmin(ctx context.Context, log zerolog.Logger, press *domain.ButtonPress) {
	if !d.perm.IsOwner(press.From.ID) {
		return
	}
	adminID := strings.TrimPrefix(press.Payload, payloadRemoveAdmin)
	if err := d.messenger.RemoveKeyboard(ctx, press.MsgID); err != nil {
		log.Warn().Err(err).Msg("remove keyboard failed")
	}
	name, err := d.perm.RemoveAdmin(ctx, press.From, adminID)
	switch {
	case err == nil:
		if name == "" {
			name = adminID
		}
		d.reply(ctx, press.ChatID, fmt.Sprintf(noticeAdminRemoved, name))
	case errors.Is(err, domain.ErrNotFound):
		log.Debug().Str("admin", adminID).Msg("admin already removed")
	default:
		log.Error().Err(err).Msg("remove admin failed")
		d.reply(ctx, press.ChatID, noticeWriteFailed)
	}
}

func (d *Dispatcher) handleRemoveCommand(ctx context.Context, log zerolog.Logger, press *domain.ButtonPress) {
	name := strings.TrimPrefix(press.Payload, payloadRemoveCommand)
	if err := d.messenger.RemoveKeyboard(ctx, press.MsgID); err != nil {
		log.Warn().Err(err).Msg("remove keyboard failed")
	}
	_, err := d.commands.Remove(ctx, press.From, name)
	switch {
	case err == nil:
		d.reply(ctx, press.ChatID, fmt.Sprintf(noticeCommandGone, name))
	case errors.Is(err, domain.ErrNotFound):
		log.Debug().Str("command", name).Msg("command already removed")
	default:
		log.Error().Err(err).Msg("remove command failed")
		d.reply(ctx, press.ChatID, noticeWriteFailed)
	}
}

// handleForward consumes a forwarded contact in a private chat where
// the owner has armed the add-admin flow. The one-shot flag is cleared
// on first consumption regardless of the outcome.
func (d *Dispatcher) handleForward(ctx context.Context, log zerolog.Logger, fwd *domain.ForwardedIdentity) {
	if fwd == nil || fwd.ChatType != domain.ChatTypeP2P {
		return
	}
	if !d.perm.ConsumePendingPrivateAdd(fwd.ChatID) {
		log.Debug().Str("chat", fwd.ChatID).Msg("forwarded contact without pending add, ignored")
		return
	}

	d.addAdmin(ctx, log, fwd.From, fwd.Shared, fwd.ChatID)
}

func (d *Dispatcher) addAdmin(ctx context.Context, log zerolog.Logger, actor, newAdmin domain.Identity, chatID string) {
	name := newAdmin.Name
	if name == "" {
		name = newAdmin.ID
	}
	err := d.perm.AddAdmin(ctx, actor, newAdmin)
	switch {
	case err == nil:
		d.reply(ctx, chatID, fmt.Sprintf(noticeAdminAdded, name))
	case errors.Is(err, domain.ErrAlreadyAdmin):
		d.reply(ctx, chatID, fmt.Sprintf(noticeAlreadyAdmin, name))
	default:
		log.Error().Err(err).Msg("add admin failed")
		d.reply(ctx, chatID, noticeWriteFailed)
	}
}

func (d *Dispatcher) reply(ctx context.Context, chatID, text string) {
	if _, err := d.messenger.SendText(ctx, chatID, text); err != nil {
		d.log.Error().Err(err).Str("chat", chatID).Msg("send reply failed")
	}
}

// layoutRows splits buttons into rows of at most perRow.
func layoutRows(buttons []domain.Button, perRow int) [][]domain.Button {
	var rows [][]domain.Button
	for len(buttons) > perRow {
		rows = append(rows, buttons[:perRow])
		buttons = buttons[perRow:]
	}
	if len(buttons) > 0 {
		rows = append(rows, buttons)
	}
	return rows
}
