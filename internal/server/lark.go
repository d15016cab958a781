package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anthropics/feishu-reply-bot/internal/biz/domain"
	"github.com/anthropics/feishu-reply-bot/internal/infra/lark"
	"github.com/anthropics/feishu-reply-bot/internal/service"
)

// LarkServer feeds transport events into the dispatcher queue
type LarkServer struct {
	client     *lark.Client
	dispatcher *service.Dispatcher

	// message deduplication cache, msgID -> first seen
	seenMsgsMu sync.Mutex
	seenMsgs   map[string]time.Time

	log zerolog.Logger
}

// NewLarkServer creates the server.
func NewLarkServer(client *lark.Client, dispatcher *service.Dispatcher, log zerolog.Logger) *LarkServer {
	return &LarkServer{
		client:     client,
		dispatcher: dispatcher,
		seenMsgs:   make(map[string]time.Time),
		log:        log,
	}
}

// Start registers the transport handlers, starts the dispatcher loop
// and blocks on the WebSocket connection.
func (s *LarkServer) Start() error {
	s.dispatcher.Start()

	s.client.OnMessage(s.handleMessage)
	s.client.OnSharedUser(s.handleSharedUser)
	s.client.OnCardPress(s.handleCardPress)
	return s.client.Start()
}

// Stop disconnects the transport and drains the dispatcher.
func (s *LarkServer) Stop() {
	s.client.Stop()
	s.dispatcher.Stop()
}

func (s *LarkServer) handleMessage(msg *lark.Message) {
	if s.isMessageSeen(msg.MsgID) {
		s.log.Debug().Str("msg_id", msg.MsgID).Msg("duplicate message ignored")
		return
	}
	s.markMessageSeen(msg.MsgID)

	ev := &domain.Event{
		ID:   uuid.NewString(),
		Type: domain.EventText,
		Text: &domain.TextMessage{
			From:     senderIdentity(msg.Sender),
			ChatID:   msg.ChatID,
			ChatType: chatType(msg.ChatType),
			MsgID:    msg.MsgID,
			Text:     msg.Text,
			ReplyTo:  msg.ParentID,
		},
	}
	s.log.Debug().Str("event_id", ev.ID).Str("chat", msg.ChatID).Msg("text message received")
	s.dispatcher.Enqueue(ev)
}

func (s *LarkServer) handleSharedUser(shared *lark.SharedUser) {
	ev := &domain.Event{
		ID:   uuid.NewString(),
		Type: domain.EventForward,
		Forward: &domain.ForwardedIdentity{
			From:     senderIdentity(shared.Sender),
			Shared:   domain.Identity{ID: shared.UserID, Name: shared.Name},
			ChatID:   shared.ChatID,
			ChatType: chatType(shared.ChatType),
		},
	}
	s.log.Debug().Str("event_id", ev.ID).Str("chat", shared.ChatID).Msg("forwarded contact received")
	s.dispatcher.Enqueue(ev)
}

func (s *LarkServer) handleCardPress(press *lark.CardPress) {
	ev := &domain.Event{
		ID:   uuid.NewString(),
		Type: domain.EventPress,
		Press: &domain.ButtonPress{
			From:    domain.Identity{ID: press.OperatorID},
			ChatID:  press.ChatID,
			MsgID:   press.MsgID,
			Payload: press.Payload,
		},
	}
	s.log.Debug().Str("event_id", ev.ID).Str("payload", press.Payload).Msg("button press received")
	s.dispatcher.Enqueue(ev)
}

func senderIdentity(sender *lark.Sender) domain.Identity {
	if sender == nil {
		return domain.Identity{}
	}
	return domain.Identity{ID: sender.SenderID, Name: sender.Name}
}

func chatType(raw string) domain.ChatType {
	if raw == "group" {
		return domain.ChatTypeGroup
	}
	return domain.ChatTypeP2P
}

// isMessageSeen checks if a message has been processed.
func (s *LarkServer) isMessageSeen(msgID string) bool {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	_, exists := s.seenMsgs[msgID]
	return exists
}

// markMessageSeen marks a message as processed and expires records
// older than five minutes.
func (s *LarkServer) markMessageSeen(msgID string) {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	s.seenMsgs[msgID] = time.Now()

	cutoff := time.Now().Add(-5 * time.Minute)
	for id, ts := range s.seenMsgs {
		if ts.Before(cutoff) {
			delete(s.seenMsgs, id)
		}
	}
}
