package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher/callback"
	larkcontact "github.com/larksuite/oapi-sdk-go/v3/service/contact/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"github.com/rs/zerolog"
)

// Message is a received text message
type Message struct {
	ChatID     string
	MsgID      string
	ChatType   string // p2p, group
	Text       string
	ParentID   string // message this one replies to, empty if none
	CreateTime int64  // milliseconds Unix timestamp
	Sender     *Sender
}

// Sender is the message sender
type Sender struct {
	SenderID   string
	SenderType string // user, app
	Name       string
}

// SharedUser is a forwarded contact (share_user message)
type SharedUser struct {
	ChatID   string
	ChatType string
	Sender   *Sender
	UserID   string // the shared contact, not the sender
	Name     string // display name of the shared contact, best effort
}

// CardPress is a button press on an interactive card
type CardPress struct {
	ChatID     string
	MsgID      string // card message the button lives on
	OperatorID string
	Payload    string
}

// Button is one card button
type Button struct {
	Label   string
	Payload string
}

// Client wraps the Lark SDK: WebSocket events in, messages and
// interactive cards out.
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	ctx       context.Context
	cancel    context.CancelFunc

	onMessage    func(*Message)
	onSharedUser func(*SharedUser)
	onCardPress  func(*CardPress)

	// events are acked to the SDK immediately and processed in arrival
	// order by a single worker goroutine
	pending    chan func()
	workerDone chan struct{}

	// prompt text per card message id, kept so RemoveKeyboard can
	// rebuild the card without its buttons
	promptMu    sync.Mutex
	promptTexts map[string]string

	// display-name cache, open_id -> name
	nameMu sync.Mutex
	names  map[string]string

	log zerolog.Logger
}

// NewClient creates a Lark client.
func NewClient(appID, appSecret string, log zerolog.Logger) *Client {
	return &Client{
		appID:       appID,
		appSecret:   appSecret,
		pending:     make(chan func(), 64),
		promptTexts: make(map[string]string),
		names:       make(map[string]string),
		log:         log,
	}
}

// OnMessage sets the text message handler.
func (c *Client) OnMessage(handler func(*Message)) {
	c.onMessage = handler
}

// OnSharedUser sets the forwarded-contact handler.
func (c *Client) OnSharedUser(handler func(*SharedUser)) {
	c.onSharedUser = handler
}

// OnCardPress sets the button press handler.
func (c *Client) OnCardPress(handler func(*CardPress)) {
	c.onCardPress = handler
}

// Start connects via WebSocket and blocks listening for events.
func (c *Client) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.startWorker()

	c.larkCli = lark.NewClient(c.appID, c.appSecret)

	// Handlers must return quickly so the SDK can ACK; events are queued
	// for the worker, which keeps arrival order.
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			c.dispatchAsync(func() { c.handleMessage(event) })
			return nil
		}).
		OnP2CardActionTrigger(func(ctx context.Context, event *callback.CardActionTriggerEvent) (*callback.CardActionTriggerResponse, error) {
			c.dispatchAsync(func() { c.handleCardAction(event) })
			return &callback.CardActionTriggerResponse{}, nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelWarn),
	)

	c.log.Info().Msg("starting WebSocket connection")
	return c.wsCli.Start(c.ctx)
}

// Stop disconnects and waits for the worker to finish the events it
// already accepted, so callers can safely tear down downstream
// consumers afterwards.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.workerDone != nil {
		<-c.workerDone
	}
}

// startWorker runs the single goroutine that invokes the registered
// handlers, preserving event arrival order.
func (c *Client) startWorker() {
	c.workerDone = make(chan struct{})
	go func() {
		defer close(c.workerDone)
		for {
			// Drain accepted events before honoring cancellation.
			select {
			case fn := <-c.pending:
				fn()
				continue
			default:
			}
			select {
			case fn := <-c.pending:
				fn()
			case <-c.ctx.Done():
				return
			}
		}
	}()
}

// dispatchAsync queues an event for the worker. After Stop it becomes a
// no-op instead of blocking or panicking on a torn-down pipeline.
func (c *Client) dispatchAsync(fn func()) {
	select {
	case c.pending <- fn:
	case <-c.ctx.Done():
	}
}

// handleMessage converts an inbound message event.
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	rawMsg := event.Event.Message
	if rawMsg == nil {
		return
	}

	// Ignore the bot's own messages to avoid feedback loops
	if event.Event.Sender != nil && event.Event.Sender.SenderType != nil {
		if *event.Event.Sender.SenderType == "app" {
			return
		}
	}

	sender := c.parseSender(event)
	chatType := ""
	if rawMsg.ChatType != nil {
		chatType = *rawMsg.ChatType
	}

	switch deref(rawMsg.MessageType) {
	case "text":
		msg := &Message{
			ChatID:   deref(rawMsg.ChatId),
			MsgID:    deref(rawMsg.MessageId),
			ChatType: chatType,
			ParentID: deref(rawMsg.ParentId),
			Sender:   sender,
			Text:     parseTextContent(deref(rawMsg.Content)),
		}
		if rawMsg.CreateTime != nil {
			if ts, err := strconv.ParseInt(*rawMsg.CreateTime, 10, 64); err == nil {
				msg.CreateTime = ts
			}
		}
		if c.onMessage != nil {
			c.onMessage(msg)
		}

	case "share_user":
		userID := parseSharedUserContent(deref(rawMsg.Content))
		if userID == "" {
			return
		}
		shared := &SharedUser{
			ChatID:   deref(rawMsg.ChatId),
			ChatType: chatType,
			Sender:   sender,
			UserID:   userID,
			Name:     c.resolveName(userID),
		}
		if c.onSharedUser != nil {
			c.onSharedUser(shared)
		}

	default:
		c.log.Debug().Str("msg_type", deref(rawMsg.MessageType)).Msg("ignoring unsupported message type")
	}
}

// handleCardAction converts a card button press.
func (c *Client) handleCardAction(event *callback.CardActionTriggerEvent) {
	if event.Event == nil || event.Event.Action == nil {
		return
	}

	payload := ""
	if v, ok := event.Event.Action.Value["cmd"]; ok {
		payload, _ = v.(string)
	}
	if payload == "" {
		return
	}

	press := &CardPress{Payload: payload}
	if event.Event.Operator != nil {
		press.OperatorID = event.Event.Operator.OpenID
	}
	if event.Event.Context != nil {
		press.MsgID = event.Event.Context.OpenMessageID
		press.ChatID = event.Event.Context.OpenChatID
	}

	if c.onCardPress != nil {
		c.onCardPress(press)
	}
}

func (c *Client) parseSender(event *larkim.P2MessageReceiveV1) *Sender {
	if event.Event.Sender == nil {
		return nil
	}
	sender := &Sender{}
	if event.Event.Sender.SenderId != nil && event.Event.Sender.SenderId.OpenId != nil {
		sender.SenderID = *event.Event.Sender.SenderId.OpenId
		sender.Name = c.resolveName(sender.SenderID)
	}
	if event.Event.Sender.SenderType != nil {
		sender.SenderType = *event.Event.Sender.SenderType
	}
	return sender
}

// SendText sends a plain text message and returns the created message id.
func (c *Client) SendText(ctx context.Context, chatID, text string) (string, error) {
	content, _ := json.Marshal(map[string]string{"text": text})

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("send message error: %s", resp.Msg)
	}

	return deref(resp.Data.MessageId), nil
}

// SendCard sends an interactive card with a button keyboard and returns
// the created message id.
func (c *Client) SendCard(ctx context.Context, chatID, text string, keyboard [][]Button) (string, error) {
	content, err := json.Marshal(buildCard(text, keyboard))
	if err != nil {
		return "", fmt.Errorf("encode card failed: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeInteractive).
			Content(string(content)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send card failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("send card error: %s", resp.Msg)
	}

	msgID := deref(resp.Data.MessageId)
	c.promptMu.Lock()
	c.promptTexts[msgID] = text
	c.promptMu.Unlock()
	return msgID, nil
}

// RemoveKeyboard patches a card message down to its text, dropping the
// buttons.
func (c *Client) RemoveKeyboard(ctx context.Context, msgID string) error {
	c.promptMu.Lock()
	text, ok := c.promptTexts[msgID]
	delete(c.promptTexts, msgID)
	c.promptMu.Unlock()
	if !ok {
		// Card sent by a previous process instance; nothing to rebuild
		// the text from, leave it as is.
		return nil
	}

	content, err := json.Marshal(buildCard(text, nil))
	if err != nil {
		return fmt.Errorf("encode card failed: %w", err)
	}

	req := larkim.NewPatchMessageReqBuilder().
		MessageId(msgID).
		Body(larkim.NewPatchMessageReqBodyBuilder().
			Content(string(content)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Patch(ctx, req)
	if err != nil {
		return fmt.Errorf("patch card failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("patch card error: %s", resp.Msg)
	}
	return nil
}

// GetUserName resolves a display name for an open_id, with caching.
func (c *Client) GetUserName(ctx context.Context, openID string) (string, error) {
	if name := c.cachedName(openID); name != "" {
		return name, nil
	}

	req := larkcontact.NewGetUserReqBuilder().
		UserId(openID).
		UserIdType("open_id").
		Build()

	resp, err := c.larkCli.Contact.User.Get(ctx, req)
	if err != nil {
		return "", fmt.Errorf("get user failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("get user error: %s", resp.Msg)
	}
	if resp.Data == nil || resp.Data.User == nil {
		return "", nil
	}

	name := deref(resp.Data.User.Name)
	c.cacheName(openID, name)
	return name, nil
}

// GetMessageSender fetches the author of an existing message, used by
// the group-chat reply-to add-admin flow.
func (c *Client) GetMessageSender(ctx context.Context, msgID string) (*Sender, error) {
	req := larkim.NewGetMessageReqBuilder().
		MessageId(msgID).
		Build()

	resp, err := c.larkCli.Im.Message.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get message failed: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get message error: %s", resp.Msg)
	}
	if resp.Data == nil || len(resp.Data.Items) == 0 || resp.Data.Items[0].Sender == nil {
		return nil, fmt.Errorf("message %s has no sender", msgID)
	}

	raw := resp.Data.Items[0].Sender
	sender := &Sender{
		SenderID:   deref(raw.Id),
		SenderType: deref(raw.SenderType),
	}
	sender.Name = c.resolveName(sender.SenderID)
	return sender, nil
}

// resolveName is GetUserName without error surfacing; transport
// handlers use it where a missing name is acceptable.
func (c *Client) resolveName(openID string) string {
	if openID == "" {
		return ""
	}
	name, err := c.GetUserName(context.Background(), openID)
	if err != nil {
		c.log.Debug().Err(err).Str("open_id", openID).Msg("name resolution failed")
		return ""
	}
	return name
}

func (c *Client) cachedName(openID string) string {
	c.nameMu.Lock()
	defer c.nameMu.Unlock()
	return c.names[openID]
}

func (c *Client) cacheName(openID, name string) {
	if name == "" {
		return
	}
	c.nameMu.Lock()
	defer c.nameMu.Unlock()
	c.names[openID] = name
}

// buildCard assembles the interactive card JSON: one text block, then
// one action block per keyboard row.
func buildCard(text string, keyboard [][]Button) map[string]any {
	elements := []any{
		map[string]any{
			"tag":  "div",
			"text": map[string]any{"tag": "plain_text", "content": text},
		},
	}
	for _, row := range keyboard {
		actions := make([]any, 0, len(row))
		for _, btn := range row {
			actions = append(actions, map[string]any{
				"tag":   "button",
				"text":  map[string]any{"tag": "plain_text", "content": btn.Label},
				"type":  "default",
				"value": map[string]any{"cmd": btn.Payload},
			})
		}
		elements = append(elements, map[string]any{
			"tag":     "action",
			"actions": actions,
		})
	}
	return map[string]any{
		"config":   map[string]any{"wide_screen_mode": true},
		"elements": elements,
	}
}

func parseTextContent(content string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return parsed.Text
}

func parseSharedUserContent(content string) string {
	var parsed struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return parsed.UserID
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
