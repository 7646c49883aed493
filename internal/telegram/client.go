// Package telegram adapts a Telegram bot session to the provider.Client
// contract. The Bot API has no history fetch, so the adapter keeps its
// own view of the world: a long-poll update pump feeds a per-chat
// message backlog and a chat directory, and cursor reads are answered
// from that backlog.
package telegram

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"tgforward/internal/provider"
	"tgforward/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
	// Backlog caps retained messages per chat. Zero means a default
	// of 2048.
	Backlog int
}

// ChatSink receives directory entries as they are first seen or change.
// Used to persist the directory outside the adapter.
type ChatSink func(provider.Chat)

// Client implements provider.Client on top of telebot long polling.
type Client struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot

	runMu     sync.Mutex
	running   bool
	runCancel context.CancelFunc
	runWG     sync.WaitGroup

	// observed counts pumped updates; logged periodically instead of
	// per update.
	observed uint64

	mu      sync.Mutex
	dir     map[int64]provider.Chat
	backlog map[int64]*backlog
	sink    ChatSink
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:     cfg,
		log:     log,
		bot:     b,
		dir:     make(map[int64]provider.Chat),
		backlog: make(map[int64]*backlog),
	}, nil
}

// SetChatSink installs the directory persistence hook. Must be called
// before Start.
func (c *Client) SetChatSink(sink ChatSink) {
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()
}

// SeedChats preloads the directory, typically from persisted state, so
// title resolution works before the first update arrives.
func (c *Client) SeedChats(chats []provider.Chat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range chats {
		if ch.ID == 0 {
			continue
		}
		c.dir[ch.ID] = ch
	}
}

func (c *Client) Start(ctx context.Context) error {
	c.runMu.Lock()
	if c.running {
		c.runMu.Unlock()
		return nil
	}
	c.running = true
	rctx, cancel := context.WithCancel(ctx)
	c.runCancel = cancel
	c.runWG.Add(2)
	c.runMu.Unlock()

	// Periodic pump summary instead of per-update log lines.
	go func() {
		defer c.runWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-rctx.Done():
				return
			case <-ticker.C:
				if n := atomic.SwapUint64(&c.observed, 0); n > 0 {
					c.log.Debug("updates observed", logx.Uint64("count", n))
				}
			}
		}
	}()

	c.bot.Handle(tele.OnText, func(tc tele.Context) error {
		c.absorb(tc.Message())
		return nil
	})
	c.bot.Handle(tele.OnChannelPost, func(tc tele.Context) error {
		c.absorb(tc.Message())
		return nil
	})
	c.bot.Handle(tele.OnEdited, func(tc tele.Context) error {
		c.absorb(tc.Message())
		return nil
	})

	go func() {
		defer c.runWG.Done()
		go func() {
			<-rctx.Done()
			c.bot.Stop()
		}()
		c.log.Info("polling started")
		c.bot.Start() // blocks until Stop() called
	}()

	return nil
}

// Stop is a best-effort graceful stop. It never blocks shutdown for
// long on the Telegram long-poll.
func (c *Client) Stop(ctx context.Context) error {
	c.runMu.Lock()
	cancel := c.runCancel
	c.runCancel = nil
	wasRunning := c.running
	c.running = false
	c.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	if c.bot != nil {
		go c.bot.Stop()
	}

	done := make(chan struct{})
	go func() {
		c.runWG.Wait()
		close(done)
	}()

	// Grace window: keep shutdown snappy even if getUpdates is still
	// waiting out its long-poll timeout.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case <-done:
		c.log.Info("polling stopped")
		return nil
	case <-ctx.Done():
		c.log.Warn("telegram stop cancelled", logx.Err(ctx.Err()))
		return ctx.Err()
	case <-t.C:
		c.log.Warn("telegram stop grace elapsed, continuing shutdown")
		return nil
	}
}

// absorb records an update's chat into the directory and its text into
// the chat's backlog.
func (c *Client) absorb(m *tele.Message) {
	if m == nil || m.Chat == nil {
		return
	}
	atomic.AddUint64(&c.observed, 1)

	entry := provider.Chat{
		ID:       m.Chat.ID,
		Title:    chatTitle(m.Chat),
		Username: m.Chat.Username,
	}

	c.mu.Lock()
	changed := c.dir[entry.ID] != entry
	c.dir[entry.ID] = entry
	if m.Text != "" {
		bl := c.backlog[entry.ID]
		if bl == nil {
			bl = newBacklog(c.cfg.Backlog)
			c.backlog[entry.ID] = bl
		}
		bl.add(provider.Message{ID: m.ID, Text: m.Text})
	}
	sink := c.sink
	c.mu.Unlock()

	if changed && sink != nil {
		sink(entry)
	}
}

func chatTitle(ch *tele.Chat) string {
	if ch.Title != "" {
		return ch.Title
	}
	// Private chats carry names instead of a title.
	name := strings.TrimSpace(ch.FirstName + " " + ch.LastName)
	if name != "" {
		return name
	}
	return ch.Username
}

func (c *Client) IsAuthorized(ctx context.Context) bool {
	return c.bot != nil && c.bot.Me != nil
}

// Authorize is a no-op: bot tokens are validated when the session is
// created, there is no interactive login step.
func (c *Client) Authorize(ctx context.Context, phone, code string) error {
	if !c.IsAuthorized(ctx) {
		return provider.ErrNotAuthorized
	}
	return nil
}

func (c *Client) ListChats(ctx context.Context) ([]provider.Chat, error) {
	c.mu.Lock()
	out := make([]provider.Chat, 0, len(c.dir))
	for _, ch := range c.dir {
		out = append(out, ch)
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		ti, tj := strings.ToLower(out[i].Title), strings.ToLower(out[j].Title)
		if ti != tj {
			return ti < tj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Client) ResolveChatByTitle(ctx context.Context, title string) (int64, error) {
	want := strings.ToLower(strings.TrimSpace(title))
	if want == "" {
		return 0, provider.ErrChatNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.dir {
		if strings.ToLower(ch.Title) == want {
			return ch.ID, nil
		}
	}
	return 0, provider.ErrChatNotFound
}

func (c *Client) LatestMessageID(ctx context.Context, chatID int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bl := c.backlog[chatID]
	if bl == nil {
		return 0, nil
	}
	return bl.latestID(), nil
}

func (c *Client) FetchMessages(ctx context.Context, chatID int64, afterID int) ([]provider.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bl := c.backlog[chatID]
	if bl == nil {
		return nil, nil
	}
	return bl.after(afterID), nil
}

// recipient lets a raw chat_id string (numeric id or @username) be used
// as a telebot send target without constructing a fake Chat.
type recipient string

func (r recipient) Recipient() string { return string(r) }

func (c *Client) SendMessage(ctx context.Context, destination string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest := strings.TrimSpace(destination)
	if dest == "" {
		return errors.New("empty destination")
	}
	if _, err := strconv.ParseInt(dest, 10, 64); err != nil && !strings.HasPrefix(dest, "@") {
		// Bare channel usernames are accepted; the API wants them
		// prefixed.
		dest = "@" + dest
	}

	_, err := c.bot.Send(recipient(dest), text)
	if err != nil {
		var fe tele.FloodError
		if errors.As(err, &fe) {
			return &provider.FloodError{RetryAfter: time.Duration(fe.RetryAfter) * time.Second}
		}
	}
	return err
}
