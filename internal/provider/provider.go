// Package provider defines the contract the forwarding core needs from
// a messaging backend: a chat directory, cursor-based history reads and
// outbound sends. The core never talks to Telegram directly; it only
// sees this interface, which keeps jobs testable against fakes.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrChatNotFound is returned by ResolveChatByTitle when no chat with a
// matching title is known.
var ErrChatNotFound = errors.New("chat not found")

// ErrNotAuthorized is returned by operations that require a live
// session when none has been established.
var ErrNotAuthorized = errors.New("provider not authorized")

// FloodError is a provider-signaled throttling condition. RetryAfter is
// the wait the provider demands before the next attempt.
type FloodError struct {
	RetryAfter time.Duration
}

func (e *FloodError) Error() string {
	return fmt.Sprintf("provider flood wait: retry after %s", e.RetryAfter)
}

// Message is one inbound message as the core sees it. ID ordering is
// the provider's ordering; the core only relies on "greater means newer
// within one chat".
type Message struct {
	ID   int
	Text string
}

// Chat is one directory entry.
type Chat struct {
	ID       int64
	Title    string
	Username string
}

// Client is the directory/session collaborator. Implementations must be
// safe for concurrent use: several forwarding jobs poll and send
// through one client.
type Client interface {
	// IsAuthorized reports whether a usable session exists.
	IsAuthorized(ctx context.Context) bool

	// Authorize establishes a session for providers that need an
	// interactive login. Providers with token-based sessions may return
	// nil without doing anything.
	Authorize(ctx context.Context, phone, code string) error

	// ListChats returns the known chat directory.
	ListChats(ctx context.Context) ([]Chat, error)

	// ResolveChatByTitle finds a chat id by case-insensitive exact
	// title match. Returns ErrChatNotFound when nothing matches.
	ResolveChatByTitle(ctx context.Context, title string) (int64, error)

	// LatestMessageID returns the newest known message id in a chat,
	// or 0 when the chat has no observed messages yet.
	LatestMessageID(ctx context.Context, chatID int64) (int, error)

	// FetchMessages returns all messages with id > afterID for the
	// chat, in ascending id order.
	FetchMessages(ctx context.Context, chatID int64, afterID int) ([]Message, error)

	// SendMessage delivers text to a destination (numeric chat id or
	// @username). A *FloodError signals throttling with a required wait.
	SendMessage(ctx context.Context, destination string, text string) error
}
