package forward

import (
	"context"
	"strings"
	"sync"

	"tgforward/internal/provider"
)

// fakeClient is an in-memory provider.Client for engine tests.
type fakeClient struct {
	mu      sync.Mutex
	titles  map[string]int64 // lowercased title -> chat id
	latest  map[int64]int
	pinned  map[int64]bool // latest fixed by setLatest; addMessage won't advance it
	backlog map[int64][]provider.Message

	// sendScript, when set, decides the outcome of each SendMessage
	// call (called in order, with the 1-based attempt number per
	// destination payload pair not tracked; tests script per call).
	sendScript func(call int, dest, text string) error

	sent       []fakeSend
	fetchAfter []int // afterID of every FetchMessages call, in order
}

type fakeSend struct {
	Dest string
	Text string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		titles:  map[string]int64{},
		latest:  map[int64]int{},
		pinned:  map[int64]bool{},
		backlog: map[int64][]provider.Message{},
	}
}

func (f *fakeClient) addChat(title string, id int64) {
	f.mu.Lock()
	f.titles[strings.ToLower(title)] = id
	f.mu.Unlock()
}

func (f *fakeClient) addMessage(chatID int64, id int, text string) {
	f.mu.Lock()
	f.backlog[chatID] = append(f.backlog[chatID], provider.Message{ID: id, Text: text})
	// A chat whose latest id was pinned keeps it: messages staged above
	// the pin are "new arrivals" the job must fetch, not history.
	if !f.pinned[chatID] && id > f.latest[chatID] {
		f.latest[chatID] = id
	}
	f.mu.Unlock()
}

// setLatest pins the initial cursor position. Messages staged afterwards
// with higher ids stay above the pin, so a job seeding its cursor here
// will fetch them as one batch.
func (f *fakeClient) setLatest(chatID int64, id int) {
	f.mu.Lock()
	f.latest[chatID] = id
	f.pinned[chatID] = true
	f.mu.Unlock()
}

func (f *fakeClient) sentCopy() []fakeSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeSend(nil), f.sent...)
}

func (f *fakeClient) fetchAfterCopy() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.fetchAfter...)
}

func (f *fakeClient) IsAuthorized(ctx context.Context) bool { return true }

func (f *fakeClient) Authorize(ctx context.Context, phone, code string) error { return nil }

func (f *fakeClient) ListChats(ctx context.Context) ([]provider.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]provider.Chat, 0, len(f.titles))
	for title, id := range f.titles {
		out = append(out, provider.Chat{ID: id, Title: title})
	}
	return out, nil
}

func (f *fakeClient) ResolveChatByTitle(ctx context.Context, title string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.titles[strings.ToLower(strings.TrimSpace(title))]; ok {
		return id, nil
	}
	return 0, provider.ErrChatNotFound
}

func (f *fakeClient) LatestMessageID(ctx context.Context, chatID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest[chatID], nil
}

func (f *fakeClient) FetchMessages(ctx context.Context, chatID int64, afterID int) ([]provider.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchAfter = append(f.fetchAfter, afterID)
	var out []provider.Message
	for _, m := range f.backlog[chatID] {
		if m.ID > afterID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeClient) SendMessage(ctx context.Context, destination, text string) error {
	f.mu.Lock()
	call := len(f.sent)
	f.sent = append(f.sent, fakeSend{Dest: destination, Text: text})
	script := f.sendScript
	f.mu.Unlock()
	if script != nil {
		return script(call, destination, text)
	}
	return nil
}
