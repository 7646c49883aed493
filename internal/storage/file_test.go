package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tgforward/pkg/logx"
)

func TestFileStoreForwardLog(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "fw")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	e := ForwardEntry{
		At:           time.Now(),
		Job:          1,
		Category:     "ethereum",
		ChatID:       -100123,
		MessageID:    42,
		Payload:      "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Destinations: 2,
		Failed:       1,
	}
	if err := st.AppendForward(ctx, e); err != nil {
		t.Fatalf("AppendForward: %v", err)
	}
	if err := st.AppendForward(ctx, e); err != nil {
		t.Fatalf("AppendForward: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "fw.forwards.jsonl"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var got ForwardEntry
		if err := json.Unmarshal(sc.Bytes(), &got); err != nil {
			t.Fatalf("bad jsonl line: %v", err)
		}
		if got.Payload != e.Payload || got.Failed != 1 {
			t.Fatalf("unexpected entry: %+v", got)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 audit lines, got %d", lines)
	}
}

func TestFileStoreChatDirectoryRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "fw")
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	now := time.Now().Truncate(time.Second)
	err = st.UpsertChats(ctx, []ChatEntry{
		{ID: 2, Title: "Beta", SeenAt: now},
		{ID: 1, Title: "Alpha", Username: "alpha_chat", SeenAt: now},
	})
	if err != nil {
		t.Fatalf("UpsertChats: %v", err)
	}
	// Upsert replaces by id.
	if err := st.UpsertChats(ctx, []ChatEntry{{ID: 2, Title: "Beta Renamed", SeenAt: now}}); err != nil {
		t.Fatalf("UpsertChats: %v", err)
	}
	_ = st.Close()

	// Reopen: directory survives the restart.
	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	chats, err := st2.ListChats(ctx)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats, got %d", len(chats))
	}
	if chats[0].ID != 1 || chats[0].Title != "Alpha" || chats[1].Title != "Beta Renamed" {
		t.Fatalf("unexpected directory: %+v", chats)
	}
}

func TestOpenDisabledAndUnknown(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{}, logx.Nop())
	if err != nil || st != nil {
		t.Fatalf("disabled storage should be (nil, nil), got (%v, %v)", st, err)
	}
	if _, err := Open(Config{Driver: "voodoo", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver must error")
	}
}
