package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"tgforward/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.forwards.jsonl (append-only JSON Lines audit log)
//   - <prefix>.chats.json     (chat directory snapshot)
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	forwardFile *os.File

	chatsPath string
	chats     map[int64]ChatEntry
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	ff, err := os.OpenFile(prefix+".forwards.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	chatsPath := prefix + ".chats.json"
	chats := map[int64]ChatEntry{}
	if err := loadChatsSnapshot(chatsPath, chats); err != nil {
		log.Debug("chat snapshot not loaded", logx.String("path", chatsPath), logx.Err(err))
	}

	return &fileStore{
		log:         log,
		forwardFile: ff,
		chatsPath:   chatsPath,
		chats:       chats,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forwardFile != nil {
		err := s.forwardFile.Close()
		s.forwardFile = nil
		return err
	}
	return nil
}

func (s *fileStore) AppendForward(ctx context.Context, e ForwardEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forwardFile == nil {
		return errors.New("forward log closed")
	}
	return json.NewEncoder(s.forwardFile).Encode(e)
}

func (s *fileStore) UpsertChats(ctx context.Context, chats []ChatEntry) error {
	_ = ctx
	if len(chats) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chats == nil {
		s.chats = map[int64]ChatEntry{}
	}
	for _, c := range chats {
		s.chats[c.ID] = c
	}
	return s.writeChatsSnapshotLocked()
}

func (s *fileStore) ListChats(ctx context.Context) ([]ChatEntry, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatEntry, 0, len(s.chats))
	for _, c := range s.chats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// writeChatsSnapshotLocked rewrites the snapshot atomically
// (tmp + rename) so a crash mid-write never corrupts the directory.
func (s *fileStore) writeChatsSnapshotLocked() error {
	tmp := s.chatsPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	list := make([]ChatEntry, 0, len(s.chats))
	for _, c := range s.chats {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.chatsPath)
}

func loadChatsSnapshot(path string, into map[int64]ChatEntry) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var list []ChatEntry
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	for _, c := range list {
		into[c.ID] = c
	}
	return nil
}
