// Package console is the interactive operator surface: a small stdin
// menu for inspecting the chat directory and starting or stopping
// forwarding jobs.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"tgforward/internal/forward"
	"tgforward/internal/provider"
	"tgforward/internal/storage"
	"tgforward/pkg/logx"
)

// Deps carries the collaborators the menu drives.
type Deps struct {
	Client provider.Client
	Jobs   *forward.Registry
	Store  storage.Store // optional
	Log    logx.Logger

	// ChatsPath mirrors the chat listing to a file when non-empty.
	ChatsPath string

	// PollInterval is inherited by jobs started from the menu. Zero
	// falls back to the engine default.
	PollInterval time.Duration
}

type Menu struct {
	d Deps

	in  *bufio.Scanner
	out io.Writer
}

func New(d Deps, in io.Reader, out io.Writer) *Menu {
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	return &Menu{
		d:   d,
		in:  bufio.NewScanner(in),
		out: out,
	}
}

// Run drives the menu until the operator exits, input ends, or the
// context is cancelled. Forwarding jobs started here outlive the menu
// loop iteration; they stop with ctx or an explicit stop.
func (m *Menu) Run(ctx context.Context) error {
	if !m.d.Client.IsAuthorized(ctx) {
		return provider.ErrNotAuthorized
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, "1. List chats")
		fmt.Fprintln(m.out, "2. Start forwarding")
		fmt.Fprintln(m.out, "3. Stop a job")
		fmt.Fprintln(m.out, "4. Exit")

		choice, ok := m.prompt("Choose an option: ")
		if !ok {
			return nil
		}

		switch choice {
		case "1":
			m.listChats(ctx)
		case "2":
			m.startJob(ctx)
		case "3":
			m.stopJob()
		case "4", "q", "exit":
			return nil
		default:
			fmt.Fprintln(m.out, "Invalid choice.")
		}
	}
}

func (m *Menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *Menu) listChats(ctx context.Context) {
	chats, err := m.d.Client.ListChats(ctx)
	if err != nil {
		fmt.Fprintf(m.out, "Listing chats failed: %v\n", err)
		return
	}
	if len(chats) == 0 {
		fmt.Fprintln(m.out, "No chats known yet. The directory fills as messages arrive.")
		return
	}

	var sb strings.Builder
	for _, ch := range chats {
		line := fmt.Sprintf("Chat ID: %d, Title: %s", ch.ID, ch.Title)
		if ch.Username != "" {
			line += ", Username: @" + ch.Username
		}
		fmt.Fprintln(m.out, line)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	if m.d.ChatsPath != "" {
		if err := os.WriteFile(m.d.ChatsPath, []byte(sb.String()), 0o644); err != nil {
			fmt.Fprintf(m.out, "Saving chat list failed: %v\n", err)
		} else {
			fmt.Fprintf(m.out, "Chat list saved to %s\n", m.d.ChatsPath)
		}
	}

	if m.d.Store != nil {
		entries := make([]storage.ChatEntry, 0, len(chats))
		for _, ch := range chats {
			entries = append(entries, storage.ChatEntry{ID: ch.ID, Title: ch.Title, Username: ch.Username})
		}
		if err := m.d.Store.UpsertChats(ctx, entries); err != nil {
			m.d.Log.Warn("chat snapshot failed", logx.Err(err))
		}
	}
}

// startJob collects one round of forwarding configuration. Several
// categories may be selected at once; each starts as its own job, so
// they can be stopped independently later.
func (m *Menu) startJob(ctx context.Context) {
	all := forward.Categories()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = string(c)
	}
	raw, ok := m.prompt(fmt.Sprintf("Categories (comma-separated: %s): ", strings.Join(names, ", ")))
	if !ok {
		return
	}
	var cats []forward.Category
	seen := map[forward.Category]bool{}
	for _, s := range splitList(raw) {
		cat := forward.Category(strings.ToLower(s))
		if !cat.Valid() {
			fmt.Fprintf(m.out, "Unknown category %q.\n", s)
			return
		}
		if !seen[cat] {
			seen[cat] = true
			cats = append(cats, cat)
		}
	}
	if len(cats) == 0 {
		fmt.Fprintln(m.out, "No categories selected.")
		return
	}

	srcRaw, ok := m.prompt("Source chats (comma-separated ids or titles): ")
	if !ok {
		return
	}
	var sources []forward.ChatRef
	for _, s := range splitList(srcRaw) {
		sources = append(sources, forward.ChatRef(s))
	}

	dstRaw, ok := m.prompt("Destinations (comma-separated ids or @usernames): ")
	if !ok {
		return
	}
	destinations := splitList(dstRaw)

	var keywords []string
	if seen[forward.CategoryKeywords] {
		kwRaw, ok := m.prompt("Keywords (comma-separated, empty forwards everything): ")
		if !ok {
			return
		}
		keywords = splitList(kwRaw)
	}

	cdRaw, ok := m.prompt(`Cooldown (e.g. "10 minutes", empty for none): `)
	if !ok {
		return
	}
	cooldown := forward.ParseCooldown(cdRaw)
	if cdRaw != "" && cooldown == 0 {
		fmt.Fprintf(m.out, "Could not parse %q as a cooldown; continuing without one.\n", cdRaw)
	}

	for _, cat := range cats {
		pc := forward.PipelineConfig{
			Category:     cat,
			Sources:      sources,
			Destinations: destinations,
			Cooldown:     cooldown,
		}
		if cat == forward.CategoryKeywords {
			pc.Keywords = keywords
		}
		h, err := m.d.Jobs.Start(ctx, forward.JobConfig{
			PollInterval: m.d.PollInterval,
			Pipelines:    []forward.PipelineConfig{pc},
		})
		if err != nil {
			fmt.Fprintf(m.out, "Starting %s job failed: %v\n", cat, err)
			continue
		}
		fmt.Fprintf(m.out, "Job %d started (%s).\n", h, cat)
	}
}

func (m *Menu) stopJob() {
	infos := m.d.Jobs.List()
	if len(infos) == 0 {
		fmt.Fprintln(m.out, "No active jobs.")
		return
	}
	for _, info := range infos {
		cats := make([]string, len(info.Categories))
		for i, c := range info.Categories {
			cats[i] = string(c)
		}
		fmt.Fprintf(m.out, "Job %d: %s (started %s)\n", info.Handle, strings.Join(cats, ", "), info.StartedAt.Format("15:04:05"))
	}

	raw, ok := m.prompt("Job to stop: ")
	if !ok {
		return
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		fmt.Fprintf(m.out, "Not a job handle: %q.\n", raw)
		return
	}
	if err := m.d.Jobs.Cancel(forward.Handle(n)); err != nil {
		fmt.Fprintf(m.out, "Stopping job %d failed: %v\n", n, err)
		return
	}
	fmt.Fprintf(m.out, "Job %d stopped.\n", n)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
