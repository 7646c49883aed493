// Package app assembles the forwarder: config, logging, the Telegram
// client, storage, the job registry and the periodic activity report.
package app

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"tgforward/internal/config"
	"tgforward/internal/console"
	"tgforward/internal/forward"
	"tgforward/internal/provider"
	"tgforward/internal/storage"
	"tgforward/internal/telegram"
	"tgforward/pkg/logx"
)

// chatsFile is where the console's chat listing is mirrored on disk.
const chatsFile = "chats_of_my_account.txt"

const defaultReportCron = "0 * * * *"

type App struct {
	cfgm *config.Manager
	log  logx.Logger
	logs *logx.Service

	client *telegram.Client
	store  storage.Store
	gate   *forward.Gate
	jobs   *forward.Registry
	cron   *cron.Cron

	pollInterval time.Duration

	forwarded atomic.Uint64
	failed    atomic.Uint64
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	client, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		Backlog:     cfg.Telegram.Backlog,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg.Logging), client)
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{
		cfgm:   cfgm,
		log:    log,
		logs:   logSvc,
		client: client,
		gate:   forward.NewGate(),
	}

	if cfg.Storage != nil {
		busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return nil, err
		}
		st, err := storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		a.store = st
		if st != nil {
			log.Info("storage enabled", logx.String("driver", cfg.Storage.Driver))
		}
	}

	// Seed the chat directory from persisted state so title resolution
	// works before the first update arrives, and keep persisting
	// changes as they are observed.
	if a.store != nil {
		if chats, err := a.store.ListChats(context.Background()); err != nil {
			log.Warn("loading persisted chats failed", logx.Err(err))
		} else if len(chats) > 0 {
			seed := make([]provider.Chat, 0, len(chats))
			for _, ch := range chats {
				seed = append(seed, provider.Chat{ID: ch.ID, Title: ch.Title, Username: ch.Username})
			}
			client.SeedChats(seed)
			log.Info("chat directory seeded", logx.Int("chats", len(seed)))
		}
		client.SetChatSink(func(ch provider.Chat) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			entry := storage.ChatEntry{ID: ch.ID, Title: ch.Title, Username: ch.Username, SeenAt: time.Now().UTC()}
			if err := a.store.UpsertChats(ctx, []storage.ChatEntry{entry}); err != nil {
				log.Warn("persisting chat failed", logx.Int64("chat", ch.ID), logx.Err(err))
			}
		})
	}

	a.pollInterval, err = config.ParseDurationOrDefault("forward.poll_interval", cfg.Forward.PollInterval, 5*time.Second)
	if err != nil {
		return nil, err
	}

	disp := forward.NewDispatcher(client, cfg.Forward.SendRatePerSec, log.With(logx.String("comp", "dispatch")))
	a.jobs = forward.NewRegistry(client, a.gate, disp, log.With(logx.String("comp", "jobs")))
	a.jobs.SetEventSink(a.onForward)

	if cfg.Report != nil && cfg.Report.Enabled {
		spec := cfg.Report.Cron
		if spec == "" {
			spec = defaultReportCron
		}
		c := cron.New()
		if _, err := c.AddFunc(spec, a.report); err != nil {
			return nil, fmt.Errorf("report.cron: invalid %q: %w", spec, err)
		}
		a.cron = c
	}

	return a, nil
}

// onForward fans each forward event out to the counters and, when
// storage is enabled, the audit log.
func (a *App) onForward(ev forward.ForwardEvent) {
	a.forwarded.Add(1)
	if ev.Failed > 0 {
		a.failed.Add(1)
	}
	if a.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := a.store.AppendForward(ctx, storage.ForwardEntry{
		At:           ev.At,
		Job:          uint64(ev.Job),
		Category:     string(ev.Category),
		ChatID:       ev.ChatID,
		MessageID:    ev.MessageID,
		Payload:      ev.Payload,
		Destinations: ev.Destinations,
		Failed:       ev.Failed,
	})
	if err != nil {
		a.log.Warn("audit append failed", logx.Err(err))
	}
}

// report logs a periodic activity summary.
func (a *App) report() {
	sizes := a.gate.Sizes()
	tracked := 0
	for _, n := range sizes {
		tracked += n
	}
	a.log.Info("activity report",
		logx.Int("active_jobs", len(a.jobs.List())),
		logx.Uint64("forwarded", a.forwarded.Load()),
		logx.Uint64("send_failures", a.failed.Load()),
		logx.Int("tracked_payloads", tracked),
	)
}

func (a *App) Start(ctx context.Context) error {
	if err := a.client.Start(ctx); err != nil {
		return err
	}
	if a.cron != nil {
		a.cron.Start()
	}

	// Config watch: hot-apply logging changes; everything else takes a
	// restart (token and storage changes cannot be swapped live).
	sub := a.cfgm.Subscribe(1)
	go func() {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.logs.Apply(mapLoggingConfig(cfg.Logging))
				a.log.Info("logging config reloaded", logx.String("level", cfg.Logging.Level))
			}
		}
	}()
	go func() {
		if err := a.cfgm.Watch(ctx); err != nil && ctx.Err() == nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.log.Info("forwarder started")
	return nil
}

// RunConsole blocks in the operator menu until it exits or ctx is
// cancelled.
func (a *App) RunConsole(ctx context.Context, in io.Reader, out io.Writer) error {
	menu := console.New(console.Deps{
		Client:       a.client,
		Jobs:         a.jobs,
		Store:        a.store,
		Log:          a.log.With(logx.String("comp", "console")),
		ChatsPath:    chatsFile,
		PollInterval: a.pollInterval,
	}, in, out)
	return menu.Run(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	a.jobs.StopAll(ctx)
	if a.cron != nil {
		cronCtx := a.cron.Stop()
		select {
		case <-cronCtx.Done():
		case <-ctx.Done():
		}
	}
	err := a.client.Stop(ctx)
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if cerr := a.logs.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// PollInterval is the configured default between fetch cycles, exposed
// so job configs built elsewhere can inherit it.
func (a *App) PollInterval() time.Duration { return a.pollInterval }

func mapLoggingConfig(lc config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   lc.Level,
		Console: lc.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:     lc.Telegram.Enabled,
			Destination: lc.Telegram.Destination,
			MinLevel:    lc.Telegram.MinLevel,
			RatePerSec:  lc.Telegram.RatePerSec,
		},
	}
}
