package forward

import (
	"context"
	"sync"
	"time"

	"tgforward/internal/extract"
	"tgforward/internal/provider"
	"tgforward/pkg/logx"
)

// Job is one running forwarding state machine. It fans out into one
// goroutine per pipeline, and each pipeline into one goroutine per
// resolved source chat. run returns once every loop has observed
// cancellation; the registry removes the job only then.
type Job struct {
	handle    Handle
	cfg       JobConfig
	deps      deps
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	log       logx.Logger
}

// deps are the collaborators a job needs; bundled so the registry can
// hand them to every job it spawns.
type deps struct {
	client provider.Client
	gate   *Gate
	disp   *Dispatcher
	sink   EventSink
}

func (j *Job) run(ctx context.Context) {
	j.log.Info("job starting",
		logx.Int("pipelines", len(j.cfg.Pipelines)),
		logx.Duration("poll_interval", j.cfg.pollInterval()))

	var wg sync.WaitGroup
	for _, pc := range j.cfg.Pipelines {
		wg.Add(1)
		go func(pc PipelineConfig) {
			defer wg.Done()
			j.runPipeline(ctx, pc)
		}(pc)
	}
	wg.Wait()
	j.log.Info("job stopped")
}

// runPipeline is the Starting state: resolve source references, seed
// cursors at the newest existing message, then fan out polling loops.
// A source that fails resolution or cursor init is skipped with a log
// line; the pipeline carries on with the rest.
func (j *Job) runPipeline(ctx context.Context, pc PipelineConfig) {
	log := j.log.With(logx.String("category", string(pc.Category)))

	type source struct {
		chatID int64
		cursor int
	}
	var sources []source
	for _, ref := range pc.Sources {
		id, ok := ref.ID()
		if !ok {
			resolved, err := j.deps.client.ResolveChatByTitle(ctx, ref.String())
			if err != nil {
				log.Warn("source chat skipped: title not resolved",
					logx.String("title", ref.String()), logx.Err(err))
				continue
			}
			log.Info("source chat resolved",
				logx.String("title", ref.String()), logx.Int64("chat_id", resolved))
			id = resolved
		}
		latest, err := j.deps.client.LatestMessageID(ctx, id)
		if err != nil {
			log.Warn("source chat skipped: cursor init failed",
				logx.Int64("chat_id", id), logx.Err(err))
			continue
		}
		sources = append(sources, source{chatID: id, cursor: latest})
	}

	if len(sources) == 0 {
		log.Warn("pipeline has no usable source chats")
		return
	}

	var wg sync.WaitGroup
	for _, s := range sources {
		wg.Add(1)
		go func(s source) {
			defer wg.Done()
			j.pollChat(ctx, pc, s.chatID, s.cursor, log.With(logx.Int64("chat_id", s.chatID)))
		}(s)
	}
	wg.Wait()
}

// pollChat is the Polling loop for one source chat. Cancellation is
// cooperative: checked at the top of each cycle and during the
// inter-poll sleep, so cancellation latency is bounded by one poll
// interval plus one fetch.
func (j *Job) pollChat(ctx context.Context, pc PipelineConfig, chatID int64, cursor int, log logx.Logger) {
	interval := j.cfg.pollInterval()
	for {
		select {
		case <-ctx.Done():
			log.Debug("poll loop cancelled", logx.Int("cursor", cursor))
			return
		default:
		}

		msgs, err := j.deps.client.FetchMessages(ctx, chatID, cursor)
		if err != nil {
			log.Warn("fetch failed", logx.Int("cursor", cursor), logx.Err(err))
		}
		// Oldest first, so the earliest qualifying occurrence wins the
		// cooldown window. The cursor advances over every message in
		// the batch, matched or not.
		for _, m := range msgs {
			j.handleMessage(ctx, pc, chatID, m.ID, m.Text, log)
			if m.ID > cursor {
				cursor = m.ID
			}
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			if !t.Stop() {
				<-t.C
			}
			log.Debug("poll loop cancelled", logx.Int("cursor", cursor))
			return
		case <-t.C:
		}
	}
}

// handleMessage runs Extracting, Gating and Dispatching for one
// message. Each payload is gated independently; an admitted payload is
// recorded after its dispatch attempts even when some destinations
// failed (at-least-one-attempt semantics).
func (j *Job) handleMessage(ctx context.Context, pc PipelineConfig, chatID int64, msgID int, text string, log logx.Logger) {
	for _, payload := range pipelinePayloads(pc, text) {
		if !j.deps.gate.CanForward(pc.Category, payload, pc.Cooldown) {
			log.Debug("payload suppressed by cooldown",
				logx.Int("msg_id", msgID), logx.String("payload", payload))
			continue
		}

		failed := 0
		for _, dest := range pc.Destinations {
			if err := j.deps.disp.Send(ctx, dest, payload); err != nil {
				failed++
				log.Warn("forward failed",
					logx.Int("msg_id", msgID),
					logx.String("dest", dest),
					logx.String("payload", payload),
					logx.Err(err))
			}
		}
		j.deps.gate.Record(pc.Category, payload)

		log.Info("payload forwarded",
			logx.Int("msg_id", msgID),
			logx.String("payload", payload),
			logx.Int("destinations", len(pc.Destinations)),
			logx.Int("failed", failed))

		if j.deps.sink != nil {
			j.deps.sink(ForwardEvent{
				At:           time.Now(),
				Job:          j.handle,
				Category:     pc.Category,
				ChatID:       chatID,
				MessageID:    msgID,
				Payload:      payload,
				Destinations: len(pc.Destinations),
				Failed:       failed,
			})
		}
	}
}

// pipelinePayloads applies the category extractor. Keywords relay the
// full message text; the address categories relay the first matching
// token; cashtags relay every tag found.
func pipelinePayloads(pc PipelineConfig, text string) []string {
	if text == "" {
		return nil
	}
	switch pc.Category {
	case CategoryKeywords:
		if extract.MatchesKeywords(text, pc.Keywords) {
			return []string{text}
		}
	case CategorySolana:
		if addr, ok := extract.SolanaAddress(text); ok {
			return []string{addr}
		}
	case CategoryEthereum:
		if addr, ok := extract.EthereumAddress(text); ok {
			return []string{addr}
		}
	case CategoryCashtags:
		return extract.Cashtags(text)
	}
	return nil
}
