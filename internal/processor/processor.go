package processor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosight/gazetrace/internal/analysis"
	"github.com/gosight/gazetrace/internal/config"
	"github.com/gosight/gazetrace/internal/events"
	"github.com/gosight/gazetrace/internal/gaze"
	"github.com/gosight/gazetrace/internal/storage"
	"github.com/gosight/gazetrace/internal/transformer"
	"github.com/gosight/gazetrace/internal/trial"
)

// Reasons a trial is closed and analysed.
const (
	ReasonEnded   = "ended"
	ReasonEvicted = "evicted"
	ReasonStopped = "stopped"
)

// Sink stores analysed trials
type Sink interface {
	InsertFixations(ctx context.Context, rows []storage.FixationRow) error
	InsertSaccades(ctx context.Context, rows []storage.SaccadeRow) error
	InsertTimeline(ctx context.Context, rows []storage.TimelineRow) error
	UpsertTrial(ctx context.Context, row storage.TrialRow) error
}

// Notifier announces finished analyses
type Notifier interface {
	Publish(ctx context.Context, notice Notice) error
}

// Tracker keeps live per-trial counters
type Tracker interface {
	Track(ctx context.Context, trialID, kind string, seenAt time.Time) error
	Finish(ctx context.Context, trialID string) error
}

// pendingTrial is a trial whose end message has not arrived yet
type pendingTrial struct {
	meta      trial.MetaExt
	events    []events.Record
	fixations []gaze.RawFixation
	lastSeen  time.Time
}

// TrialProcessor buffers trial messages, analyses finished trials and writes them to ClickHouse
type TrialProcessor struct {
	sink     Sink
	notifier Notifier
	tracker  Tracker
	batchCfg config.BatchConfig
	opts     analysis.Options

	trials map[string]*pendingTrial

	// Row buffers
	fixationBuffer []storage.FixationRow
	saccadeBuffer  []storage.SaccadeRow
	timelineBuffer []storage.TimelineRow
	trialBuffer    []storage.TrialRow

	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
	now    func() time.Time
}

// Option configures a TrialProcessor
type Option func(*TrialProcessor)

func WithNotifier(n Notifier) Option {
	return func(p *TrialProcessor) { p.notifier = n }
}

func WithTracker(t Tracker) Option {
	return func(p *TrialProcessor) { p.tracker = t }
}

func WithAnalysis(opts analysis.Options) Option {
	return func(p *TrialProcessor) { p.opts = opts }
}

// NewTrialProcessor creates a new trial processor and starts its flush loop
func NewTrialProcessor(sink Sink, batchCfg config.BatchConfig, options ...Option) *TrialProcessor {
	p := &TrialProcessor{
		sink:           sink,
		batchCfg:       batchCfg,
		trials:         make(map[string]*pendingTrial),
		fixationBuffer: make([]storage.FixationRow, 0, batchCfg.Size),
		saccadeBuffer:  make([]storage.SaccadeRow, 0, batchCfg.Size),
		timelineBuffer: make([]storage.TimelineRow, 0, 100),
		trialBuffer:    make([]storage.TrialRow, 0, 10),
		done:           make(chan struct{}),
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}

	// Start flush ticker
	p.ticker = time.NewTicker(batchCfg.FlushInterval)
	go p.flushLoop()

	return p
}

// Process processes a single trial message
func (p *TrialProcessor) Process(ctx context.Context, raw map[string]interface{}) error {
	msg, err := transformer.TransformMessage(raw)
	if err != nil {
		messagesProcessed.WithLabelValues("unknown", "rejected").Inc()
		return err
	}
	messagesProcessed.WithLabelValues(string(msg.Kind), "accepted").Inc()

	now := p.now()
	if p.tracker != nil {
		// Counters are informational, the message is still processed.
		if err := p.tracker.Track(ctx, msg.TrialID, trackedKind(msg), now); err != nil {
			log.Warn().Err(err).Str("trial_id", msg.TrialID).Msg("Failed to track trial progress")
		}
	}

	if msg.Kind == transformer.KindEnd {
		p.closeTrial(ctx, msg.TrialID, ReasonEnded)
		return nil
	}

	p.mu.Lock()
	t, ok := p.trials[msg.TrialID]
	if !ok {
		t = &pendingTrial{meta: trial.MetaExt{Meta: trial.Meta{ID: msg.TrialID}}}
		p.trials[msg.TrialID] = t
		openTrials.Set(float64(len(p.trials)))
	}
	t.lastSeen = now

	switch msg.Kind {
	case transformer.KindMeta:
		t.meta = *msg.Meta
	case transformer.KindEvent:
		t.events = append(t.events, *msg.Event)
	case transformer.KindFixation:
		t.fixations = append(t.fixations, *msg.Fixation)
	}

	evict := p.oldestTrialLocked(msg.TrialID)
	p.mu.Unlock()

	if evict != "" {
		log.Warn().
			Str("trial_id", evict).
			Int("max_open_trials", p.batchCfg.MaxOpenTrials).
			Msg("Too many open trials, analysing oldest before its end message")
		p.closeTrial(ctx, evict, ReasonEvicted)
	}

	return nil
}

func trackedKind(msg *transformer.Message) string {
	switch msg.Kind {
	case transformer.KindFixation:
		return trial.CountFixation
	case transformer.KindMeta:
		return "meta"
	case transformer.KindEvent:
		switch events.Kind(msg.Event.Type) {
		case events.KindClicked:
			return trial.CountClick
		case events.KindScroll:
			return trial.CountScroll
		}
		return trial.CountEvent
	}
	return ""
}

// oldestTrialLocked picks the least recently seen trial other than keep once
// the open-trial limit is exceeded. Caller holds p.mu.
func (p *TrialProcessor) oldestTrialLocked(keep string) string {
	if p.batchCfg.MaxOpenTrials <= 0 || len(p.trials) <= p.batchCfg.MaxOpenTrials {
		return ""
	}

	oldest := ""
	var oldestSeen time.Time
	for id, t := range p.trials {
		if id == keep {
			continue
		}
		if oldest == "" || t.lastSeen.Before(oldestSeen) {
			oldest, oldestSeen = id, t.lastSeen
		}
	}
	return oldest
}

// closeTrial analyses a buffered trial and queues its rows
func (p *TrialProcessor) closeTrial(ctx context.Context, trialID, reason string) {
	p.mu.Lock()
	t, ok := p.trials[trialID]
	if ok {
		delete(p.trials, trialID)
		openTrials.Set(float64(len(p.trials)))
	}
	p.mu.Unlock()

	if !ok {
		log.Warn().Str("trial_id", trialID).Msg("End message for unknown trial")
		p.finishTracking(ctx, trialID)
		return
	}

	res := analysis.Analyze(analysis.Input{
		Meta:      t.meta,
		Events:    t.events,
		Fixations: t.fixations,
	}, p.opts)

	rows := storage.FromResult(uuid.New().String(), t.meta, res, p.now())

	p.mu.Lock()
	p.fixationBuffer = append(p.fixationBuffer, rows.Fixations...)
	p.saccadeBuffer = append(p.saccadeBuffer, rows.Saccades...)
	p.timelineBuffer = append(p.timelineBuffer, rows.Timeline...)
	p.trialBuffer = append(p.trialBuffer, rows.Trial)
	shouldFlush := len(p.fixationBuffer) >= p.batchCfg.Size
	p.mu.Unlock()

	trialsAnalyzed.WithLabelValues(reason).Inc()
	analysisWarnings.Add(float64(len(res.Warnings)))

	log.Info().
		Str("trial_id", trialID).
		Str("reason", reason).
		Int("fixations", len(res.Fixations)).
		Int("events", len(t.events)).
		Float64("avg_duration", res.AverageDuration).
		Float64("avg_amplitude", res.AverageAmplitude).
		Strs("warnings", res.Warnings).
		Msg("Trial analysed")

	p.finishTracking(ctx, trialID)

	if p.notifier != nil {
		if err := p.notifier.Publish(ctx, newNotice(rows.Trial, reason)); err != nil {
			log.Error().Err(err).Str("trial_id", trialID).Msg("Failed to publish analysis notice")
		}
	}

	if shouldFlush {
		p.Flush()
	}
}

func (p *TrialProcessor) finishTracking(ctx context.Context, trialID string) {
	if p.tracker == nil {
		return
	}
	if err := p.tracker.Finish(ctx, trialID); err != nil {
		log.Error().Err(err).Str("trial_id", trialID).Msg("Failed to clear trial counters")
	}
}

func (p *TrialProcessor) flushLoop() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.Flush()
		}
	}
}

// Flush writes all buffered rows to ClickHouse
func (p *TrialProcessor) Flush() {
	p.mu.Lock()

	// Check if there's anything to flush
	if len(p.fixationBuffer) == 0 && len(p.saccadeBuffer) == 0 && len(p.timelineBuffer) == 0 && len(p.trialBuffer) == 0 {
		p.mu.Unlock()
		return
	}

	// Get current buffers and create new ones
	fixations := p.fixationBuffer
	saccades := p.saccadeBuffer
	timelineRows := p.timelineBuffer
	trials := p.trialBuffer

	p.fixationBuffer = make([]storage.FixationRow, 0, p.batchCfg.Size)
	p.saccadeBuffer = make([]storage.SaccadeRow, 0, p.batchCfg.Size)
	p.timelineBuffer = make([]storage.TimelineRow, 0, 100)
	p.trialBuffer = make([]storage.TrialRow, 0, 10)
	p.mu.Unlock()

	ctx := context.Background()
	start := time.Now()
	defer func() { flushDuration.Observe(time.Since(start).Seconds()) }()

	if err := p.sink.InsertFixations(ctx, fixations); err != nil {
		log.Error().Err(err).Int("count", len(fixations)).Msg("Failed to insert fixations")
	} else if len(fixations) > 0 {
		log.Info().
			Int("count", len(fixations)).
			Dur("duration", time.Since(start)).
			Msg("Flushed fixations to ClickHouse")
	}

	if err := p.sink.InsertSaccades(ctx, saccades); err != nil {
		log.Error().Err(err).Int("count", len(saccades)).Msg("Failed to insert saccades")
	} else if len(saccades) > 0 {
		log.Debug().Int("count", len(saccades)).Msg("Flushed saccades to ClickHouse")
	}

	if err := p.sink.InsertTimeline(ctx, timelineRows); err != nil {
		log.Error().Err(err).Int("count", len(timelineRows)).Msg("Failed to insert timeline events")
	} else if len(timelineRows) > 0 {
		log.Debug().Int("count", len(timelineRows)).Msg("Flushed timeline events to ClickHouse")
	}

	for _, row := range trials {
		if err := p.sink.UpsertTrial(ctx, row); err != nil {
			log.Error().Err(err).Str("trial_id", row.TrialID).Msg("Failed to upsert trial")
		}
	}
}

// OpenTrials returns the number of trials still waiting for their end message
func (p *TrialProcessor) OpenTrials() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.trials)
}

// Stop analyses every open trial, then flushes and stops the processor
func (p *TrialProcessor) Stop() {
	p.ticker.Stop()
	close(p.done)

	p.mu.Lock()
	ids := make([]string, 0, len(p.trials))
	for id := range p.trials {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	ctx := context.Background()
	for _, id := range ids {
		p.closeTrial(ctx, id, ReasonStopped)
	}

	p.Flush() // Final flush
}
