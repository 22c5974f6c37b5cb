package story

import (
	"context"
	"time"

	"avylbot/core/logger"
	"avylbot/internal/session"
	"log/slog"
)

// Event is an inbound user action consumed by the engine.
type Event interface{ isEvent() }

// Continue advances a display-only part.
type Continue struct{}

// SelectOption answers a multiple-choice part. Part carries the index the
// button was rendered for, so stale presses can be rejected.
type SelectOption struct {
	Part   int
	Option int
}

// SubmitText answers a free-text part.
type SubmitText struct {
	Text string
}

func (Continue) isEvent()     {}
func (SelectOption) isEvent() {}
func (SubmitText) isEvent()   {}

// OutcomeKind classifies the result of handling an event.
type OutcomeKind int

const (
	// Advanced means the session moved to a new part.
	Advanced OutcomeKind = iota
	// Retry means the answer was wrong and the same part is presented again.
	Retry
	// Completed means the chapter finished and the session was cleared.
	Completed
)

// Stats mirrors the durable counters kept by the scoring gateway.
type Stats struct {
	TotalScore  int
	TotalSolved int
	Rank        int
}

// Summary describes a completed chapter.
type Summary struct {
	ChapterTitle string
	Score        int
	Correct      int
	Asked        int
	// SuccessRate is correct/asked in percent; 0 when nothing was asked.
	SuccessRate float64
	Stats       Stats
}

// Outcome is what the renderer needs to present after an event.
type Outcome struct {
	Kind     OutcomeKind
	Feedback string
	// Auto lists auto-advancing parts to render before Next.
	Auto      []Part
	Next      *Part
	NextIndex int
	Summary   *Summary
}

// Scores persists point awards and reads durable stats. Calls are best-effort
// from the engine's point of view.
type Scores interface {
	Award(ctx context.Context, scoreName, taskName string) (credited bool, err error)
	Stats(ctx context.Context, scoreName string) (Stats, error)
}

// Explainer produces feedback text for a wrong free-text answer.
type Explainer interface {
	Explain(ctx context.Context, question, answer string) (string, error)
}

const component = "service.story"

// Engine drives narrative progression. Session transitions are applied in a
// single store update before any gateway I/O, so a gateway failure can never
// leave the index and score out of step.
type Engine struct {
	catalog        *Catalog
	sessions       session.Store
	scores         Scores
	feedback       Explainer
	gatewayTimeout time.Duration
}

// NewEngine wires the engine. scores and feedback may be nil; the engine then
// skips the corresponding side calls.
func NewEngine(catalog *Catalog, sessions session.Store, scores Scores, feedback Explainer) *Engine {
	return &Engine{
		catalog:        catalog,
		sessions:       sessions,
		scores:         scores,
		feedback:       feedback,
		gatewayTimeout: 5 * time.Second,
	}
}

// SetGatewayTimeout overrides the per-call bound on gateway I/O.
func (e *Engine) SetGatewayTimeout(d time.Duration) {
	if d > 0 {
		e.gatewayTimeout = d
	}
}

// Catalog exposes the engine's content table.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Start begins a chapter for the user, discarding any prior session.
// scoreName is the durable identity used for point awards.
func (e *Engine) Start(ctx context.Context, userID int64, chapterID, scoreName string) (Outcome, error) {
	ch, err := e.catalog.Chapter(chapterID)
	if err != nil {
		return Outcome{}, err
	}

	e.sessions.Start(userID, chapterID, scoreName)
	auto, next := autoRun(ch, 0)
	if err := e.sessions.Update(userID, func(s *session.Session) {
		s.Part = next
	}); err != nil {
		return Outcome{}, ErrNoSession
	}

	logger.Info(ctx, component, "story.start",
		slog.String("chapter", ch.ID),
		slog.Int("part", next),
	)

	snap, _ := e.sessions.Get(userID)
	if next >= len(ch.Parts) {
		return e.finalize(ctx, userID, ch, snap, "")
	}
	return Outcome{
		Kind:      Advanced,
		Auto:      auto,
		Next:      &ch.Parts[next],
		NextIndex: next,
	}, nil
}

// Handle applies one event to the user's session.
func (e *Engine) Handle(ctx context.Context, userID int64, ev Event) (Outcome, error) {
	snap, ok := e.sessions.Get(userID)
	if !ok {
		return Outcome{}, ErrNoSession
	}
	ch, err := e.catalog.Chapter(snap.ChapterID)
	if err != nil {
		return Outcome{}, err
	}
	if snap.Part >= len(ch.Parts) {
		// Completion normally clears the session; finish defensively.
		return e.finalize(ctx, userID, ch, snap, "")
	}
	part := ch.Parts[snap.Part]

	switch v := ev.(type) {
	case Continue:
		if part.Kind != KindInfo {
			return Outcome{}, ErrInvalidEvent
		}
		return e.advance(ctx, userID, ch, snap.Part, advanceUpdate{}, "")

	case SelectOption:
		if part.Kind != KindChoice {
			return Outcome{}, ErrInvalidEvent
		}
		if v.Part != snap.Part {
			logger.Debug(ctx, component, "story.stale",
				slog.String("chapter", ch.ID),
				slog.Int("part", snap.Part),
				slog.Int("event_part", v.Part),
			)
			return Outcome{}, ErrStaleEvent
		}
		if v.Option < 0 || v.Option >= len(part.Options) {
			return Outcome{}, ErrInvalidOption
		}
		opt := part.Options[v.Option]
		if !opt.Correct {
			if err := e.sessions.Update(userID, func(s *session.Session) {
				s.Asked++
			}); err != nil {
				return Outcome{}, ErrNoSession
			}
			logger.Info(ctx, component, "story.retry",
				slog.String("chapter", ch.ID),
				slog.Int("part", snap.Part),
				slog.String("part_kind", part.Kind.String()),
				slog.Int("option", v.Option),
			)
			return Outcome{Kind: Retry, Feedback: opt.Feedback, Next: &ch.Parts[snap.Part], NextIndex: snap.Part}, nil
		}
		return e.advance(ctx, userID, ch, snap.Part, advanceUpdate{
			asked:   true,
			correct: true,
			reward:  part.Reward,
		}, opt.Feedback)

	case SubmitText:
		switch part.Kind {
		case KindText, KindPhrase, KindTeaRequest:
		default:
			return Outcome{}, ErrInvalidEvent
		}
		normalized := Normalize(v.Text)
		if matches(part, normalized) {
			return e.advance(ctx, userID, ch, snap.Part, advanceUpdate{
				asked:   true,
				correct: true,
				reward:  part.Reward,
			}, part.Praise)
		}
		if err := e.sessions.Update(userID, func(s *session.Session) {
			s.Asked++
		}); err != nil {
			return Outcome{}, ErrNoSession
		}
		feedbackText := e.explain(ctx, part.Text, v.Text)
		logger.Info(ctx, component, "story.retry",
			slog.String("chapter", ch.ID),
			slog.Int("part", snap.Part),
			slog.String("part_kind", part.Kind.String()),
		)
		return Outcome{Kind: Retry, Feedback: feedbackText, Next: &ch.Parts[snap.Part], NextIndex: snap.Part}, nil
	}

	return Outcome{}, ErrInvalidEvent
}

type advanceUpdate struct {
	asked   bool
	correct bool
	reward  int
}

// advance applies the session transition for a successful event and then
// performs best-effort gateway work.
func (e *Engine) advance(ctx context.Context, userID int64, ch Chapter, fromIdx int, upd advanceUpdate, feedbackText string) (Outcome, error) {
	auto, next := autoRun(ch, fromIdx+1)

	if err := e.sessions.Update(userID, func(s *session.Session) {
		if upd.asked {
			s.Asked++
		}
		if upd.correct && upd.asked {
			s.Correct++
			s.Score += upd.reward
		}
		s.Part = next
	}); err != nil {
		return Outcome{}, ErrNoSession
	}
	snap, _ := e.sessions.Get(userID)

	if upd.reward > 0 {
		e.award(ctx, snap.ScoreName, ch.ID, fromIdx, upd.reward)
	}

	logger.Info(ctx, component, "story.advance",
		slog.String("chapter", ch.ID),
		slog.Int("part", next),
		slog.String("part_kind", ch.Parts[fromIdx].Kind.String()),
		slog.Int("reward", upd.reward),
		slog.Int("score", snap.Score),
	)

	if next >= len(ch.Parts) {
		out, err := e.finalize(ctx, userID, ch, snap, feedbackText)
		out.Auto = auto
		return out, err
	}
	return Outcome{
		Kind:      Advanced,
		Feedback:  feedbackText,
		Auto:      auto,
		Next:      &ch.Parts[next],
		NextIndex: next,
	}, nil
}

// finalize builds the completion summary and clears the session.
func (e *Engine) finalize(ctx context.Context, userID int64, ch Chapter, snap session.Session, feedbackText string) (Outcome, error) {
	rate := 0.0
	if snap.Asked > 0 {
		rate = float64(snap.Correct) / float64(snap.Asked) * 100
	}

	stats := e.stats(ctx, snap.ScoreName)
	e.sessions.Clear(userID)

	logger.Info(ctx, component, "story.complete",
		slog.String("chapter", ch.ID),
		slog.Int("score", snap.Score),
		slog.Int("correct", snap.Correct),
		slog.Int("asked", snap.Asked),
		slog.Float64("success_rate", rate),
	)

	return Outcome{
		Kind:     Completed,
		Feedback: feedbackText,
		Summary: &Summary{
			ChapterTitle: ch.Title,
			Score:        snap.Score,
			Correct:      snap.Correct,
			Asked:        snap.Asked,
			SuccessRate:  rate,
			Stats:        stats,
		},
	}, nil
}

// award persists a point increment. Failures are logged and swallowed so the
// narrative never stalls on the database.
func (e *Engine) award(ctx context.Context, scoreName, chapterID string, partIdx, reward int) {
	if e.scores == nil {
		return
	}
	task := TaskName(chapterID, partIdx)
	tctx, cancel := context.WithTimeout(ctx, e.gatewayTimeout)
	defer cancel()
	credited, err := e.scores.Award(tctx, scoreName, task)
	if err != nil {
		logger.Warn(ctx, component, "award.failed",
			slog.String("task", task),
			slog.Int("reward", reward),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Debug(ctx, component, "award.done",
		slog.String("task", task),
		slog.Int("reward", reward),
		slog.Bool("credited", credited),
	)
}

// stats reads durable counters, falling back to zero values on failure.
func (e *Engine) stats(ctx context.Context, scoreName string) Stats {
	if e.scores == nil {
		return Stats{}
	}
	tctx, cancel := context.WithTimeout(ctx, e.gatewayTimeout)
	defer cancel()
	stats, err := e.scores.Stats(tctx, scoreName)
	if err != nil {
		logger.Warn(ctx, component, "stats.failed",
			slog.String("err", err.Error()),
		)
		return Stats{}
	}
	return stats
}

// explain asks the feedback gateway for a hint; empty string when unavailable.
func (e *Engine) explain(ctx context.Context, question, answer string) string {
	if e.feedback == nil {
		return ""
	}
	tctx, cancel := context.WithTimeout(ctx, e.gatewayTimeout)
	defer cancel()
	text, err := e.feedback.Explain(tctx, question, answer)
	if err != nil {
		logger.Warn(ctx, component, "feedback.failed",
			slog.String("err", err.Error()),
		)
		return ""
	}
	return text
}

// autoRun collects consecutive auto-advancing parts starting at idx and
// returns them with the index of the first part requiring user interaction
// (or len(parts) when the chapter ends on auto content).
func autoRun(ch Chapter, idx int) ([]Part, int) {
	var auto []Part
	for idx < len(ch.Parts) && ch.Parts[idx].Kind == KindInfoImage {
		auto = append(auto, ch.Parts[idx])
		idx++
	}
	return auto, idx
}
