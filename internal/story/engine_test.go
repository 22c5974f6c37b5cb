package story

import (
	"context"
	"errors"
	"testing"

	"avylbot/internal/session"
)

type fakeScores struct {
	awardErr   error
	statsErr   error
	stats      Stats
	awardCalls []string
}

func (f *fakeScores) Award(_ context.Context, _, taskName string) (bool, error) {
	f.awardCalls = append(f.awardCalls, taskName)
	if f.awardErr != nil {
		return false, f.awardErr
	}
	return true, nil
}

func (f *fakeScores) Stats(context.Context, string) (Stats, error) {
	if f.statsErr != nil {
		return Stats{}, f.statsErr
	}
	return f.stats, nil
}

type fakeExplainer struct {
	text string
	err  error
}

func (f *fakeExplainer) Explain(context.Context, string, string) (string, error) {
	return f.text, f.err
}

func choiceChapter() Chapter {
	return Chapter{
		ID:    "quiz",
		Title: "Quiz",
		Parts: []Part{
			{
				Kind: KindChoice,
				Text: "pick one",
				Options: []Option{
					{Label: "right", Correct: true, Feedback: "well done"},
					{Label: "wrong", Feedback: "try again"},
				},
				Reward: 5,
			},
		},
	}
}

func newTestEngine(t *testing.T, scores Scores, feedback Explainer, chapters ...Chapter) (*Engine, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	return NewEngine(NewCatalog(chapters...), store, scores, feedback), store
}

func TestStartResetsSession(t *testing.T) {
	eng, store := newTestEngine(t, nil, nil, choiceChapter())

	out, err := eng.Start(context.Background(), 1, "quiz", "alice")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if out.Kind != Advanced || out.NextIndex != 0 {
		t.Fatalf("unexpected outcome: kind=%v idx=%d", out.Kind, out.NextIndex)
	}
	s, ok := store.Get(1)
	if !ok {
		t.Fatal("session missing after Start")
	}
	if s.Part != 0 || s.Score != 0 || s.Asked != 0 || s.Correct != 0 {
		t.Fatalf("session not zeroed: %+v", s)
	}
}

func TestStartUnknownChapter(t *testing.T) {
	eng, _ := newTestEngine(t, nil, nil, choiceChapter())
	if _, err := eng.Start(context.Background(), 1, "nope", "alice"); !errors.Is(err, ErrChapterNotFound) {
		t.Fatalf("want ErrChapterNotFound, got %v", err)
	}
}

func TestHandleWithoutSession(t *testing.T) {
	eng, _ := newTestEngine(t, nil, nil, choiceChapter())
	if _, err := eng.Handle(context.Background(), 1, Continue{}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("want ErrNoSession, got %v", err)
	}
}

func TestChoiceCorrectCompletesChapter(t *testing.T) {
	scores := &fakeScores{stats: Stats{TotalScore: 5, TotalSolved: 1, Rank: 3}}
	eng, store := newTestEngine(t, scores, nil, choiceChapter())

	if _, err := eng.Start(context.Background(), 1, "quiz", "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, err := eng.Handle(context.Background(), 1, SelectOption{Part: 0, Option: 0})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.Kind != Completed {
		t.Fatalf("want Completed, got %v", out.Kind)
	}
	if out.Summary == nil {
		t.Fatal("missing summary")
	}
	if out.Summary.Score != 5 || out.Summary.Correct != 1 || out.Summary.Asked != 1 {
		t.Fatalf("bad summary: %+v", out.Summary)
	}
	if out.Summary.SuccessRate != 100.0 {
		t.Fatalf("want success rate 100, got %v", out.Summary.SuccessRate)
	}
	if out.Summary.Stats.TotalScore != 5 || out.Summary.Stats.Rank != 3 {
		t.Fatalf("durable stats not propagated: %+v", out.Summary.Stats)
	}
	if len(scores.awardCalls) != 1 || scores.awardCalls[0] != "quiz:0" {
		t.Fatalf("award calls: %v", scores.awardCalls)
	}
	if _, ok := store.Get(1); ok {
		t.Fatal("session not cleared after completion")
	}
	if _, err := eng.Handle(context.Background(), 1, Continue{}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("want ErrNoSession after completion, got %v", err)
	}
}

func TestChoiceIncorrectStaysPut(t *testing.T) {
	eng, store := newTestEngine(t, &fakeScores{}, nil, choiceChapter())

	if _, err := eng.Start(context.Background(), 1, "quiz", "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, err := eng.Handle(context.Background(), 1, SelectOption{Part: 0, Option: 1})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.Kind != Retry {
		t.Fatalf("want Retry, got %v", out.Kind)
	}
	if out.Feedback != "try again" {
		t.Fatalf("want option feedback, got %q", out.Feedback)
	}
	s, _ := store.Get(1)
	if s.Part != 0 || s.Score != 0 {
		t.Fatalf("state changed on wrong answer: %+v", s)
	}
	if s.Asked != 1 || s.Correct != 0 {
		t.Fatalf("counters wrong: %+v", s)
	}
}

func TestChoiceInvalidOption(t *testing.T) {
	eng, _ := newTestEngine(t, nil, nil, choiceChapter())
	if _, err := eng.Start(context.Background(), 1, "quiz", "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := eng.Handle(context.Background(), 1, SelectOption{Part: 0, Option: 7}); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("want ErrInvalidOption, got %v", err)
	}
}

func TestStaleCallbackRejected(t *testing.T) {
	ch := Chapter{
		ID: "two",
		Parts: []Part{
			{Kind: KindChoice, Options: []Option{{Correct: true}}, Reward: 5},
			{Kind: KindChoice, Options: []Option{{Correct: true}}, Reward: 5},
		},
	}
	eng, store := newTestEngine(t, nil, nil, ch)
	if _, err := eng.Start(context.Background(), 1, "two", "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := eng.Handle(context.Background(), 1, SelectOption{Part: 0, Option: 0}); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	// Pressing the part-0 button again must not touch the session.
	if _, err := eng.Handle(context.Background(), 1, SelectOption{Part: 0, Option: 0}); !errors.Is(err, ErrStaleEvent) {
		t.Fatalf("want ErrStaleEvent, got %v", err)
	}
	s, _ := store.Get(1)
	if s.Part != 1 || s.Score != 5 {
		t.Fatalf("stale press mutated session: %+v", s)
	}
}

func TestEventKindMismatch(t *testing.T) {
	eng, _ := newTestEngine(t, nil, nil, choiceChapter())
	if _, err := eng.Start(context.Background(), 1, "quiz", "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := eng.Handle(context.Background(), 1, Continue{}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("want ErrInvalidEvent for Continue on choice, got %v", err)
	}
	if _, err := eng.Handle(context.Background(), 1, SubmitText{Text: "hi"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("want ErrInvalidEvent for text on choice, got %v", err)
	}
}

func TestTextNormalizedMatchAdvances(t *testing.T) {
	ch := Chapter{
		ID: "text",
		Parts: []Part{
			{Kind: KindText, Text: "say hello", Answers: []string{"hello there"}, Match: MatchExact, Reward: 8},
			{Kind: KindInfo, Text: "done"},
		},
	}
	eng, store := newTestEngine(t, &fakeScores{}, nil, ch)
	if _, err := eng.Start(context.Background(), 1, "text", "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, err := eng.Handle(context.Background(), 1, SubmitText{Text: "  Hello, there! "})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.Kind != Advanced || out.NextIndex != 1 {
		t.Fatalf("normalized submission should advance: %+v", out)
	}
	s, _ := store.Get(1)
	if s.Score != 8 {
		t.Fatalf("want score 8, got %d", s.Score)
	}
}

func TestTextMismatchInvokesFeedback(t *testing.T) {
	ch := Chapter{
		ID: "text",
		Parts: []Part{
			{Kind: KindText, Text: "say hello", Answers: []string{"hello"}, Reward: 8},
		},
	}
	eng, store := newTestEngine(t, nil, &fakeExplainer{text: "almost"}, ch)
	if _, err := eng.Start(context.Background(), 1, "text", "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, err := eng.Handle(context.Background(), 1, SubmitText{Text: "goodbye"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.Kind != Retry || out.Feedback != "almost" {
		t.Fatalf("want retry with explainer feedback, got %+v", out)
	}
	s, _ := store.Get(1)
	if s.Part != 0 || s.Score != 0 || s.Asked != 1 {
		t.Fatalf("retry mutated state: %+v", s)
	}
}

func TestFeedbackFailureDegradesSilently(t *testing.T) {
	ch := Chapter{
		ID: "text",
		Parts: []Part{
			{Kind: KindText, Text: "say hello", Answers: []string{"hello"}, Reward: 8},
		},
	}
	eng, _ := newTestEngine(t, nil, &fakeExplainer{err: errors.New("llm down")}, ch)
	if _, err := eng.Start(context.Background(), 1, "text", "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, err := eng.Handle(context.Background(), 1, SubmitText{Text: "goodbye"})
	if err != nil {
		t.Fatalf("gateway failure must not propagate: %v", err)
	}
	if out.Kind != Retry || out.Feedback != "" {
		t.Fatalf("want empty-feedback retry, got %+v", out)
	}
}

func TestTeaRequestRequiresToken(t *testing.T) {
	ch := Chapter{
		ID: "tea",
		Parts: []Part{
			{Kind: KindTeaRequest, Text: "ask politely", RequiredToken: "зинһар", Reward: 10},
			{Kind: KindInfo, Text: "done"},
		},
	}
	eng, _ := newTestEngine(t, &fakeScores{}, &fakeExplainer{}, ch)
	if _, err := eng.Start(context.Background(), 1, "tea", "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	out, err := eng.Handle(context.Background(), 1, SubmitText{Text: "чәй бирегез"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.Kind != Retry {
		t.Fatalf("request without token should retry, got %v", out.Kind)
	}

	out, err = eng.Handle(context.Background(), 1, SubmitText{Text: "Чәй бирегез, зинһар!"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.Kind != Advanced {
		t.Fatalf("polite request should advance, got %v", out.Kind)
	}
}

func TestScoringFailureDoesNotBlockProgression(t *testing.T) {
	scores := &fakeScores{awardErr: context.DeadlineExceeded, statsErr: errors.New("db down")}
	eng, store := newTestEngine(t, scores, nil, choiceChapter())
	if _, err := eng.Start(context.Background(), 1, "quiz", "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, err := eng.Handle(context.Background(), 1, SelectOption{Part: 0, Option: 0})
	if err != nil {
		t.Fatalf("scoring failure must not propagate: %v", err)
	}
	if out.Kind != Completed {
		t.Fatalf("want Completed despite gateway failure, got %v", out.Kind)
	}
	if out.Summary.Stats != (Stats{}) {
		t.Fatalf("want zero stats on gateway failure, got %+v", out.Summary.Stats)
	}
	if _, ok := store.Get(1); ok {
		t.Fatal("session not cleared")
	}
}

func TestInfoImageAutoSkip(t *testing.T) {
	ch := Chapter{
		ID: "auto",
		Parts: []Part{
			{Kind: KindInfo, Text: "intro"},
			{Kind: KindInfoImage, Text: "pic one", Image: "a.jpg"},
			{Kind: KindInfoImage, Text: "pic two", Image: "b.jpg"},
			{Kind: KindChoice, Options: []Option{{Correct: true}}, Reward: 5},
		},
	}
	eng, store := newTestEngine(t, nil, nil, ch)
	if _, err := eng.Start(context.Background(), 1, "auto", "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, err := eng.Handle(context.Background(), 1, Continue{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(out.Auto) != 2 {
		t.Fatalf("want 2 auto parts, got %d", len(out.Auto))
	}
	if out.NextIndex != 3 || out.Next == nil || out.Next.Kind != KindChoice {
		t.Fatalf("auto-skip landed wrong: %+v", out)
	}
	s, _ := store.Get(1)
	if s.Part != 3 {
		t.Fatalf("session index not past auto parts: %d", s.Part)
	}
}

func TestStartOnLeadingAutoParts(t *testing.T) {
	ch := Chapter{
		ID: "lead",
		Parts: []Part{
			{Kind: KindInfoImage, Text: "pic", Image: "a.jpg"},
			{Kind: KindInfo, Text: "hello"},
		},
	}
	eng, _ := newTestEngine(t, nil, nil, ch)
	out, err := eng.Start(context.Background(), 1, "lead", "alice")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(out.Auto) != 1 || out.NextIndex != 1 {
		t.Fatalf("leading auto parts not collected: %+v", out)
	}
}

func TestCompletionWithoutQuestions(t *testing.T) {
	ch := Chapter{
		ID:    "walk",
		Parts: []Part{{Kind: KindInfo, Text: "only info"}},
	}
	eng, _ := newTestEngine(t, nil, nil, ch)
	if _, err := eng.Start(context.Background(), 1, "walk", "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, err := eng.Handle(context.Background(), 1, Continue{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.Kind != Completed {
		t.Fatalf("want Completed, got %v", out.Kind)
	}
	if out.Summary.SuccessRate != 0 {
		t.Fatalf("want zero success rate when nothing asked, got %v", out.Summary.SuccessRate)
	}
}

func TestRestartDiscardsSession(t *testing.T) {
	eng, store := newTestEngine(t, nil, nil, choiceChapter())
	if _, err := eng.Start(context.Background(), 1, "quiz", "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := eng.Handle(context.Background(), 1, SelectOption{Part: 0, Option: 1}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if _, err := eng.Start(context.Background(), 1, "quiz", "alice"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	s, _ := store.Get(1)
	if s.Asked != 0 || s.Part != 0 {
		t.Fatalf("restart kept old counters: %+v", s)
	}
}
