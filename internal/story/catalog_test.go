package story

import (
	"errors"
	"testing"
)

func TestCatalogLookup(t *testing.T) {
	cat := DefaultCatalog()
	ch, err := cat.Chapter("morning")
	if err != nil {
		t.Fatalf("Chapter: %v", err)
	}
	if ch.Title == "" || len(ch.Parts) == 0 {
		t.Fatalf("empty chapter: %+v", ch)
	}
	if _, err := cat.Chapter("night"); !errors.Is(err, ErrChapterNotFound) {
		t.Fatalf("want ErrChapterNotFound, got %v", err)
	}
}

func TestCatalogOrderPreserved(t *testing.T) {
	cat := DefaultCatalog()
	chapters := cat.Chapters()
	if len(chapters) != 2 {
		t.Fatalf("want 2 chapters, got %d", len(chapters))
	}
	if chapters[0].ID != "morning" || chapters[1].ID != "tea" {
		t.Fatalf("chapter order changed: %s, %s", chapters[0].ID, chapters[1].ID)
	}
}

func TestTasksCoverScoredParts(t *testing.T) {
	cat := DefaultCatalog()
	tasks := cat.Tasks()
	if len(tasks) == 0 {
		t.Fatal("no tasks derived from catalog")
	}

	byName := make(map[string]int, len(tasks))
	for _, task := range tasks {
		if task.Cost <= 0 {
			t.Errorf("task %s has non-positive cost %d", task.Name, task.Cost)
		}
		byName[task.Name] = task.Cost
	}
	if len(byName) != len(tasks) {
		t.Fatal("duplicate task names")
	}

	for _, ch := range cat.Chapters() {
		for i, p := range ch.Parts {
			name := TaskName(ch.ID, i)
			cost, found := byName[name]
			if p.Scored() != found {
				t.Errorf("part %s: scored=%v but task present=%v", name, p.Scored(), found)
			}
			if found && cost != p.Reward {
				t.Errorf("part %s: task cost %d != reward %d", name, cost, p.Reward)
			}
		}
	}
}

func TestContentRewardValues(t *testing.T) {
	allowed := map[int]bool{5: true, 8: true, 10: true}
	for _, ch := range DefaultCatalog().Chapters() {
		for i, p := range ch.Parts {
			if p.Scored() && !allowed[p.Reward] {
				t.Errorf("%s part %d: unexpected reward %d", ch.ID, i, p.Reward)
			}
			if p.Kind == KindChoice {
				correct := 0
				for _, o := range p.Options {
					if o.Correct {
						correct++
					}
				}
				if correct != 1 {
					t.Errorf("%s part %d: %d correct options", ch.ID, i, correct)
				}
			}
			if p.Kind == KindTeaRequest && p.RequiredToken == "" {
				t.Errorf("%s part %d: tea request without required token", ch.ID, i)
			}
		}
	}
}

func TestDuplicateChapterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate chapter id")
		}
	}()
	NewCatalog(Chapter{ID: "x"}, Chapter{ID: "x"})
}
