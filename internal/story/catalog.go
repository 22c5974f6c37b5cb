package story

import "fmt"

// Chapter is an immutable ordered sequence of parts.
type Chapter struct {
	ID    string
	Title string
	Parts []Part
}

// TaskSpec names one rewardable part for the durable task ledger.
type TaskSpec struct {
	Name string
	Cost int
}

// Catalog is the read-only chapter table, authored at compile time.
type Catalog struct {
	order    []string
	chapters map[string]Chapter
}

// NewCatalog builds a catalog preserving chapter order. Duplicate chapter
// identifiers panic: the catalog is compiled-in and a collision is a
// programming error.
func NewCatalog(chapters ...Chapter) *Catalog {
	c := &Catalog{
		order:    make([]string, 0, len(chapters)),
		chapters: make(map[string]Chapter, len(chapters)),
	}
	for _, ch := range chapters {
		if _, dup := c.chapters[ch.ID]; dup {
			panic(fmt.Sprintf("story: duplicate chapter id %q", ch.ID))
		}
		c.order = append(c.order, ch.ID)
		c.chapters[ch.ID] = ch
	}
	return c
}

// Chapter returns the chapter by id or ErrChapterNotFound.
func (c *Catalog) Chapter(id string) (Chapter, error) {
	ch, ok := c.chapters[id]
	if !ok {
		return Chapter{}, ErrChapterNotFound
	}
	return ch, nil
}

// Chapters returns all chapters in authoring order.
func (c *Catalog) Chapters() []Chapter {
	out := make([]Chapter, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.chapters[id])
	}
	return out
}

// TaskName renders the ledger key for a part position. The key is stable
// across restarts so the solved ledger survives content reordering only
// when indexes are kept.
func TaskName(chapterID string, partIndex int) string {
	return fmt.Sprintf("%s:%d", chapterID, partIndex)
}

// Tasks lists every rewardable part as a task row for seeding the durable
// tasks table.
func (c *Catalog) Tasks() []TaskSpec {
	var specs []TaskSpec
	for _, id := range c.order {
		ch := c.chapters[id]
		for i, p := range ch.Parts {
			if !p.Scored() {
				continue
			}
			specs = append(specs, TaskSpec{Name: TaskName(id, i), Cost: p.Reward})
		}
	}
	return specs
}
