package parser

import (
	"fmt"
	"strings"

	"github.com/stemsi/exstem-practice/internal/model"
)

// idAllocator derives question IDs from the printed number. A number seen
// again gets an occurrence suffix ("q3", "q3-2", ...) so IDs stay unique.
type idAllocator struct {
	used map[string]bool
	seen map[int]int
}

func newIDAllocator() *idAllocator {
	return &idAllocator{used: map[string]bool{}, seen: map[int]int{}}
}

func (a *idAllocator) next(number int) string {
	a.seen[number]++
	id := fmt.Sprintf("q%d", number)
	for n := a.seen[number]; a.used[id]; n++ {
		id = fmt.Sprintf("q%d-%d", number, n)
	}
	a.used[id] = true
	return id
}

func (a *idAllocator) reserve(id string) bool {
	if id == "" || a.used[id] {
		return false
	}
	a.used[id] = true
	return true
}

// Normalize prepares questions that arrive from a client rather than from
// Parse: option keys are upper-cased and trimmed, types are recomputed and
// missing or duplicate IDs are replaced. The input slice is not modified.
func Normalize(in []model.Question) []model.Question {
	out := make([]model.Question, len(in))
	ids := newIDAllocator()

	for i, q := range in {
		var opts model.Options
		for _, o := range q.Options.Items() {
			key := strings.ToUpper(strings.TrimSpace(o.Key))
			if key == "" {
				continue
			}
			opts.Set(key, strings.TrimSpace(o.Text))
		}
		q.Options = opts
		q.Text = strings.TrimSpace(q.Text)
		q.Classify()
		out[i] = q
	}

	// Client-supplied IDs win over derived ones.
	keep := make([]bool, len(out))
	for i := range out {
		keep[i] = ids.reserve(out[i].ID)
	}
	for i := range out {
		if !keep[i] {
			out[i].ID = ids.next(out[i].Number)
		}
	}
	return out
}
