package lending

import (
	"container/heap"
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Field weights for search relevance.
const (
	titleWeight       = 3
	categoryWeight    = 2
	descriptionWeight = 1
)

// Search returns available items not owned by callerID that match query,
// most relevant first. An empty query browses every available item, newest
// first. The returned sequence is a snapshot and may be iterated repeatedly.
func (c *Catalog) Search(ctx context.Context, callerID int64, query string) (iter.Seq[model.Item], error) {
	items, err := store.ListAvailableItems(ctx, c.db, callerID)
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return slices.Values(items), nil
	}

	var matches rankedItems
	for i := range items {
		if s := score(&items[i], terms); s > 0 {
			matches = append(matches, ranked{item: items[i], score: s, order: i})
		}
	}
	heap.Init(&matches)

	return func(yield func(model.Item) bool) {
		h := slices.Clone(matches)
		for h.Len() > 0 {
			if !yield(heap.Pop(&h).(ranked).item) {
				return
			}
		}
	}, nil
}

// score sums field weights over every query term a field contains.
func score(item *model.Item, terms []string) int {
	title := strings.ToLower(item.Title)
	category := strings.ToLower(item.Category)
	description := strings.ToLower(item.Description)

	total := 0
	for _, t := range terms {
		if strings.Contains(title, t) {
			total += titleWeight
		}
		if strings.Contains(category, t) {
			total += categoryWeight
		}
		if strings.Contains(description, t) {
			total += descriptionWeight
		}
	}
	return total
}

type ranked struct {
	item  model.Item
	score int
	order int // position in the newest-first listing, breaks ties
}

// rankedItems is a max-heap on score.
type rankedItems []ranked

func (h rankedItems) Len() int { return len(h) }

func (h rankedItems) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score > h[j].score
	}
	return h[i].order < h[j].order
}

func (h rankedItems) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *rankedItems) Push(x any) { *h = append(*h, x.(ranked)) }

func (h *rankedItems) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
