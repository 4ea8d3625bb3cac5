package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tlees/content-curator/app/database"
)

// Selection narrows which items a stage invocation acts on. Zero value means
// "scan the store for everything eligible".
type Selection struct {
	// GUID targets a single item. Takes precedence over Candidates.
	GUID string

	// Candidates restricts the run to an explicit guid set, typically the
	// output of the previous stage in a chained run.
	Candidates []string

	// Overwrite redoes work whose output already exists. Hard exclusions
	// (e.g. paywalled items) still apply.
	Overwrite bool

	// Limit caps a store scan, keeping the most recently fetched items.
	// 0 means no cap. Ignored for GUID and Candidates selections.
	Limit int
}

// rule describes a stage's eligibility in terms of item state.
type rule struct {
	// precondition reports whether the upstream output this stage consumes
	// is present.
	precondition func(*database.ContentItem) bool

	// done reports whether this stage's own output is already present.
	done func(*database.ContentItem) bool

	// hard reports a terminal exclusion that applies even with Overwrite.
	// May be nil.
	hard func(*database.ContentItem) bool

	// filter is the store-side narrowing for scans. It encodes precondition
	// and hard exclusions only; done-state is re-checked in memory so that
	// Overwrite can widen the set.
	filter database.ItemFilter
}

func (r rule) eligible(item *database.ContentItem, overwrite bool) bool {
	if !r.precondition(item) {
		return false
	}
	if r.hard != nil && r.hard(item) {
		return false
	}
	if r.done(item) && !overwrite {
		return false
	}
	return true
}

// Selector resolves a Selection against the metadata store. Every stage goes
// through it so that guid-targeted, candidate-set and scan invocations all
// apply the same eligibility rules.
type Selector struct {
	items database.ItemRepository
}

func NewSelector(items database.ItemRepository) *Selector {
	return &Selector{items: items}
}

func (s *Selector) Select(ctx context.Context, sel Selection, r rule) ([]*database.ContentItem, error) {
	if sel.GUID != "" {
		item, err := s.items.Get(ctx, sel.GUID)
		if errors.Is(err, database.ErrNotFound) {
			slog.Warn("Requested item not found", "guid", sel.GUID)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load item %s: %w", sel.GUID, err)
		}
		if !r.eligible(item, sel.Overwrite) {
			return nil, nil
		}
		return []*database.ContentItem{item}, nil
	}

	if len(sel.Candidates) > 0 {
		items := make([]*database.ContentItem, 0, len(sel.Candidates))
		for _, guid := range sel.Candidates {
			item, err := s.items.Get(ctx, guid)
			if errors.Is(err, database.ErrNotFound) {
				slog.Warn("Candidate item not found", "guid", guid)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to load item %s: %w", guid, err)
			}
			if r.eligible(item, sel.Overwrite) {
				items = append(items, item)
			}
		}
		return items, nil
	}

	items, err := s.items.Scan(ctx, r.filter)
	if err != nil {
		return nil, fmt.Errorf("failed to scan items: %w", err)
	}

	eligible := items[:0]
	for _, item := range items {
		if r.eligible(item, sel.Overwrite) {
			eligible = append(eligible, item)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].FetchedAt.After(eligible[j].FetchedAt)
	})
	if sel.Limit > 0 && len(eligible) > sel.Limit {
		eligible = eligible[:sel.Limit]
	}

	return eligible, nil
}
