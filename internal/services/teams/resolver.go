package teams

import (
	"context"
	"fmt"
	"strings"

	"github.com/samson623/sports-buddy/internal/domain/model"
)

// TeamStore is the read-only teams reference table.
type TeamStore interface {
	FindByName(ctx context.Context, name string) (*model.Team, error)
	FindByAbbreviation(ctx context.Context, abbrev string) (*model.Team, error)
}

// Resolver maps free-text team mentions to canonical teams: alias
// normalization first, then a case-insensitive substring search on full
// names, then abbreviations. The first store match wins; false positives
// on generic words are an accepted tradeoff.
type Resolver struct {
	store TeamStore
}

func NewResolver(store TeamStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns nil without error when the mention matches nothing.
func (r *Resolver) Resolve(ctx context.Context, mention string) (*model.Team, error) {
	mention = strings.TrimSpace(mention)
	if mention == "" {
		return nil, fmt.Errorf("team mention is required")
	}
	if r.store == nil {
		return nil, fmt.Errorf("team store is not configured")
	}

	normalized := normalizeAlias(mention)

	team, err := r.store.FindByName(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("search team by name: %w", err)
	}
	if team != nil {
		return team, nil
	}

	team, err = r.store.FindByAbbreviation(ctx, mention)
	if err != nil {
		return nil, fmt.Errorf("search team by abbreviation: %w", err)
	}

	return team, nil
}
