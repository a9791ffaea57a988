package venue

import (
	"context"
	"time"

	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCacheSize = 1024

// Resolver answers which modules a venue has enabled. Answers are cached for
// ttl so a session resolves them once instead of on every request.
type Resolver struct {
	repo  interfaces.VenueRepository
	cache *expirable.LRU[int64, domain.Capabilities]
}

func NewResolver(repo interfaces.VenueRepository, ttl time.Duration) *Resolver {
	return &Resolver{
		repo:  repo,
		cache: expirable.NewLRU[int64, domain.Capabilities](defaultCacheSize, nil, ttl),
	}
}

func (r *Resolver) Resolve(ctx context.Context, venueID int64) (domain.Capabilities, error) {
	if caps, ok := r.cache.Get(venueID); ok {
		return caps, nil
	}

	caps, err := r.repo.Capabilities(ctx, venueID)
	if err != nil {
		return domain.Capabilities{}, err
	}
	r.cache.Add(venueID, caps)
	return caps, nil
}

// Invalidate drops the cached answer for venueID.
func (r *Resolver) Invalidate(venueID int64) {
	r.cache.Remove(venueID)
}
