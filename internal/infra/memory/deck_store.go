package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"flashduel-service/internal/app"
	"flashduel-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DeckStore is a map-backed implementation of app.DeckRepository
// (useful for tests, demos, and running without Postgres).
type DeckStore struct {
	mu    sync.RWMutex
	decks map[string]domain.Deck
}

var _ app.DeckRepository = (*DeckStore)(nil)

func NewDeckStore(decks map[string]domain.Deck) *DeckStore {
	if decks == nil {
		decks = make(map[string]domain.Deck)
	}
	return &DeckStore{decks: decks}
}

func (s *DeckStore) GetDeck(_ context.Context, deckID string) (domain.Deck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if deck, ok := s.decks[deckID]; ok {
		return deck, nil
	}
	return domain.Deck{}, domain.ErrDeckNotFound
}

func (s *DeckStore) ListDecks(_ context.Context) ([]domain.Deck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Deck, 0, len(s.decks))
	for _, deck := range s.decks {
		out = append(out, deck)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *DeckStore) CreateDeck(_ context.Context, deck *domain.Deck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decks[deck.ID] = *deck
	return nil
}

// DeckCache wraps a repository and caches single-deck reads with TTL to
// avoid repeated DB hits during match creation.
type DeckCache struct {
	inner app.DeckRepository
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedDeck
}

type cachedDeck struct {
	deck      domain.Deck
	expiresAt time.Time
}

var _ app.DeckRepository = (*DeckCache)(nil)

func NewDeckCache(inner app.DeckRepository, ttl time.Duration) *DeckCache {
	return &DeckCache{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedDeck),
	}
}

func (c *DeckCache) GetDeck(ctx context.Context, deckID string) (domain.Deck, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[deckID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.deck, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(deckID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[deckID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.deck, nil
		}
		c.mu.RUnlock()

		deck, err := c.inner.GetDeck(ctx, deckID)
		if err != nil {
			return domain.Deck{}, err
		}

		c.mu.Lock()
		c.cache[deckID] = cachedDeck{deck: deck, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return deck, nil
	})
	if err != nil {
		return domain.Deck{}, err
	}
	return result.(domain.Deck), nil
}

func (c *DeckCache) ListDecks(ctx context.Context) ([]domain.Deck, error) {
	return c.inner.ListDecks(ctx)
}

func (c *DeckCache) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	if err := c.inner.CreateDeck(ctx, deck); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.cache, deck.ID)
	c.mu.Unlock()
	return nil
}

func (c *DeckCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
