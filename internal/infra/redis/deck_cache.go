package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"flashduel-service/internal/app"
	"flashduel-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// DeckCache caches deck JSON in Redis (SET deck:{deckID}) and falls back to
// the wrapped repository on cache miss. Match creation reads the full card
// list, so whole-deck caching beats per-card hashes here.
type DeckCache struct {
	client *redis.Client
	inner  app.DeckRepository
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

var _ app.DeckRepository = (*DeckCache)(nil)

func NewDeckCache(client *redis.Client, inner app.DeckRepository, ttl time.Duration) *DeckCache {
	return &DeckCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *DeckCache) GetDeck(ctx context.Context, deckID string) (domain.Deck, error) {
	key := c.key(deckID)

	if deck, ok := c.fromCache(ctx, key); ok {
		return deck, nil
	}

	result, err, _ := c.sf.Do(deckID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if deck, ok := c.fromCache(ctx, key); ok {
			return deck, nil
		}

		deck, err := c.inner.GetDeck(ctx, deckID)
		if err != nil {
			return domain.Deck{}, err
		}

		if data, err := json.Marshal(deck); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
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
	_ = c.client.Del(ctx, c.key(deck.ID)).Err()
	return nil
}

func (c *DeckCache) fromCache(ctx context.Context, key string) (domain.Deck, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Deck{}, false
	}
	var deck domain.Deck
	if err := json.Unmarshal(data, &deck); err != nil {
		return domain.Deck{}, false
	}
	return deck, true
}

func (c *DeckCache) key(deckID string) string {
	return "deck:" + deckID
}

func (c *DeckCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
