package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flashduel-service/internal/app"
	"flashduel-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/uptrace/bun"
)

// DeckStore persists decks as JSONB documents. Listing and writes go through
// bun; the hot single-deck read used by match creation stays on the pgx pool
// (bun is used instead when no pool is wired, e.g. in the seed command).
type DeckStore struct {
	db   *bun.DB
	pool *pgxpool.Pool
}

var _ app.DeckRepository = (*DeckStore)(nil)

func NewDeckStore(db *bun.DB, pool *pgxpool.Pool) *DeckStore {
	return &DeckStore{db: db, pool: pool}
}

type deckRow struct {
	bun.BaseModel `bun:"table:decks,alias:d"`

	ID          string          `bun:"id,pk"`
	Name        string          `bun:"name"`
	Description string          `bun:"description"`
	Data        json.RawMessage `bun:"data"`
	CreatedAt   time.Time       `bun:"created_at"`
}

func (s *DeckStore) GetDeck(ctx context.Context, deckID string) (domain.Deck, error) {
	var raw []byte
	if s.pool != nil {
		err := s.pool.QueryRow(ctx, `SELECT data FROM decks WHERE id=$1`, deckID).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Deck{}, domain.ErrDeckNotFound
		}
		if err != nil {
			return domain.Deck{}, fmt.Errorf("load deck: %w", err)
		}
	} else {
		row := new(deckRow)
		err := s.db.NewSelect().Model(row).Column("data").Where("id = ?", deckID).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Deck{}, domain.ErrDeckNotFound
		}
		if err != nil {
			return domain.Deck{}, fmt.Errorf("load deck: %w", err)
		}
		raw = row.Data
	}
	var deck domain.Deck
	if err := json.Unmarshal(raw, &deck); err != nil {
		return domain.Deck{}, fmt.Errorf("unmarshal deck: %w", err)
	}
	return deck, nil
}

// ListDecks returns lobby summaries without card content.
func (s *DeckStore) ListDecks(ctx context.Context) ([]domain.Deck, error) {
	var rows []deckRow
	err := s.db.NewSelect().
		Model(&rows).
		Column("id", "name", "description", "created_at").
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	decks := make([]domain.Deck, 0, len(rows))
	for _, row := range rows {
		decks = append(decks, domain.Deck{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			CreatedAt:   row.CreatedAt,
		})
	}
	return decks, nil
}

func (s *DeckStore) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	data, err := json.Marshal(deck)
	if err != nil {
		return err
	}
	row := &deckRow{
		ID:          deck.ID,
		Name:        deck.Name,
		Description: deck.Description,
		Data:        data,
		CreatedAt:   deck.CreatedAt,
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name, description = EXCLUDED.description, data = EXCLUDED.data").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert deck: %w", err)
	}
	return nil
}
