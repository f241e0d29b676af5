package postgres

import (
	"context"
	"fmt"
	"time"

	"flashduel-service/internal/app"
	"github.com/uptrace/bun"
)

// UserStore tracks lifetime scores in the users table.
type UserStore struct {
	db *bun.DB
}

var _ app.UserRepository = (*UserStore)(nil)

func NewUserStore(db *bun.DB) *UserStore {
	return &UserStore{db: db}
}

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID         string    `bun:"id,pk"`
	Name       string    `bun:"name"`
	Email      string    `bun:"email"`
	TotalScore int       `bun:"total_score"`
	CreatedAt  time.Time `bun:"created_at,nullzero"`
}

// AddToTotalScore upserts the user row and adds delta to the lifetime score.
func (s *UserStore) AddToTotalScore(ctx context.Context, userID string, delta int) error {
	row := &userRow{ID: userID, TotalScore: delta}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("total_score = u.total_score + EXCLUDED.total_score").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update total score: %w", err)
	}
	return nil
}
