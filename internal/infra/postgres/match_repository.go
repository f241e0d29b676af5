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
	"github.com/uptrace/bun"
)

// MatchRepository stores matches as one row per match with jsonb document
// columns. UpdateConditional is a single UPDATE guarded by the version
// column, so exactly one of any set of concurrent writers succeeds.
type MatchRepository struct {
	db *bun.DB
}

var _ app.MatchRepository = (*MatchRepository)(nil)

func NewMatchRepository(db *bun.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

type matchRow struct {
	bun.BaseModel `bun:"table:matches,alias:m"`

	ID                   string          `bun:"id,pk"`
	DeckID               string          `bun:"deck_id"`
	Players              json.RawMessage `bun:"players"`
	Scores               json.RawMessage `bun:"scores"`
	Questions            json.RawMessage `bun:"questions"`
	CurrentQuestionIndex int             `bun:"current_question_index"`
	Status               string          `bun:"status"`
	GameStarted          bool            `bun:"game_started"`
	Winner               string          `bun:"winner"`
	Version              int64           `bun:"version"`
	CreatedAt            time.Time       `bun:"created_at"`
}

func (r *MatchRepository) Create(ctx context.Context, match *domain.Match) error {
	row, err := toRow(match)
	if err != nil {
		return err
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (r *MatchRepository) Get(ctx context.Context, matchID string) (*domain.Match, error) {
	row := new(matchRow)
	err := r.db.NewSelect().Model(row).Where("id = ?", matchID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select match: %w", err)
	}
	return fromRow(row)
}

func (r *MatchRepository) UpdateConditional(ctx context.Context, match *domain.Match) error {
	row, err := toRow(match)
	if err != nil {
		return err
	}
	row.Version = match.Version + 1

	res, err := r.db.NewUpdate().
		Model(row).
		Column("players", "scores", "questions", "current_question_index", "status", "game_started", "winner", "version").
		Where("id = ?", match.ID).
		Where("version = ?", match.Version).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	if affected == 0 {
		// Either the version moved or the row is gone; callers reload and
		// the follow-up Get distinguishes the two.
		return domain.ErrVersionConflict
	}
	match.Version = row.Version
	return nil
}

func (r *MatchRepository) ListByStatus(ctx context.Context, statuses ...domain.MatchStatus) ([]*domain.Match, error) {
	var rows []matchRow
	err := r.db.NewSelect().
		Model(&rows).
		Where("status IN (?)", bun.In(statuses)).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return fromRows(rows)
}

func (r *MatchRepository) ListByPlayer(ctx context.Context, userID string, status domain.MatchStatus) ([]*domain.Match, error) {
	member, err := json.Marshal([]string{userID})
	if err != nil {
		return nil, err
	}
	var rows []matchRow
	err = r.db.NewSelect().
		Model(&rows).
		Where("status = ?", string(status)).
		Where("players @> ?", string(member)).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list matches by player: %w", err)
	}
	return fromRows(rows)
}

func toRow(match *domain.Match) (*matchRow, error) {
	players, err := json.Marshal(match.Players)
	if err != nil {
		return nil, err
	}
	scores, err := json.Marshal(match.Scores)
	if err != nil {
		return nil, err
	}
	questions, err := json.Marshal(match.Questions)
	if err != nil {
		return nil, err
	}
	return &matchRow{
		ID:                   match.ID,
		DeckID:               match.DeckID,
		Players:              players,
		Scores:               scores,
		Questions:            questions,
		CurrentQuestionIndex: match.CurrentQuestionIndex,
		Status:               string(match.Status),
		GameStarted:          match.GameStarted,
		Winner:               match.Winner,
		Version:              match.Version,
		CreatedAt:            match.CreatedAt,
	}, nil
}

func fromRow(row *matchRow) (*domain.Match, error) {
	match := &domain.Match{
		ID:                   row.ID,
		DeckID:               row.DeckID,
		CurrentQuestionIndex: row.CurrentQuestionIndex,
		Status:               domain.MatchStatus(row.Status),
		GameStarted:          row.GameStarted,
		Winner:               row.Winner,
		Version:              row.Version,
		CreatedAt:            row.CreatedAt,
	}
	if err := json.Unmarshal(row.Players, &match.Players); err != nil {
		return nil, fmt.Errorf("unmarshal players: %w", err)
	}
	if err := json.Unmarshal(row.Scores, &match.Scores); err != nil {
		return nil, fmt.Errorf("unmarshal scores: %w", err)
	}
	if err := json.Unmarshal(row.Questions, &match.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return match, nil
}

func fromRows(rows []matchRow) ([]*domain.Match, error) {
	matches := make([]*domain.Match, 0, len(rows))
	for i := range rows {
		match, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, nil
}
