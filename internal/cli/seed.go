package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"flashduel-service/internal/config"
	"flashduel-service/internal/domain"
	"flashduel-service/internal/infra/postgres"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads decks from a JSON file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <decks.json>",
		Short: "Seed flashcard decks from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			return seedDecks(cmd, cfg, args[0])
		},
	}
}

func seedDecks(cmd *cobra.Command, cfg config.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var decks []domain.Deck
	if err := json.Unmarshal(data, &decks); err != nil {
		return fmt.Errorf("parse decks file: %w", err)
	}

	db := openBun(cfg.Postgres.URL)
	defer db.Close()
	store := postgres.NewDeckStore(db, nil)

	ctx := cmd.Context()
	for i := range decks {
		deck := &decks[i]
		if deck.ID == "" {
			deck.ID = uuid.NewString()
		}
		if deck.CreatedAt.IsZero() {
			deck.CreatedAt = time.Now()
		}
		if err := store.CreateDeck(ctx, deck); err != nil {
			return fmt.Errorf("seed deck %q: %w", deck.Name, err)
		}
		log.Printf("seeded deck %q (%d cards)", deck.Name, len(deck.Cards))
	}
	return nil
}
