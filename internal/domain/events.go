package domain

// Event names published on the per-match topic.
const (
	EventPlayerJoined = "player-joined"
	EventGameStart    = "game-start"
	EventNextCard     = "next-card"
	EventScoreUpdate  = "score-update"
	EventGameOver     = "game-over"
)

// MatchTopic is the broadcast topic for one match.
func MatchTopic(matchID string) string {
	return "match-" + matchID
}

// PlayerJoinedPayload announces a new player and the updated roster.
type PlayerJoinedPayload struct {
	PlayerID string   `json:"playerId"`
	Players  []string `json:"players"`
}

// CardPayload carries the question revealed by game-start and next-card.
type CardPayload struct {
	Question      string `json:"question"`
	QuestionIndex int    `json:"questionIndex"`
}

// ScoreUpdatePayload reports a claimed question and the new score map.
type ScoreUpdatePayload struct {
	Scores        map[string]int `json:"scores"`
	AnsweredBy    string         `json:"answeredBy"`
	QuestionIndex int            `json:"questionIndex"`
	CorrectAnswer string         `json:"correctAnswer"`
}

// GameOverPayload closes out the match.
type GameOverPayload struct {
	Winner      string         `json:"winner"`
	FinalScores map[string]int `json:"finalScores"`
}
