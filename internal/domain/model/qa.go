package model

import "time"

// QuotaProfile is the quota slice of a persisted user profile row.
// QuotaResetAt is restamped on every reset and every consume; the tracker
// zeroes the counter once the quota period has fully elapsed since the
// last stamp.
type QuotaProfile struct {
	UserID              string
	Tier                string
	QuotaUsed           int
	QuotaResetAt        time.Time
	WeeklyAnalysisUsed  int
	WeeklyAnalysisReset time.Time
}

// QALogRecord is one append-only question/answer interaction. Token counts
// are nil for database-routed answers.
type QALogRecord struct {
	ID           string
	UserID       *string
	Question     string
	Answer       string
	InputTokens  *int
	OutputTokens *int
	RoutedToDB   bool
	CreatedAt    time.Time
}

// AnalysisRecord is a cached pre-game analysis for a game.
type AnalysisRecord struct {
	ID          string
	GameID      string
	Content     string
	TokenCount  int
	GeneratedAt time.Time
}
