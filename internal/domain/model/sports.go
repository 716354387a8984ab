package model

import "time"

type Team struct {
	ID           string
	Sport        string
	Abbreviation string
	FullName     string
	City         string
	Conference   string
	Division     string
}

type Player struct {
	ID           string
	TeamID       string
	FirstName    string
	LastName     string
	Position     string
	JerseyNumber int
}

type GameStatus string

const (
	GameScheduled  GameStatus = "scheduled"
	GameInProgress GameStatus = "in_progress"
	GameCompleted  GameStatus = "completed"
	GamePostponed  GameStatus = "postponed"
	GameCancelled  GameStatus = "cancelled"
)

type Game struct {
	ID         string
	Season     int
	Week       int
	HomeTeamID string
	AwayTeamID string
	KickoffUTC time.Time
	Venue      string
	Status     GameStatus
}

type Injury struct {
	PlayerID    string
	GameID      string
	PlayerName  string
	Status      string
	BodyPart    string
	Description string
	ReportedAt  time.Time
}

type Odds struct {
	GameID        string
	Bookmaker     string
	Spread        float64
	MoneylineHome int
	MoneylineAway int
	Total         float64
	RetrievedAt   time.Time
}
