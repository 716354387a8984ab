package dto

type AnalysisRequest struct {
	GameID string `json:"game_id"`
}

type AnalysisResponse struct {
	GameID   string `json:"game_id"`
	Matchup  string `json:"matchup"`
	Analysis string `json:"analysis"`
	Cached   bool   `json:"cached"`
}
