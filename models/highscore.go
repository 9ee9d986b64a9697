// models/highscore.go
package models

import "time"

// Highscore is the best (lowest) score a player has on a map.
// At most one row exists per (map, player); idx_highscores_map_player backs that.
// Columns stay nullable so tables created by the old schema migrate in place.
type Highscore struct {
	ID        uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	Map       string    `json:"map" gorm:"uniqueIndex:idx_highscores_map_player,priority:1"`
	Score     int       `json:"score"`
	Player    string    `json:"player" gorm:"uniqueIndex:idx_highscores_map_player,priority:2"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Highscore) TableName() string {
	return "highscores"
}

// RankedScore is the public shape of a leaderboard line.
type RankedScore struct {
	Rank   int    `json:"rank"`
	Player string `json:"player"`
	Score  int    `json:"score"`
}
