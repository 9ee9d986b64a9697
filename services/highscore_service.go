// services/highscore_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"snake-map-server/models"
	"snake-map-server/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidSubmission = errors.New("invalid highscore submission")

// FieldError names the submission field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidSubmission
}

type HighscoreService struct {
	DB           *gorm.DB
	QueryTimeout time.Duration
}

func NewHighscoreService(db *gorm.DB, queryTimeout time.Duration) *HighscoreService {
	return &HighscoreService{DB: db, QueryTimeout: queryTimeout}
}

// NormalizePlayer folds a player name to Unicode NFC so that names typed with
// combining marks and precomposed characters land on the same row.
func NormalizePlayer(player string) string {
	return norm.NFC.String(player)
}

func ValidateSubmission(mapID, player string) error {
	if mapID == "" {
		return &FieldError{Field: "map", Message: "is required"}
	}
	if player == "" {
		return &FieldError{Field: "player", Message: "is required"}
	}
	return nil
}

// withTimeout runs op under the per-query timeout, retrying transient failures.
func (s *HighscoreService) withTimeout(ctx context.Context, op func(db *gorm.DB) error) error {
	return utils.RetryDB(ctx, func() error {
		qctx, cancel := context.WithTimeout(ctx, s.QueryTimeout)
		defer cancel()
		return op(s.DB.WithContext(qctx))
	})
}

// SubmitScore records score for (mapID, player) if it beats the stored one.
// Lower is better. Insert, improve and no-op all happen in one statement, so
// concurrent submissions for the same pair cannot lose the best score.
// applied reports whether a row was written.
func (s *HighscoreService) SubmitScore(ctx context.Context, mapID, player string, score int) (applied bool, err error) {
	player = NormalizePlayer(player)
	if err := ValidateSubmission(mapID, player); err != nil {
		return false, err
	}

	err = s.withTimeout(ctx, func(db *gorm.DB) error {
		entry := models.Highscore{Map: mapID, Player: player, Score: score}
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "map"}, {Name: "player"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "highscores.score > excluded.score"},
			}},
		}).Create(&entry)
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to store highscore: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"map":     mapID,
		"player":  player,
		"score":   score,
		"applied": applied,
	}).Debug("🏁 [HIGHSCORE] Submission processed")
	return applied, nil
}

// ListHighscores maps each player who ever submitted on mapID to their best
// score. Unknown maps give an empty map.
func (s *HighscoreService) ListHighscores(ctx context.Context, mapID string) (map[string]int, error) {
	var rows []models.Highscore
	err := s.withTimeout(ctx, func(db *gorm.DB) error {
		return db.Select("player", "score").
			Where("map = ?", mapID).
			Order("score ASC").
			Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch highscores: %w", err)
	}

	scores := make(map[string]int, len(rows))
	for _, r := range rows {
		if best, ok := scores[r.Player]; !ok || r.Score < best {
			scores[r.Player] = r.Score
		}
	}
	return scores, nil
}

// RankedHighscores lists mapID's scores best first. Equal scores share a rank
// and keep submission order. limit <= 0 returns everything.
func (s *HighscoreService) RankedHighscores(ctx context.Context, mapID string, limit int) ([]models.RankedScore, error) {
	var rows []models.Highscore
	err := s.withTimeout(ctx, func(db *gorm.DB) error {
		q := db.Select("player", "score").
			Where("map = ?", mapID).
			Order("score ASC, id ASC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch highscores: %w", err)
	}

	ranked := make([]models.RankedScore, len(rows))
	for i, r := range rows {
		rank := i + 1
		if i > 0 && r.Score == rows[i-1].Score {
			rank = ranked[i-1].Rank
		}
		ranked[i] = models.RankedScore{Rank: rank, Player: r.Player, Score: r.Score}
	}
	return ranked, nil
}

// BestScore returns the stored score for (mapID, player).
func (s *HighscoreService) BestScore(ctx context.Context, mapID, player string) (int, bool, error) {
	var row models.Highscore
	err := s.withTimeout(ctx, func(db *gorm.DB) error {
		return db.Where("map = ? AND player = ?", mapID, NormalizePlayer(player)).
			Order("score ASC").
			First(&row).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to fetch highscore: %w", err)
	}
	return row.Score, true, nil
}

// Ping checks the database is reachable.
func (s *HighscoreService) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	qctx, cancel := context.WithTimeout(ctx, s.QueryTimeout)
	defer cancel()
	return sqlDB.PingContext(qctx)
}
