package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"snake-map-server/database/dbtest"
	"snake-map-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHighscoreService(t *testing.T) *HighscoreService {
	t.Helper()
	return NewHighscoreService(dbtest.OpenMigrated(t), 5*time.Second)
}

func TestSubmitScoreForestScenario(t *testing.T) {
	ctx := context.Background()
	svc := newHighscoreService(t)

	applied, err := svc.SubmitScore(ctx, "forest", "bob", 100)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = svc.SubmitScore(ctx, "forest", "bob", 80)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = svc.SubmitScore(ctx, "forest", "bob", 90)
	require.NoError(t, err)
	assert.False(t, applied)

	scores, err := svc.ListHighscores(ctx, "forest")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"bob": 80}, scores)
}

func TestSubmitScoreKeepsMinimumOfTwo(t *testing.T) {
	pairs := [][2]int{{100, 80}, {80, 100}, {50, 50}, {-5, 3}, {0, -1}}
	for _, p := range pairs {
		svc := newHighscoreService(t)
		ctx := context.Background()

		_, err := svc.SubmitScore(ctx, "forest", "bob", p[0])
		require.NoError(t, err)
		_, err = svc.SubmitScore(ctx, "forest", "bob", p[1])
		require.NoError(t, err)

		best, ok, err := svc.BestScore(ctx, "forest", "bob")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, min(p[0], p[1]), best, "submissions %v", p)
	}
}

func TestSubmitEqualScoreIsNoOp(t *testing.T) {
	ctx := context.Background()
	svc := newHighscoreService(t)

	_, err := svc.SubmitScore(ctx, "forest", "bob", 42)
	require.NoError(t, err)

	var before models.Highscore
	require.NoError(t, svc.DB.Where("map = ? AND player = ?", "forest", "bob").First(&before).Error)

	applied, err := svc.SubmitScore(ctx, "forest", "bob", 42)
	require.NoError(t, err)
	assert.False(t, applied)

	var after models.Highscore
	require.NoError(t, svc.DB.Where("map = ? AND player = ?", "forest", "bob").First(&after).Error)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, 42, after.Score)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
}

func TestListHighscoresEmptyForUnknownMap(t *testing.T) {
	svc := newHighscoreService(t)

	scores, err := svc.ListHighscores(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.NotNil(t, scores)
	assert.Empty(t, scores)
}

func TestListHighscoresOneEntryPerPlayer(t *testing.T) {
	ctx := context.Background()
	svc := newHighscoreService(t)

	submissions := []struct {
		mapID, player string
		score         int
	}{
		{"forest", "bob", 100},
		{"forest", "alice", 70},
		{"forest", "bob", 60},
		{"forest", "carol", 90},
		{"forest", "alice", 75},
		{"desert", "bob", 10},
	}
	for _, s := range submissions {
		_, err := svc.SubmitScore(ctx, s.mapID, s.player, s.score)
		require.NoError(t, err)
	}

	scores, err := svc.ListHighscores(ctx, "forest")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"bob": 60, "alice": 70, "carol": 90}, scores)

	var count int64
	require.NoError(t, svc.DB.Model(&models.Highscore{}).Where("map = ?", "forest").Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestRankedHighscores(t *testing.T) {
	ctx := context.Background()
	svc := newHighscoreService(t)

	for _, s := range []struct {
		player string
		score  int
	}{{"bob", 60}, {"alice", 70}, {"carol", 60}, {"dave", 90}} {
		_, err := svc.SubmitScore(ctx, "forest", s.player, s.score)
		require.NoError(t, err)
	}

	ranked, err := svc.RankedHighscores(ctx, "forest", 0)
	require.NoError(t, err)
	assert.Equal(t, []models.RankedScore{
		{Rank: 1, Player: "bob", Score: 60},
		{Rank: 1, Player: "carol", Score: 60},
		{Rank: 3, Player: "alice", Score: 70},
		{Rank: 4, Player: "dave", Score: 90},
	}, ranked)

	top, err := svc.RankedHighscores(ctx, "forest", 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	none, err := svc.RankedHighscores(ctx, "nowhere", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSubmitScoreValidation(t *testing.T) {
	svc := newHighscoreService(t)

	_, err := svc.SubmitScore(context.Background(), "", "bob", 10)
	require.ErrorIs(t, err, ErrInvalidSubmission)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "map", fe.Field)

	_, err = svc.SubmitScore(context.Background(), "forest", "", 10)
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "player", fe.Field)
}

func TestSubmitScoreNormalizesPlayer(t *testing.T) {
	ctx := context.Background()
	svc := newHighscoreService(t)

	decomposed := "Zoe\u0301"
	precomposed := "Zo\u00e9"

	_, err := svc.SubmitScore(ctx, "forest", decomposed, 50)
	require.NoError(t, err)
	_, err = svc.SubmitScore(ctx, "forest", precomposed, 40)
	require.NoError(t, err)

	scores, err := svc.ListHighscores(ctx, "forest")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{precomposed: 40}, scores)
}

func TestSubmitScoreConcurrentKeepsBest(t *testing.T) {
	ctx := context.Background()
	svc := newHighscoreService(t)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			if _, err := svc.SubmitScore(ctx, "forest", "bob", score); err != nil {
				errs <- err
			}
		}(1000 - i*7)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var rows []models.Highscore
	require.NoError(t, svc.DB.Where("map = ? AND player = ?", "forest", "bob").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 1000-49*7, rows[0].Score)
}

func TestSubmitScoreHonorsCanceledContext(t *testing.T) {
	svc := newHighscoreService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.SubmitScore(ctx, "forest", "bob", 10)
	assert.Error(t, err)
}

func TestBestScoreMissing(t *testing.T) {
	svc := newHighscoreService(t)

	_, ok, err := svc.BestScore(context.Background(), "forest", "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}
