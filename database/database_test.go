package database_test

import (
	"testing"

	"snake-map-server/database"
	"snake-map-server/database/dbtest"
	"snake-map-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCreatesUniqueIndex(t *testing.T) {
	db := dbtest.OpenMigrated(t)

	assert.True(t, db.Migrator().HasTable(&models.Highscore{}))
	assert.True(t, db.Migrator().HasIndex(&models.Highscore{}, "idx_highscores_map_player"))

	require.NoError(t, db.Create(&models.Highscore{Map: "forest", Player: "bob", Score: 100}).Error)
	err := db.Create(&models.Highscore{Map: "forest", Player: "bob", Score: 50}).Error
	assert.Error(t, err, "second row for the same (map, player) must be rejected")
}

func TestMigrateCollapsesLegacyDuplicates(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.Exec(`CREATE TABLE highscores (
		id integer PRIMARY KEY AUTOINCREMENT,
		map text,
		score integer,
		player text
	)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO highscores (map, score, player) VALUES
		('forest', 120, 'bob'),
		('forest', 80, 'bob'),
		('forest', 95, 'bob'),
		('forest', 70, 'alice'),
		('desert', 300, 'bob'),
		('desert', 300, 'bob')`).Error)

	require.NoError(t, database.Migrate(db))

	var rows []models.Highscore
	require.NoError(t, db.Order("map, player").Find(&rows).Error)
	require.Len(t, rows, 3)

	got := map[string]int{}
	for _, r := range rows {
		got[r.Map+"/"+r.Player] = r.Score
	}
	assert.Equal(t, map[string]int{
		"desert/bob":   300,
		"forest/alice": 70,
		"forest/bob":   80,
	}, got)
	assert.True(t, db.Migrator().HasIndex(&models.Highscore{}, "idx_highscores_map_player"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := dbtest.OpenMigrated(t)
	require.NoError(t, db.Create(&models.Highscore{Map: "forest", Player: "bob", Score: 100}).Error)

	require.NoError(t, database.Migrate(db))

	var count int64
	require.NoError(t, db.Model(&models.Highscore{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
