package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpsertQuerySingleRow(t *testing.T) {
	got := upsertQuery("games", []string{"id", "name", "box_art_url"}, 1)

	assert.Equal(t,
		"INSERT INTO games (id, name, box_art_url)\n"+
			"VALUES ($1, $2, $3)\n"+
			"ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, box_art_url = EXCLUDED.box_art_url, updated_at = now()",
		got)
}

func TestUpsertQueryNumbersPlaceholdersAcrossRows(t *testing.T) {
	got := upsertQuery("games", []string{"id", "name", "box_art_url"}, 3)

	assert.Contains(t, got, "VALUES ($1, $2, $3), ($4, $5, $6), ($7, $8, $9)")
}

func TestUpsertQueryNeverUpdatesKey(t *testing.T) {
	got := upsertQuery("users", []string{"id", "login"}, 2)

	assert.NotContains(t, got, "id = EXCLUDED.id")
	assert.Contains(t, got, "login = EXCLUDED.login")
}
