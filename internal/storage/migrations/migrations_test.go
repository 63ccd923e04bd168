package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedOrder(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.Len(t, pg, 3)
	assert.Equal(t, "001_trial_records", pg[0].Version)
	assert.Equal(t, "002_battle_arena_waitlist", pg[1].Version)
	assert.Equal(t, "003_competitions", pg[2].Version)
	assert.Contains(t, pg[1].SQL, "idx_battle_arena_waitlist_email")

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.Len(t, ch, 1)
	assert.True(t, strings.Contains(ch[0].SQL, "activity_events"))
}

func TestSplitStatements(t *testing.T) {
	input := `
-- comment with ; inside
CREATE TABLE a (x String);

CREATE TABLE b (y String DEFAULT 'it''s');
`
	stmts, err := splitStatements(input)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x String)", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String DEFAULT 'it''s')", stmts[1])
}

func TestSplitStatements_RejectsSemicolonInString(t *testing.T) {
	_, err := splitStatements(`INSERT INTO t VALUES ('a;b');`)
	assert.Error(t, err)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/arcade")
	require.NoError(t, err)
	assert.Equal(t, "arcade", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
