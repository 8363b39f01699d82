package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllTables_ParentsPrecedeChildren(t *testing.T) {
	seen := map[string]bool{}
	for _, table := range AllTables() {
		if table.HasParent() {
			assert.True(t, seen[table.Parent], "%s listed before its parent %s", table.Name, table.Parent)
		}
		seen[table.Name] = true
	}
}

func TestAllTables_ColumnsIncludeBookkeeping(t *testing.T) {
	for _, table := range AllTables() {
		assert.Equal(t, "id", table.Columns[0], table.Name)
		assert.Contains(t, table.Columns, "updated_at", table.Name)
		assert.Contains(t, table.Columns, "synced_at", table.Name)
		assert.NotNil(t, table.Decode, table.Name)
	}
}

func TestTablesForDomain(t *testing.T) {
	assert.Equal(t, []string{TableBooks, TableChapters, TableVerses}, TableNames(TablesForDomain(DomainBible)))
	assert.Equal(t,
		[]string{TableLanguageEntities, TableAvailableVersion, TableMediaFilesVerses},
		TableNames(TablesForDomain(DomainMedia)))
	assert.Empty(t, TablesForDomain("unknown"))
}

func TestLookupTable_Unknown(t *testing.T) {
	_, err := LookupTable("psalms")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestCursor_After(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	assert.True(t, Cursor{t2, "a"}.After(Cursor{t1, "z"}))
	assert.True(t, Cursor{t1, "b"}.After(Cursor{t1, "a"}))
	assert.False(t, Cursor{t1, "a"}.After(Cursor{t1, "a"}))
	assert.False(t, Cursor{t1, "z"}.After(Cursor{t2, "a"}))
}

func TestPageFilter_Matches(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Second)
	t2 := t1.Add(time.Second)

	inclusive := PageFilter{UpdatedAtGte: t1}
	assert.True(t, inclusive.Matches(t1, "a"))
	assert.True(t, inclusive.Matches(t2, "a"))
	assert.False(t, inclusive.Matches(t0, "z"))

	cursor := PageFilter{UpdatedAtGte: t1, IDGt: "m"}
	assert.False(t, cursor.Matches(t1, "a"))
	assert.False(t, cursor.Matches(t1, "m"))
	assert.True(t, cursor.Matches(t1, "n"))
	assert.True(t, cursor.Matches(t2, "a"))

	byID := PageFilter{UpdatedAtGte: EpochZero, IDs: []string{"x"}}
	assert.True(t, byID.Matches(t1, "x"))
	assert.False(t, byID.Matches(t1, "y"))
}

func TestClampBatchSize(t *testing.T) {
	assert.Equal(t, DefaultBatchSize, ClampBatchSize(0))
	assert.Equal(t, DefaultBatchSize, ClampBatchSize(-5))
	assert.Equal(t, 10, ClampBatchSize(10))
	assert.Equal(t, MaxFetchBatchSize, ClampBatchSize(50000))
}

func TestCompletenessReport(t *testing.T) {
	r := CompletenessReport{
		Tables: []TableCompleteness{
			{TableName: TableBooks, IsComplete: true},
			{TableName: TableChapters, IsComplete: false, Difference: 3},
		},
		IncompleteTables: 1,
	}
	assert.False(t, r.IsComplete())
	assert.Equal(t, []string{TableChapters}, r.IncompleteTableNames())
}

func TestChecksum_OrderIndependent(t *testing.T) {
	a := []RowStamp{{"1", "t1"}, {"2", "t2"}, {"3", "t3"}}
	b := []RowStamp{{"3", "t3"}, {"1", "t1"}, {"2", "t2"}}
	assert.Equal(t, Checksum(a), Checksum(b))

	changed := []RowStamp{{"1", "t1"}, {"2", "t2b"}, {"3", "t3"}}
	assert.NotEqual(t, Checksum(a), Checksum(changed))
	assert.NotEqual(t, Checksum(a), Checksum(a[:2]))
	assert.Equal(t, "1", a[0].ID, "input must not be reordered")
}
