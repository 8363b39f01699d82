package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var syncedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestParseTime_Layouts(t *testing.T) {
	want := time.Date(2024, 3, 5, 10, 20, 30, 123456000, time.UTC)

	inputs := []string{
		"2024-03-05T10:20:30.123456Z",
		"2024-03-05T10:20:30.123456+00:00",
		"2024-03-05 10:20:30.123456+00",
		"2024-03-05 10:20:30.123456",
		"2024-03-05T12:20:30.123456+02:00",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got, err := ParseTime(in)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseTime("yesterday")
	assert.Error(t, err)
}

func TestParseTime_DropsSubMicrosecondDigits(t *testing.T) {
	got, err := ParseTime("2024-03-05T10:20:30.123456789Z")
	require.NoError(t, err)
	assert.Equal(t, 123456000, got.Nanosecond())

	again, err := ParseTime(FormatTime(got))
	require.NoError(t, err)
	assert.True(t, got.Equal(again))
}

func TestFormatTime_LexicalOrder(t *testing.T) {
	a := FormatTime(time.Date(2024, 1, 1, 0, 0, 0, 5000, time.UTC))
	b := FormatTime(time.Date(2024, 1, 1, 0, 0, 0, 50000, time.UTC))
	assert.Less(t, a, b)
	assert.Len(t, a, len(TimeFormat))
}

func TestDecodeBook_Valid(t *testing.T) {
	books, err := LookupTable(TableBooks)
	require.NoError(t, err)

	rec, warnings, err := books.Decode(RemoteRecord{
		"id":           "b-1",
		"name":         "Genesis",
		"book_number":  float64(1),
		"testament":    "OLD",
		"global_order": "1",
		"updated_at":   "2024-01-01T00:00:00Z",
	}, syncedAt)

	require.NoError(t, err)
	assert.Empty(t, warnings)
	book, ok := rec.(Book)
	require.True(t, ok)
	assert.Equal(t, "Genesis", book.Name)
	assert.Equal(t, 1, book.BookNumber)
	assert.Equal(t, TestamentOld, book.Testament)
	assert.Equal(t, 1, book.GlobalOrder)
	assert.Equal(t, syncedAt, book.SyncedAt)
	assert.Len(t, book.Values(), len(books.Columns))
}

func TestDecodeBook_UnknownTestamentPassesThrough(t *testing.T) {
	books, _ := LookupTable(TableBooks)

	rec, warnings, err := books.Decode(RemoteRecord{
		"id":          "b-99",
		"name":        "Tobit",
		"book_number": 99,
		"testament":   "deuterocanon",
		"updated_at":  "2024-01-01T00:00:00Z",
	}, syncedAt)

	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "testament")
	assert.Equal(t, "deuterocanon", rec.(Book).Testament)
}

func TestDecode_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		table string
		raw   RemoteRecord
		field string
	}{
		{"book without id", TableBooks, RemoteRecord{"name": "x", "book_number": 1, "updated_at": "2024-01-01T00:00:00Z"}, "id"},
		{"book without updated_at", TableBooks, RemoteRecord{"id": "b", "name": "x", "book_number": 1}, "updated_at"},
		{"chapter without book", TableChapters, RemoteRecord{"id": "c", "chapter_number": 1, "updated_at": "2024-01-01T00:00:00Z"}, "book_id"},
		{"verse with fractional number", TableVerses, RemoteRecord{"id": "v", "chapter_id": "c", "verse_number": 1.5, "updated_at": "2024-01-01T00:00:00Z"}, "verse_number"},
		{"media without verse", TableMediaFilesVerses, RemoteRecord{"id": "m", "media_file_id": "f", "updated_at": "2024-01-01T00:00:00Z"}, "verse_id"},
		{"language without name", TableLanguageEntities, RemoteRecord{"id": "l", "level": "language", "updated_at": "2024-01-01T00:00:00Z"}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := LookupTable(tt.table)
			require.NoError(t, err)

			rec, _, err := table.Decode(tt.raw, syncedAt)
			assert.Nil(t, rec)
			require.Error(t, err)
			assert.True(t, IsValidation(err))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestDecodeLanguageEntity_NullableParent(t *testing.T) {
	table, _ := LookupTable(TableLanguageEntities)

	rec, _, err := table.Decode(RemoteRecord{
		"id": "l-1", "name": "Swahili", "level": "language", "parent_id": nil,
		"updated_at": "2024-01-01T00:00:00Z",
	}, syncedAt)
	require.NoError(t, err)
	entity := rec.(LanguageEntity)
	assert.Nil(t, entity.ParentID)
	assert.Nil(t, entity.Values()[3])

	rec, _, err = table.Decode(RemoteRecord{
		"id": "l-2", "name": "Kiunguja", "level": "dialect", "parent_id": "l-1",
		"updated_at": "2024-01-01T00:00:00Z",
	}, syncedAt)
	require.NoError(t, err)
	require.NotNil(t, rec.(LanguageEntity).ParentID)
	assert.Equal(t, "l-1", *rec.(LanguageEntity).ParentID)
}

func TestDecodeMediaFileVerse_BadOptionalNumberWarns(t *testing.T) {
	table, _ := LookupTable(TableMediaFilesVerses)

	rec, warnings, err := table.Decode(RemoteRecord{
		"id": "m-1", "media_file_id": "f-1", "verse_id": "v-1",
		"start_time_seconds": "12.5", "duration_seconds": "long",
		"updated_at": "2024-01-01T00:00:00Z",
	}, syncedAt)

	require.NoError(t, err)
	require.Len(t, warnings, 1)
	m := rec.(MediaFileVerse)
	assert.InDelta(t, 12.5, m.StartTimeSeconds, 0.0001)
	assert.Zero(t, m.DurationSeconds)
}

func TestRemoteRecord_NumericID(t *testing.T) {
	r := RemoteRecord{"id": float64(42)}
	assert.Equal(t, "42", r.ID())
}
