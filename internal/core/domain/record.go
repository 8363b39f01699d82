package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeFormat is the canonical timestamp layout used for persisted watermarks
// and updated_at columns. It is fixed-width so lexical order matches time order.
const TimeFormat = "2006-01-02T15:04:05.000000Z"

// EpochZero is the watermark of a table that has never been synced.
var EpochZero = time.Unix(0, 0).UTC()

// FormatTime renders t in TimeFormat (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// timeLayouts are the layouts accepted from the remote backend.
var timeLayouts = []string{
	time.RFC3339Nano,
	TimeFormat,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime parses a timestamp in any layout the backend emits.
// Sub-microsecond digits are dropped so the result survives a FormatTime
// round trip unchanged.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Microsecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// RemoteRecord is a raw row fetched from the remote backend.
// Every row carries "id" and "updated_at"; other keys are table specific.
type RemoteRecord map[string]any

// ID returns the row id, or "" if missing.
func (r RemoteRecord) ID() string {
	s, _ := coerceString(r["id"])
	return s
}

// UpdatedAt returns the parsed updated_at value.
func (r RemoteRecord) UpdatedAt() (time.Time, error) {
	s, ok := coerceString(r["updated_at"])
	if !ok || s == "" {
		return time.Time{}, fmt.Errorf("missing updated_at")
	}
	return ParseTime(s)
}

// Record is a validated row ready to be written locally.
// The set of implementations is closed: one variant per SyncableTable.
type Record interface {
	// Table returns the table the record belongs to.
	Table() string

	// RecordID returns the primary key value.
	RecordID() string

	// RecordUpdatedAt returns the remote modification time.
	RecordUpdatedAt() time.Time

	// Values returns column values in SyncableTable.Columns order.
	Values() []any

	sealed()
}

// Testament values accepted for books.
const (
	TestamentOld = "old"
	TestamentNew = "new"
)

// Book is a row of the books table.
type Book struct {
	ID          string
	Name        string
	BookNumber  int
	Testament   string
	GlobalOrder int
	UpdatedAt   time.Time
	SyncedAt    time.Time
}

func (b Book) Table() string              { return TableBooks }
func (b Book) RecordID() string           { return b.ID }
func (b Book) RecordUpdatedAt() time.Time { return b.UpdatedAt }
func (Book) sealed()                      {}

func (b Book) Values() []any {
	return []any{b.ID, b.Name, b.BookNumber, b.Testament, b.GlobalOrder, FormatTime(b.UpdatedAt), FormatTime(b.SyncedAt)}
}

// Chapter is a row of the chapters table.
type Chapter struct {
	ID            string
	BookID        string
	ChapterNumber int
	TotalVerses   int
	UpdatedAt     time.Time
	SyncedAt      time.Time
}

func (c Chapter) Table() string              { return TableChapters }
func (c Chapter) RecordID() string           { return c.ID }
func (c Chapter) RecordUpdatedAt() time.Time { return c.UpdatedAt }
func (Chapter) sealed()                      {}

func (c Chapter) Values() []any {
	return []any{c.ID, c.BookID, c.ChapterNumber, c.TotalVerses, FormatTime(c.UpdatedAt), FormatTime(c.SyncedAt)}
}

// Verse is a row of the verses table.
type Verse struct {
	ID          string
	ChapterID   string
	VerseNumber int
	GlobalOrder int
	UpdatedAt   time.Time
	SyncedAt    time.Time
}

func (v Verse) Table() string              { return TableVerses }
func (v Verse) RecordID() string           { return v.ID }
func (v Verse) RecordUpdatedAt() time.Time { return v.UpdatedAt }
func (Verse) sealed()                      {}

func (v Verse) Values() []any {
	return []any{v.ID, v.ChapterID, v.VerseNumber, v.GlobalOrder, FormatTime(v.UpdatedAt), FormatTime(v.SyncedAt)}
}

// Language entity levels.
const (
	LevelFamily       = "family"
	LevelLanguage     = "language"
	LevelDialect      = "dialect"
	LevelMotherTongue = "mother_tongue"
)

// LanguageEntity is a row of the language_entities table.
type LanguageEntity struct {
	ID        string
	Name      string
	Level     string
	ParentID  *string
	UpdatedAt time.Time
	SyncedAt  time.Time
}

func (l LanguageEntity) Table() string              { return TableLanguageEntities }
func (l LanguageEntity) RecordID() string           { return l.ID }
func (l LanguageEntity) RecordUpdatedAt() time.Time { return l.UpdatedAt }
func (LanguageEntity) sealed()                      {}

func (l LanguageEntity) Values() []any {
	var parent any
	if l.ParentID != nil {
		parent = *l.ParentID
	}
	return []any{l.ID, l.Name, l.Level, parent, FormatTime(l.UpdatedAt), FormatTime(l.SyncedAt)}
}

// Version types offered for a language.
const (
	VersionTypeAudio = "audio"
	VersionTypeText  = "text"
)

// AvailableVersion is a row of the available_versions table.
type AvailableVersion struct {
	ID               string
	LanguageEntityID string
	VersionType      string
	Name             string
	UpdatedAt        time.Time
	SyncedAt         time.Time
}

func (a AvailableVersion) Table() string              { return TableAvailableVersion }
func (a AvailableVersion) RecordID() string           { return a.ID }
func (a AvailableVersion) RecordUpdatedAt() time.Time { return a.UpdatedAt }
func (AvailableVersion) sealed()                      {}

func (a AvailableVersion) Values() []any {
	return []any{a.ID, a.LanguageEntityID, a.VersionType, a.Name, FormatTime(a.UpdatedAt), FormatTime(a.SyncedAt)}
}

// MediaFileVerse maps a verse to its time range inside a media file.
type MediaFileVerse struct {
	ID               string
	MediaFileID      string
	VerseID          string
	StartTimeSeconds float64
	DurationSeconds  float64
	UpdatedAt        time.Time
	SyncedAt         time.Time
}

func (m MediaFileVerse) Table() string              { return TableMediaFilesVerses }
func (m MediaFileVerse) RecordID() string           { return m.ID }
func (m MediaFileVerse) RecordUpdatedAt() time.Time { return m.UpdatedAt }
func (MediaFileVerse) sealed()                      {}

func (m MediaFileVerse) Values() []any {
	return []any{
		m.ID, m.MediaFileID, m.VerseID, m.StartTimeSeconds, m.DurationSeconds,
		FormatTime(m.UpdatedAt), FormatTime(m.SyncedAt),
	}
}

// ==================== Decoders ====================

// rowReader accumulates field errors and warnings while decoding one row.
type rowReader struct {
	table    string
	raw      RemoteRecord
	id       string
	err      *ValidationError
	warnings []string
}

func newRowReader(table string, raw RemoteRecord) *rowReader {
	r := &rowReader{table: table, raw: raw, id: raw.ID()}
	if r.id == "" {
		r.fail("id", "missing required field")
	}
	return r
}

func (r *rowReader) fail(field, reason string) {
	if r.err == nil {
		r.err = &ValidationError{Table: r.table, RecordID: r.id, Field: field, Reason: reason}
	}
}

func (r *rowReader) warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf("%s %s: ", r.table, r.id)+fmt.Sprintf(format, args...))
}

func (r *rowReader) updatedAt() time.Time {
	t, err := r.raw.UpdatedAt()
	if err != nil {
		r.fail("updated_at", err.Error())
	}
	return t
}

func (r *rowReader) requiredString(field string) string {
	s, ok := coerceString(r.raw[field])
	if !ok || s == "" {
		r.fail(field, "missing required field")
	}
	return s
}

func (r *rowReader) optionalString(field string) string {
	s, _ := coerceString(r.raw[field])
	return s
}

func (r *rowReader) nullableString(field string) *string {
	s, ok := coerceString(r.raw[field])
	if !ok || s == "" {
		return nil
	}
	return &s
}

func (r *rowReader) requiredInt(field string) int {
	v, present := r.raw[field]
	if !present || v == nil {
		r.fail(field, "missing required field")
		return 0
	}
	n, ok := coerceInt(v)
	if !ok {
		r.fail(field, fmt.Sprintf("not an integer: %v", v))
	}
	return n
}

func (r *rowReader) optionalInt(field string) int {
	v, present := r.raw[field]
	if !present || v == nil {
		return 0
	}
	n, ok := coerceInt(v)
	if !ok {
		r.warn("%s is not an integer (%v), defaulting to 0", field, v)
	}
	return n
}

func (r *rowReader) optionalFloat(field string) float64 {
	v, present := r.raw[field]
	if !present || v == nil {
		return 0
	}
	f, ok := coerceFloat(v)
	if !ok {
		r.warn("%s is not a number (%v), defaulting to 0", field, v)
	}
	return f
}

// enum reads an enumerated field. Unknown values are kept as-is with a warning.
func (r *rowReader) enum(field string, allowed ...string) string {
	s, _ := coerceString(r.raw[field])
	normalised := strings.ToLower(strings.TrimSpace(s))
	for _, a := range allowed {
		if normalised == a {
			return a
		}
	}
	r.warn("unexpected %s value %q, keeping as-is", field, s)
	return s
}

func (r *rowReader) result(rec Record) (Record, []string, error) {
	if r.err != nil {
		return nil, r.warnings, r.err
	}
	return rec, r.warnings, nil
}

func decodeBook(raw RemoteRecord, syncedAt time.Time) (Record, []string, error) {
	r := newRowReader(TableBooks, raw)
	b := Book{
		ID:          r.id,
		Name:        r.requiredString("name"),
		BookNumber:  r.requiredInt("book_number"),
		Testament:   r.enum("testament", TestamentOld, TestamentNew),
		GlobalOrder: r.optionalInt("global_order"),
		UpdatedAt:   r.updatedAt(),
		SyncedAt:    syncedAt,
	}
	return r.result(b)
}

func decodeChapter(raw RemoteRecord, syncedAt time.Time) (Record, []string, error) {
	r := newRowReader(TableChapters, raw)
	c := Chapter{
		ID:            r.id,
		BookID:        r.requiredString("book_id"),
		ChapterNumber: r.requiredInt("chapter_number"),
		TotalVerses:   r.optionalInt("total_verses"),
		UpdatedAt:     r.updatedAt(),
		SyncedAt:      syncedAt,
	}
	return r.result(c)
}

func decodeVerse(raw RemoteRecord, syncedAt time.Time) (Record, []string, error) {
	r := newRowReader(TableVerses, raw)
	v := Verse{
		ID:          r.id,
		ChapterID:   r.requiredString("chapter_id"),
		VerseNumber: r.requiredInt("verse_number"),
		GlobalOrder: r.optionalInt("global_order"),
		UpdatedAt:   r.updatedAt(),
		SyncedAt:    syncedAt,
	}
	return r.result(v)
}

func decodeLanguageEntity(raw RemoteRecord, syncedAt time.Time) (Record, []string, error) {
	r := newRowReader(TableLanguageEntities, raw)
	l := LanguageEntity{
		ID:        r.id,
		Name:      r.requiredString("name"),
		Level:     r.enum("level", LevelFamily, LevelLanguage, LevelDialect, LevelMotherTongue),
		ParentID:  r.nullableString("parent_id"),
		UpdatedAt: r.updatedAt(),
		SyncedAt:  syncedAt,
	}
	return r.result(l)
}

func decodeAvailableVersion(raw RemoteRecord, syncedAt time.Time) (Record, []string, error) {
	r := newRowReader(TableAvailableVersion, raw)
	a := AvailableVersion{
		ID:               r.id,
		LanguageEntityID: r.requiredString("language_entity_id"),
		VersionType:      r.enum("version_type", VersionTypeAudio, VersionTypeText),
		Name:             r.optionalString("name"),
		UpdatedAt:        r.updatedAt(),
		SyncedAt:         syncedAt,
	}
	return r.result(a)
}

func decodeMediaFileVerse(raw RemoteRecord, syncedAt time.Time) (Record, []string, error) {
	r := newRowReader(TableMediaFilesVerses, raw)
	m := MediaFileVerse{
		ID:               r.id,
		MediaFileID:      r.requiredString("media_file_id"),
		VerseID:          r.requiredString("verse_id"),
		StartTimeSeconds: r.optionalFloat("start_time_seconds"),
		DurationSeconds:  r.optionalFloat("duration_seconds"),
		UpdatedAt:        r.updatedAt(),
		SyncedAt:         syncedAt,
	}
	return r.result(m)
}

// ==================== Coercion ====================

func coerceString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case time.Time:
		return FormatTime(x), true
	default:
		return "", false
	}
}

func coerceInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	default:
		return 0, false
	}
}

func coerceFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
