package domain

import (
	"fmt"
	"time"
)

// Sync domains group tables that are synchronised together by one orchestrator.
const (
	DomainBible = "bible"
	DomainMedia = "media"
)

// Known table names.
const (
	TableBooks            = "books"
	TableChapters         = "chapters"
	TableVerses           = "verses"
	TableLanguageEntities = "language_entities"
	TableAvailableVersion = "available_versions"
	TableMediaFilesVerses = "media_files_verses"
)

// DecodeFunc validates a remote row and converts it into the table's record variant.
// Non-fatal anomalies are returned as warnings alongside the record.
type DecodeFunc func(raw RemoteRecord, syncedAt time.Time) (Record, []string, error)

// SyncableTable describes one replicated table.
type SyncableTable struct {
	// Name is the table name, identical locally and remotely.
	Name string

	// Domain is the sync domain the table belongs to.
	Domain string

	// Parent is the table that must sync successfully first. Empty when independent.
	Parent string

	// PrimaryKey is the unique row identifier column.
	PrimaryKey string

	// TieBreak orders rows sharing the same updated_at.
	TieBreak string

	// Columns lists the local columns in the order Record.Values returns them.
	Columns []string

	// Decode validates remote rows for this table.
	Decode DecodeFunc
}

// HasParent reports whether the table depends on another table.
func (t SyncableTable) HasParent() bool {
	return t.Parent != ""
}

// tables is the registry in dependency order: parents always precede children.
var tables = []SyncableTable{
	{
		Name:       TableBooks,
		Domain:     DomainBible,
		PrimaryKey: "id",
		TieBreak:   "id",
		Columns:    []string{"id", "name", "book_number", "testament", "global_order", "updated_at", "synced_at"},
		Decode:     decodeBook,
	},
	{
		Name:       TableChapters,
		Domain:     DomainBible,
		Parent:     TableBooks,
		PrimaryKey: "id",
		TieBreak:   "id",
		Columns:    []string{"id", "book_id", "chapter_number", "total_verses", "updated_at", "synced_at"},
		Decode:     decodeChapter,
	},
	{
		Name:       TableVerses,
		Domain:     DomainBible,
		Parent:     TableChapters,
		PrimaryKey: "id",
		TieBreak:   "id",
		Columns:    []string{"id", "chapter_id", "verse_number", "global_order", "updated_at", "synced_at"},
		Decode:     decodeVerse,
	},
	{
		Name:       TableLanguageEntities,
		Domain:     DomainMedia,
		PrimaryKey: "id",
		TieBreak:   "id",
		Columns:    []string{"id", "name", "level", "parent_id", "updated_at", "synced_at"},
		Decode:     decodeLanguageEntity,
	},
	{
		Name:       TableAvailableVersion,
		Domain:     DomainMedia,
		Parent:     TableLanguageEntities,
		PrimaryKey: "id",
		TieBreak:   "id",
		Columns:    []string{"id", "language_entity_id", "version_type", "name", "updated_at", "synced_at"},
		Decode:     decodeAvailableVersion,
	},
	{
		Name:       TableMediaFilesVerses,
		Domain:     DomainMedia,
		PrimaryKey: "id",
		TieBreak:   "id",
		Columns: []string{
			"id", "media_file_id", "verse_id", "start_time_seconds", "duration_seconds", "updated_at", "synced_at",
		},
		Decode: decodeMediaFileVerse,
	},
}

// AllTables returns every known table in dependency order.
func AllTables() []SyncableTable {
	out := make([]SyncableTable, len(tables))
	copy(out, tables)
	return out
}

// TablesForDomain returns the tables of a sync domain in dependency order.
func TablesForDomain(domainName string) []SyncableTable {
	var out []SyncableTable
	for _, t := range tables {
		if t.Domain == domainName {
			out = append(out, t)
		}
	}
	return out
}

// DomainNames returns the known sync domains.
func DomainNames() []string {
	return []string{DomainBible, DomainMedia}
}

// LookupTable returns the table definition for name.
func LookupTable(name string) (SyncableTable, error) {
	for _, t := range tables {
		if t.Name == name {
			return t, nil
		}
	}
	return SyncableTable{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
}

// TableNames returns the names of the given tables, preserving order.
func TableNames(ts []SyncableTable) []string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name
	}
	return names
}
