package memory

import (
	"fmt"
	"time"

	"github.com/custodia-labs/versesync/internal/core/domain"
)

// rowsPerTimestamp controls how many consecutive fixture rows share one
// updated_at value.
const rowsPerTimestamp = 7

// SeedBible fills the bible tables with books, chapters and verses rows
// spread as evenly as possible over their parents. Rows are stamped from
// base upwards, several rows per second.
func (s *Source) SeedBible(books, chapters, verses int, base time.Time) {
	for i := range books {
		testament := domain.TestamentOld
		if i >= 39 {
			testament = domain.TestamentNew
		}
		s.Put(domain.TableBooks, domain.RemoteRecord{
			"id":           bookID(i),
			"name":         fmt.Sprintf("Book %d", i+1),
			"book_number":  i + 1,
			"testament":    testament,
			"global_order": i + 1,
			"updated_at":   fixtureStamp(base, i),
		})
	}

	for i := range chapters {
		s.Put(domain.TableChapters, domain.RemoteRecord{
			"id":             chapterID(i),
			"book_id":        bookID(spread(i, chapters, books)),
			"chapter_number": i + 1,
			"total_verses":   0,
			"updated_at":     fixtureStamp(base, i),
		})
	}

	for i := range verses {
		s.Put(domain.TableVerses, domain.RemoteRecord{
			"id":           fmt.Sprintf("verse-%06d", i+1),
			"chapter_id":   chapterID(spread(i, verses, chapters)),
			"verse_number": i + 1,
			"global_order": i + 1,
			"updated_at":   fixtureStamp(base, i),
		})
	}
}

// SeedMedia fills the media tables with n rows each.
func (s *Source) SeedMedia(n int, base time.Time) {
	for i := range n {
		id := fmt.Sprintf("lang-%04d", i+1)
		s.Put(domain.TableLanguageEntities, domain.RemoteRecord{
			"id":         id,
			"name":       fmt.Sprintf("Language %d", i+1),
			"level":      domain.LevelLanguage,
			"parent_id":  nil,
			"updated_at": fixtureStamp(base, i),
		})
		s.Put(domain.TableAvailableVersion, domain.RemoteRecord{
			"id":                 fmt.Sprintf("version-%04d", i+1),
			"language_entity_id": id,
			"version_type":       domain.VersionTypeAudio,
			"name":               fmt.Sprintf("Audio %d", i+1),
			"updated_at":         fixtureStamp(base, i),
		})
		s.Put(domain.TableMediaFilesVerses, domain.RemoteRecord{
			"id":                 fmt.Sprintf("mfv-%04d", i+1),
			"media_file_id":      fmt.Sprintf("file-%04d", i/10+1),
			"verse_id":           fmt.Sprintf("verse-%06d", i+1),
			"start_time_seconds": float64(i%10) * 4.5,
			"duration_seconds":   4.5,
			"updated_at":         fixtureStamp(base, i),
		})
	}
}

// FixtureTime returns the updated_at assigned to the i-th seeded row.
func FixtureTime(base time.Time, i int) time.Time {
	return base.Add(time.Duration(i/rowsPerTimestamp) * time.Second).UTC()
}

func fixtureStamp(base time.Time, i int) string {
	return domain.FormatTime(FixtureTime(base, i))
}

func bookID(i int) string    { return fmt.Sprintf("book-%03d", i+1) }
func chapterID(i int) string { return fmt.Sprintf("chapter-%05d", i+1) }

// spread maps child i of total onto one of parents buckets.
func spread(i, total, parents int) int {
	return i * parents / total
}
