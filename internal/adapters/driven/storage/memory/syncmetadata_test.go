package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/versesync/internal/core/domain"
)

func TestNewSyncMetadataStore_SeedsEveryTable(t *testing.T) {
	store := NewSyncMetadataStore()

	all, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, len(domain.AllTables()))

	for i, meta := range all {
		assert.Equal(t, domain.AllTables()[i].Name, meta.TableName)
		assert.True(t, domain.EpochZero.Equal(meta.LastSync))
		assert.Equal(t, domain.SyncStatusIdle, meta.SyncStatus)
	}
}

func TestSyncMetadataStore_Get_Unknown(t *testing.T) {
	store := NewSyncMetadataStore()
	_, err := store.Get(context.Background(), "psalms")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncMetadataStore_AdvanceWatermark_NeverRegresses(t *testing.T) {
	store := NewSyncMetadataStore()
	ctx := context.Background()
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	require.NoError(t, store.AdvanceWatermark(ctx, domain.TableBooks, domain.Cursor{UpdatedAt: t2, ID: "b"}))
	require.NoError(t, store.AdvanceWatermark(ctx, domain.TableBooks, domain.Cursor{UpdatedAt: t1, ID: "z"}))
	require.NoError(t, store.AdvanceWatermark(ctx, domain.TableBooks, domain.Cursor{UpdatedAt: t2, ID: "a"}))

	meta, err := store.Get(ctx, domain.TableBooks)
	require.NoError(t, err)
	assert.True(t, t2.Equal(meta.LastSync))
	assert.Equal(t, "b", meta.LastSyncID)

	require.NoError(t, store.AdvanceWatermark(ctx, domain.TableBooks, domain.Cursor{UpdatedAt: t2, ID: "c"}))
	meta, _ = store.Get(ctx, domain.TableBooks)
	assert.Equal(t, "c", meta.LastSyncID)
}

func TestSyncMetadataStore_StatusVersionAndReset(t *testing.T) {
	store := NewSyncMetadataStore()
	ctx := context.Background()
	checkedAt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SetStatus(ctx, domain.TableVerses, domain.SyncStatusError, "boom"))
	require.NoError(t, store.SetContentVersion(ctx, domain.TableVerses, "v7"))
	require.NoError(t, store.TouchVersionCheck(ctx, []string{domain.TableVerses, domain.TableBooks}, checkedAt))
	require.NoError(t, store.AdvanceWatermark(ctx, domain.TableVerses, domain.Cursor{UpdatedAt: checkedAt, ID: "v"}))

	meta, _ := store.Get(ctx, domain.TableVerses)
	assert.Equal(t, domain.SyncStatusError, meta.SyncStatus)
	assert.Equal(t, "boom", meta.ErrorMessage)
	assert.Equal(t, "v7", meta.ContentVersion)
	assert.True(t, checkedAt.Equal(meta.LastVersionCheck))

	assert.ErrorIs(t, store.SetStatus(ctx, domain.TableVerses, "paused", ""), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SetContentVersion(ctx, "psalms", "v1"), domain.ErrNotFound)

	require.NoError(t, store.Reset(ctx, domain.TableVerses))
	meta, _ = store.Get(ctx, domain.TableVerses)
	assert.True(t, domain.EpochZero.Equal(meta.LastSync))
	assert.Empty(t, meta.LastSyncID)
	assert.Empty(t, meta.ContentVersion)
	assert.Equal(t, domain.SyncStatusIdle, meta.SyncStatus)

	assert.ErrorIs(t, store.Reset(ctx, "psalms"), domain.ErrUnknownTable)
}

func TestSyncMetadataStore_CountGap(t *testing.T) {
	store := NewSyncMetadataStore()
	ctx := context.Background()

	require.NoError(t, store.SetCountGap(ctx, domain.TableBooks, 2))
	meta, err := store.Get(ctx, domain.TableBooks)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.CountGap)

	assert.ErrorIs(t, store.SetCountGap(ctx, "psalms", 1), domain.ErrNotFound)

	require.NoError(t, store.Reset(ctx, domain.TableBooks))
	meta, _ = store.Get(ctx, domain.TableBooks)
	assert.Zero(t, meta.CountGap)
}
