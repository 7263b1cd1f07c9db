package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/top250-scraper/pkg/models"
	"github.com/Sriram-PR/top250-scraper/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(context.Background(), "", false, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func entry(pageIndex int, status models.PageStatus, records int) *models.PageDBEntry {
	return &models.PageDBEntry{
		RunID:       "run-1",
		PageIndex:   pageIndex,
		Offset:      (pageIndex - 1) * 25,
		Status:      status,
		Records:     records,
		LastAttempt: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewBadgerStore(t *testing.T) {
	t.Run("in memory when state dir empty", func(t *testing.T) {
		store := newTestStore(t)
		pages, err := store.Pages()
		require.NoError(t, err)
		assert.Empty(t, pages)
	})

	t.Run("on disk creates ledger dir", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewBadgerStore(context.Background(), dir, false, testLogger())
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })

		info, err := os.Stat(filepath.Join(dir, ledgerDBDir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("fresh start wipes previous ledger", func(t *testing.T) {
		dir := t.TempDir()
		ctx := context.Background()

		store1, err := NewBadgerStore(ctx, dir, false, testLogger())
		require.NoError(t, err)
		require.NoError(t, store1.RecordPage(entry(1, models.PageStatusSuccess, 25)))
		require.NoError(t, store1.Close())

		store2, err := NewBadgerStore(ctx, dir, false, testLogger())
		require.NoError(t, err)
		t.Cleanup(func() { store2.Close() })

		status, _, err := store2.CheckPageStatus(0)
		require.NoError(t, err)
		assert.Equal(t, models.PageStatusNotFound, status)
	})

	t.Run("resume keeps previous ledger", func(t *testing.T) {
		dir := t.TempDir()
		ctx := context.Background()

		store1, err := NewBadgerStore(ctx, dir, false, testLogger())
		require.NoError(t, err)
		require.NoError(t, store1.RecordPage(entry(1, models.PageStatusSuccess, 25)))
		require.NoError(t, store1.Close())

		store2, err := NewBadgerStore(ctx, dir, true, testLogger())
		require.NoError(t, err)
		t.Cleanup(func() { store2.Close() })

		status, got, err := store2.CheckPageStatus(0)
		require.NoError(t, err)
		assert.Equal(t, models.PageStatusSuccess, status)
		require.NotNil(t, got)
		assert.Equal(t, 25, got.Records)
	})
}

func TestRecordPage(t *testing.T) {
	store := newTestStore(t)

	t.Run("round trip all fields survive", func(t *testing.T) {
		in := entry(3, models.PageStatusPartial, 12)
		in.ErrorType = "Content_ParsingHTML"
		in.ContentHash = "abc123"

		require.NoError(t, store.RecordPage(in))
		status, got, err := store.CheckPageStatus(50)

		require.NoError(t, err)
		assert.Equal(t, models.PageStatusPartial, status)
		require.NotNil(t, got)
		assert.Equal(t, in.RunID, got.RunID)
		assert.Equal(t, in.PageIndex, got.PageIndex)
		assert.Equal(t, in.Offset, got.Offset)
		assert.Equal(t, in.ErrorType, got.ErrorType)
		assert.Equal(t, in.ContentHash, got.ContentHash)
		assert.Equal(t, in.Records, got.Records)
		assert.True(t, in.LastAttempt.Equal(got.LastAttempt))
	})

	t.Run("overwrite existing", func(t *testing.T) {
		require.NoError(t, store.RecordPage(entry(5, models.PageStatusFailure, 0)))
		require.NoError(t, store.RecordPage(entry(5, models.PageStatusSuccess, 25)))

		status, got, err := store.CheckPageStatus(100)
		require.NoError(t, err)
		assert.Equal(t, models.PageStatusSuccess, status)
		assert.Equal(t, 25, got.Records)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		err := store.RecordPage(entry(7, models.PageStatusNotFound, 0))
		require.Error(t, err)
		assert.True(t, errors.Is(err, utils.ErrDatabase))

		err = store.RecordPage(entry(7, models.PageStatusUnset, 0))
		require.Error(t, err)
	})

	t.Run("nil entry rejected", func(t *testing.T) {
		err := store.RecordPage(nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, utils.ErrDatabase))
	})
}

func TestCheckPageStatus_NotFound(t *testing.T) {
	store := newTestStore(t)

	status, got, err := store.CheckPageStatus(225)

	require.NoError(t, err)
	assert.Equal(t, models.PageStatusNotFound, status)
	assert.Nil(t, got)
}

func TestCheckPageStatus_ClosedStore(t *testing.T) {
	store, err := NewBadgerStore(context.Background(), "", false, testLogger())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	status, _, err := store.CheckPageStatus(0)

	require.Error(t, err)
	assert.Equal(t, models.PageStatusDBError, status)
}

func TestPages_OffsetOrder(t *testing.T) {
	store := newTestStore(t)
	// Recorded out of order; offsets 225 and 25 would sort wrongly as plain strings
	for _, idx := range []int{10, 2, 1, 5} {
		require.NoError(t, store.RecordPage(entry(idx, models.PageStatusSuccess, 25)))
	}

	pages, err := store.Pages()

	require.NoError(t, err)
	require.Len(t, pages, 4)
	var offsets []int
	for _, p := range pages {
		offsets = append(offsets, p.Offset)
	}
	assert.Equal(t, []int{0, 25, 100, 225}, offsets)
}

func TestPages_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store, err := NewBadgerStore(ctx, "", false, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.RecordPage(entry(1, models.PageStatusSuccess, 25)))

	cancel()
	_, err = store.Pages()

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWritePageLog(t *testing.T) {
	store := newTestStore(t)
	failed := entry(2, models.PageStatusFailure, 0)
	failed.ErrorType = "HTTP_5xx"
	require.NoError(t, store.RecordPage(entry(1, models.PageStatusSuccess, 25)))
	require.NoError(t, store.RecordPage(failed))

	path := filepath.Join(t.TempDir(), "pages.tsv")
	require.NoError(t, store.WritePageLog(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Equal(t, []string{
		"1\t0\tsuccess\t25\t",
		"2\t25\tfailure\t0\tHTTP_5xx",
	}, lines)
}

func TestWritePageLog_BadPath(t *testing.T) {
	store := newTestStore(t)

	err := store.WritePageLog(filepath.Join(t.TempDir(), "missing", "pages.tsv"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrFilesystem))
}

func TestClose_Idempotent(t *testing.T) {
	store, err := NewBadgerStore(context.Background(), "", false, testLogger())
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestBadgerStore_ImplementsPageLedger(t *testing.T) {
	var _ PageLedger = (*BadgerStore)(nil)
}
