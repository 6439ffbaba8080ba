package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"staffDirectoryViewer/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewSQLiteStore(db)
	require.NoError(t, err, "failed to migrate DB instance")
	return s
}

func seedItems() []models.RemoteRow {
	return []models.RemoteRow{
		{ID: 1, Office: &models.OfficeLink{Description: "HQ", Url: "https://x/afro"}, FirstName: "Ama", Title: "Mensah", JobTitle: "Clerk", SortID: 1},
		{ID: 2, Office: &models.OfficeLink{Description: "Branch", Url: "https://x/inter"}, FirstName: "Kofi", SortID: 9},
		{ID: 3, Office: &models.OfficeLink{Description: "HQ", Url: "https://x/afro"}, FirstName: "Esi", SortID: 5},
		{ID: 4, FirstName: "Nobody"},
	}
}

func TestSQLiteFetchAllOrdering(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, "ADRA Staff", seedItems()))
	require.NoError(t, s.Seed(ctx, "Other", []models.RemoteRow{{ID: 1}}))

	rows, err := s.FetchAll(ctx, "ADRA Staff")

	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []int{4, 3, 1, 2}, []int{rows[0].ID, rows[1].ID, rows[2].ID, rows[3].ID})
	assert.Nil(t, rows[0].Office)
	assert.Equal(t, seedItems()[0], rows[2])
}

func TestSQLiteFetchAllUnknownListIsEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)

	rows, err := s.FetchAll(context.Background(), "missing")

	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLiteUpdateByID(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, "ADRA Staff", seedItems()))

	manager := "Manager"
	err := s.UpdateByID(ctx, "ADRA Staff", 1, models.RemotePatch{
		Office:   &models.OfficeLink{Description: "Head Office", Url: "https://x/afro"},
		JobTitle: &manager,
	})
	require.NoError(t, err)

	rows, err := s.FetchAll(ctx, "ADRA Staff")
	require.NoError(t, err)
	var updated models.RemoteRow
	for _, row := range rows {
		if row.ID == 1 {
			updated = row
		}
	}
	assert.Equal(t, "Manager", updated.JobTitle)
	assert.Equal(t, "Head Office", updated.Office.Description)
	assert.Equal(t, "Ama", updated.FirstName)
}

func TestSQLiteUpdateByIDNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, "ADRA Staff", seedItems()))

	title := "x"
	err := s.UpdateByID(ctx, "ADRA Staff", 99, models.RemotePatch{Title: &title})
	require.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateByID(ctx, "ADRA Staff", 99, models.RemotePatch{})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpdateByID(ctx, "ADRA Staff", 1, models.RemotePatch{}))
}

func TestSQLiteUpdateByIDEmptyPatch(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, "ADRA Staff", seedItems()))

	require.NoError(t, s.UpdateByID(ctx, "ADRA Staff", 1, models.RemotePatch{}))
	require.ErrorIs(t, s.UpdateByID(ctx, "ADRA Staff", 99, models.RemotePatch{}), ErrNotFound)

	rows, err := s.FetchAll(ctx, "ADRA Staff")
	require.NoError(t, err)
	assert.Equal(t, seedItems()[0], rows[2])
}

func TestSQLiteUnavailableAfterClose(t *testing.T) {
	s := newTestSQLiteStore(t)
	require.NoError(t, s.db.Close())

	_, err := s.FetchAll(context.Background(), "ADRA Staff")
	require.ErrorIs(t, err, ErrRemoteUnavailable)
}

func TestSQLiteSeedRollsBackOnDuplicate(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, "ADRA Staff", seedItems()))

	err := s.Seed(ctx, "ADRA Staff", []models.RemoteRow{{ID: 7}, {ID: 7}})
	require.Error(t, err)

	rows, err := s.FetchAll(ctx, "ADRA Staff")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}
