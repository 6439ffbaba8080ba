package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"staffDirectoryViewer/internal/models"
	"staffDirectoryViewer/internal/store"
	"staffDirectoryViewer/internal/utils"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	l, err := New(db)
	require.NoError(t, err)
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	manager := "Manager"
	require.NoError(t, l.Record(ctx, "ADRA Staff", 1, "sess-a", models.RemotePatch{JobTitle: &manager}, nil))
	require.NoError(t, l.Record(ctx, "ADRA Staff", 2, "sess-b", models.RemotePatch{}, errors.New("remote unavailable")))

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 2, entries[0].ItemID)
	assert.Equal(t, OutcomeFailed, entries[0].Outcome)
	assert.Equal(t, "remote unavailable", entries[0].Error)
	assert.Equal(t, "sess-b", entries[0].SessionID)

	assert.Equal(t, 1, entries[1].ItemID)
	assert.Equal(t, OutcomeSaved, entries[1].Outcome)
	assert.Empty(t, entries[1].Error)
	require.NotNil(t, entries[1].Patch.JobTitle)
	assert.Equal(t, "Manager", *entries[1].Patch.JobTitle)
	assert.Nil(t, entries[1].Patch.Email)
	assert.True(t, entries[1].CreatedAt.Equal(base.Add(time.Minute)))
}

func TestRecentLimit(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, l.Record(ctx, "ADRA Staff", i, "sess", models.RemotePatch{}, nil))
	}

	entries, err := l.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	all, err := l.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestRecentEmpty(t *testing.T) {
	entries, err := newTestLog(t).Recent(context.Background(), 10)

	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

type updateStub struct {
	store.RemoteStore
	err error
}

func (u *updateStub) UpdateByID(context.Context, string, int, models.RemotePatch) error {
	return u.err
}

func TestWrapRecordsUpdates(t *testing.T) {
	l := newTestLog(t)
	stub := &updateStub{}
	wrapped := l.Wrap(stub)
	ctx := utils.WithSession(context.Background(), "sess-42", "token")

	email := "ama@adra.org"
	require.NoError(t, wrapped.UpdateByID(ctx, "ADRA Staff", 7, models.RemotePatch{Email: &email}))

	stub.err = fmt.Errorf("%w: item 8", store.ErrNotFound)
	err := wrapped.UpdateByID(ctx, "ADRA Staff", 8, models.RemotePatch{})
	assert.ErrorIs(t, err, store.ErrNotFound)

	entries, err := l.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 8, entries[0].ItemID)
	assert.Equal(t, OutcomeFailed, entries[0].Outcome)
	assert.Contains(t, entries[0].Error, "not found")
	assert.Equal(t, "sess-42", entries[1].SessionID)
	assert.Equal(t, OutcomeSaved, entries[1].Outcome)
	assert.Equal(t, "ADRA Staff", entries[1].ListName)
}
