// Package store talks to the hosted list services that own the staff rows.
package store

import (
	"context"
	"errors"
	"sort"

	"staffDirectoryViewer/internal/models"
)

var (
	// ErrRemoteUnavailable covers network, auth and service failures.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrNotFound means the item addressed by an update no longer exists.
	ErrNotFound = errors.New("list item not found")
)

// RemoteStore reads and patches the items of a named list.
type RemoteStore interface {
	// FetchAll returns every item of the list ordered by office ascending,
	// then SortID descending. It never returns a partial result.
	FetchAll(ctx context.Context, listName string) ([]models.RemoteRow, error)
	// UpdateByID applies patch to the item with the given id.
	UpdateByID(ctx context.Context, listName string, id int, patch models.RemotePatch) error
}

// sortRows applies the list ordering for backends without server-side
// ordering. Items without an office sort first.
func sortRows(rows []models.RemoteRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := officeURL(rows[i]), officeURL(rows[j])
		if a != b {
			return a < b
		}
		return rows[i].SortID > rows[j].SortID
	})
}

func officeURL(row models.RemoteRow) string {
	if row.Office == nil {
		return ""
	}
	return row.Office.Url
}
