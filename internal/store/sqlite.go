package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"staffDirectoryViewer/internal/models"
)

// SQLiteStore keeps lists in a local SQLite database. It stands in for the
// hosted list during development and demos.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the list_items table if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS list_items (
			list_name TEXT NOT NULL,
			id INTEGER NOT NULL,
			office_description TEXT,
			office_url TEXT,
			first_name TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			job_title TEXT NOT NULL DEFAULT '',
			work_phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			skype_id TEXT NOT NULL DEFAULT '',
			sort_id REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (list_name, id)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create list_items table: %v", err)
	}
	return nil
}

// FetchAll returns the list ordered like the hosted service does. NULL
// office URLs sort first.
func (s *SQLiteStore) FetchAll(ctx context.Context, listName string) ([]models.RemoteRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, office_description, office_url, first_name, title, job_title,
		       work_phone, email, skype_id, sort_id
		FROM list_items
		WHERE list_name = ?
		ORDER BY office_url ASC, sort_id DESC, id ASC`, listName)
	if err != nil {
		return nil, fmt.Errorf("%w: querying list %q: %v", ErrRemoteUnavailable, listName, err)
	}
	defer rows.Close()

	var result []models.RemoteRow
	for rows.Next() {
		var (
			row         models.RemoteRow
			description sql.NullString
			link        sql.NullString
		)
		if err := rows.Scan(&row.ID, &description, &link, &row.FirstName, &row.Title, &row.JobTitle,
			&row.WorkPhone, &row.Email, &row.SkypeID, &row.SortID); err != nil {
			return nil, fmt.Errorf("%w: scanning list %q: %v", ErrRemoteUnavailable, listName, err)
		}
		if description.Valid || link.Valid {
			row.Office = &models.OfficeLink{Description: description.String, Url: link.String}
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating list %q: %v", ErrRemoteUnavailable, listName, err)
	}
	return result, nil
}

// UpdateByID updates only the columns present in patch. An empty patch only
// checks that the item exists.
func (s *SQLiteStore) UpdateByID(ctx context.Context, listName string, id int, patch models.RemotePatch) error {
	if patch.IsEmpty() {
		return s.ensureExists(ctx, listName, id)
	}

	var (
		sets []string
		args []interface{}
	)
	set := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Office != nil {
		set("office_description", patch.Office.Description)
		set("office_url", patch.Office.Url)
	}
	for column, value := range map[string]*string{
		"first_name": patch.FirstName,
		"title":      patch.Title,
		"job_title":  patch.JobTitle,
		"work_phone": patch.WorkPhone,
		"email":      patch.Email,
		"skype_id":   patch.SkypeID,
	} {
		if value != nil {
			set(column, *value)
		}
	}

	args = append(args, listName, id)
	query := fmt.Sprintf("UPDATE list_items SET %s WHERE list_name = ? AND id = ?", strings.Join(sets, ", "))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: updating item %d: %v", ErrRemoteUnavailable, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: updating item %d: %v", ErrRemoteUnavailable, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: item %d in list %q", ErrNotFound, id, listName)
	}
	return nil
}

func (s *SQLiteStore) ensureExists(ctx context.Context, listName string, id int) error {
	var found int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM list_items WHERE list_name = ? AND id = ?", listName, id).Scan(&found)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: item %d in list %q", ErrNotFound, id, listName)
	}
	if err != nil {
		return fmt.Errorf("%w: looking up item %d: %v", ErrRemoteUnavailable, id, err)
	}
	return nil
}

// Seed replaces the content of a list in one transaction.
func (s *SQLiteStore) Seed(ctx context.Context, listName string, items []models.RemoteRow) error {
	return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM list_items WHERE list_name = ?", listName); err != nil {
			return fmt.Errorf("failed to clear list %q: %v", listName, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO list_items (list_name, id, office_description, office_url, first_name, title,
			                        job_title, work_phone, email, skype_id, sort_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare seed insert: %v", err)
		}
		defer stmt.Close()

		for _, item := range items {
			var description, link sql.NullString
			if item.Office != nil {
				description = sql.NullString{String: item.Office.Description, Valid: true}
				link = sql.NullString{String: item.Office.Url, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, listName, item.ID, description, link, item.FirstName, item.Title,
				item.JobTitle, item.WorkPhone, item.Email, item.SkypeID, item.SortID); err != nil {
				return fmt.Errorf("failed to insert item %d: %v", item.ID, err)
			}
		}
		return nil
	})
}

// withTransaction commits when fn succeeds and rolls back otherwise.
func withTransaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("failed to rollback transaction: %v (original error: %v)", rollbackErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}
