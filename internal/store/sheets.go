package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"staffDirectoryViewer/internal/models"
	"staffDirectoryViewer/internal/utils"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Header cells naming the list columns in a sheet-backed list.
const (
	headerID          = "Id"
	headerOfficeLabel = "ADRA_x0020_Office.Description"
	headerOfficeURL   = "ADRA_x0020_Office.Url"
	headerFirstName   = "FirstName"
	headerTitle       = "Title"
	headerJobTitle    = "JobTitle"
	headerWorkPhone   = "WorkPhone"
	headerEmail       = "Email"
	headerSkypeID     = "SkypeID"
	headerSortID      = "SortID"
)

// SheetsStore keeps a list in one tab of a Google spreadsheet. The tab is
// named after the list, its first row holds the column headers above.
type SheetsStore struct {
	srv           *sheets.Service
	spreadsheetID string
	columns       string
}

// SheetsCredentials loads a service account key file for the Sheets API.
func SheetsCredentials(ctx context.Context, path string) (option.ClientOption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading Google credentials %s: %w", path, err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing Google credentials %s: %w", path, err)
	}
	return option.WithCredentials(creds), nil
}

// NewSheetsStore creates a store on spreadsheetID. columns is an A1 column
// span such as "A:Z".
func NewSheetsStore(ctx context.Context, spreadsheetID, columns string, opts ...option.ClientOption) (*SheetsStore, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Sheets client: %v", err)
	}

	if columns == "" {
		columns = "A:Z"
	}
	return &SheetsStore{srv: srv, spreadsheetID: spreadsheetID, columns: columns}, nil
}

func (s *SheetsStore) tabRange(listName, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(listName, "'", "''"), cells)
}

// sheetTable is the parsed content of one tab.
type sheetTable struct {
	header map[string]int
	// rows[i] sits on sheet row i+2.
	rows [][]interface{}
}

func (s *SheetsStore) readTable(ctx context.Context, listName string) (*sheetTable, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, s.tabRange(listName, s.columns)).Context(ctx).Do()
	if err != nil {
		return nil, sheetsError("unable to retrieve data from sheet", err)
	}

	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("%w: no data found in sheet %q", ErrRemoteUnavailable, listName)
	}

	header := make(map[string]int, len(resp.Values[0]))
	for i, cell := range resp.Values[0] {
		header[strings.TrimSpace(cellString(cell))] = i
	}
	if _, ok := header[headerID]; !ok {
		return nil, fmt.Errorf("%w: sheet %q has no %s column", ErrRemoteUnavailable, listName, headerID)
	}

	return &sheetTable{header: header, rows: resp.Values[1:]}, nil
}

func (t *sheetTable) cell(row []interface{}, column string) string {
	i, ok := t.header[column]
	if !ok || i >= len(row) {
		return ""
	}
	return cellString(row[i])
}

func cellString(cell interface{}) string {
	if cell == nil {
		return ""
	}
	return fmt.Sprintf("%v", cell)
}

func (t *sheetTable) rowID(row []interface{}) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(t.cell(row, headerID)))
	return id, err == nil
}

func (t *sheetTable) toRemoteRow(row []interface{}, id int) models.RemoteRow {
	remote := models.RemoteRow{
		ID:        id,
		FirstName: t.cell(row, headerFirstName),
		Title:     t.cell(row, headerTitle),
		JobTitle:  t.cell(row, headerJobTitle),
		WorkPhone: t.cell(row, headerWorkPhone),
		Email:     t.cell(row, headerEmail),
		SkypeID:   t.cell(row, headerSkypeID),
	}
	if sortID, err := strconv.ParseFloat(strings.TrimSpace(t.cell(row, headerSortID)), 64); err == nil {
		remote.SortID = sortID
	}

	label, link := t.cell(row, headerOfficeLabel), t.cell(row, headerOfficeURL)
	if label != "" || link != "" {
		remote.Office = &models.OfficeLink{Description: label, Url: link}
	}
	return remote
}

// FetchAll reads the whole tab. Rows without a numeric Id are not list items
// and are skipped.
func (s *SheetsStore) FetchAll(ctx context.Context, listName string) ([]models.RemoteRow, error) {
	table, err := s.readTable(ctx, listName)
	if err != nil {
		return nil, err
	}

	rows := make([]models.RemoteRow, 0, len(table.rows))
	for i, row := range table.rows {
		id, ok := table.rowID(row)
		if !ok {
			utils.AppLogger.WithFields(map[string]interface{}{
				"list":      listName,
				"sheet_row": i + 2,
			}).Debug("Skipping sheet row without a numeric Id")
			continue
		}
		rows = append(rows, table.toRemoteRow(row, id))
	}

	sortRows(rows)
	return rows, nil
}

// UpdateByID rewrites the patched cells of the row whose Id matches.
func (s *SheetsStore) UpdateByID(ctx context.Context, listName string, id int, patch models.RemotePatch) error {
	table, err := s.readTable(ctx, listName)
	if err != nil {
		return err
	}

	sheetRow := 0
	for i, row := range table.rows {
		if rowID, ok := table.rowID(row); ok && rowID == id {
			sheetRow = i + 2
			break
		}
	}
	if sheetRow == 0 {
		return fmt.Errorf("%w: item %d in sheet %q", ErrNotFound, id, listName)
	}
	if patch.IsEmpty() {
		return nil
	}

	var data []*sheets.ValueRange
	for column, value := range patchCells(patch) {
		col, ok := table.header[column]
		if !ok {
			return fmt.Errorf("%w: sheet %q has no %s column", ErrRemoteUnavailable, listName, column)
		}
		data = append(data, &sheets.ValueRange{
			Range:  s.tabRange(listName, fmt.Sprintf("%s%d", columnIndexToLetter(col), sheetRow)),
			Values: [][]interface{}{{value}},
		})
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}
	if _, err := s.srv.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return sheetsError("unable to update sheet", err)
	}
	return nil
}

func patchCells(patch models.RemotePatch) map[string]string {
	cells := make(map[string]string)
	if patch.Office != nil {
		cells[headerOfficeLabel] = patch.Office.Description
		cells[headerOfficeURL] = patch.Office.Url
	}
	set := func(column string, value *string) {
		if value != nil {
			cells[column] = *value
		}
	}
	set(headerFirstName, patch.FirstName)
	set(headerTitle, patch.Title)
	set(headerJobTitle, patch.JobTitle)
	set(headerWorkPhone, patch.WorkPhone)
	set(headerEmail, patch.Email)
	set(headerSkypeID, patch.SkypeID)
	return cells
}

func sheetsError(action string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: status %d: %s", ErrRemoteUnavailable, action, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: %s: %v", ErrRemoteUnavailable, action, err)
}

func columnIndexToLetter(index int) string {
	var result strings.Builder
	for index >= 0 {
		result.WriteByte(byte('A' + index%26))
		index = index/26 - 1
	}

	runes := []rune(result.String())
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
