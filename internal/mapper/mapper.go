// Package mapper converts between list items of the hosted staff list and the
// records shown in the staff table.
package mapper

import "staffDirectoryViewer/internal/models"

// ToDisplay keeps the rows whose office URL equals targetPartitionURL and
// flattens them, preserving input order. The comparison is exact: no case
// folding, no trailing-slash normalization. Rows without an office never match.
func ToDisplay(rows []models.RemoteRow, targetPartitionURL string) []models.DisplayRecord {
	records := make([]models.DisplayRecord, 0, len(rows))
	for _, row := range rows {
		if !InPartition(row, targetPartitionURL) {
			continue
		}
		records = append(records, toRecord(row))
	}
	return records
}

// InPartition reports whether a row belongs to the office at targetPartitionURL.
func InPartition(row models.RemoteRow, targetPartitionURL string) bool {
	return row.Office != nil && row.Office.Url == targetPartitionURL
}

func toRecord(row models.RemoteRow) models.DisplayRecord {
	return models.DisplayRecord{
		ID:             row.ID,
		PartitionLabel: row.Office.Description,
		PartitionKey:   row.Office.Url,
		FirstName:      row.FirstName,
		LastName:       row.Title,
		JobTitle:       row.JobTitle,
		WorkPhone:      row.WorkPhone,
		Email:          row.Email,
		MessagingID:    row.SkypeID,
	}
}

// ToRemotePatch renames the record's fields back to list columns and rebuilds
// the office hyperlink. The ID is not part of the patch; it addresses the item.
func ToRemotePatch(record models.DisplayRecord) models.RemotePatch {
	return models.RemotePatch{
		Office: &models.OfficeLink{
			Description: record.PartitionLabel,
			Url:         record.PartitionKey,
		},
		FirstName: stringPtr(record.FirstName),
		Title:     stringPtr(record.LastName),
		JobTitle:  stringPtr(record.JobTitle),
		WorkPhone: stringPtr(record.WorkPhone),
		Email:     stringPtr(record.Email),
		SkypeID:   stringPtr(record.MessagingID),
	}
}

// ApplyPatch merges a patch onto a row the way the list service does: set
// fields replace, nil fields are kept.
func ApplyPatch(row models.RemoteRow, patch models.RemotePatch) models.RemoteRow {
	if patch.Office != nil {
		office := *patch.Office
		row.Office = &office
	}
	if patch.FirstName != nil {
		row.FirstName = *patch.FirstName
	}
	if patch.Title != nil {
		row.Title = *patch.Title
	}
	if patch.JobTitle != nil {
		row.JobTitle = *patch.JobTitle
	}
	if patch.WorkPhone != nil {
		row.WorkPhone = *patch.WorkPhone
	}
	if patch.Email != nil {
		row.Email = *patch.Email
	}
	if patch.SkypeID != nil {
		row.SkypeID = *patch.SkypeID
	}
	return row
}

func stringPtr(s string) *string {
	return &s
}
