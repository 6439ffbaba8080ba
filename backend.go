package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"staffDirectoryViewer/internal/models"
	"staffDirectoryViewer/internal/store"
	"staffDirectoryViewer/internal/utils"

	"google.golang.org/api/option"
)

// newRemoteStore builds the list store selected by STORE_BACKEND.
func newRemoteStore(ctx context.Context, config *Config, db *sql.DB) (store.RemoteStore, error) {
	switch config.Backend {
	case BackendSharePoint:
		return store.NewSharePointStore(ctx, store.SharePointConfig{
			SiteURL:      config.SharePointSiteURL,
			TenantID:     config.SharePointTenantID,
			ClientID:     config.SharePointClientID,
			ClientSecret: config.SharePointClientSecret,
			Scope:        config.SharePointScope,
			Timeout:      config.RemoteTimeout,
		})

	case BackendSheets:
		credentials, err := store.SheetsCredentials(ctx, config.GoogleCredentialsFile)
		if err != nil {
			return nil, err
		}
		return store.NewSheetsStore(ctx, config.SheetsSpreadsheetID, config.SheetsRange, credentials, option.WithUserAgent("staff-directory-viewer"))

	case BackendSQLite:
		local, err := store.NewSQLiteStore(db)
		if err != nil {
			return nil, err
		}
		if config.SeedFile != "" {
			if err := seedFromFile(ctx, local, config.ListName, config.SeedFile); err != nil {
				return nil, err
			}
		}
		return local, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", config.Backend)
}

// seedFromFile replaces the list with the items of a JSON file. The file has
// the same shape as the hosted list's item payload.
func seedFromFile(ctx context.Context, local *store.SQLiteStore, listName, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %v", err)
	}

	var items []models.RemoteRow
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %v", path, err)
	}

	if err := local.Seed(ctx, listName, items); err != nil {
		return err
	}

	utils.AppLogger.WithFields(map[string]interface{}{
		"list":  listName,
		"items": len(items),
		"file":  path,
	}).Info("Seeded local list")
	return nil
}
