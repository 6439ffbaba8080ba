package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"staffDirectoryViewer/internal/models"
	"staffDirectoryViewer/internal/utils"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	sharePointPageSize = "5000"
	sharePointOrderBy  = "ADRA_x0020_Office asc,SortID desc"
	noMetadataJSON     = "application/json;odata=nometadata"
	maxErrorBody       = 64 << 10
)

// SharePointConfig holds what is needed to reach a SharePoint site with an
// app-only token.
type SharePointConfig struct {
	SiteURL      string
	TenantID     string
	ClientID     string
	ClientSecret string
	// Scope defaults to "<site origin>/.default".
	Scope string
	// TokenURL defaults to the Microsoft identity platform v2 endpoint of TenantID.
	TokenURL string
	Timeout  time.Duration
}

// SharePointStore reads and updates list items through the SharePoint REST API.
type SharePointStore struct {
	siteURL string
	client  *http.Client
}

// NewSharePointStore builds a store that authenticates with the OAuth2 client
// credentials flow. Tokens are fetched lazily and cached by the transport.
func NewSharePointStore(ctx context.Context, cfg SharePointConfig) (*SharePointStore, error) {
	site, err := url.Parse(cfg.SiteURL)
	if err != nil || site.Scheme == "" || site.Host == "" {
		return nil, fmt.Errorf("invalid SharePoint site URL %q", cfg.SiteURL)
	}

	scope := cfg.Scope
	if scope == "" {
		scope = fmt.Sprintf("%s://%s/.default", site.Scheme, site.Host)
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", url.PathEscape(cfg.TenantID))
	}

	base := cleanhttp.DefaultPooledClient()
	base.Timeout = cfg.Timeout

	credentials := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{scope},
	}
	client := credentials.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	client.Timeout = cfg.Timeout

	return NewSharePointStoreWithClient(cfg.SiteURL, client), nil
}

// NewSharePointStoreWithClient uses client as is; it must already add
// whatever authorization the site expects.
func NewSharePointStoreWithClient(siteURL string, client *http.Client) *SharePointStore {
	return &SharePointStore{
		siteURL: strings.TrimRight(siteURL, "/"),
		client:  client,
	}
}

func (s *SharePointStore) itemsURL(listName string) string {
	title := strings.ReplaceAll(listName, "'", "''")
	return fmt.Sprintf("%s/_api/web/lists/getbytitle('%s')/items", s.siteURL, url.PathEscape(title))
}

// FetchAll follows odata.nextLink until the whole list has been read.
func (s *SharePointStore) FetchAll(ctx context.Context, listName string) ([]models.RemoteRow, error) {
	query := url.Values{}
	query.Set("$top", sharePointPageSize)
	query.Set("$orderby", sharePointOrderBy)
	next := s.itemsURL(listName) + "?" + query.Encode()

	var rows []models.RemoteRow
	for page := 1; next != ""; page++ {
		body, err := s.get(ctx, next)
		if err != nil {
			return nil, err
		}

		var payload struct {
			Value []models.RemoteRow `json:"value"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("%w: decoding items page %d: %v", ErrRemoteUnavailable, page, err)
		}
		rows = append(rows, payload.Value...)

		next = nextLink(body)
		utils.AppLogger.WithFields(map[string]interface{}{
			"list":  listName,
			"page":  page,
			"items": len(payload.Value),
		}).Debug("Fetched SharePoint items page")
	}

	return rows, nil
}

func nextLink(body []byte) string {
	for _, key := range []string{`odata\.nextLink`, `@odata\.nextLink`, `d.__next`} {
		if link := gjson.GetBytes(body, key); link.Exists() {
			return link.String()
		}
	}
	return ""
}

func (s *SharePointStore) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	req.Header.Set("Accept", noMetadataJSON)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrRemoteUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		// A missing list is a service problem for reads, not a vanished item.
		return nil, fmt.Errorf("%w: status %d: %s", ErrRemoteUnavailable, resp.StatusCode, remoteMessage(body))
	}
	return body, nil
}

// UpdateByID sends a MERGE so only the fields present in patch change.
func (s *SharePointStore) UpdateByID(ctx context.Context, listName string, id int, patch models.RemotePatch) error {
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encoding patch for item %d: %w", id, err)
	}

	endpoint := fmt.Sprintf("%s(%d)", s.itemsURL(listName), id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	req.Header.Set("Accept", noMetadataJSON)
	req.Header.Set("Content-Type", noMetadataJSON)
	req.Header.Set("X-HTTP-Method", "MERGE")
	req.Header.Set("IF-MATCH", "*")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: item %d: %s", ErrNotFound, id, remoteMessage(body))
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status %d: %s", ErrRemoteUnavailable, resp.StatusCode, remoteMessage(body))
	}
}

// remoteMessage digs the human readable message out of the error envelopes
// SharePoint uses for the different OData verbosity levels.
func remoteMessage(body []byte) string {
	for _, path := range []string{`odata\.error.message.value`, "error.message.value", "error.message"} {
		if msg := gjson.GetBytes(body, path); msg.Exists() && msg.String() != "" {
			return msg.String()
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
