// Package documents syncs Lucernex project documents into the reporting
// database. It runs separately from the main reconciliation pipeline.
package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Document is one normalized Lucernex document row.
type Document struct {
	DocID          string `json:"doc_id"`
	ProjectID      string `json:"project_id"`
	FolderID       string `json:"folder_id"`
	FolderCategory string `json:"folder_category"`
	SubFolder      string `json:"sub_folder"`
	DocName        string `json:"doc_name"`
	DocURL         string `json:"doc_url"`
	DocType        string `json:"doc_type"`
	DocSize        string `json:"doc_size"`
	UploadedBy     string `json:"uploaded_by"`
	UploadedAt     string `json:"uploaded_at"`
	LastChecked    string `json:"last_checked"`
}

// Folder is one node of the Lucernex folder tree.
type Folder struct {
	ID       json.Number `json:"id"`
	Text     string      `json:"text"`
	NumFiles int         `json:"numFiles"`
	Children []Folder    `json:"children"`
}

// tokenCache holds a JWT and its expiry. Owned by the client instance,
// guarded for concurrent syncs.
type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// Client talks to the Lucernex REST API.
//
// Auth flow: POST /rest/jwt (Basic auth) yields a JWT; subsequent calls
// send Authorization: Bearer <token>.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     *tokenCache
}

func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
		// Lucernex throttles aggressive clients; 4 rps is safe.
		limiter: rate.NewLimiter(4, 8),
		tokens:  &tokenCache{},
	}
}

// token returns a cached JWT, requesting a fresh one when within a
// minute of expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.tokens.mu.Lock()
	defer c.tokens.mu.Unlock()

	if c.tokens.token != "" && time.Now().Before(c.tokens.expiresAt.Add(-time.Minute)) {
		return c.tokens.token, nil
	}

	if c.username == "" || c.password == "" {
		return "", fmt.Errorf("lucernex credentials are not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/rest/jwt?expiryTimeInMinutes=60", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request jwt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request jwt: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read jwt response: %w", err)
	}

	c.tokens.token = strings.Trim(strings.TrimSpace(string(body)), `"`)
	// Token is valid 60 minutes; refresh a couple early.
	c.tokens.expiresAt = time.Now().Add(58 * time.Minute)
	log.Println("[documents] Lucernex JWT token acquired")
	return c.tokens.token, nil
}

func (c *Client) apiGet(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ProjectFolders returns the folder tree for a project. Lucernex may
// return a bare list or an object wrapping one.
func (c *Client) ProjectFolders(ctx context.Context, projectEntityID string) ([]Folder, error) {
	params := url.Values{
		"treeType": {"peFolders"},
		"peID":     {projectEntityID},
		"node":     {"root"},
		"_dc":      {strconv.FormatInt(time.Now().UnixMilli(), 10)},
	}
	body, err := c.apiGet(ctx, "/servlet/TreeLoaderServlet", params)
	if err != nil {
		return nil, err
	}

	var folders []Folder
	if err := json.Unmarshal(body, &folders); err == nil {
		return folders, nil
	}

	var wrapped struct {
		Children []Folder `json:"children"`
		Data     []Folder `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode folder tree: %w", err)
	}
	if wrapped.Children != nil {
		return wrapped.Children, nil
	}
	return wrapped.Data, nil
}

// FolderDocuments returns the documents inside one folder page.
func (c *Client) FolderDocuments(ctx context.Context, folderID string, page, limit int) ([]map[string]any, error) {
	params := url.Values{
		"reqType":  {"Documents"},
		"folderID": {folderID},
		"page":     {strconv.Itoa(page)},
		"start":    {strconv.Itoa((page - 1) * limit)},
		"limit":    {strconv.Itoa(limit)},
		"_dc":      {strconv.FormatInt(time.Now().UnixMilli(), 10)},
	}
	body, err := c.apiGet(ctx, "/servlet/JSONDataRequest", params)
	if err != nil {
		return nil, err
	}

	var docs []map[string]any
	if err := json.Unmarshal(body, &docs); err == nil {
		return docs, nil
	}

	var wrapped struct {
		Data []map[string]any `json:"data"`
		Rows []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode folder documents: %w", err)
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	return wrapped.Rows, nil
}

// FetchAllDocuments walks the full folder tree and collects every
// document, normalized for insertion. Per-folder listing failures are
// logged and skipped so one bad folder doesn't sink the project.
func (c *Client) FetchAllDocuments(ctx context.Context, projectEntityID string) ([]Document, error) {
	nowISO := time.Now().UTC().Format(time.RFC3339)

	folders, err := c.ProjectFolders(ctx, projectEntityID)
	if err != nil {
		return nil, fmt.Errorf("load folder tree for %s: %w", projectEntityID, err)
	}

	var documents []Document
	var walk func(nodes []Folder, category string, depth int)
	walk = func(nodes []Folder, category string, depth int) {
		for _, node := range nodes {
			curCategory, curSub := category, node.Text
			if depth == 0 {
				curCategory, curSub = node.Text, ""
			}

			if node.NumFiles > 0 {
				docs, err := c.FolderDocuments(ctx, node.ID.String(), 1, 200)
				if err != nil {
					log.Printf("[documents] failed to list docs in folder %s (%s/%s): %v",
						node.ID, curCategory, curSub, err)
				} else {
					for _, d := range docs {
						docID := firstString(d, "ID", "id", "documentID")
						docName := firstString(d, "name", "Name")
						documents = append(documents, Document{
							DocID:          docID,
							ProjectID:      projectEntityID,
							FolderID:       node.ID.String(),
							FolderCategory: curCategory,
							SubFolder:      curSub,
							DocName:        docName,
							DocURL:         c.documentURL(docID, node.ID.String()),
							DocType:        guessMIME(docName),
							DocSize:        firstString(d, "size", "Size"),
							UploadedBy:     firstString(d, "uploadedBy", "UploadedBy", "author"),
							UploadedAt:     firstString(d, "date", "Date"),
							LastChecked:    nowISO,
						})
					}
				}
			}

			if len(node.Children) > 0 {
				walk(node.Children, curCategory, depth+1)
			}
		}
	}
	walk(folders, "", 0)

	log.Printf("[documents] fetched %d documents for project %s", len(documents), projectEntityID)
	return documents, nil
}

func (c *Client) documentURL(docID, folderID string) string {
	return fmt.Sprintf("%s/servlet/DocumentDownload?documentID=%s&folderID=%s",
		c.baseURL, docID, folderID)
}

// firstString returns the first present key rendered as a string.
// Lucernex responses are inconsistent about casing and key names.
func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			switch t := v.(type) {
			case string:
				return t
			case float64:
				return strconv.FormatFloat(t, 'f', -1, 64)
			default:
				return fmt.Sprintf("%v", t)
			}
		}
	}
	return ""
}

var mimeByExt = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"dwg":  "application/acad",
	"zip":  "application/zip",
	"msg":  "application/vnd.ms-outlook",
	"txt":  "text/plain",
	"csv":  "text/csv",
}

func guessMIME(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return "application/octet-stream"
	}
	if mime, ok := mimeByExt[strings.ToLower(filename[idx+1:])]; ok {
		return mime
	}
	return "application/octet-stream"
}
