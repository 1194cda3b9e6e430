package documents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, "svc-user", "svc-pass", 5*time.Second)
	return server, client
}

func TestClient_TokenCaching(t *testing.T) {
	var tokenRequests int32

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rest/jwt" {
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "svc-user", user)
			assert.Equal(t, "svc-pass", pass)
			atomic.AddInt32(&tokenRequests, 1)
			w.Write([]byte(`"jwt-abc-123"`))
			return
		}
		assert.Equal(t, "Bearer jwt-abc-123", r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	})

	ctx := context.Background()

	_, err := client.ProjectFolders(ctx, "278550")
	require.NoError(t, err)
	_, err = client.ProjectFolders(ctx, "278550")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenRequests),
		"second call should reuse the cached token")
}

func TestClient_TokenRefreshOnExpiry(t *testing.T) {
	var tokenRequests int32

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rest/jwt" {
			atomic.AddInt32(&tokenRequests, 1)
			w.Write([]byte("jwt-fresh"))
			return
		}
		w.Write([]byte(`[]`))
	})

	ctx := context.Background()
	_, err := client.ProjectFolders(ctx, "278550")
	require.NoError(t, err)

	// Force the cached token to the expiry edge.
	client.tokens.mu.Lock()
	client.tokens.expiresAt = time.Now()
	client.tokens.mu.Unlock()

	_, err = client.ProjectFolders(ctx, "278550")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&tokenRequests))
}

func TestClient_MissingCredentials(t *testing.T) {
	client := NewClient("http://lucernex.invalid", "", "", time.Second)
	_, err := client.ProjectFolders(context.Background(), "278550")
	assert.Error(t, err)
}

func TestClient_FetchAllDocuments(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/jwt":
			w.Write([]byte("jwt"))
		case "/servlet/TreeLoaderServlet":
			assert.Equal(t, "278550", r.URL.Query().Get("peID"))
			w.Write([]byte(`[
				{"id": 10, "text": "Contracts", "numFiles": 0, "children": [
					{"id": 11, "text": "Executed", "numFiles": 1}
				]},
				{"id": 20, "text": "Photos", "numFiles": 2}
			]`))
		case "/servlet/JSONDataRequest":
			switch r.URL.Query().Get("folderID") {
			case "11":
				w.Write([]byte(`[{"ID": "9001", "name": "contract.pdf", "size": "1 MB", "uploadedBy": "J. Smith", "date": "2025-03-01"}]`))
			case "20":
				w.Write([]byte(`{"data": [
					{"id": "9002", "name": "site.jpg"},
					{"documentID": "9003", "name": "plan.dwg"}
				]}`))
			default:
				t.Errorf("unexpected folder id %s", r.URL.Query().Get("folderID"))
			}
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	docs, err := client.FetchAllDocuments(context.Background(), "278550")
	require.NoError(t, err)
	require.Len(t, docs, 3)

	byID := make(map[string]Document)
	for _, d := range docs {
		byID[d.DocID] = d
	}

	contract := byID["9001"]
	assert.Equal(t, "Contracts", contract.FolderCategory)
	assert.Equal(t, "Executed", contract.SubFolder)
	assert.Equal(t, "application/pdf", contract.DocType)
	assert.Equal(t, "J. Smith", contract.UploadedBy)
	assert.Contains(t, contract.DocURL, "documentID=9001")

	photo := byID["9002"]
	assert.Equal(t, "Photos", photo.FolderCategory)
	assert.Empty(t, photo.SubFolder)
	assert.Equal(t, "image/jpeg", photo.DocType)

	// documentID key variant also normalized
	assert.Equal(t, "application/acad", byID["9003"].DocType)
}

func TestGuessMIME(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"scope.pdf", "application/pdf"},
		{"budget.XLSX", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"photo.jpeg", "image/jpeg"},
		{"noextension", "application/octet-stream"},
		{"weird.xyz", "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, guessMIME(tt.filename), tt.filename)
	}
}
