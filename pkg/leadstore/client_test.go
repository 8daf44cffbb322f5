package leadstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "jane@acme.com", req.Query)
		assert.Equal(t, 1, req.K)

		_ = json.NewEncoder(w).Encode(searchResponse{Documents: []Document{
			{
				Content:  "Jane Doe leads platform engineering at Acme.",
				Metadata: map[string]string{"organization": "Acme", "role_title": "VP Engineering"},
			},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	docs, err := c.Search(context.Background(), "jane@acme.com", 1, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Acme", docs[0].Metadata["organization"])
}

func TestSearch_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"documents": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	docs, err := c.Search(context.Background(), "nobody@example.com", 1, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSearch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"index unavailable"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Search(context.Background(), "jane@acme.com", 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}
