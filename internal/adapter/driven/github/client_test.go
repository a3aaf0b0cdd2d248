package github_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/ericfisherdev/reviewbot/internal/adapter/driven/github"
	"github.com/ericfisherdev/reviewbot/internal/domain/model"
	"github.com/ericfisherdev/reviewbot/internal/domain/port/driven"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) *ghAdapter.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := ghAdapter.NewClientWithHTTPClient(server.Client(), server.URL+"/", "reviewbot")
	require.NoError(t, err)

	return client
}

func TestCompareCommits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/compare/base...head", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"files": []map[string]any{
				{"filename": "a.go", "status": "modified", "patch": "@@ -1,2 +1,2 @@\n-x\n+y\n z"},
				{"filename": "img.png", "status": "added"},
			},
		})
	})

	client := newTestClient(t, mux)

	files, err := client.CompareCommits(context.Background(), "owner/repo", "base", "head")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.go", files[0].Filename)
	assert.Contains(t, files[0].Patch, "@@ -1,2 +1,2 @@")
	assert.Empty(t, files[1].Patch)
}

func TestListIssueComments_CachedPerRun(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "body": "hello", "user": map[string]any{"login": "alice"}},
		})
	})

	client := newTestClient(t, mux)
	ctx := context.Background()

	first, err := client.ListIssueComments(ctx, "owner/repo", 7)
	require.NoError(t, err)
	second, err := client.ListIssueComments(ctx, "owner/repo", 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "second call must hit the in-run cache")
}

func TestListCommits_CachedPerRun(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/pulls/7/commits", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"sha": "c1"}, {"sha": "c2"},
		})
	})

	client := newTestClient(t, mux)
	ctx := context.Background()

	shas, err := client.ListCommits(ctx, "owner/repo", 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, shas)

	_, err = client.ListCommits(ctx, "owner/repo", 7)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubmitReview_Payload(t *testing.T) {
	var got struct {
		CommitID string `json:"commit_id"`
		Event    string `json:"event"`
		Body     string `json:"body"`
		Comments []struct {
			Path      string `json:"path"`
			Line      int    `json:"line"`
			StartLine int    `json:"start_line"`
		} `json:"comments"`
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/pulls/3/reviews", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 99})
	})

	client := newTestClient(t, mux)

	err := client.SubmitReview(context.Background(), "owner/repo", 3, driven.ReviewSubmission{
		CommitID: "head-sha",
		Body:     "status",
		Comments: []model.DraftComment{
			{Path: "a.go", StartLine: 5, EndLine: 8, Body: "multi"},
			{Path: "b.go", StartLine: 9, EndLine: 9, Body: "single"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "head-sha", got.CommitID)
	assert.Equal(t, "COMMENT", got.Event)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, 5, got.Comments[0].StartLine)
	assert.Equal(t, 8, got.Comments[0].Line)
	// Single-line comments omit start_line.
	assert.Zero(t, got.Comments[1].StartLine)
	assert.Equal(t, 9, got.Comments[1].Line)
}

func TestGetFileContent_NotFoundIsEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/contents/missing.go", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client := newTestClient(t, mux)

	content, err := client.GetFileContent(context.Background(), "owner/repo", "missing.go", "abc")
	require.NoError(t, err)
	assert.Empty(t, content)
}
