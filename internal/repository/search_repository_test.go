package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
)

func newSearchRepoServer(t *testing.T, handler http.HandlerFunc) *SearchRepository {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}, MaxRetries: 1})
	require.NoError(t, err)
	return NewSearchRepository(client, "materials", "lecture_text", time.Second)
}

func TestSearchRepositoryLectureIDsForTerm(t *testing.T) {
	var captured map[string]interface{}
	var path string
	repo := newSearchRepoServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_source":{"id_lect":12}},
			{"_source":{"id_lect":3}},
			{"_source":{"id_lect":12}},
			{"_source":{}}
		]}}`))
	})

	ids, err := repo.LectureIDsForTerm(context.Background(), "нейронные сети", 1000)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 12}, ids)
	assert.Equal(t, "/materials/_search", path)
	assert.Equal(t, float64(1000), captured["size"])
	query := captured["query"].(map[string]interface{})["match"].(map[string]interface{})
	assert.Equal(t, "нейронные сети", query["lecture_text"])
}

func TestSearchRepositoryMissingIndexIsEmpty(t *testing.T) {
	repo := newSearchRepoServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"},"status":404}`))
	})

	ids, err := repo.LectureIDsForTerm(context.Background(), "x", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSearchRepositoryFailures(t *testing.T) {
	cases := map[int]*appErrors.Error{
		http.StatusBadRequest:         appErrors.ErrUpstreamQuery,
		http.StatusUnauthorized:       appErrors.ErrUpstreamUnavailable,
		http.StatusServiceUnavailable: appErrors.ErrUpstreamUnavailable,
	}
	for status, expected := range cases {
		status, expected := status, expected
		t.Run(http.StatusText(status), func(t *testing.T) {
			repo := newSearchRepoServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":"boom"}`))
			})
			_, err := repo.LectureIDsForTerm(context.Background(), "x", 10)
			require.Error(t, err)
			assert.ErrorIs(t, err, expected)
			assert.Contains(t, err.Error(), "elasticsearch")
		})
	}
}

func TestSearchRepositoryUnreachable(t *testing.T) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{"http://127.0.0.1:1"}, MaxRetries: 0, DisableRetry: true})
	require.NoError(t, err)
	repo := NewSearchRepository(client, "", "", 200*time.Millisecond)

	_, err = repo.LectureIDsForTerm(context.Background(), "x", 10)
	assert.ErrorIs(t, err, appErrors.ErrUpstreamUnavailable)
	assert.ErrorIs(t, repo.Ping(context.Background()), appErrors.ErrUpstreamUnavailable)
}
