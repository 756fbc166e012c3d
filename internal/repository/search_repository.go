package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
)

// StoreElasticsearch names the search index in errors and metrics.
const StoreElasticsearch = "elasticsearch"

// SearchRepository runs full-text queries over lecture materials.
type SearchRepository struct {
	client  *elasticsearch.Client
	index   string
	field   string
	timeout time.Duration
}

// NewSearchRepository constructs the repository. field is the analysed text field matched against the term.
func NewSearchRepository(client *elasticsearch.Client, index, field string, timeout time.Duration) *SearchRepository {
	if index == "" {
		index = "materials"
	}
	if field == "" {
		field = "lecture_text"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SearchRepository{client: client, index: index, field: field, timeout: timeout}
}

type materialHits struct {
	Hits struct {
		Hits []struct {
			Source struct {
				LectureID *int64 `json:"id_lect"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// LectureIDsForTerm returns distinct lecture ids whose material matches term, capped at limit hits.
// A missing index is treated as no matches.
func (r *SearchRepository) LectureIDsForTerm(ctx context.Context, term string, limit int) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"match": map[string]interface{}{r.field: term},
		},
		"_source": []string{"id_lect"},
		"size":    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, appErrors.Unavailable(StoreElasticsearch, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, searchFailure(res.StatusCode, res.Body)
	}

	var hits materialHits
	if err := json.NewDecoder(res.Body).Decode(&hits); err != nil {
		return nil, appErrors.QueryFailed(StoreElasticsearch, fmt.Errorf("decode search response: %w", err))
	}

	seen := make(map[int64]struct{}, len(hits.Hits.Hits))
	ids := make([]int64, 0, len(hits.Hits.Hits))
	for _, hit := range hits.Hits.Hits {
		if hit.Source.LectureID == nil {
			continue
		}
		id := *hit.Source.LectureID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Ping checks the cluster for readiness probes.
func (r *SearchRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	res, err := r.client.Ping(r.client.Ping.WithContext(ctx))
	if err != nil {
		return appErrors.Unavailable(StoreElasticsearch, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return searchFailure(res.StatusCode, res.Body)
	}
	return nil
}

func searchFailure(status int, body io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(body, 2048))
	err := fmt.Errorf("search returned %d: %s", status, bytes.TrimSpace(raw))
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return appErrors.Unavailable(StoreElasticsearch, err)
	}
	return appErrors.QueryFailed(StoreElasticsearch, err)
}
