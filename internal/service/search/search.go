package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
)

type AuditHit struct {
	KlientID  string         `json:"klient_id"`
	UserType  string         `json:"user_type"`
	Action    string         `json:"action"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"created_at"`
}

// AuditSearch queries the mirrored audit index, always scoped to one klient.
func AuditSearch(ctx context.Context, es *elasticsearch.Client, index, klientID, query string, from, size int) (int64, []AuditHit, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []map[string]any{
					{"term": map[string]any{"klient_id": klientID}},
				},
				"must": []map[string]any{
					{"multi_match": map[string]any{
						"query":     query,
						"fields":    []string{"action^2", "metadata.reason"},
						"fuzziness": "AUTO",
					}},
				},
			},
		},
		"from": from,
		"size": size,
		"sort": []map[string]any{{"created_at": map[string]any{"order": "desc", "unmapped_type": "date"}}},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("audit search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source AuditHit `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	hits := make([]AuditHit, len(r.Hits.Hits))
	for i, h := range r.Hits.Hits {
		hits[i] = h.Source
	}
	return r.Hits.Total.Value, hits, nil
}
