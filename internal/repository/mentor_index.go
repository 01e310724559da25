package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mentor-matching/internal/matching"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// MentorIndex is the Elasticsearch mentor directory. It narrows large pools
// before scoring; the scorer still decides the ranking.
type MentorIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewMentorIndex(client *elasticsearch.Client, index string) *MentorIndex {
	return &MentorIndex{client: client, index: index}
}

// MentorIndexMapping keeps labels as exact keywords so prefilter terms match
// the normalized label sets.
const MentorIndexMapping = `{
  "mappings": {
    "properties": {
      "id":                    {"type": "keyword"},
      "name":                  {"type": "text"},
      "affiliation":           {"type": "text"},
      "expertise":             {"type": "keyword"},
      "keywords":              {"type": "keyword"},
      "active":                {"type": "boolean"},
      "speaks_local_language": {"type": "boolean"}
    }
  }
}`

type mentorDocument struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Affiliation         string   `json:"affiliation"`
	Expertise           []string `json:"expertise"`
	Keywords            []string `json:"keywords"`
	Active              bool     `json:"active"`
	SpeaksLocalLanguage bool     `json:"speaks_local_language"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				ID string `json:"id"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search returns up to size active mentor IDs whose expertise or keywords
// overlap labels, best match first and mentor ID ascending on ties.
func (ix *MentorIndex) Search(ctx context.Context, labels []string, size int) ([]string, error) {
	if len(labels) == 0 || size <= 0 {
		return []string{}, nil
	}

	query := map[string]interface{}{
		"_source": []string{"id"},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"active": true}},
				},
				"should": []interface{}{
					map[string]interface{}{"terms": map[string]interface{}{"expertise": labels}},
					map[string]interface{}{"terms": map[string]interface{}{"keywords": labels}},
				},
				"minimum_should_match": 1,
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"id": "asc"},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode mentor query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{ix.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", ix.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", ix.index, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		if hit.Source.ID != "" {
			ids = append(ids, hit.Source.ID)
		}
	}
	return ids, nil
}

// Index upserts a mentor document keyed by mentor ID.
func (ix *MentorIndex) Index(ctx context.Context, m matching.MentorProfile) error {
	return ix.put(ctx, m, "wait_for")
}

// MentorSource lists directory mentors; an empty ID list means all of them.
type MentorSource interface {
	Mentors(ctx context.Context, ids []string) ([]matching.MentorProfile, error)
}

// Sync copies every directory mentor into the index and refreshes it once,
// so inactive mentors and changed labels are visible to the next search.
func (ix *MentorIndex) Sync(ctx context.Context, src MentorSource) (int, error) {
	mentors, err := src.Mentors(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("load mentors: %w", err)
	}

	for i, m := range mentors {
		if err := ix.put(ctx, m, "false"); err != nil {
			return i, err
		}
	}

	res, err := esapi.IndicesRefreshRequest{Index: []string{ix.index}}.Do(ctx, ix.client)
	if err != nil {
		return len(mentors), fmt.Errorf("refresh %s: %w", ix.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return len(mentors), fmt.Errorf("refresh %s: %s", ix.index, res.Status())
	}
	return len(mentors), nil
}

func (ix *MentorIndex) put(ctx context.Context, m matching.MentorProfile, refresh string) error {
	doc := mentorDocument{
		ID:                  m.ID,
		Name:                m.Name,
		Affiliation:         m.Affiliation,
		Expertise:           matching.NewLabelSet(m.Expertise...),
		Keywords:            matching.NewLabelSet(m.Keywords...),
		Active:              m.Active,
		SpeaksLocalLanguage: m.SpeaksLocalLanguage,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode mentor %s: %w", m.ID, err)
	}

	req := esapi.IndexRequest{
		Index:      ix.index,
		DocumentID: m.ID,
		Body:       strings.NewReader(string(body)),
		Refresh:    refresh,
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("index mentor %s: %w", m.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index mentor %s: %s", m.ID, res.Status())
	}
	return nil
}
