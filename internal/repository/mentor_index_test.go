package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mentor-matching/internal/matching"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *MentorIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewMentorIndex(client, "mentors")
}

func TestMentorIndex_Search(t *testing.T) {
	var gotPath string
	var gotQuery map[string]interface{}

	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotQuery)
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":2},"hits":[
			{"_id":"m3","_source":{"id":"m3"}},
			{"_id":"m1","_source":{"id":"m1"}}
		]}}`))
	})

	ids, err := ix.Search(context.Background(), []string{"fmri", "memory"}, 25)
	require.NoError(t, err)

	assert.Equal(t, []string{"m3", "m1"}, ids)
	assert.Equal(t, "/mentors/_search", gotPath)
	boolQuery := gotQuery["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.EqualValues(t, 1, boolQuery["minimum_should_match"])
	assert.Len(t, boolQuery["should"], 2)
}

func TestMentorIndex_SearchError(t *testing.T) {
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"}}`))
	})

	_, err := ix.Search(context.Background(), []string{"fmri"}, 10)
	assert.ErrorContains(t, err, "404")
}

func TestMentorIndex_SearchNoLabels(t *testing.T) {
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL.Path)
	})

	ids, err := ix.Search(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMentorIndex_Index(t *testing.T) {
	var gotPath, gotMethod, gotBody string

	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	err := ix.Index(context.Background(), matching.MentorProfile{
		ID: "m1", Name: "Dr. Kim", Keywords: matching.LabelSet{"Memory"}, Active: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/mentors/_doc/m1", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.True(t, strings.Contains(gotBody, `"keywords":["memory"]`))
}

type stubMentors struct {
	mentors []matching.MentorProfile
	err     error
	gotIDs  []string
}

func (s *stubMentors) Mentors(_ context.Context, ids []string) ([]matching.MentorProfile, error) {
	s.gotIDs = ids
	return s.mentors, s.err
}

func TestMentorIndex_Sync(t *testing.T) {
	var paths []string
	docs := map[string]mentorDocument{}

	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut {
			var doc mentorDocument
			body, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(body, &doc))
			docs[doc.ID] = doc
			assert.Equal(t, "false", r.URL.Query().Get("refresh"))
		}
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	})

	src := &stubMentors{mentors: []matching.MentorProfile{
		{ID: "m1", Expertise: matching.LabelSet{"fmri"}, Active: true},
		{ID: "m2", Keywords: matching.LabelSet{"robotics"}, Active: false},
	}}
	n, err := ix.Sync(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Empty(t, src.gotIDs)
	assert.Equal(t, []string{
		"PUT /mentors/_doc/m1",
		"PUT /mentors/_doc/m2",
		"POST /mentors/_refresh",
	}, paths)
	assert.True(t, docs["m1"].Active)
	assert.False(t, docs["m2"].Active)
	assert.Equal(t, []string{"robotics"}, docs["m2"].Keywords)
}

func TestMentorIndex_SyncStopsOnIndexError(t *testing.T) {
	requests := 0
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if strings.HasSuffix(r.URL.Path, "/m2") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"mapper_parsing_exception"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	src := &stubMentors{mentors: []matching.MentorProfile{{ID: "m1"}, {ID: "m2"}, {ID: "m3"}}}
	n, err := ix.Sync(context.Background(), src)

	assert.ErrorContains(t, err, "index mentor m2")
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, requests)
}

func TestMentorIndex_SyncSourceError(t *testing.T) {
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL.Path)
	})

	_, err := ix.Sync(context.Background(), &stubMentors{err: errors.New("connection refused")})
	assert.ErrorContains(t, err, "load mentors")
}
