package avatar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuseTalk_EndToEnd(t *testing.T) {
	polls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/generate_video", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "the script", body["text"])
		assert.Equal(t, "Female", body["gender"])
		w.Write([]byte(`{"job_id":"job-9"}`))
	})
	mux.HandleFunc("/job-status/job-9", func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls < 2 {
			w.Write([]byte(`{"status":"processing"}`))
			return
		}
		w.Write([]byte(`{"status":"success"}`))
	})
	mux.HandleFunc("/download/job-9", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("VIDEO"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := NewMuseTalk(srv.URL + "/")
	ctx := context.Background()

	id, err := m.Submit(ctx, RenderRequest{Script: "the script", Gender: "female"})
	require.NoError(t, err)
	assert.Equal(t, "job-9", id)

	st, err := Wait(ctx, m, id, Policy{Interval: time.Millisecond}, nil)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, st.State)

	path := filepath.Join(t.TempDir(), "out.mp4")
	require.NoError(t, m.Download(ctx, st, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "VIDEO", string(data))
}

func TestMuseTalk_Failed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"failed"}`))
	}))
	defer srv.Close()

	st, err := NewMuseTalk(srv.URL).Status(context.Background(), "job")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
	assert.NotEmpty(t, st.Error)
}

func TestMuseTalk_MissingJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewMuseTalk(srv.URL).Submit(context.Background(), RenderRequest{Script: "x"})
	assert.ErrorContains(t, err, "job_id")
}

func TestMuseTalk_ListSpeakers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/speakers", r.URL.Path)
		w.Write([]byte(`[{"name":"Ana"},{"name":"Ben"}]`))
	}))
	defer srv.Close()

	speakers, err := NewMuseTalk(srv.URL).ListSpeakers(context.Background())
	require.NoError(t, err)
	assert.Len(t, speakers, 2)
}
