package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/pianotube/internal/types"
)

func newTestServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/v1", 5*time.Second)
}

func TestCreateTranscription(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/transcribe", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body map[string]interface{}
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "https://www.youtube.com/watch?v=abc123", body["youtube_url"])
		assert.Equal(t, true, body["isolate_piano"])

		w.Write([]byte(`{"job_id":"j1","status":"pending","progress":0,"created_at":"2024-03-01T12:00:00.123456"}`))
	})
	c := newTestServer(t, mux)

	req, err := NewTranscriptionRequest("  https://www.youtube.com/watch?v=abc123 ", true)
	require.NoError(t, err)
	job, err := c.CreateTranscription(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "j1", job.ID)
	assert.Equal(t, types.JobStatusPending, job.Status)
	assert.Equal(t, 2024, job.CreatedAt.Year())
	assert.Nil(t, job.Result)
}

func TestTranscriptionRequestValidation(t *testing.T) {
	testCases := []struct {
		url string
		ok  bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"http://youtube.com/watch?v=abc", true},
		{"youtu.be/abc_DEF-1", true},
		{"https://youtu.be/xyz", true},
		{"", false},
		{"https://vimeo.com/12345", false},
		{"https://www.youtube.com/channel/foo", false},
		{"not a url", false},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			_, err := NewTranscriptionRequest(tc.url, false)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidURL), "got %v", err)
			}
		})
	}
}

func TestGetJobStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status/running", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job_id":"running","status":"transcribing","progress":50}`))
	})
	mux.HandleFunc("/api/v1/status/done", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job_id":"done","status":"completed","progress":100,"result":{
			"job_id":"done","status":"completed","progress":100,"video_title":"Nocturne",
			"video_duration":245.5,"quality":{"confidence_score":0.85,"note_count":412,"duration":245.5,"polyphony_avg":2.4},
			"midi_url":"/api/v1/download/done/midi","musicxml_url":"/api/v1/download/done/musicxml",
			"created_at":"2024-03-01T12:00:00","completed_at":"2024-03-01T12:03:00"}}`))
	})
	mux.HandleFunc("/api/v1/status/broken", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job_id":"broken","status":"failed","progress":10}`))
	})
	mux.HandleFunc("/api/v1/result/broken", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job_id":"broken","status":"failed","progress":10,"error":"Video unavailable","created_at":"x"}`))
	})
	mux.HandleFunc("/api/v1/status/odd", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job_id":"odd","status":"reticulating","progress":40}`))
	})
	c := newTestServer(t, mux)
	ctx := context.Background()

	t.Run("in progress", func(t *testing.T) {
		job, err := c.GetJobStatus(ctx, "running")
		require.NoError(t, err)
		assert.Equal(t, types.JobStatusTranscribing, job.Status)
		assert.Equal(t, 50, job.Progress)
		assert.Nil(t, job.Result)
	})

	t.Run("completed carries the result", func(t *testing.T) {
		job, err := c.GetJobStatus(ctx, "done")
		require.NoError(t, err)
		assert.Equal(t, types.JobStatusCompleted, job.Status)
		assert.Equal(t, "Nocturne", job.VideoTitle)
		require.NotNil(t, job.Result)
		assert.True(t, job.Result.Has(types.FormatMIDI))
		assert.True(t, job.Result.Has(types.FormatMusicXML))
		assert.False(t, job.Result.Has(types.FormatPDF))
		require.NotNil(t, job.Result.Quality)
		assert.Equal(t, 412, job.Result.Quality.NoteCount)
		require.NotNil(t, job.Result.CompletedAt)
		assert.Equal(t, 245.5, job.Result.VideoLength)
	})

	t.Run("failed fetches the error text", func(t *testing.T) {
		job, err := c.GetJobStatus(ctx, "broken")
		require.NoError(t, err)
		assert.Equal(t, types.JobStatusFailed, job.Status)
		assert.Equal(t, "Video unavailable", job.Error)
	})

	t.Run("unknown status is passed through", func(t *testing.T) {
		job, err := c.GetJobStatus(ctx, "odd")
		require.NoError(t, err)
		assert.Equal(t, types.JobStatus("reticulating"), job.Status)
	})

	t.Run("missing job", func(t *testing.T) {
		_, err := c.GetJobStatus(ctx, "nope")
		assert.True(t, errors.Is(err, ErrNotFound))
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusNotFound, se.Code)
	})
}

func TestBackendErrorDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/transcribe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"redis unavailable"}`))
	})
	c := newTestServer(t, mux)

	req, err := NewTranscriptionRequest("youtu.be/abc", false)
	require.NoError(t, err)
	_, err = c.CreateTranscription(context.Background(), req)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "redis unavailable", se.Detail)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestGetPianoRollData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/piano-roll/done", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"notes":[
			{"pitch":64,"start":1.0,"end":1.5,"duration":0.5,"velocity":90},
			{"pitch":60,"start":0.0,"end":1.0,"duration":0,"velocity":100},
			{"pitch":200,"start":0.0,"end":1.0,"duration":1,"velocity":100}
		],"tempo":0,"duration":0}`))
	})
	mux.HandleFunc("/api/v1/piano-roll/pending", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"MIDI file not found"}`))
	})
	c := newTestServer(t, mux)

	data, err := c.GetPianoRollData(context.Background(), "done")
	require.NoError(t, err)
	require.Len(t, data.Notes, 2, "invalid pitch dropped")
	assert.Equal(t, 60, data.Notes[0].Pitch(), "sorted by start")
	assert.Equal(t, 1.0, data.Notes[0].Duration(), "duration from end-start")
	assert.Equal(t, types.DefaultTempo, data.Tempo)
	assert.Equal(t, 1.5, data.Duration)

	_, err = c.GetPianoRollData(context.Background(), "pending")
	assert.True(t, errors.Is(err, ErrNotReady))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDownloadAndAvailability(t *testing.T) {
	midi := []byte("MThd\x00\x00\x00\x06\x00\x00\x00\x01\x01\xe0")
	var heads int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/download/j1/midi", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			atomic.AddInt32(&heads, 1)
		}
		w.Header().Set("Content-Type", "audio/midi")
		w.Write(midi)
	})
	mux.HandleFunc("/api/v1/download/j1/pdf", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			atomic.AddInt32(&heads, 1)
		}
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestServer(t, mux)
	ctx := context.Background()

	var buf bytes.Buffer
	n, err := c.Download(ctx, "j1", types.FormatMIDI, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(midi)), n)
	assert.Equal(t, midi, buf.Bytes())

	_, err = c.Download(ctx, "j1", types.FormatPDF, &buf)
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.True(t, c.Available(ctx, "j1", types.FormatMIDI, nil))
	assert.False(t, c.Available(ctx, "j1", types.FormatPDF, nil))
	assert.Equal(t, int32(2), atomic.LoadInt32(&heads))

	result := &types.Result{PDFURL: "/download/j1/pdf"}
	assert.True(t, c.Available(ctx, "j1", types.FormatPDF, result), "advertised URL wins without probing")
	assert.Equal(t, int32(2), atomic.LoadInt32(&heads))

	assert.Equal(t, c.BaseURL()+"/download/j1/musicxml", c.DownloadURL("j1", types.FormatMusicXML))
}

func TestJobIDStaysOnePathSegment(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.EscapedPath())
		mu.Unlock()
		w.Write([]byte(`{"job_id":"x","status":"pending","progress":0}`))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/api/v1", 5*time.Second)
	ctx := context.Background()

	_, err := c.GetResult(ctx, "../health")
	require.NoError(t, err)
	_, err = c.GetJobStatus(ctx, "..")
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/api/v1/result/..%2Fhealth", "/api/v1/status/%2E%2E"}, paths)

	assert.Equal(t, c.BaseURL()+"/download/a%2Fb/midi", c.DownloadURL("a/b", types.FormatMIDI))
}

func TestHealth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy"}`))
	})
	c := newTestServer(t, mux)
	assert.NoError(t, c.Health(context.Background()))

	down := NewClient("http://127.0.0.1:1/api/v1", 200*time.Millisecond)
	assert.Error(t, down.Health(context.Background()))
}
