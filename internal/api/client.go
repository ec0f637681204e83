package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schollz/pianotube/internal/types"
)

// DefaultBaseURL is where the transcription backend listens by default
const DefaultBaseURL = "http://localhost:8000/api/v1"

// maximum response body logged per request
const logBodyLimit = 512

// Client talks to the transcription backend over HTTP
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for baseURL, e.g. http://localhost:8000/api/v1
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the backend root all endpoints are relative to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks that the backend answers
func (c *Client) Health(ctx context.Context) error {
	var out map[string]interface{}
	return c.get(ctx, "/health", &out)
}

// CreateTranscription submits a new job
func (c *Client) CreateTranscription(ctx context.Context, req *TranscriptionRequest) (*types.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var result transcriptionResult
	if err := c.post(ctx, "/transcribe", req, &result); err != nil {
		return nil, err
	}
	if result.JobID == "" {
		return nil, errors.New("backend returned no job id")
	}
	return result.toJob(), nil
}

// GetJobStatus fetches the current status of a job. The status document
// carries no error text, so for a failed job the full result is fetched
// as well; if that fails the job is returned without an error message.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*types.Job, error) {
	var status jobStatusResponse
	if err := c.get(ctx, "/status/"+escapeID(jobID), &status); err != nil {
		return nil, err
	}
	job := status.toJob()

	if job.Status == types.JobStatusFailed && job.Error == "" {
		full, err := c.GetResult(ctx, jobID)
		if err != nil {
			log.Printf("[API] warning: could not fetch failure details for %s: %v", jobID, err)
		} else {
			job.Error = full.Error
			if job.VideoTitle == "" {
				job.VideoTitle = full.VideoTitle
			}
		}
	}
	return job, nil
}

// GetResult fetches the full job document
func (c *Client) GetResult(ctx context.Context, jobID string) (*types.Job, error) {
	var result transcriptionResult
	if err := c.get(ctx, "/result/"+escapeID(jobID), &result); err != nil {
		return nil, err
	}
	return result.toJob(), nil
}

// GetPianoRollData fetches the note list of a completed job. Before the
// job completes the backend has no MIDI file and the error wraps
// ErrNotReady.
func (c *Client) GetPianoRollData(ctx context.Context, jobID string) (*types.PianoRollData, error) {
	var resp pianoRollResponse
	if err := c.get(ctx, "/piano-roll/"+escapeID(jobID), &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("piano roll for %s: %w: %w", jobID, ErrNotReady, err)
		}
		return nil, err
	}
	data, skipped := resp.toPianoRoll()
	if skipped > 0 {
		log.Printf("[API] warning: dropped %d invalid notes from piano roll %s", skipped, jobID)
	}
	return data, nil
}

// escapeID makes a job id safe as a single path segment
func escapeID(jobID string) string {
	if jobID == "." || jobID == ".." {
		return strings.ReplaceAll(jobID, ".", "%2E")
	}
	return url.PathEscape(jobID)
}

// DownloadURL returns the artifact endpoint for a job
func (c *Client) DownloadURL(jobID string, format types.ArtifactFormat) string {
	return fmt.Sprintf("%s/download/%s/%s", c.baseURL, escapeID(jobID), url.PathEscape(string(format)))
}

// Download streams an artifact into w and returns the bytes written
func (c *Client) Download(ctx context.Context, jobID string, format types.ArtifactFormat, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(jobID, format), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	c.decorate(req)

	log.Printf("[API] → %s %s", req.Method, req.URL.String())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, logBodyLimit))
		return 0, statusError(req, resp.StatusCode, body)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read %s artifact: %w", format, err)
	}
	log.Printf("[API] ← %d %s %s (%d bytes)", resp.StatusCode, req.Method, req.URL.String(), n)
	return n, nil
}

// Available reports whether an artifact can be downloaded. When the job
// result is known its advertised URLs decide; otherwise the download
// endpoint is probed with HEAD.
func (c *Client) Available(ctx context.Context, jobID string, format types.ArtifactFormat, result *types.Result) bool {
	if result != nil {
		return result.Has(format)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.DownloadURL(jobID, format), nil)
	if err != nil {
		return false
	}
	c.decorate(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[API] HEAD %s failed: %v", req.URL.String(), err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// post sends a POST request with JSON body
func (c *Client) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *Client) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("X-Request-ID", uuid.NewString())
}

// doRequest executes an HTTP request and parses the response
func (c *Client) doRequest(req *http.Request, result interface{}) error {
	c.decorate(req)
	req.Header.Set("Accept", "application/json")

	log.Printf("[API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[API] ✗ %s %s: request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[API] ✗ %s %s: failed to read response: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[API] ← %d %s %s %s", resp.StatusCode, req.Method, req.URL.String(), truncate(respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(req, resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		log.Printf("[API] ✗ unmarshal error for %s %s: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func statusError(req *http.Request, code int, body []byte) *StatusError {
	se := &StatusError{Method: req.Method, URL: req.URL.String(), Code: code}
	var detail errorResponse
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		se.Detail = detail.Detail
	} else {
		se.Detail = strings.TrimSpace(string(body))
	}
	return se
}

func truncate(b []byte) string {
	if len(b) > logBodyLimit {
		return string(b[:logBodyLimit]) + "..."
	}
	return string(b)
}
