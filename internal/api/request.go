package api

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidURL is returned for links that are not video page URLs
var ErrInvalidURL = errors.New("please enter a valid YouTube URL")

var youtubePattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/)[\w-]+`)

var validate = validator.New()

// TranscriptionRequest is the body of POST /transcribe
type TranscriptionRequest struct {
	YouTubeURL   string `json:"youtube_url" validate:"required,url"`
	IsolatePiano bool   `json:"isolate_piano"`
}

// NewTranscriptionRequest trims and validates a user supplied link.
// Scheme-less links such as youtu.be/abc get https:// prepended.
func NewTranscriptionRequest(rawURL string, isolatePiano bool) (*TranscriptionRequest, error) {
	u := strings.TrimSpace(rawURL)
	if u != "" && !strings.Contains(u, "://") {
		u = "https://" + u
	}
	req := &TranscriptionRequest{YouTubeURL: u, IsolatePiano: isolatePiano}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate checks the struct tags and the video link pattern
func (r *TranscriptionRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %q", ErrInvalidURL, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !youtubePattern.MatchString(r.YouTubeURL) {
		return ErrInvalidURL
	}
	return nil
}

// IsYouTubeURL reports whether s looks like a video page link
func IsYouTubeURL(s string) bool {
	return youtubePattern.MatchString(strings.TrimSpace(s))
}
