package devserver

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/schollz/pianotube/internal/api"
	"github.com/schollz/pianotube/internal/midifile"
	"github.com/schollz/pianotube/internal/storage"
	"github.com/schollz/pianotube/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Prefix is where the API is mounted
const Prefix = "/api/v1"

// DefaultStageDuration is how long each simulated stage lasts
const DefaultStageDuration = 1500 * time.Millisecond

// Config configures the simulated backend
type Config struct {
	StageDuration time.Duration
	MIDIFile      string           // notes to serve; a generated arpeggio when empty
	Clock         func() time.Time // defaults to time.Now
	Quiet         bool             // no request log
}

// Server is an in-memory stand-in for the transcription backend. Jobs
// progress through the stages on a timer and every completed job serves
// the same notes.
type Server struct {
	app      *fiber.App
	validate *validator.Validate
	stage    time.Duration
	now      func() time.Time

	notes    *types.PianoRollData
	midi     []byte
	musicXML map[string][]byte

	mu   sync.Mutex
	jobs map[string]*job
}

// New builds the server and its routes
func New(cfg Config) (*Server, error) {
	notes := Arpeggio()
	if cfg.MIDIFile != "" {
		var err error
		notes, err = midifile.ReadFile(cfg.MIDIFile)
		if err != nil {
			return nil, err
		}
		log.Printf("devserver: serving %d notes from %s", len(notes.Notes), cfg.MIDIFile)
	}
	var midiBuf bytes.Buffer
	if err := midifile.Write(&midiBuf, notes); err != nil {
		return nil, fmt.Errorf("error encoding MIDI: %w", err)
	}

	s := &Server{
		validate: validator.New(),
		stage:    cfg.StageDuration,
		now:      cfg.Clock,
		notes:    notes,
		midi:     midiBuf.Bytes(),
		musicXML: make(map[string][]byte),
		jobs:     make(map[string]*job),
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "pianotube-devserver",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	s.app.Use(recover.New())
	if !cfg.Quiet {
		s.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
			Output: log.Writer(),
		}))
	}

	s.app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": s.now().Unix()})
	})
	v1 := s.app.Group(Prefix)
	v1.Post("/transcribe", s.transcribe)
	v1.Get("/status/:id", s.status)
	v1.Get("/result/:id", s.result)
	v1.Get("/piano-roll/:id", s.pianoRoll)
	v1.Get("/download/:id/:format", s.download)
	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": "pianotube-devserver"})
	})
	return s, nil
}

// App exposes the fiber app, e.g. for app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown
func (s *Server) Listen(addr string) error {
	log.Printf("devserver: listening on http://%s%s", addr, Prefix)
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// errorHandler renders errors as {"detail": "..."} like the real backend
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}
	return c.Status(code).JSON(fiber.Map{"detail": message})
}

func (s *Server) lookup(c *fiber.Ctx) (*job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[c.Params("id")]
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "Job not found")
	}
	return j, nil
}

func (s *Server) transcribe(c *fiber.Ctx) error {
	var req api.TranscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid request body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, formatValidationErrors(err))
	}

	j := newJob(uuid.NewString(), req.YouTubeURL, req.IsolatePiano, s.now())
	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()
	log.Printf("devserver: job %s created for %s (isolate piano: %v)", j.id, j.url, j.isolate)

	return c.JSON(s.document(j))
}

func (s *Server) status(c *fiber.Ctx) error {
	j, err := s.lookup(c)
	if err != nil {
		return err
	}
	doc := s.document(j)
	resp := jobStatusResponse{JobID: j.id, Status: doc.Status, Progress: doc.Progress}
	if doc.Status == string(types.JobStatusCompleted) {
		resp.Result = doc
	}
	return c.JSON(resp)
}

func (s *Server) result(c *fiber.Ctx) error {
	j, err := s.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(s.document(j))
}

func (s *Server) pianoRoll(c *fiber.Ctx) error {
	j, err := s.lookup(c)
	if err != nil {
		return err
	}
	if st, _ := j.state(s.now(), s.stage); st != types.JobStatusCompleted {
		return fiber.NewError(fiber.StatusNotFound, "MIDI file not found")
	}
	resp := pianoRollResponse{
		Notes:    make([]noteEvent, 0, len(s.notes.Notes)),
		Tempo:    s.notes.Tempo,
		Duration: s.notes.Duration,
	}
	for _, n := range s.notes.Notes {
		resp.Notes = append(resp.Notes, noteEvent{
			Pitch:    n.Pitch(),
			Start:    n.Start(),
			End:      n.End(),
			Duration: n.Duration(),
			Velocity: n.Velocity(),
		})
	}
	return c.JSON(resp)
}

func (s *Server) download(c *fiber.Ctx) error {
	j, err := s.lookup(c)
	if err != nil {
		return err
	}
	format := types.ArtifactFormat(c.Params("format"))
	st, _ := j.state(s.now(), s.stage)
	completed := st == types.JobStatusCompleted

	var body []byte
	var contentType string
	switch format {
	case types.FormatMIDI:
		if !completed {
			return fiber.NewError(fiber.StatusNotFound, "MIDI file not found")
		}
		body, contentType = s.midi, "audio/midi"
	case types.FormatMusicXML:
		if !completed {
			return fiber.NewError(fiber.StatusNotFound, "MusicXML file not found")
		}
		body, err = s.score(j)
		if err != nil {
			return err
		}
		contentType = "application/vnd.recordare.musicxml+xml"
	case types.FormatPDF:
		// engraving is not simulated
		return fiber.NewError(fiber.StatusNotFound, "PDF file not found")
	default:
		return fiber.ErrNotFound
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, storage.ArtifactName(j.id, format)))
	return c.Send(body)
}

// score renders and caches the MusicXML of a job
func (s *Server) score(j *job) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.musicXML[j.id]; ok {
		return b, nil
	}
	var buf bytes.Buffer
	if err := WriteMusicXML(&buf, j.title, s.notes); err != nil {
		return nil, fmt.Errorf("error writing MusicXML: %w", err)
	}
	s.musicXML[j.id] = buf.Bytes()
	return buf.Bytes(), nil
}

// document builds the job document as of now
func (s *Server) document(j *job) *transcriptionResult {
	now := s.now()
	status, progress := j.state(now, s.stage)
	doc := &transcriptionResult{
		JobID:      j.id,
		Status:     string(status),
		Progress:   progress,
		VideoTitle: &j.title,
		CreatedAt:  j.createdAt.UTC().Format(isoformat),
	}
	if status.Rank() > types.JobStatusDownloading.Rank() {
		length := s.notes.Duration
		doc.VideoDuration = &length
	}

	switch status {
	case types.JobStatusCompleted:
		done := j.completedAt(s.stage).UTC().Format(isoformat)
		doc.CompletedAt = &done
		midiURL := fmt.Sprintf("%s/download/%s/midi", Prefix, j.id)
		xmlURL := fmt.Sprintf("%s/download/%s/musicxml", Prefix, j.id)
		doc.MIDIURL = &midiURL
		doc.MusicXMLURL = &xmlURL
		doc.Quality = &qualityMetrics{
			ConfidenceScore: 0.9,
			NoteCount:       len(s.notes.Notes),
			Duration:        s.notes.Duration,
			PolyphonyAvg:    polyphony(s.notes),
		}
	case types.JobStatusFailed:
		msg := simulatedError
		doc.Error = &msg
	}
	return doc
}

// polyphony is the average number of notes sounding at each onset
func polyphony(d *types.PianoRollData) float64 {
	if len(d.Notes) == 0 {
		return 0
	}
	total := 0
	for _, a := range d.Notes {
		for _, b := range d.Notes {
			if b.Start() <= a.Start() && b.End() > a.Start() {
				total++
			}
		}
	}
	return float64(total) / float64(len(d.Notes))
}

func formatValidationErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
