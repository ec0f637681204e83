package model

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/schollz/pianotube/internal/api"
	"github.com/schollz/pianotube/internal/coordinator"
	"github.com/schollz/pianotube/internal/playback"
	"github.com/schollz/pianotube/internal/transport"
	"github.com/schollz/pianotube/internal/types"
)

// DefaultFrameInterval is used when Options leaves FrameInterval unset
const DefaultFrameInterval = time.Second / 30

// Artifact is the outcome of downloading one format
type Artifact struct {
	Path        string
	Unavailable bool
	Err         error
}

// Options configures a new Model
type Options struct {
	Context       context.Context // bounds trackers and requests; Background when nil
	Coordinator   *coordinator.Coordinator
	Client        *api.Client // nil for sessions opened from a local file
	Sink          playback.Sink
	OutputDir     string
	FrameInterval time.Duration
}

// Model is the state of the terminal UI. The coordinator owns the view
// mode and the job; everything else here is presentation state.
type Model struct {
	Ctx           context.Context
	Coordinator   *coordinator.Coordinator
	Client        *api.Client
	Sink          playback.Sink
	OutputDir     string
	FrameInterval time.Duration

	// Input view
	URLInput     textinput.Model
	IsolatePiano bool
	InputError   string
	Submitting   bool
	SubmittedURL string

	// Processing view
	Spinner  spinner.Model
	Progress progress.Model

	// Result view
	Downloads        map[types.ArtifactFormat]Artifact
	PendingDownloads int

	// Playback views. A new transport and player are created every time
	// one of them is entered.
	Transport      *transport.Controller
	Player         *playback.Player
	Notes          *types.PianoRollData
	TickGeneration int
	Loading        bool

	Help help.Model
	Keys KeyMap

	TermWidth  int
	TermHeight int
	StatusMsg  string
}

// NewModel creates the UI state for a session
func NewModel(opts Options) *Model {
	ti := textinput.New()
	ti.Placeholder = "https://www.youtube.com/watch?v=..."
	ti.Prompt = "URL: "
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()

	sink := opts.Sink
	if sink == nil {
		sink = playback.Nop{}
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	frame := opts.FrameInterval
	if frame <= 0 {
		frame = DefaultFrameInterval
	}

	return &Model{
		Ctx:           ctx,
		Coordinator:   opts.Coordinator,
		Client:        opts.Client,
		Sink:          sink,
		OutputDir:     opts.OutputDir,
		FrameInterval: frame,
		URLInput:      ti,
		Spinner:       spinner.New(spinner.WithSpinner(spinner.Dot)),
		Progress:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		Downloads:     make(map[types.ArtifactFormat]Artifact),
		Help:          help.New(),
		Keys:          DefaultKeyMap(),
		TermWidth:     80,
		TermHeight:    24,
	}
}

// ViewMode is the coordinator's current view
func (m *Model) ViewMode() types.ViewMode {
	return m.Coordinator.Mode()
}

// Job returns the current job, if any
func (m *Model) Job() (types.Job, bool) {
	return m.Coordinator.Job()
}

// SetSize records the terminal size and resizes the widgets
func (m *Model) SetSize(width, height int) {
	m.TermWidth = width
	m.TermHeight = height
	m.Help.Width = width
	m.URLInput.Width = max(10, min(80, width-12))
	m.Progress.Width = max(10, min(60, width-12))
}

// ResetInput clears everything a previous job left behind
func (m *Model) ResetInput() {
	m.URLInput.SetValue("")
	m.URLInput.Focus()
	m.InputError = ""
	m.Submitting = false
	m.SubmittedURL = ""
	m.Downloads = make(map[types.ArtifactFormat]Artifact)
	m.PendingDownloads = 0
	m.StatusMsg = ""
}
