package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/schollz/pianotube/internal/api"
	"github.com/schollz/pianotube/internal/config"
	"github.com/schollz/pianotube/internal/coordinator"
	"github.com/schollz/pianotube/internal/input"
	"github.com/schollz/pianotube/internal/midifile"
	"github.com/schollz/pianotube/internal/model"
	"github.com/schollz/pianotube/internal/playback"
	"github.com/schollz/pianotube/internal/types"
	"github.com/schollz/pianotube/internal/views"
)

var (
	Version = "dev"

	// path given with --config
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "pianotube [url]",
	Short: "Turn YouTube piano videos into sheet music",
	Long: `pianotube sends a YouTube link to a transcription backend, follows the
job while it runs and lets you explore the result in the terminal.

Features:
• Live job progress with stage list and progress bar
• Piano roll with playback over MIDI or OSC
• Practice mode with tempo control and loops
• MIDI, MusicXML and PDF downloads`,
	Version: Version,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runPianotube,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Config file (default: pianotube.yaml in . or the user config folder)")
	rootCmd.PersistentFlags().String("api", api.DefaultBaseURL,
		"Base URL of the transcription backend")
	rootCmd.PersistentFlags().Duration("timeout", 0,
		"HTTP request timeout (default 30s)")
	rootCmd.PersistentFlags().Duration("interval", 0,
		"Job status poll interval (default 2s)")
	rootCmd.PersistentFlags().StringP("log", "l", "",
		"Write debug logs to specified file (empty disables)")
	rootCmd.PersistentFlags().String("midi-out", "",
		"Play notes on the MIDI output whose name contains this (empty disables)")
	rootCmd.PersistentFlags().String("osc", "",
		"Send notes to an OSC synth at host:port (empty disables)")
	rootCmd.PersistentFlags().Int("fps", 0,
		"Transport frame rate (default 30)")
	rootCmd.PersistentFlags().StringP("out", "o", "",
		"Folder for downloaded artifacts (default .)")

	rootCmd.AddCommand(statusCmd, downloadCmd, openCmd, devserverCmd)
}

func main() {
	defer midi.CloseDriver()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration for cmd and sets up logging. Without
// a log file, logs go to stderr only when toStderr is set. The returned
// function closes the log file.
func loadConfig(cmd *cobra.Command, toStderr bool) (*config.Config, func(), error) {
	cfg, err := config.Load(cmd.Flags(), configFile)
	if err != nil {
		return nil, nil, err
	}

	closeLog := func() {}
	if cfg.Log.File != "" {
		f, err := tea.LogToFile(cfg.Log.File, "debug")
		if err != nil {
			return nil, nil, fmt.Errorf("error opening log file: %w", err)
		}
		closeLog = func() { f.Close() }
		// Set log flags to include file and line number
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else if !toStderr {
		log.SetOutput(io.Discard)
	}

	log.Println("Debug logging enabled")
	if cfg.File != "" {
		log.Printf("Using config file %s", cfg.File)
	}
	return cfg, closeLog, nil
}

func runPianotube(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	defer closeLog()

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	coord := coordinator.New(client, coordinator.WithPollInterval(cfg.Poll.Interval))

	var url string
	if len(args) == 1 {
		url = args[0]
	}
	return runTUI(cfg, coord, client, url)
}

// runTUI runs the interactive program until the user quits
func runTUI(cfg *config.Config, coord *coordinator.Coordinator, client *api.Client, url string) error {
	sink, err := playback.Open(cfg.Playback.MIDIOut, cfg.Playback.OSC)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := model.NewModel(model.Options{
		Context:       ctx,
		Coordinator:   coord,
		Client:        client,
		Sink:          sink,
		OutputDir:     cfg.Output.Dir,
		FrameInterval: cfg.FrameInterval(),
	})
	if url != "" {
		m.URLInput.SetValue(url)
	}

	cleanup := func() {
		m.LeavePlayback()
		coord.Shutdown()
		cancel()
		if err := sink.Close(); err != nil {
			log.Printf("Error closing note output: %v", err)
		}
	}
	setupCleanupOnExit(cleanup)

	lipgloss.SetColorProfile(termenv.ColorProfile())
	p := tea.NewProgram(&AppModel{model: m, submitOnStart: url != ""}, tea.WithAltScreen())
	_, err = p.Run()
	cleanup()
	return err
}

// AppModel adapts model.Model to tea.Model
type AppModel struct {
	model         *model.Model
	submitOnStart bool
}

func (a *AppModel) Init() tea.Cmd {
	m := a.model
	cmds := []tea.Cmd{}
	if m.ViewMode() == types.InputView {
		cmds = append(cmds, textinput.Blink)
	}
	if a.submitOnStart {
		cmds = append(cmds, input.Submit(m), m.Spinner.Tick)
	}
	if m.InPlayback() {
		cmds = append(cmds, input.Tick(m))
	}
	return tea.Batch(cmds...)
}

// spinning reports whether something on screen is waiting
func spinning(m *model.Model) bool {
	if m.Submitting || m.PendingDownloads > 0 {
		return true
	}
	job, ok := m.Job()
	return ok && m.ViewMode() == types.ProcessingView && !job.IsDone()
}

func (a *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m := a.model
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		wasSpinning := spinning(m)
		cmd := input.HandleKeyInput(m, msg)
		if !wasSpinning && spinning(m) {
			cmd = tea.Batch(cmd, m.Spinner.Tick)
		}
		return a, cmd

	case spinner.TickMsg:
		if !spinning(m) {
			return a, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return a, cmd

	case input.TickMsg:
		return a, input.AdvancePlayback(m, msg)

	case input.SubmittedMsg:
		return a, input.HandleSubmitted(m, msg)

	case input.JobUpdateMsg:
		return a, input.HandleJobUpdate(m, msg)

	case input.TrackerClosedMsg:
		log.Printf("Stopped tracking job %s", msg.JobID)
		return a, nil

	case input.ViewOpenedMsg:
		return a, input.HandleViewOpened(m, msg)

	case input.DownloadedMsg:
		return a, input.HandleDownloaded(m, msg)
	}

	// cursor blink
	if m.ViewMode() == types.InputView {
		var cmd tea.Cmd
		m.URLInput, cmd = m.URLInput.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *AppModel) View() string {
	m := a.model
	switch m.ViewMode() {
	case types.InputView:
		return views.RenderInputView(m)
	case types.ProcessingView:
		return views.RenderProcessingView(m)
	case types.ResultView:
		return views.RenderResultView(m)
	case types.PianoRollView:
		return views.RenderPianoRollView(m)
	case types.NotationView:
		return views.RenderNotationView(m)
	default: // PracticeView
		return views.RenderPracticeView(m)
	}
}

// openLocal starts the TUI on a MIDI file, straight in the practice view
func openLocal(cfg *config.Config, path string) error {
	data, err := midifile.ReadFile(path)
	if err != nil {
		return err
	}
	coord := coordinator.NewLocal(filepath.Base(path), data)
	if err := coord.Open(context.Background(), types.PracticeView); err != nil {
		return err
	}
	return runTUIWithPlayback(cfg, coord)
}

func runTUIWithPlayback(cfg *config.Config, coord *coordinator.Coordinator) error {
	sink, err := playback.Open(cfg.Playback.MIDIOut, cfg.Playback.OSC)
	if err != nil {
		return err
	}
	data, err := coord.NoteData(context.Background())
	if err != nil {
		return err
	}

	m := model.NewModel(model.Options{
		Coordinator:   coord,
		Sink:          sink,
		OutputDir:     cfg.Output.Dir,
		FrameInterval: cfg.FrameInterval(),
	})
	m.EnterPlayback(data)

	cleanup := func() {
		m.LeavePlayback()
		if err := sink.Close(); err != nil {
			log.Printf("Error closing note output: %v", err)
		}
	}
	setupCleanupOnExit(cleanup)

	lipgloss.SetColorProfile(termenv.ColorProfile())
	p := tea.NewProgram(&AppModel{model: m}, tea.WithAltScreen())
	_, err = p.Run()
	cleanup()
	return err
}

func setupCleanupOnExit(cleanup func()) {
	// Handle cleanup on various exit signals
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-c
		cleanup()
		midi.CloseDriver()
		os.Exit(0)
	}()
}
