package playback

import (
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"

	"github.com/hypebeast/go-osc/osc"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrNoPort is returned when no MIDI output matches the requested name
var ErrNoPort = errors.New("no matching MIDI output port")

// Sink plays notes. Pitch and velocity are MIDI values; NoteOff releases
// one sounding note of that pitch.
type Sink interface {
	NoteOn(pitch, velocity uint8) error
	NoteOff(pitch uint8) error
	Close() error
}

// Nop discards everything
type Nop struct{}

func (Nop) NoteOn(pitch, velocity uint8) error { return nil }
func (Nop) NoteOff(pitch uint8) error          { return nil }
func (Nop) Close() error                       { return nil }

// MIDIOut sends notes to a MIDI output port on channel 1
type MIDIOut struct {
	port drivers.Out
	send func(msg midi.Message) error
}

// OpenMIDIOut opens the first output port whose name contains name,
// case-insensitively. A driver must be registered by the caller.
func OpenMIDIOut(name string) (*MIDIOut, error) {
	want := strings.ToLower(name)
	for _, port := range midi.GetOutPorts() {
		if !strings.Contains(strings.ToLower(port.String()), want) {
			continue
		}
		send, err := midi.SendTo(port)
		if err != nil {
			return nil, fmt.Errorf("failed to open MIDI port %q: %w", port.String(), err)
		}
		log.Printf("playback: using MIDI output %q", port.String())
		return &MIDIOut{port: port, send: send}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoPort, name)
}

func (m *MIDIOut) NoteOn(pitch, velocity uint8) error {
	return m.send(midi.NoteOn(0, pitch, velocity))
}

func (m *MIDIOut) NoteOff(pitch uint8) error {
	return m.send(midi.NoteOff(0, pitch))
}

// Close sends all-notes-off and closes the port
func (m *MIDIOut) Close() error {
	if err := m.send(midi.ControlChange(0, 123, 0)); err != nil {
		log.Printf("playback: warning: all notes off: %v", err)
	}
	return m.port.Close()
}

// OSCAddress is the message path used by the OSC sink. Arguments are the
// pitch and the velocity as int32; velocity 0 releases the note.
const OSCAddress = "/pianotube/note"

// OSC sends notes as OSC messages over UDP
type OSC struct {
	client *osc.Client
}

// OpenOSC creates an OSC sink for a host:port address
func OpenOSC(addr string) (*OSC, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid OSC address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid OSC port in %q", addr)
	}
	if host == "" {
		host = "localhost"
	}
	log.Printf("playback: sending OSC to %s:%d", host, port)
	return &OSC{client: osc.NewClient(host, port)}, nil
}

func (o *OSC) NoteOn(pitch, velocity uint8) error {
	return o.client.Send(osc.NewMessage(OSCAddress, int32(pitch), int32(velocity)))
}

func (o *OSC) NoteOff(pitch uint8) error {
	return o.client.Send(osc.NewMessage(OSCAddress, int32(pitch), int32(0)))
}

func (o *OSC) Close() error { return nil }

// Open picks a sink: a MIDI port when midiOut is set, else OSC when
// oscAddr is set, else Nop.
func Open(midiOut, oscAddr string) (Sink, error) {
	switch {
	case midiOut != "":
		return OpenMIDIOut(midiOut)
	case oscAddr != "":
		return OpenOSC(oscAddr)
	}
	return Nop{}, nil
}
