// Command pattern-midi streams pattern events to a MIDI output port in
// real time.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register MIDI driver

	pattrns "github.com/cbegin/pattrns-go"
	"github.com/cbegin/pattrns-go/patternfile"
)

func main() {
	var (
		filePath   = flag.String("file", "", "path to a YAML pattern file")
		cycleSrc   = flag.String("cycle", "c4 e4 g4", "inline cycle string")
		bpm        = flag.Float64("bpm", 120, "beats per minute")
		portName   = flag.String("port", "", "substring of the MIDI out port name (first port if empty)")
		channel    = flag.Int("channel", 0, "MIDI channel 0-15")
		seconds    = flag.Float64("seconds", 16, "playback length in seconds")
		listPorts  = flag.Bool("list", false, "list MIDI out ports and exit")
		sampleRate = 44100
	)
	flag.Parse()
	defer gomidi.CloseDriver()

	if *listPorts {
		for _, port := range gomidi.GetOutPorts() {
			fmt.Println(port.String())
		}
		return
	}

	out, err := findPort(*portName)
	if err != nil {
		log.Fatal(err)
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		log.Fatal(err)
	}

	pattern, err := resolvePattern(*filePath, *cycleSrc, *bpm, sampleRate)
	if err != nil {
		log.Fatal(err)
	}

	if err := stream(pattern, send, uint8(*channel), sampleRate, *seconds); err != nil {
		log.Fatal(err)
	}
}

func findPort(name string) (drivers.Out, error) {
	ports := gomidi.GetOutPorts()
	if len(ports) == 0 {
		return nil, fmt.Errorf("no MIDI out ports available")
	}
	if name == "" {
		return ports[0], nil
	}
	for _, port := range ports {
		if strings.Contains(strings.ToLower(port.String()), strings.ToLower(name)) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("no MIDI out port matches %q", name)
}

func resolvePattern(path, inline string, bpm float64, sampleRate int) (*pattrns.Pattern, error) {
	if path != "" {
		doc, err := patternfile.Load(path)
		if err != nil {
			return nil, err
		}
		return doc.Pattern()
	}
	base := pattrns.TimeBase{BeatsPerMin: bpm, BeatsPerBar: 4, SamplesPerSec: sampleRate}
	return pattrns.FromSource(inline, base)
}

type timedOff struct {
	at  int64
	key uint8
}

// stream pulls events chunk by chunk and spends the wall clock between
// chunks sleeping, sending note on/off messages as their sample positions
// come due.
func stream(pattern *pattrns.Pattern, send func(gomidi.Message) error, channel uint8, sampleRate int, seconds float64) error {
	const chunk = int64(4410) // 100ms lookahead
	deadline := int64(float64(sampleRate) * seconds)
	start := time.Now()
	var offs []timedOff

	sampleTime := func(samples int64) time.Duration {
		return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
	}

	for pos := int64(0); pos < deadline; pos += chunk {
		var batch []pattrns.Event
		pattern.RunUntil(pos+chunk, func(ev pattrns.Event) {
			if ev.Kind == pattrns.EventNote {
				batch = append(batch, ev)
			}
		})
		for _, ev := range batch {
			// Flush any note-offs due before this onset.
			for len(offs) > 0 && offs[0].at <= ev.TimeSamples {
				sleepUntil(start, sampleTime(offs[0].at))
				if err := send(gomidi.NoteOff(channel, offs[0].key)); err != nil {
					return err
				}
				offs = offs[1:]
			}
			sleepUntil(start, sampleTime(ev.TimeSamples))
			key := uint8(ev.Note.Note)
			velocity := uint8(ev.Note.Volume * 127)
			if velocity == 0 {
				velocity = 100
			}
			if err := send(gomidi.NoteOn(channel, key, velocity)); err != nil {
				return err
			}
			offs = insertOff(offs, timedOff{at: ev.TimeSamples + ev.LengthSamples, key: key})
		}
	}
	for _, off := range offs {
		sleepUntil(start, sampleTime(off.at))
		if err := send(gomidi.NoteOff(channel, off.key)); err != nil {
			return err
		}
	}
	return nil
}

func insertOff(offs []timedOff, off timedOff) []timedOff {
	offs = append(offs, off)
	for i := len(offs) - 1; i > 0 && offs[i].at < offs[i-1].at; i-- {
		offs[i], offs[i-1] = offs[i-1], offs[i]
	}
	return offs
}

func sleepUntil(start time.Time, offset time.Duration) {
	if wait := time.Until(start.Add(offset)); wait > 0 {
		time.Sleep(wait)
	}
}
