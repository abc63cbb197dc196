// Command play-pattern auditions a pattern on the default audio output, or
// bounces it to a WAV file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	pattrns "github.com/cbegin/pattrns-go"
	"github.com/cbegin/pattrns-go/patternfile"
)

const defaultCycle = "c4 e4 g4 b4"

func main() {
	var (
		filePath   = flag.String("file", "", "path to a YAML pattern file")
		cycleSrc   = flag.String("cycle", "", "inline cycle string")
		bpm        = flag.Float64("bpm", 120, "beats per minute")
		sampleRate = flag.Int("sample-rate", 44100, "output sample rate")
		seconds    = flag.Float64("seconds", 8, "playback length in seconds")
		seed       = flag.Uint64("seed", 0, "random seed")
		wavPath    = flag.String("wav", "", "bounce to a WAV file instead of playing")
		printOnly  = flag.Bool("print", false, "print events instead of playing")
	)
	flag.Parse()

	pattern, err := resolvePattern(*filePath, *cycleSrc, *bpm, *sampleRate, *seed)
	if err != nil {
		log.Fatal(err)
	}

	switch {
	case *printOnly:
		printEvents(pattern, *sampleRate, *seconds)
	case *wavPath != "":
		samples := pattrns.RenderSamples(pattern, *sampleRate, *seconds)
		data := pattrns.EncodeWAVFloat32LE(samples, *sampleRate, 2)
		if err := os.WriteFile(*wavPath, data, 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s (%.1fs)\n", *wavPath, *seconds)
	default:
		play(pattern, *sampleRate, *seconds)
	}
}

func resolvePattern(path, inline string, bpm float64, sampleRate int, seed uint64) (*pattrns.Pattern, error) {
	if path != "" {
		doc, err := patternfile.Load(path)
		if err != nil {
			return nil, err
		}
		return doc.Pattern()
	}
	src := inline
	if strings.TrimSpace(src) == "" {
		src = defaultCycle
	}
	base := pattrns.TimeBase{BeatsPerMin: bpm, BeatsPerBar: 4, SamplesPerSec: sampleRate}
	return pattrns.FromSource(src, base, pattrns.WithSeed(seed), pattrns.WithErrorSink(func(err error) {
		log.Printf("pattern: %v", err)
	}))
}

func printEvents(pattern *pattrns.Pattern, sampleRate int, seconds float64) {
	deadline := int64(float64(sampleRate) * seconds)
	for _, ev := range pattrns.RenderEvents(pattern, deadline) {
		switch ev.Kind {
		case pattrns.EventNote:
			fmt.Printf("%10d  ch%d  %s  len %d\n", ev.TimeSamples, ev.Channel, ev.Note, ev.LengthSamples)
		case pattrns.EventParameter:
			fmt.Printf("%10d  ch%d  %s = %.3f\n", ev.TimeSamples, ev.Channel, ev.Change.ID, ev.Change.Value)
		}
	}
}

func play(pattern *pattrns.Pattern, sampleRate int, seconds float64) {
	stopAt := int64(float64(sampleRate) * seconds)
	player, err := pattrns.NewPlayer(pattern, sampleRate, pattrns.WithStopAfter(stopAt))
	if err != nil {
		log.Fatal(err)
	}
	player.Play()
	time.Sleep(time.Duration(seconds*float64(time.Second)) + 500*time.Millisecond)
	if err := player.Stop(); err != nil {
		log.Fatal(err)
	}
}
