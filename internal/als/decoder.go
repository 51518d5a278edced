package als

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// PluginRef is a distinct plugin device reference extracted from a set
type PluginRef struct {
	Name   string
	Format string // "VST", "VST3", "AU" or "" when unknown
}

// SampleRef is a distinct audio file reference extracted from a set
type SampleRef struct {
	Path     string // absolute path when the set carries one, otherwise just the file name
	Name     string // base file name
	UseCount int    // times the sample is referenced within the set
}

// Set is the typed metadata extracted from one Live set document
type Set struct {
	Tempo          float64
	SigNumerator   int
	SigDenominator int
	LengthBars     float64
	DurationSecs   float64 // estimated; valid only when DurationKnown
	DurationKnown  bool
	Key            string // tonic note name, "" when no scale annotation
	Scale          string // scale name, "" when no scale annotation
	Creator        string // source application version string
	Plugins        []PluginRef
	Samples        []SampleRef
}

// gzip magic bytes; every .als file starts with them
var gzipMagic = []byte{0x1f, 0x8b}

// Decode turns the raw bytes of one candidate file into extracted set
// metadata. It is a pure function of its input: no filesystem access, no
// shared state, safe to call from any number of goroutines.
//
// Individual fields degrade to zero values when missing or unparseable;
// only the gzip envelope and the XML structure itself are fatal.
func Decode(data []byte) (*Set, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return nil, ErrNotProjectFile
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer zr.Close()

	body, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	root, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	set := &Set{
		Creator: extractCreator(root),
		Tempo:   extractTempo(root),
		Plugins: extractPlugins(root),
		Samples: extractSamples(root),
	}

	set.SigNumerator, set.SigDenominator = extractTimeSignature(root)
	set.Key, set.Scale = extractKeyScale(root)
	set.LengthBars = extractLengthBars(root, set.SigNumerator)
	set.DurationSecs, set.DurationKnown = estimateDuration(set.LengthBars, set.SigNumerator, set.Tempo)

	return set, nil
}

// estimateDuration derives the arrangement length in seconds from the bar
// count, beats per bar and tempo. A zero or negative tempo yields an unknown
// duration rather than an error.
func estimateDuration(bars float64, beatsPerBar int, tempo float64) (float64, bool) {
	if tempo <= 0 || bars <= 0 || beatsPerBar <= 0 {
		return 0, false
	}
	return bars * float64(beatsPerBar) * (60.0 / tempo), true
}
