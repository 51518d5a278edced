package als

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Each extractor below takes the parsed document tree and pulls out one
// metadata field. They are independent of each other and tolerate missing
// or mangled elements by returning zero values.

// extractCreator returns the Creator attribute of the document root,
// e.g. "Ableton Live 11.0.12"
func extractCreator(root *Node) string {
	return root.Attr("Creator")
}

// extractTempo returns the global tempo in BPM. Fixed tempos live under
// Tempo > Manual; automated (ramped) tempos are taken from the first
// automation event instead.
func extractTempo(root *Node) float64 {
	for _, tempo := range root.FindAll("Tempo") {
		if manual := tempo.Child("Manual"); manual != nil {
			if v, ok := manual.FloatValue(); ok && v > 0 {
				return v
			}
		}
		if v, ok := firstAutomationEvent(tempo); ok && v > 0 {
			return v
		}
	}
	return 0
}

// firstAutomationEvent returns the value of the earliest FloatEvent in the
// node's automation envelope. Live stores the initial value as an event at a
// large negative time, so sorting by Time yields the starting tempo.
func firstAutomationEvent(tempo *Node) (float64, bool) {
	events := tempo.FindAll("FloatEvent")
	if len(events) == 0 {
		return 0, false
	}

	type ev struct {
		time  float64
		value float64
	}
	parsed := make([]ev, 0, len(events))
	for _, e := range events {
		t, err := strconv.ParseFloat(e.Attr("Time"), 64)
		if err != nil {
			continue
		}
		v, ok := e.FloatValue()
		if !ok {
			continue
		}
		parsed = append(parsed, ev{time: t, value: v})
	}
	if len(parsed) == 0 {
		return 0, false
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].time < parsed[j].time })
	return parsed[0].value, true
}

// maxEncodedTimeSignature bounds the EnumEvent encoding; values outside it
// are garbage and ignored
const maxEncodedTimeSignature = 16777215

// extractTimeSignature returns numerator and denominator, defaulting to 4/4
// when no signature can be extracted. Newer sets carry explicit
// RemoteableTimeSignature elements; older ones encode both numbers into a
// single EnumEvent value (numerator = v%99+1, denominator = 2^(v/99)).
func extractTimeSignature(root *Node) (int, int) {
	if rts := root.Find("RemoteableTimeSignature"); rts != nil {
		num, numOK := rts.Child("Numerator").IntValue()
		den, denOK := rts.Child("Denominator").IntValue()
		if numOK && denOK && num > 0 && den > 0 {
			return int(num), int(den)
		}
	}

	if ts := root.Find("TimeSignature"); ts != nil {
		for _, e := range ts.FindAll("EnumEvent") {
			v, ok := e.IntValue()
			if !ok || v < 0 || v > maxEncodedTimeSignature {
				continue
			}
			num := int(v%99) + 1
			den := 1 << uint(v/99)
			if den > 0 && den <= 16 {
				return num, den
			}
		}
	}

	return 4, 4
}

// extractLengthBars returns the arrangement length in bars, derived from the
// furthest clip end time across all tracks (in beats) and the beats per bar
func extractLengthBars(root *Node, beatsPerBar int) float64 {
	if beatsPerBar <= 0 {
		beatsPerBar = 4
	}

	var maxEnd float64
	for _, end := range root.FindAll("CurrentEnd") {
		if v, ok := end.FloatValue(); ok && v > maxEnd {
			maxEnd = v
		}
	}
	if maxEnd <= 0 {
		return 0
	}

	return maxEnd / float64(beatsPerBar)
}

// extractPlugins returns the distinct plugin device references, de-duplicated
// by canonical name. Name lookup depends on the plugin format Live persisted.
func extractPlugins(root *Node) []PluginRef {
	seen := make(map[string]bool)
	var out []PluginRef

	add := func(name, format string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, PluginRef{Name: name, Format: format})
	}

	for _, desc := range root.FindAll("PluginDesc") {
		if vst := desc.Child("VstPluginInfo"); vst != nil {
			add(vst.Child("PlugName").Value(), "VST")
		}
		if vst3 := desc.Child("Vst3PluginInfo"); vst3 != nil {
			add(vst3.Child("Name").Value(), "VST3")
		}
		if au := desc.Child("AuPluginInfo"); au != nil {
			add(au.Child("Name").Value(), "AU")
		}
	}

	return out
}

// extractSamples returns the distinct audio file references with a use count
// per resolved path. Live 11+ stores absolute paths on FileRef > Path; older
// sets only give the file name, which is kept as-is.
func extractSamples(root *Node) []SampleRef {
	counts := make(map[string]int)
	var order []string

	for _, ref := range root.FindAll("SampleRef") {
		fileRef := ref.Child("FileRef")
		if fileRef == nil {
			continue
		}

		path := fileRef.Child("Path").Value()
		if path == "" {
			path = fileRef.Child("Name").Value()
		}
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}

		if counts[path] == 0 {
			order = append(order, path)
		}
		counts[path]++
	}

	out := make([]SampleRef, 0, len(order))
	for _, p := range order {
		out = append(out, SampleRef{
			Path:     p,
			Name:     filepath.Base(p),
			UseCount: counts[p],
		})
	}
	return out
}

// noteNames maps Live's root note index to a note name
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// extractKeyScale returns the first scale annotation found in the set.
// Live stores one ScaleInformation per clip; the first one in document
// order is taken as the set's key.
func extractKeyScale(root *Node) (string, string) {
	for _, info := range root.FindAll("ScaleInformation") {
		rootNote, ok := info.Child("RootNote").IntValue()
		if !ok || rootNote < 0 {
			continue
		}
		name := strings.TrimSpace(info.Child("Name").Value())
		if name == "" {
			continue
		}
		return noteNames[rootNote%12], name
	}
	return "", ""
}
