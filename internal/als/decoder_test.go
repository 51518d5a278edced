package als

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
)

// buildSet produces a minimal but structurally valid Live set document,
// gzip-wrapped the way Live writes them
func buildSet(t *testing.T, body string) []byte {
	t.Helper()

	xml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Ableton MajorVersion="5" MinorVersion="11.0_433" Creator="Ableton Live 11.0.12" Revision="abc">
	<LiveSet>
%s
	</LiveSet>
</Ableton>`, body)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(xml)); err != nil {
		t.Fatalf("failed to compress test set: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

const tempoAndSig = `
		<MasterTrack>
			<DeviceChain>
				<Mixer>
					<Tempo>
						<Manual Value="128" />
					</Tempo>
					<TimeSignature>
						<TimeSignatures>
							<RemoteableTimeSignature Id="0">
								<Numerator Value="4" />
								<Denominator Value="4" />
							</RemoteableTimeSignature>
						</TimeSignatures>
					</TimeSignature>
				</Mixer>
			</DeviceChain>
		</MasterTrack>`

func TestDecodeRejectsNonProjectFile(t *testing.T) {
	_, err := Decode([]byte("just some text, definitely not gzip"))
	if !errors.Is(err, ErrNotProjectFile) {
		t.Fatalf("expected ErrNotProjectFile, got %v", err)
	}
}

func TestDecodeRejectsCorruptArchive(t *testing.T) {
	data := buildSet(t, tempoAndSig)
	// Keep the gzip header but mangle the deflate stream
	truncated := data[:18]
	_, err := Decode(truncated)
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("expected ErrCorruptArchive, got %v", err)
	}
}

func TestDecodeRejectsMalformedDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte("<Ableton><LiveSet><Unclosed></LiveSet></Ableton>"))
	zw.Close()

	_, err := Decode(buf.Bytes())
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestDecodeExtractsTempoAndSignature(t *testing.T) {
	set, err := Decode(buildSet(t, tempoAndSig))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if set.Tempo != 128 {
		t.Errorf("expected tempo 128, got %v", set.Tempo)
	}
	if set.SigNumerator != 4 || set.SigDenominator != 4 {
		t.Errorf("expected 4/4, got %d/%d", set.SigNumerator, set.SigDenominator)
	}
	if set.Creator != "Ableton Live 11.0.12" {
		t.Errorf("unexpected creator: %q", set.Creator)
	}
}

func TestDecodeRampedTempoTakesFirstEvent(t *testing.T) {
	body := `
		<MasterTrack>
			<DeviceChain>
				<Mixer>
					<Tempo>
						<ArrangerAutomation>
							<Events>
								<FloatEvent Id="2" Time="64" Value="174" />
								<FloatEvent Id="1" Time="-63072000" Value="90" />
							</Events>
						</ArrangerAutomation>
					</Tempo>
				</Mixer>
			</DeviceChain>
		</MasterTrack>`

	set, err := Decode(buildSet(t, body))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if set.Tempo != 90 {
		t.Errorf("expected initial tempo 90, got %v", set.Tempo)
	}
}

func TestDecodeLegacyEncodedTimeSignature(t *testing.T) {
	// 201 encodes 4/4: 201%99+1 = 4, 2^(201/99) = 4
	body := `
		<MasterTrack>
			<DeviceChain>
				<Mixer>
					<Tempo><Manual Value="120" /></Tempo>
					<TimeSignature>
						<ArrangerAutomation>
							<Events>
								<EnumEvent Id="0" Time="-63072000" Value="201" />
							</Events>
						</ArrangerAutomation>
					</TimeSignature>
				</Mixer>
			</DeviceChain>
		</MasterTrack>`

	set, err := Decode(buildSet(t, body))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if set.SigNumerator != 4 || set.SigDenominator != 4 {
		t.Errorf("expected 4/4 from encoded value 201, got %d/%d", set.SigNumerator, set.SigDenominator)
	}
}

func TestDecodeDerivedDurationRoundTrip(t *testing.T) {
	// 32 bars of 4/4 at 128 BPM is exactly 60 seconds
	body := tempoAndSig + `
		<Tracks>
			<AudioTrack>
				<ArrangerAutomation>
					<Events>
						<AudioClip><CurrentEnd Value="128" /></AudioClip>
					</Events>
				</ArrangerAutomation>
			</AudioTrack>
		</Tracks>`

	set, err := Decode(buildSet(t, body))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if set.LengthBars != 32 {
		t.Fatalf("expected 32 bars, got %v", set.LengthBars)
	}
	if !set.DurationKnown {
		t.Fatal("expected a known duration")
	}
	if math.Abs(set.DurationSecs-60.0) > 1e-9 {
		t.Errorf("expected 60s duration, got %v", set.DurationSecs)
	}
}

func TestDecodeZeroTempoYieldsUnknownDuration(t *testing.T) {
	body := `
		<MasterTrack>
			<DeviceChain>
				<Mixer>
					<Tempo><Manual Value="0" /></Tempo>
				</Mixer>
			</DeviceChain>
		</MasterTrack>
		<Tracks>
			<AudioClip><CurrentEnd Value="64" /></AudioClip>
		</Tracks>`

	set, err := Decode(buildSet(t, body))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if set.DurationKnown {
		t.Errorf("expected unknown duration for zero tempo, got %v", set.DurationSecs)
	}
}

func TestDecodeExtractsPluginsDeduplicated(t *testing.T) {
	body := tempoAndSig + `
		<Tracks>
			<MidiTrack>
				<PluginDesc>
					<VstPluginInfo><PlugName Value="Serum" /></VstPluginInfo>
				</PluginDesc>
				<PluginDesc>
					<Vst3PluginInfo><Name Value="Pro-Q 3" /></Vst3PluginInfo>
				</PluginDesc>
				<PluginDesc>
					<VstPluginInfo><PlugName Value="Serum" /></VstPluginInfo>
				</PluginDesc>
				<PluginDesc>
					<AuPluginInfo><Name Value="Alchemy" /></AuPluginInfo>
				</PluginDesc>
			</MidiTrack>
		</Tracks>`

	set, err := Decode(buildSet(t, body))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(set.Plugins) != 3 {
		t.Fatalf("expected 3 distinct plugins, got %d: %+v", len(set.Plugins), set.Plugins)
	}

	want := map[string]string{"Serum": "VST", "Pro-Q 3": "VST3", "Alchemy": "AU"}
	for _, p := range set.Plugins {
		if want[p.Name] != p.Format {
			t.Errorf("plugin %q: expected format %q, got %q", p.Name, want[p.Name], p.Format)
		}
	}
}

func TestDecodeExtractsSamplesWithUseCounts(t *testing.T) {
	body := tempoAndSig + `
		<Tracks>
			<AudioTrack>
				<SampleRef><FileRef><Path Value="/samples/kick.wav" /></FileRef></SampleRef>
				<SampleRef><FileRef><Path Value="/samples/kick.wav" /></FileRef></SampleRef>
				<SampleRef><FileRef><Path Value="/samples/snare.wav" /></FileRef></SampleRef>
				<SampleRef><FileRef><Name Value="legacy-loop.aif" /></FileRef></SampleRef>
			</AudioTrack>
		</Tracks>`

	set, err := Decode(buildSet(t, body))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(set.Samples) != 3 {
		t.Fatalf("expected 3 distinct samples, got %d: %+v", len(set.Samples), set.Samples)
	}

	counts := make(map[string]int)
	for _, s := range set.Samples {
		counts[s.Path] = s.UseCount
	}
	if counts["/samples/kick.wav"] != 2 {
		t.Errorf("expected kick.wav use count 2, got %d", counts["/samples/kick.wav"])
	}
	if counts["/samples/snare.wav"] != 1 {
		t.Errorf("expected snare.wav use count 1, got %d", counts["/samples/snare.wav"])
	}
	if counts["legacy-loop.aif"] != 1 {
		t.Errorf("expected legacy-loop.aif use count 1, got %d", counts["legacy-loop.aif"])
	}

	for _, s := range set.Samples {
		if s.Path == "/samples/kick.wav" && s.Name != "kick.wav" {
			t.Errorf("expected base name kick.wav, got %q", s.Name)
		}
	}
}

func TestDecodeExtractsKeyAndScale(t *testing.T) {
	body := tempoAndSig + `
		<Tracks>
			<MidiTrack>
				<MidiClip>
					<ScaleInformation>
						<RootNote Value="9" />
						<Name Value="Minor" />
					</ScaleInformation>
				</MidiClip>
			</MidiTrack>
		</Tracks>`

	set, err := Decode(buildSet(t, body))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if set.Key != "A" || set.Scale != "Minor" {
		t.Errorf("expected A Minor, got %q %q", set.Key, set.Scale)
	}
}

func TestDecodeDegradesMissingFields(t *testing.T) {
	// A valid document with nothing extractable: every field falls back to
	// its zero value, the decode itself succeeds
	set, err := Decode(buildSet(t, "<Tracks></Tracks>"))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if set.Tempo != 0 {
		t.Errorf("expected zero tempo, got %v", set.Tempo)
	}
	if set.SigNumerator != 4 || set.SigDenominator != 4 {
		t.Errorf("expected default 4/4, got %d/%d", set.SigNumerator, set.SigDenominator)
	}
	if set.DurationKnown {
		t.Error("expected unknown duration")
	}
	if len(set.Plugins) != 0 || len(set.Samples) != 0 {
		t.Errorf("expected no references, got %d plugins %d samples", len(set.Plugins), len(set.Samples))
	}
}

func TestDecodeIsPure(t *testing.T) {
	data := buildSet(t, tempoAndSig)
	first, err := Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	second, err := Decode(data)
	if err != nil {
		t.Fatalf("second decode failed: %v", err)
	}
	if first.Tempo != second.Tempo || first.Creator != second.Creator {
		t.Error("expected identical results from repeated decodes")
	}
}

func TestParseDocumentTreeShape(t *testing.T) {
	root, err := parseDocument([]byte(`<A x="1"><B><C Value="7" /></B><B /></A>`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if root.Name != "A" || root.Attr("x") != "1" {
		t.Errorf("unexpected root: %+v", root)
	}
	if got := len(root.FindAll("B")); got != 2 {
		t.Errorf("expected 2 B nodes, got %d", got)
	}
	v, ok := root.Find("C").IntValue()
	if !ok || v != 7 {
		t.Errorf("expected C value 7, got %d (ok=%v)", v, ok)
	}
	if root.Child("C") != nil {
		t.Error("Child must only match direct children")
	}
	if !strings.HasPrefix(root.Find("B").Name, "B") {
		t.Error("Find returned wrong node")
	}
}
