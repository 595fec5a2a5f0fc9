package snapshot

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/tinytelemetry/pulse/internal/waveform"
)

func TestRender_SurfaceSize(t *testing.T) {
	t.Parallel()

	r := waveform.NewRenderer(waveform.Config{Rand: waveform.NewRand(3)})
	r.Configure(true, waveform.ModeNoisy)
	for i := 0; i < 250; i++ {
		r.Tick()
	}

	var buf bytes.Buffer
	if err := Render(&buf, r.Window(0), Options{Width: 600, Height: 150, Tone: "alert"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 600 || b.Dy() != 150 {
		t.Fatalf("image = %dx%d, want 600x150", b.Dx(), b.Dy())
	}
}

func TestRender_EmptyWindow(t *testing.T) {
	t.Parallel()

	for _, samples := range [][]float64{nil, {0.5}} {
		var buf bytes.Buffer
		if err := Render(&buf, samples, Options{}); err != nil {
			t.Fatalf("Render(%v): %v", samples, err)
		}
		if buf.Len() == 0 {
			t.Fatal("empty output")
		}
	}
}

func TestToneColor(t *testing.T) {
	t.Parallel()

	if ToneColor("alert") == ToneColor("normal") {
		t.Fatal("alert and normal must differ")
	}
	if ToneColor("bogus") != ToneColor("idle") {
		t.Fatal("unknown tone should fall back to idle")
	}
}
