package acquisition

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// mockPort implements Porter over an in-memory buffer.
type mockPort struct {
	io.Reader
}

func (m *mockPort) Write(p []byte) (int, error) { return len(p), nil }
func (m *mockPort) Close() error                { return nil }

func TestParseSampleLine(t *testing.T) {
	cases := []struct {
		line    string
		want    float64
		wantErr bool
	}{
		{"0.0125", 0.0125, false},
		{"  -1.5  ", -1.5, false},
		{"0.000375,0.0125", 0.0125, false},
		{"12,34,0.5", 0.5, false},
		{"", 0, true},
		{"abc", 0, true},
		{"0.1,xyz", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseSampleLine(tc.line)
		if tc.wantErr {
			if !errors.Is(err, vibration.ErrUnsupportedFormat) {
				t.Errorf("ParseSampleLine(%q) error = %v, want ErrUnsupportedFormat", tc.line, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseSampleLine(%q) = %v, %v; want %v", tc.line, got, err, tc.want)
		}
	}
}

func TestCapture(t *testing.T) {
	t.Run("reads the requested count", func(t *testing.T) {
		port := &mockPort{Reader: strings.NewReader("0.1\n0.2\n0.3\n0.4\n0.5\n")}
		sig, err := Capture(context.Background(), port, 3, 26667, "vertical", "g")
		if err != nil {
			t.Fatal(err)
		}
		if len(sig.Samples) != 3 || sig.Samples[2] != 0.3 {
			t.Errorf("samples = %v, want first three", sig.Samples)
		}
		if sig.SampleRate != 26667 || sig.Channel != "vertical" {
			t.Errorf("unexpected signal header %+v", sig)
		}
	})

	t.Run("skips corrupt lines", func(t *testing.T) {
		port := &mockPort{Reader: strings.NewReader("0.1\ngarbage\n0.2\n\n0.3\n")}
		sig, err := Capture(context.Background(), port, 3, 1000, "", "g")
		if err != nil {
			t.Fatal(err)
		}
		want := []float64{0.1, 0.2, 0.3}
		for i, v := range want {
			if sig.Samples[i] != v {
				t.Errorf("sample %d = %v, want %v", i, sig.Samples[i], v)
			}
		}
	})

	t.Run("eof before enough samples", func(t *testing.T) {
		port := &mockPort{Reader: strings.NewReader("0.1\n0.2\n")}
		_, err := Capture(context.Background(), port, 10, 1000, "", "g")
		if !errors.Is(err, vibration.ErrComputationFailure) {
			t.Fatalf("error = %v, want ErrComputationFailure", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		port := &mockPort{Reader: strings.NewReader("0.1\n0.2\n0.3\n")}
		_, err := Capture(ctx, port, 3, 1000, "", "g")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	})

	t.Run("invalid count", func(t *testing.T) {
		port := &mockPort{Reader: strings.NewReader("")}
		_, err := Capture(context.Background(), port, 0, 1000, "", "g")
		if !errors.Is(err, vibration.ErrInvalidInput) {
			t.Fatalf("error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestReadCSV(t *testing.T) {
	t.Run("two columns with header", func(t *testing.T) {
		data := "time_s,value\n0,0.1\n0.001,0.2\n0.002,0.3\n"
		sig, err := ReadCSV(strings.NewReader(data), 1000, "", "g")
		if err != nil {
			t.Fatal(err)
		}
		if len(sig.Samples) != 3 || sig.Samples[1] != 0.2 {
			t.Errorf("samples = %v", sig.Samples)
		}
	})

	t.Run("single column without header", func(t *testing.T) {
		sig, err := ReadCSV(strings.NewReader("0.1\n0.2\n"), 1000, "", "g")
		if err != nil {
			t.Fatal(err)
		}
		if len(sig.Samples) != 2 {
			t.Errorf("samples = %v", sig.Samples)
		}
	})

	t.Run("bad value mid-file", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("0.1\nnope\n"), 1000, "", "g")
		if !errors.Is(err, vibration.ErrUnsupportedFormat) {
			t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader(""), 1000, "", "g")
		if !errors.Is(err, vibration.ErrInvalidInput) {
			t.Fatalf("error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestWriteCSVRoundTrip(t *testing.T) {
	orig := vibration.Signal{
		Samples:    []float64{0.1, -0.2, 0.3},
		SampleRate: 1000,
		Units:      "g",
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, orig); err != nil {
		t.Fatal(err)
	}
	back, err := ReadCSV(&buf, 1000, "", "g")
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Samples) != len(orig.Samples) {
		t.Fatalf("samples = %d, want %d", len(back.Samples), len(orig.Samples))
	}
	for i := range orig.Samples {
		if back.Samples[i] != orig.Samples[i] {
			t.Errorf("sample %d = %v, want %v", i, back.Samples[i], orig.Samples[i])
		}
	}
}
