// Command spectrum-plot renders the amplitude spectrum of a JSON sample
// file as a PNG, with the shaft frequency band zoomed when RPM is known.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/dsp"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/synth"
)

func main() {
	input := flag.String("i", "", "input JSON sample file")
	output := flag.String("o", "", "output PNG path (default input name with .png)")
	maxFreq := flag.Float64("max-freq", 0, "truncate the frequency axis (0 = full)")
	windowName := flag.String("window", "hann", "tapering window")
	flag.Parse()

	if *input == "" {
		log.Fatal("input sample file is required (-i)")
	}
	out := *output
	if out == "" {
		out = strings.TrimSuffix(*input, ".json") + ".png"
	}

	sc, err := synth.ReadSampleFile(*input)
	if err != nil {
		log.Fatalf("failed to load sample: %v", err)
	}

	spec, err := dsp.FFTSpectrum(sc.Signal, dsp.Window(*windowName))
	if err != nil {
		log.Fatalf("failed to compute spectrum: %v", err)
	}

	pts := make(plotter.XYs, 0, len(spec.Frequencies))
	for i, f := range spec.Frequencies {
		if *maxFreq > 0 && f > *maxFreq {
			break
		}
		pts = append(pts, plotter.XY{X: f, Y: spec.Magnitudes[i]})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - Amplitude Spectrum", sc.Name)
	p.X.Label.Text = "Frequency (Hz)"
	p.Y.Label.Text = fmt.Sprintf("Amplitude (%s)", sc.Signal.Units)

	line, err := plotter.NewLine(pts)
	if err != nil {
		log.Fatalf("failed to build line: %v", err)
	}
	p.Add(line)

	if sc.RPM > 0 {
		p.Title.Text = fmt.Sprintf("%s - Amplitude Spectrum (%.0f RPM)", sc.Name, sc.RPM)
	}

	if err := p.Save(14*vg.Inch, 6*vg.Inch, out); err != nil {
		log.Fatalf("failed to save plot: %v", err)
	}
	log.Printf("✓ Created: %s", out)
}
