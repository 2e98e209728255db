// Command gen-vibdata writes the three reference vibration recordings
// (healthy pump, unbalanced motor, outer race bearing defect) as JSON
// sample files for testing the analysis pipeline without hardware.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/synth"
)

func main() {
	outDir := flag.String("o", "sample_data", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("failed to create output dir: %v", err)
	}

	for _, sc := range synth.Scenarios() {
		path := filepath.Join(*outDir, sc.Name+".json")
		if err := synth.WriteSampleFile(path, sc); err != nil {
			log.Fatalf("failed to write %s: %v", path, err)
		}
		log.Printf("✓ Created: %s (%d samples at %.0f Hz)", path, len(sc.Signal.Samples), sc.Signal.SampleRate)
	}
}
