package acquisition

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// LoadCSV reads a signal from a CSV export. The file may have one column
// (sample values) or two (timestamp, value); a non-numeric first row is
// treated as a header and skipped.
func LoadCSV(path string, sampleRate float64, channel, unit string) (vibration.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return vibration.Signal{}, fmt.Errorf("acquisition: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, sampleRate, channel, unit)
}

// ReadCSV parses CSV sample data from a reader. See LoadCSV for the
// accepted column layouts.
func ReadCSV(r io.Reader, sampleRate float64, channel, unit string) (vibration.Signal, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var samples []float64
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return vibration.Signal{}, fmt.Errorf("acquisition: csv: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		raw := strings.TrimSpace(record[len(record)-1])
		v, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil {
			if first {
				// Header row.
				first = false
				continue
			}
			return vibration.Signal{}, fmt.Errorf("acquisition: %w: bad value %q", vibration.ErrUnsupportedFormat, raw)
		}
		first = false
		samples = append(samples, v)
	}

	sig := vibration.Signal{
		Samples:    samples,
		SampleRate: sampleRate,
		Channel:    channel,
		Units:      unit,
	}
	if err := sig.Validate(); err != nil {
		return vibration.Signal{}, fmt.Errorf("acquisition: %w", err)
	}
	return sig, nil
}

// WriteCSV writes a signal as a two-column CSV (time in seconds, value),
// the format LoadCSV and the sample-data tool both understand.
func WriteCSV(w io.Writer, sig vibration.Signal) error {
	if err := sig.Validate(); err != nil {
		return fmt.Errorf("acquisition: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time_s", "value"}); err != nil {
		return err
	}
	for i, v := range sig.Samples {
		t := float64(i) / sig.SampleRate
		if err := cw.Write([]string{
			strconv.FormatFloat(t, 'g', -1, 64),
			strconv.FormatFloat(v, 'g', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
