// Package acquisition reads accelerometer samples from serial-attached
// sensor nodes and from CSV exports.
//
// The wire format is line-oriented: each line carries one sample value,
// optionally prefixed with a timestamp column. A capture session reads a
// fixed number of samples into a Signal; the sample rate is declared by the
// caller, not inferred from timestamps, because sensor nodes emit at their
// configured ODR regardless of host-side jitter.
package acquisition

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/monitoring"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// Porter is the minimal serial port surface the reader needs. The
// abstraction enables unit testing without real hardware.
type Porter interface {
	io.ReadWriteCloser
}

// PortOptions configure the serial link to a sensor node.
type PortOptions struct {
	BaudRate int
	DataBits int
}

// DefaultPortOptions returns the link settings for STWIN-class sensor nodes.
func DefaultPortOptions() PortOptions {
	return PortOptions{BaudRate: 921600, DataBits: 8}
}

// OpenPort opens a real serial port with the given options.
func OpenPort(path string, opts PortOptions) (Porter, error) {
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("acquisition: open %s: %w", path, err)
	}
	return port, nil
}

// ParseSampleLine extracts the acceleration value from one wire line.
// Accepted shapes are a bare value ("0.0125") and a timestamped pair
// ("0.000375,0.0125"); in the pair form the last column is the value.
func ParseSampleLine(line string) (float64, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, fmt.Errorf("acquisition: %w: empty line", vibration.ErrUnsupportedFormat)
	}
	fields := strings.Split(line, ",")
	raw := strings.TrimSpace(fields[len(fields)-1])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("acquisition: %w: bad sample %q", vibration.ErrUnsupportedFormat, raw)
	}
	return v, nil
}

// Capture reads sampleCount samples from the port and assembles them into a
// signal at the declared sample rate. Unparseable lines are logged and
// skipped so a single corrupt line does not abort a long capture; the read
// stops early if the context is cancelled or the port reaches EOF.
func Capture(ctx context.Context, port Porter, sampleCount int, sampleRate float64, channel, unit string) (vibration.Signal, error) {
	if sampleCount < 1 {
		return vibration.Signal{}, fmt.Errorf("acquisition: %w: sample count %d must be >= 1", vibration.ErrInvalidInput, sampleCount)
	}

	samples := make([]float64, 0, sampleCount)
	scanner := bufio.NewScanner(port)
	dropped := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return vibration.Signal{}, ctx.Err()
		default:
		}
		v, err := ParseSampleLine(scanner.Text())
		if err != nil {
			dropped++
			continue
		}
		samples = append(samples, v)
		if len(samples) == sampleCount {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return vibration.Signal{}, fmt.Errorf("acquisition: read: %w", err)
	}
	if dropped > 0 {
		monitoring.Logf("acquisition: dropped %d unparseable lines during capture", dropped)
	}
	if len(samples) < sampleCount {
		return vibration.Signal{}, fmt.Errorf("acquisition: %w: port closed after %d of %d samples",
			vibration.ErrComputationFailure, len(samples), sampleCount)
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
