package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/acquisition"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/api"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/config"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/diagdb"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/mcpserver"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/version"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/diagnose"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/signalstore"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbFile        = flag.String("db", "vibration.db", "Diagnosis history database file (empty disables persistence)")
	tuningFile    = flag.String("tuning", "", "Tuning configuration JSON file")
	csvFiles      = flag.String("csv", "", "Path of a CSV signal to preload at startup")
	csvRate       = flag.Float64("csv-rate", 26667, "Sample rate in Hz for the preloaded CSV signal")
	serialPort    = flag.String("serial", "", "Serial port device for live acquisition (empty disables)")
	serialRate    = flag.Float64("serial-rate", 26667, "Sample rate in Hz of the serial stream")
	serialBlock   = flag.Int("serial-block", 32768, "Samples per acquisition block")
	serialChannel = flag.String("serial-channel", "radial_horizontal", "Channel label for acquired signals")
	serialUnits   = flag.String("serial-units", "g", "Units of the serial sample stream")
)

// acquireLoop captures fixed-size blocks from the serial port and loads each
// one into the store, tagged with the acquisition sequence number.
func acquireLoop(ctx context.Context, port acquisition.Porter, store *signalstore.Store) {
	seq := 0
	for {
		if ctx.Err() != nil {
			return
		}
		sig, err := acquisition.Capture(ctx, port, *serialBlock, *serialRate, *serialChannel, *serialUnits)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("serial capture failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		id, err := store.Load(sig.Samples, sig.SampleRate, sig.Channel, sig.Units, map[string]string{
			"source":   "serial",
			"sequence": fmt.Sprintf("%d", seq),
		})
		if err != nil {
			log.Printf("failed to store captured block: %v", err)
			continue
		}
		log.Printf("captured block %d as signal %s (%d samples)", seq, id, len(sig.Samples))
		seq++
	}
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	log.Printf("vibrationd %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	var tuning *config.TuningConfig
	var err error
	if *tuningFile != "" {
		tuning, err = config.LoadTuningConfig(*tuningFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		log.Printf("loaded tuning config from %s", *tuningFile)
	} else {
		tuning = config.DefaultTuningConfig()
	}

	store := signalstore.New()
	engine := diagnose.NewEngine(tuning.Classifier())

	var db *diagdb.DB
	if *dbFile != "" {
		db, err = diagdb.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("failed to open diagnosis database: %v", err)
		}
		defer db.Close()
	}

	if *csvFiles != "" {
		sig, err := acquisition.LoadCSV(*csvFiles, *csvRate, *serialChannel, *serialUnits)
		if err != nil {
			log.Fatalf("failed to load CSV signal: %v", err)
		}
		id, err := store.Load(sig.Samples, sig.SampleRate, sig.Channel, sig.Units, map[string]string{
			"source": filepath.Base(*csvFiles),
		})
		if err != nil {
			log.Fatalf("failed to store CSV signal: %v", err)
		}
		log.Printf("preloaded %s as signal %s", *csvFiles, id)
	}

	var port acquisition.Porter
	if *serialPort != "" {
		port, err = acquisition.OpenPort(*serialPort, acquisition.DefaultPortOptions())
		if err != nil {
			log.Fatalf("failed to open serial port: %v", err)
		}
		defer port.Close()
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if port != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acquireLoop(ctx, port, store)
			log.Print("acquisition routine terminated")
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		apiServer := api.NewServer(store, engine, db, tuning)
		mux.Handle("/api/", apiServer.ServeMux())
		mux.Handle("/charts/", apiServer.ServeMux())

		mcp := mcpserver.NewMCPServer(store, engine, db, tuning)
		mux.Handle("/mcp", mcp.Handler())

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
