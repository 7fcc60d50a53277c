// Command oscbridge bridges a Workshop Computer (running the OSC bridge
// firmware) to OSC controllers: binary packets over USB CDC on one side,
// OSC over UDP on the other.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/computercard/oscbridge/internal/bridge"
	"github.com/computercard/oscbridge/internal/config"
	"github.com/computercard/oscbridge/internal/db"
	"github.com/computercard/oscbridge/internal/osc"
	"github.com/computercard/oscbridge/internal/serialmux"
	"github.com/computercard/oscbridge/internal/version"
	"github.com/computercard/oscbridge/internal/wire"
)

var (
	devMode     = flag.Bool("dev", false, "Run in dev mode with a mock serial device")
	port        = flag.String("port", "", "Serial port of the Workshop Computer (ignored in dev mode)")
	revision    = flag.String("revision", config.RevisionProto1, "Hardware revision: proto1 or proto2")
	profilePath = flag.String("profile", "", "Optional JSON profile overriding the revision defaults")
	threshold   = flag.Float64("threshold", -1, "Change threshold for telemetry output (negative: use profile default)")
	filter      = flag.Bool("filter", true, "Suppress telemetry values that moved less than the threshold")
	recordPath  = flag.String("record", "", "Optional sqlite file to record emitted telemetry into")

	oscSendIP     = flag.String("osc-send-ip", "127.0.0.1", "IP to send telemetry to")
	oscSendPort   = flag.Int("osc-send-port", 7001, "UDP port to send telemetry to (device inputs)")
	oscRecvPort   = flag.Int("osc-recv-port", 7000, "UDP port to receive control messages on (device outputs)")
	listenLocal   = flag.Bool("listen-localhost", false, "Listen for control messages on 127.0.0.1 only")
	devTickMillis = flag.Int("dev-interval", 100, "Mock device frame interval in milliseconds (dev mode)")
	showVersion   = flag.Bool("version", false, "Print version information and exit")
)

// devFrame builds the canned input frame replayed by the mock device:
// mid-travel knobs, switch in the middle, everything else at rest.
func devFrame() []byte {
	pkt := make([]byte, wire.InputPacketSize)
	pkt[0] = wire.SyncDeviceToHost
	pkt[1] = 1 << 2 // switch middle
	binary.LittleEndian.PutUint16(pkt[10:], 2048)
	binary.LittleEndian.PutUint16(pkt[12:], 2048)
	binary.LittleEndian.PutUint16(pkt[14:], 2048)
	return pkt
}

func loadProfile() (*config.Profile, error) {
	profile, err := config.LoadRevision(*revision)
	if err != nil {
		return nil, err
	}
	if *profilePath != "" {
		override, err := config.LoadProfile(*profilePath)
		if err != nil {
			return nil, err
		}
		profile.Merge(override)
	}
	if *threshold >= 0 {
		profile.SetChangeThreshold(*threshold)
	}
	return profile, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	profile, err := loadProfile()
	if err != nil {
		log.Fatalf("failed to load profile: %v", err)
	}

	var mux serialmux.FrameMuxInterface
	if *devMode {
		mux = serialmux.NewMockFrameMux(devFrame(), time.Duration(*devTickMillis)*time.Millisecond)
		log.Printf("dev mode: mock device emitting a frame every %dms", *devTickMillis)
	} else {
		if *port == "" {
			log.Fatal("Serial port is required (use -port, or -dev for a mock device)")
		}
		mux, err = serialmux.NewRealFrameMux(*port, serialmux.PortOptions{})
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", *port, err)
		}
		log.Printf("opened serial port %s", *port)
	}

	sender := osc.NewClient(*oscSendIP, *oscSendPort)
	log.Printf("OSC send -> %s:%d (device inputs)", *oscSendIP, *oscSendPort)

	opts := bridge.Options{FilterEnabled: *filter}
	if *recordPath != "" {
		recorder, err := db.NewDB(*recordPath)
		if err != nil {
			log.Fatalf("failed to open recording database: %v", err)
		}
		defer recorder.Close()
		log.Printf("recording telemetry to %s (session %s)", *recordPath, recorder.Session())
		opts.Recorder = recorder
	}

	b := bridge.New(mux, profile, sender, opts)

	listenIP := "0.0.0.0"
	if *listenLocal {
		listenIP = "127.0.0.1"
	}
	listenAddr := fmt.Sprintf("%s:%d", listenIP, *oscRecvPort)
	server := osc.NewServer(listenAddr, b.HandleControl)
	log.Printf("OSC recv <- %s (device outputs: /ch/1-4, /pulse/1-2)", listenAddr)

	// Create a wait group for the serial monitor, telemetry, and control
	// server routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port. A serial
	// read failure is unrecoverable without reattaching the hardware, so
	// it takes the whole process down rather than limping along.
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := mux.Monitor(ctx)
		if err != nil && err != context.Canceled {
			stop()
			log.Fatalf("serial connection lost: %v", err)
		}
		if err == nil && ctx.Err() == nil {
			// The frame source dried up without an error or a shutdown
			// signal; the transport is gone either way.
			stop()
			log.Fatal("serial connection closed unexpectedly")
		}
		log.Print("monitor routine terminated")
	}()

	// inbound direction: decoded frames -> OSC telemetry
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := b.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("telemetry routine failed: %v", err)
		}
		log.Print("telemetry routine terminated")
	}()

	// outbound direction: OSC control messages -> serial frames
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.ListenAndServe(ctx); err != nil && err != context.Canceled {
			log.Printf("control server failed: %v", err)
			stop()
		}
		log.Print("control server terminated")
	}()

	log.Printf("bridge running (out=%dB in=%dB), Ctrl+C to quit", wire.OutputPacketSize, wire.InputPacketSize)

	// Wait for all goroutines to finish, zero the outputs, then release
	// the transport.
	wg.Wait()
	b.Shutdown()
	if err := mux.Close(); err != nil {
		log.Printf("failed to close serial port: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}
