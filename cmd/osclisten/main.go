// Command osclisten is a debugging tool that listens for the bridge's OSC
// telemetry on UDP and prints decoded messages plus per-second statistics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/computercard/oscbridge/internal/osc"
)

var (
	listen = flag.String("listen", ":7001", "UDP address to listen for OSC telemetry on")
	quiet  = flag.Bool("quiet", false, "Only print per-second statistics, not every message")
)

func main() {
	flag.Parse()

	var messageCount int64

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Statistics goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				messages := atomic.SwapInt64(&messageCount, 0)
				if messages > 0 {
					fmt.Printf("Received: %d messages/sec\n", messages)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	server := osc.NewServer(*listen, func(address string, value float64) {
		atomic.AddInt64(&messageCount, 1)
		if !*quiet {
			fmt.Printf("%s %.4f\n", address, value)
		}
	})

	fmt.Printf("OSC listener started on %s\n", *listen)
	if err := server.ListenAndServe(ctx); err != nil && err != context.Canceled {
		log.Fatal(err)
	}
}
