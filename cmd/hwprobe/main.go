// hwprobe discovers working hardware decode contexts and exercises them.
//
// Usage:
//
//	hwprobe probe --samples-dir ./samples
//	hwprobe decode --h264 sample.264 clip.mp4
//	hwprobe drivers
//
// Every flag can also be set in a YAML config file (--config) or through
// HWPROBE_* environment variables, e.g. HWPROBE_SAMPLES_DIR.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newApp(os.Stdout)).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hwprobe: %v\n", err)
		stop()
		os.Exit(1)
	}
}
