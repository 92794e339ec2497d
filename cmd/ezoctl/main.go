// ezoctl - Atlas Scientific EZO circuit tool
//
// A CLI tool for inspecting, calibrating and monitoring EZO pH, ORP and RTD
// circuits in UART mode, or a simulated circuit.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newApp(os.Stdout, os.Stderr)).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
