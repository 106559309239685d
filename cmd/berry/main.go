// cmd/berry/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var pe *mintdom.ProvisionError
		if errors.As(err, &pe) {
			fmt.Fprintf(os.Stderr, "error (%s at %s): %v\n", pe.Kind, pe.Step, pe.Err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
