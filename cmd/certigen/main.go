// Command certigen runs the local license and access-control server
// backing the certificate generator UI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"certigen/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "certigen: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "certigen: %v\n", err)
		os.Exit(1)
	}
}
