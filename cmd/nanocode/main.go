// Command nanocode runs the nanocode API service or model server.
package main

import (
	"context"
	"fmt"
	"os"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "nanocode:", err)
		os.Exit(1)
	}
}
