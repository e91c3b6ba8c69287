// Command speakerbind diarizes a clip, binds its speakers to face tracks and
// builds the identity timeline, either once from the command line or behind
// an HTTP server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/speakerbind/errors"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:]))
}

func execute(ctx context.Context, args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return exitCode(err)
	}
	return 0
}

// exitCode is 2 for caller mistakes and 1 for everything else.
func exitCode(err error) int {
	if errors.HasCode(err, errors.ErrCodeInvalidInput) || errors.HasCode(err, errors.ErrCodeInvalidConfig) {
		return 2
	}
	return 1
}
