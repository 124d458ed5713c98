package safety

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Options carries the global safety flags for destructive commands.
type Options struct {
	DryRun bool
	Yes    bool
	Force  bool
}

// Confirm prompts before a potentially destructive action.
//   - DryRun declines without prompting; no action should be taken.
//   - Yes (or Force) accepts without prompting.
//
// The caller decides what to do with the answer.
func Confirm(opts Options, in io.Reader, out io.Writer, question string) (bool, error) {
	if opts.DryRun {
		return false, nil
	}
	if opts.Yes || opts.Force {
		return true, nil
	}
	if out != nil {
		fmt.Fprintf(out, "%s [y/N]: ", strings.TrimSpace(question))
	}
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	ans := strings.TrimSpace(strings.ToLower(line))
	return ans == "y" || ans == "yes", nil
}
