package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dl-alexandre/ftpfetch/internal/sync/diff"
)

// promptConfirmer asks on the terminal before a plan is applied. Only "y" and
// "yes" approve; end of input declines.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

func (p *promptConfirmer) Confirm(ctx context.Context, summaryPath string, counts diff.Counts) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(p.out, "Downloads: %d   Deletions: %d\n", counts.CreateDirs+counts.Fetches, counts.Deletes)
	fmt.Fprintf(p.out, "Would you like to apply the changes in %s? (y)es/(n)o ", summaryPath)

	answer, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
