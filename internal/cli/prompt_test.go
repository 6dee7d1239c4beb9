package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dl-alexandre/ftpfetch/internal/sync/diff"
)

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"  Yes  \r\n", true},
		{"Y", true},
		{"n\n", false},
		{"no\n", false},
		{"yep\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := newPromptConfirmer(strings.NewReader(tt.input), &out)
			got, err := p.Confirm(context.Background(), "summary.txt", diff.Counts{CreateDirs: 1, Fetches: 2, Deletes: 3})
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "Downloads: 3   Deletions: 3") {
				t.Errorf("prompt missing counts: %q", out.String())
			}
			if !strings.Contains(out.String(), "Would you like to apply the changes in summary.txt? (y)es/(n)o") {
				t.Errorf("prompt missing question: %q", out.String())
			}
		})
	}
}

func TestPromptConfirmerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPromptConfirmer(strings.NewReader("y\n"), &bytes.Buffer{})
	if ok, err := p.Confirm(ctx, "summary.txt", diff.Counts{}); err == nil || ok {
		t.Errorf("Confirm() = %v, %v; want false with error", ok, err)
	}
}
