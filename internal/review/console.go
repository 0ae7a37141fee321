package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Console presents checkpoints on a terminal and reads a one-line reply.
type Console struct {
	In  io.Reader
	Out io.Writer
}

// Present prints the checkpoint and blocks for a reply line. The read runs in
// a goroutine so a cancelled context unblocks the caller; the pending read is
// abandoned (stdin reads cannot be interrupted portably).
func (c *Console) Present(ctx context.Context, cp Checkpoint) (Reply, error) {
	fmt.Fprintf(c.Out, "\n━━━ quality gate: %s ━━━\n", cp.Gate)
	fmt.Fprintf(c.Out, "run %s (%s)\n", cp.RunID, cp.Process)
	fmt.Fprintf(c.Out, "%s\n", cp.Question)

	if len(cp.Metrics) > 0 {
		names := make([]string, 0, len(cp.Metrics))
		for name := range cp.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(c.Out, "  %s = %g\n", name, cp.Metrics[name])
		}
	}
	for _, a := range cp.Artifacts {
		label := a.Label
		if label == "" {
			label = a.Format
		}
		fmt.Fprintf(c.Out, "  artifact: %s (%s)\n", a.Path, label)
	}
	fmt.Fprint(c.Out, "reply to continue> ")

	type readResult struct {
		line string
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		reader := bufio.NewReader(c.In)
		line, err := reader.ReadString('\n')
		ch <- readResult{strings.TrimSpace(line), err}
	}()

	select {
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case r := <-ch:
		if r.err != nil && r.line == "" {
			return Reply{}, fmt.Errorf("read reply: %w", r.err)
		}
		return Reply{Value: r.line, At: time.Now()}, nil
	}
}

// Auto acknowledges every checkpoint immediately. Used for unattended runs;
// the checkpoint is still audited, only the human pause is skipped.
type Auto struct {
	Value string // reply value to record; defaults to "auto"
}

func (a *Auto) Present(_ context.Context, _ Checkpoint) (Reply, error) {
	v := a.Value
	if v == "" {
		v = "auto"
	}
	return Reply{Value: v, At: time.Now()}, nil
}
