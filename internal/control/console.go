package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const prompt = "lookaway> "

// RunConsole reads commands line by line from in until EOF or ctx is done.
// The reader goroutine may outlive the call when in blocks (stdin).
func (r *Router) RunConsole(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
		close(lines)
	}()

	fmt.Fprint(out, prompt)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if reply := r.Execute(ctx, SourceConsole, 0, "", line); reply != "" {
				fmt.Fprintln(out, strings.TrimRight(reply, "\n"))
			}
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprint(out, prompt)
		}
	}
}
