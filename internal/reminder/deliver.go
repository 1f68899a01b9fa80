package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// deliver sends text to every registered channel in parallel. Each call is
// bounded by timeout, including channels that ignore ctx. Results are in
// registry order.
func deliver(ctx context.Context, reg *Registry, text string, kind Kind, timeout time.Duration) []DeliveryResult {
	ids := reg.IDs()
	results := make([]DeliveryResult, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		ch, _ := reg.Get(id)
		g.Go(func() error {
			results[i] = sendOne(ctx, id, ch, text, kind, timeout)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func sendOne(ctx context.Context, id ChannelID, ch Channel, text string, kind Kind, timeout time.Duration) DeliveryResult {
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- ch.Send(cctx, text, kind)
	}()

	res := DeliveryResult{Channel: id}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case err := <-done:
		switch {
		case err == nil:
			res.Outcome = Outcome{Status: Delivered}
		case errors.Is(err, context.DeadlineExceeded):
			res.Outcome = Outcome{Status: Failed, Reason: "timeout"}
		default:
			res.Outcome = Outcome{Status: Failed, Reason: err.Error()}
		}
	case <-t.C:
		res.Outcome = Outcome{Status: Failed, Reason: "timeout"}
	}
	res.Elapsed = time.Since(start)
	return res
}
