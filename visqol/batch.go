package visqol

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// PathPair names a reference file and its degraded counterpart.
type PathPair struct {
	Reference string
	Degraded  string
}

// BatchItem is the outcome of one pair. Exactly one of Result and Err is set.
type BatchItem struct {
	Pair   PathPair
	Result *Result
	Err    error
}

// Fatal reports whether the item must stop the batch.
func (b BatchItem) Fatal() bool {
	return errors.Is(b.Err, ErrNotInitialized)
}

// BatchResults compares pairs in order. It stops after the first fatal item,
// which is included as the last element; other failures are logged and the
// batch continues.
func (m *Manager) BatchResults(pairs []PathPair) []BatchItem {
	items := make([]BatchItem, 0, len(pairs))
	for _, p := range pairs {
		item := m.compareItem(p)
		items = append(items, item)
		if item.Fatal() {
			break
		}
	}
	return items
}

// Batch returns the successful results of BatchResults in input order.
func (m *Manager) Batch(pairs []PathPair) []*Result {
	return successes(m.BatchResults(pairs))
}

// BatchParallel compares pairs with up to workers goroutines and returns the
// successful results in input order. An uninitialised manager or a cancelled
// context stops the batch; the error is returned with whatever completed.
func (m *Manager) BatchParallel(ctx context.Context, pairs []PathPair, workers int) ([]*Result, error) {
	if !m.Initialized() {
		m.log.Error("batch aborted: manager not initialised")
		return nil, ErrNotInitialized
	}
	workers = max(1, min(workers, len(pairs)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := make([]BatchItem, len(pairs))
	done := make([]bool, len(pairs))
	var (
		fatalOnce sync.Once
		fatalErr  error
	)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					continue
				}
				item := m.compareItem(pairs[idx])
				items[idx] = item
				done[idx] = true
				if item.Fatal() {
					fatalOnce.Do(func() {
						fatalErr = item.Err
						cancel()
					})
				}
			}
		}()
	}

feed:
	for i := range pairs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var finished []BatchItem
	for i, ok := range done {
		if ok {
			finished = append(finished, items[i])
		}
	}
	out := successes(finished)
	if fatalErr != nil {
		return out, fatalErr
	}
	return out, context.Cause(ctx)
}

func (m *Manager) compareItem(p PathPair) BatchItem {
	res, err := m.CompareFiles(p.Reference, p.Degraded)
	if err != nil {
		entry := m.log.WithFields(logrus.Fields{
			"reference": p.Reference,
			"degraded":  p.Degraded,
		}).WithError(err)
		if errors.Is(err, ErrNotInitialized) {
			entry.Error("batch aborted")
		} else {
			entry.Error("comparison failed, skipping pair")
		}
		return BatchItem{Pair: p, Err: err}
	}
	return BatchItem{Pair: p, Result: res}
}

func successes(items []BatchItem) []*Result {
	out := make([]*Result, 0, len(items))
	for _, it := range items {
		if it.Err == nil && it.Result != nil {
			out = append(out, it.Result)
		}
	}
	return out
}
