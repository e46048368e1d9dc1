package draft

import (
	"context"
	"log"
	"sync"
	"time"
)

// Orchestrator runs draft generation for a dataset's groups in paced
// chunks. Each chunk's members generate concurrently; between chunks it
// pauses so chunkSize/pause stays under the provider's request quota.
// The pause is skipped after the last chunk. One group failing never
// stops the run; the group is marked failed and the run continues.
type Orchestrator struct {
	gen       Generator
	store     *StateStore
	limiter   *RateLimiter
	chunkSize int
	pause     time.Duration

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator. limiter may be nil, which
// disables the Redis quota guard and relies on chunk pacing alone.
func NewOrchestrator(gen Generator, store *StateStore, limiter *RateLimiter, chunkSize int, pause time.Duration) *Orchestrator {
	if chunkSize <= 0 {
		chunkSize = 5
	}
	return &Orchestrator{
		gen:       gen,
		store:     store,
		limiter:   limiter,
		chunkSize: chunkSize,
		pause:     pause,
		sleep:     sleepCtx,
	}
}

// RunSummary reports the outcome of a full generation run.
type RunSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// GenerateAll regenerates every group in the store, in dataset order.
// The call blocks until the run finishes or ctx is cancelled; groups
// not yet started when ctx ends stay pending.
func (o *Orchestrator) GenerateAll(ctx context.Context) (RunSummary, error) {
	groups := o.store.Groups()
	summary := RunSummary{Total: len(groups)}
	if len(groups) == 0 {
		return summary, nil
	}

	var mu sync.Mutex

	chunks := chunkGroups(groups, o.chunkSize)
	log.Printf("[draft] Generating drafts for %d groups in %d chunks of up to %d", len(groups), len(chunks), o.chunkSize)

	for i, chunk := range chunks {
		if err := o.waitForQuota(ctx, len(chunk)); err != nil {
			return summary, err
		}

		var wg sync.WaitGroup
		for _, group := range chunk {
			wg.Add(1)
			go func(group string) {
				defer wg.Done()
				if o.generateGroup(ctx, group) {
					mu.Lock()
					summary.Succeeded++
					mu.Unlock()
				} else {
					mu.Lock()
					summary.Failed++
					mu.Unlock()
				}
			}(group)
		}
		wg.Wait()

		if i < len(chunks)-1 && o.pause > 0 {
			log.Printf("[draft] Chunk %d/%d done, pausing %s", i+1, len(chunks), o.pause)
			if err := o.sleep(ctx, o.pause); err != nil {
				return summary, err
			}
		}
	}

	log.Printf("[draft] Run complete: %d succeeded, %d failed of %d", summary.Succeeded, summary.Failed, summary.Total)
	return summary, nil
}

// GenerateOne regenerates a single group, e.g. after an operator retries
// a failed draft. Returns false when the group is unknown.
func (o *Orchestrator) GenerateOne(ctx context.Context, group string) bool {
	if _, ok := o.store.Get(group); !ok {
		return false
	}
	if err := o.waitForQuota(ctx, 1); err != nil {
		return false
	}
	o.generateGroup(ctx, group)
	return true
}

// generateGroup runs one generation attempt under a fresh epoch. The
// completion write carries the epoch so a newer regeneration started in
// the meantime wins.
func (o *Orchestrator) generateGroup(ctx context.Context, group string) bool {
	epoch, ok := o.store.Begin(group)
	if !ok {
		return false
	}

	rows := o.store.RowsFor(group)

	subject, body, err := o.gen.Generate(ctx, group, rows)
	if err != nil {
		log.Printf("[draft] Generation failed for group %q: %v", group, err)
		o.store.Fail(group, epoch, UserMessage(err))
		return false
	}

	return o.store.Complete(group, epoch, subject, body)
}

// waitForQuota blocks until the Redis quota bucket admits n requests.
// A nil limiter admits immediately.
func (o *Orchestrator) waitForQuota(ctx context.Context, n int) error {
	for {
		allowed, wait, err := o.limiter.Allow(ctx, n)
		if err != nil {
			// Quota guard is advisory; a Redis outage must not block runs.
			log.Printf("[draft] Quota check error, proceeding: %v", err)
			return nil
		}
		if allowed {
			return nil
		}
		log.Printf("[draft] Provider quota reached, waiting %s", wait)
		if err := o.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func chunkGroups(groups []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(groups); start += size {
		end := start + size
		if end > len(groups) {
			end = len(groups)
		}
		chunks = append(chunks, groups[start:end])
	}
	return chunks
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
