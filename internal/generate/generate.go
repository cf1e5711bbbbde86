// Package generate fills the dataset with synthetic respondents. Each one
// is driven through a real flow controller, so generated records have the
// same shape and pass the same validation as live ones.
package generate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/drivesound/drivesound/internal/config"
	"github.com/drivesound/drivesound/internal/flow"
	"github.com/drivesound/drivesound/internal/log"
	"github.com/drivesound/drivesound/internal/session"
)

// Options controls a generation run.
type Options struct {
	Count   int
	Seed    uint64
	Workers int
	// Now anchors start times; respondents start within the preceding week.
	Now time.Time
	// Progress, if set, is called after each persisted session with the
	// number done so far. Calls are serialized.
	Progress func(done int, id string, group session.Group)
}

// Result summarizes a generation run.
type Result struct {
	Generated int
	Groups    map[session.Group]int
	Duration  time.Duration
}

// maxSteps bounds one respondent's walk so a topology bug cannot spin forever.
const maxSteps = 1000

// Run generates opts.Count completed sessions and persists each through p.
func Run(ctx context.Context, cfg *config.Config, p flow.Persister, logger log.Sink, opts Options) (*Result, error) {
	if opts.Count < 0 {
		return nil, fmt.Errorf("count must be >= 0, got %d", opts.Count)
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if logger == nil {
		logger = log.Discard
	}
	topo, err := flow.NewTopology(cfg.StimulusIDs(), cfg.Survey.SamplesPerEvaluation, cfg.Survey.InterviewOrder)
	if err != nil {
		return nil, fmt.Errorf("building topology: %w", err)
	}

	began := time.Now()
	res := &Result{Groups: make(map[session.Group]int)}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < opts.Count; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, group, err := respond(cfg, topo, p, logger, opts, i)
			if err != nil {
				return fmt.Errorf("respondent %d: %w", i, err)
			}
			mu.Lock()
			defer mu.Unlock()
			res.Generated++
			res.Groups[group]++
			if opts.Progress != nil {
				opts.Progress(res.Generated, id, group)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	res.Duration = time.Since(began)
	_ = logger.Append(log.LogEvent{
		Event:      log.EventGenerateComplete,
		Total:      res.Generated,
		DurationMs: res.Duration.Milliseconds(),
	})
	return res, nil
}

// stepClock advances by a random think time on every read.
type stepClock struct {
	t time.Time
	r *rand.Rand
}

func (c *stepClock) now() time.Time {
	t := c.t
	c.t = c.t.Add(time.Duration(15+c.r.IntN(90)) * time.Second)
	return t
}

func respond(cfg *config.Config, topo *flow.Topology, p flow.Persister, logger log.Sink, opts Options, i int) (string, session.Group, error) {
	r := rand.New(rand.NewPCG(opts.Seed, uint64(i)))
	start := opts.Now.Add(-time.Duration(r.Int64N(int64(7 * 24 * time.Hour))))
	clk := &stepClock{t: start, r: r}

	groups := [2]session.Group{session.Group(cfg.Survey.Groups[0]), session.Group(cfg.Survey.Groups[1])}
	c, err := flow.Start(flow.Options{
		Topology:         topo,
		Randomizer:       flow.SeededRandomizer(opts.Seed ^ (uint64(i)+1)*0x9e3779b97f4a7c15),
		Persister:        p,
		Logger:           logger,
		AudioCheckAnswer: cfg.Survey.AudioCheckAnswer,
		Groups:           groups,
	}, session.WithClock(clk.now))
	if err != nil {
		return "", "", err
	}

	who := newRespondent(r, cfg.Survey.AudioCheckOptions, cfg.Survey.AudioCheckAnswer)
	for n := 0; !c.Session().Completed(); n++ {
		if n >= maxSteps {
			return "", "", fmt.Errorf("session %s did not complete after %d steps", c.Session().ID(), maxSteps)
		}
		spec, err := c.CurrentStep()
		if err != nil {
			return "", "", err
		}
		answer := who.answer(spec, c.Session().StimulusOrder(), cfg.Survey.AudioCheckAnswer, c.Attempts())
		if _, err := c.Forward(answer); err != nil {
			return "", "", err
		}
	}
	return c.Session().ID(), c.Session().Group(), nil
}
