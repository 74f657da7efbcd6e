package searcher

import (
	"context"
	"time"

	"dobutsu/experiments/metrics"
	"dobutsu/game"
	"dobutsu/meta"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

type Option func(mcts *MCTS)

// MCTS is a single-threaded Monte Carlo tree search. An MCTS value runs one
// search at a time; the tree is built fresh for every call to Search.
type MCTS struct {
	duration         time.Duration
	batchSize        int
	progressInterval int
	cutoff           int
	exploration      float64
	seed             uint64
	seeded           bool
	now              func() time.Time
	metrics          metrics.Collector
}

// Result is the outcome of a completed search. HasMove is false when the
// root has no legal move, which the caller treats as resignation.
type Result struct {
	Move        game.Move
	HasMove     bool
	Simulations int
	WinRate     float64   // mean reward of Move for Side
	Side        game.Side // side to move at the root
	Metric      metrics.SearchMetric
}

func WithDuration(duration time.Duration) Option {
	return func(m *MCTS) {
		m.duration = max(duration, 0)
	}
}

func WithBatchSize(size int) Option {
	return func(m *MCTS) {
		if size > 0 {
			m.batchSize = size
		}
	}
}

func WithProgressInterval(simulations int) Option {
	return func(m *MCTS) {
		if simulations > 0 {
			m.progressInterval = simulations
		}
	}
}

func WithCutoff(depth int) Option {
	return func(m *MCTS) {
		if depth > 0 {
			m.cutoff = depth
		}
	}
}

func WithExploration(c float64) Option {
	return func(m *MCTS) {
		if c >= 0 {
			m.exploration = c
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(m *MCTS) {
		m.seed = seed
		m.seeded = true
	}
}

// WithClock replaces the wall clock used for the deadline.
func WithClock(now func() time.Time) Option {
	return func(m *MCTS) {
		if now != nil {
			m.now = now
		}
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = metrics.NewCollector()
	}
}

func NewMCTS(options ...Option) *MCTS {
	m := &MCTS{ // Default values
		batchSize:        meta.BATCH_SIZE,
		progressInterval: meta.PROGRESS_INTERVAL,
		cutoff:           meta.WITH_CUTOFF,
		exploration:      meta.EXPLORATION,
		now:              time.Now,
		metrics:          metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Search runs simulations from root in batches until the budget is spent.
// At least one batch always runs. Between batches it checks ctx and reports
// progress whenever another progress interval has been crossed. A cancelled search
// returns ctx.Err() and no result.
func (m *MCTS) Search(ctx context.Context, root game.Position, progress func(simulations int)) (Result, error) {
	result := Result{Side: root.Turn()}
	if root.Outcome().Over || len(root.LegalMoves()) == 0 {
		return result, nil
	}

	seed := m.seed
	if !m.seeded {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewSource(seed))

	t := newTree(root)
	deadline := m.now().Add(m.duration)
	nextProgress := m.progressInterval
	simulations := 0

	m.metrics.Start(m.cutoff)
	for {
		for i := 0; i < m.batchSize; i++ {
			m.simulate(t, rng)
		}
		simulations += m.batchSize
		m.metrics.AddBatch()

		if err := ctx.Err(); err != nil {
			log.Debug().Int("simulations", simulations).Msg("search cancelled")
			return Result{}, err
		}
		if simulations >= nextProgress {
			if progress != nil {
				progress(simulations)
			}
			for nextProgress <= simulations {
				nextProgress += m.progressInterval
			}
		}
		if !m.now().Before(deadline) {
			break
		}
	}
	m.metrics.SetTreeSize(t.size())
	result.Metric = m.metrics.Complete()
	result.Simulations = simulations

	best, ok := t.robustChild()
	if !ok {
		panic("non-terminal root was never expanded")
	}
	child := &t.nodes[best]
	result.Move = child.move
	result.HasMove = true
	result.WinRate = child.winRate()

	log.Debug().
		Str("move", result.Move.String()).
		Int("simulations", simulations).
		Float64("winRate", result.WinRate).
		Int("nodes", t.size()).
		Msg("search finished")
	return result, nil
}

func (m *MCTS) simulate(t *tree, rng *rand.Rand) {
	leaf := t.selectLeaf(m.exploration)
	leaf = t.expand(leaf, rng)
	outcome := rollout(t.nodes[leaf].pos, m.cutoff, rng, m.metrics)
	t.backup(leaf, outcome)
	m.metrics.AddSimulation()
}
