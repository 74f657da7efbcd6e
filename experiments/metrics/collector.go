package metrics

import (
	"sync/atomic"
	"time"
)

// SearchMetric summarizes one search invocation.
type SearchMetric struct {
	Duration     time.Duration
	Simulations  int
	FullPlayouts int // rollouts that reached a decided game before the cap
	Batches      int
	TreeSize     int
	Cutoff       int
}

// MoveMetric is a SearchMetric tagged with its place in a game.
type MoveMetric struct {
	Ply    int
	Side   int // +1 First, -1 Second
	Source string
	SearchMetric
}

// GameMetric summarizes one finished game.
type GameMetric struct {
	Winner     int // +1, -1 or 0 for a draw
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	TotalMoves int
}

type Collector interface {
	Start(cutoff int)
	AddSimulation()
	AddFullPlayout()
	AddBatch()
	SetTreeSize(size int)
	Complete() SearchMetric
}

type collector struct {
	cutoff       int
	startTime    time.Time
	simulations  atomic.Int64
	fullPlayouts atomic.Int64
	batches      atomic.Int64
	treeSize     atomic.Int64
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(cutoff int) {
	m.startTime = time.Now()
	m.cutoff = cutoff
	m.simulations.Store(0)
	m.fullPlayouts.Store(0)
	m.batches.Store(0)
	m.treeSize.Store(0)
}

func (m *collector) AddSimulation() {
	m.simulations.Add(1)
}

func (m *collector) AddFullPlayout() {
	m.fullPlayouts.Add(1)
}

func (m *collector) AddBatch() {
	m.batches.Add(1)
}

func (m *collector) SetTreeSize(size int) {
	m.treeSize.Store(int64(size))
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Duration:     time.Since(m.startTime),
		Simulations:  int(m.simulations.Load()),
		FullPlayouts: int(m.fullPlayouts.Load()),
		Batches:      int(m.batches.Load()),
		TreeSize:     int(m.treeSize.Load()),
		Cutoff:       m.cutoff,
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(cutoff int)       {}
func (m *dummyCollector) AddSimulation()         {}
func (m *dummyCollector) AddFullPlayout()        {}
func (m *dummyCollector) AddBatch()              {}
func (m *dummyCollector) SetTreeSize(size int)   {}
func (m *dummyCollector) Complete() SearchMetric { return SearchMetric{} }
