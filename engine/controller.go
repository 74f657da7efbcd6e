package engine

import (
	"context"
	"slices"
	"sync"
	"time"

	"dobutsu/book"
	"dobutsu/game"
	"dobutsu/meta"
	"dobutsu/searcher"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrStaleSession = errors.New("session id must increase")
	ErrBudget       = errors.New("time budget must be positive")
	ErrStopped      = errors.New("controller stopped")
)

type ControllerOption func(c *Controller)

func WithBook(b *book.Book) ControllerOption {
	return func(c *Controller) {
		c.book = b
	}
}

// WithMateDepth sets the forced-win check depth; 0 disables it.
func WithMateDepth(depth int) ControllerOption {
	return func(c *Controller) {
		if depth >= 0 {
			c.mateDepth = depth
		}
	}
}

// WithSearchOptions are applied to every MCTS run. The duration is always
// taken from the request.
func WithSearchOptions(options ...searcher.Option) ControllerOption {
	return func(c *Controller) {
		c.searchOptions = append(c.searchOptions, options...)
	}
}

// WithOutboxSize sets the buffer of the Messages channel.
func WithOutboxSize(size int) ControllerOption {
	return func(c *Controller) {
		if size >= 0 {
			c.outboxSize = size
		}
	}
}

type request struct {
	ctx      context.Context
	id       SessionID
	pos      game.Position
	deadline time.Time
}

// Controller runs searches on its own worker, one session at a time. Callers
// talk to it only through Start, Cancel and the Messages channel. Every
// outgoing message is checked against the latest session under the same lock
// Start and Cancel take, so a superseded session never emits anything once
// its successor has been observed.
type Controller struct {
	book          *book.Book
	mateDepth     int
	searchOptions []searcher.Option
	outboxSize    int

	mu      sync.Mutex
	cond    *sync.Cond
	latest  SessionID
	issued  SessionID
	cancel  context.CancelFunc
	pending *request
	queue   []Message
	state   State
	stopped bool

	out chan Message
}

func NewController(options ...ControllerOption) *Controller {
	c := &Controller{ // Default values
		mateDepth:  meta.MATE_DEPTH,
		outboxSize: 64,
		latest:     NoSession,
		issued:     NoSession,
		state:      Idle,
	}
	for _, option := range options {
		option(c)
	}
	c.cond = sync.NewCond(&c.mu)
	c.out = make(chan Message, c.outboxSize)
	return c
}

// Messages delivers progress and finish messages. It is closed when Run
// returns.
func (c *Controller) Messages() <-chan Message {
	return c.out
}

// ActiveSession returns the latest started session, or NoSession after a
// cancel.
func (c *Controller) ActiveSession() SessionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// State returns the phase of the session being worked on.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start validates the request and hands a snapshot of the position to the
// worker. Any earlier session is cancelled. Start never blocks on the search.
func (c *Controller) Start(req StartRequest) error {
	pos, err := game.FromArrays(req.Board, req.Hands, req.SideToMove)
	if err != nil {
		return errors.Wrapf(err, "session %d", req.SessionID)
	}
	if req.TimeBudget <= 0 {
		return errors.Wrapf(ErrBudget, "session %d got %s", req.SessionID, req.TimeBudget)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrStopped
	}
	if req.SessionID <= c.issued {
		return errors.Wrapf(ErrStaleSession, "got %d after %d", req.SessionID, c.issued)
	}
	c.supersede()

	ctx, cancel := context.WithCancel(context.Background())
	c.issued = req.SessionID
	c.latest = req.SessionID
	c.cancel = cancel
	c.pending = &request{
		ctx:      ctx,
		id:       req.SessionID,
		pos:      pos,
		deadline: time.Now().Add(req.TimeBudget),
	}
	c.cond.Broadcast()
	log.Debug().Int64("session", int64(req.SessionID)).Dur("budget", req.TimeBudget).Msg("session started")
	return nil
}

// Cancel stops whatever session is active. Its finish message is never sent.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest != NoSession {
		log.Debug().Int64("session", int64(c.latest)).Msg("session cancelled")
	}
	c.supersede()
	c.latest = NoSession
}

// supersede cancels the running session and drops everything it queued.
// Callers hold mu.
func (c *Controller) supersede() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.pending = nil
	c.queue = c.queue[:0]
}

// Run drives the worker and the message delivery until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.stopped = true
		c.supersede()
		c.cond.Broadcast()
	})
	defer stop()

	g.Go(c.work)
	g.Go(func() error {
		defer close(c.out)
		return c.deliver(ctx)
	})
	return g.Wait()
}

func (c *Controller) work() error {
	for {
		c.mu.Lock()
		for c.pending == nil && !c.stopped {
			c.cond.Wait()
		}
		if c.stopped {
			c.mu.Unlock()
			return nil
		}
		req := c.pending
		c.pending = nil
		c.mu.Unlock()

		c.process(req)
	}
}

func (c *Controller) deliver(ctx context.Context) error {
	for {
		c.mu.Lock()
		for len(c.queue) == 0 && !c.stopped {
			c.cond.Wait()
		}
		if c.stopped {
			c.mu.Unlock()
			return nil
		}
		msg := c.queue[0]
		c.queue = slices.Delete(c.queue, 0, 1)
		c.mu.Unlock()

		select {
		case c.out <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

// emit queues msg unless its session has been superseded.
func (c *Controller) emit(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.Session() != c.latest {
		log.Debug().Int64("session", int64(msg.Session())).Int64("latest", int64(c.latest)).Msg("suppressed stale message")
		return
	}
	c.queue = append(c.queue, msg)
	c.cond.Broadcast()
}

func (c *Controller) setState(id SessionID, state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	log.Debug().Int64("session", int64(id)).Str("state", state.String()).Msg("search state")
}

// process runs one session: book, then forced win, then MCTS for whatever is
// left of the budget. A panic inside aborts the session with an error finish.
func (c *Controller) process(req *request) {
	side := req.pos.Turn()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Int64("session", int64(req.id)).Interface("panic", r).Msg("search aborted")
			c.emit(Finish{
				SessionID:  req.id,
				SideToMove: side,
				Err:        errors.Errorf("search aborted: %v", r),
			})
		}
		c.setState(req.id, Finished)
	}()

	c.setState(req.id, BookLookup)
	if move, ok := c.book.Lookup(req.pos); ok {
		c.emit(Finish{
			SessionID:   req.id,
			Move:        &move,
			Simulations: SimulationsBook,
			WinRate:     meta.BOOK_WIN_RATE,
			SideToMove:  side,
			Source:      SourceBook,
		})
		return
	}

	c.setState(req.id, MateSearch)
	if move, ok := searcher.SolveMate(req.pos, c.mateDepth); ok {
		c.emit(Finish{
			SessionID:   req.id,
			Move:        &move,
			Simulations: SimulationsMate,
			WinRate:     searcher.WIN,
			SideToMove:  side,
			Source:      SourceMate,
		})
		return
	}
	if req.ctx.Err() != nil {
		return
	}

	c.setState(req.id, Iterating)
	options := append(slices.Clone(c.searchOptions), searcher.WithDuration(time.Until(req.deadline)))
	result, err := searcher.NewMCTS(options...).Search(req.ctx, req.pos, func(simulations int) {
		c.emit(Progress{SessionID: req.id, Simulations: simulations})
	})
	if err != nil {
		log.Debug().Int64("session", int64(req.id)).Err(err).Msg("search stopped without a result")
		return
	}

	finish := Finish{
		SessionID:   req.id,
		Simulations: result.Simulations,
		WinRate:     result.WinRate,
		SideToMove:  side,
		Source:      SourceSearch,
		Metric:      result.Metric,
	}
	if result.HasMove {
		finish.Move = &result.Move
	}
	c.emit(finish)
}

// FindMove runs one session to completion and returns its finish message.
// Progress messages are discarded. The caller must not read Messages
// concurrently.
func (c *Controller) FindMove(ctx context.Context, pos game.Position, budget time.Duration) (Finish, error) {
	c.mu.Lock()
	id := c.issued + 1
	c.mu.Unlock()

	if err := c.Start(NewStartRequest(id, pos, budget)); err != nil {
		return Finish{}, err
	}
	for {
		select {
		case msg, ok := <-c.out:
			if !ok {
				return Finish{}, ErrStopped
			}
			if finish, isFinish := msg.(Finish); isFinish && finish.SessionID == id {
				return finish, finish.Err
			}
		case <-ctx.Done():
			c.Cancel()
			return Finish{}, ctx.Err()
		}
	}
}
