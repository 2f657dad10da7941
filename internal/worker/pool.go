package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrStopped = errors.New("hasher pool stopped")

// ErrMismatch is returned by Compare when the password does not match.
var ErrMismatch = bcrypt.ErrMismatchedHashAndPassword

type job struct {
	run  func()
	done chan struct{}
}

// Hasher runs bcrypt on a fixed number of goroutines so a burst of logins
// cannot occupy every CPU with hash computations.
type Hasher struct {
	logger *zap.Logger
	count  int
	cost   int
	jobs   chan job
	wg     sync.WaitGroup
	stop   chan struct{}
	once   sync.Once
}

func NewHasher(logger *zap.Logger, count, cost int) *Hasher {
	if count < 1 {
		count = 1
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{
		logger: logger,
		count:  count,
		cost:   cost,
		jobs:   make(chan job),
		stop:   make(chan struct{}),
	}
}

func (h *Hasher) Start(ctx context.Context) {
	h.logger.Info("Starting hasher pool", zap.Int("workers", h.count), zap.Int("cost", h.cost))

	for i := 0; i < h.count; i++ {
		h.wg.Add(1)
		go h.worker(ctx, i)
	}
}

func (h *Hasher) Stop() {
	h.once.Do(func() {
		h.logger.Info("Stopping hasher pool...")
		close(h.stop)
		h.wg.Wait()
		h.logger.Info("Hasher pool stopped")
	})
}

func (h *Hasher) worker(ctx context.Context, id int) {
	defer h.wg.Done()

	for {
		select {
		case <-h.stop:
			return
		case <-ctx.Done():
			return
		case j := <-h.jobs:
			start := time.Now()
			j.run()
			close(j.done)
			h.logger.Debug("hash job done", zap.Int("worker", id), zap.Duration("took", time.Since(start)))
		}
	}
}

// submit hands fn to a worker and waits for it. If ctx ends while the job
// is still queued the job is abandoned; once picked up it runs to the end.
func (h *Hasher) submit(ctx context.Context, fn func()) error {
	j := job{run: fn, done: make(chan struct{})}
	select {
	case h.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stop:
		return ErrStopped
	}
	<-j.done
	return nil
}

func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	var (
		hash []byte
		err  error
	)
	if serr := h.submit(ctx, func() {
		hash, err = bcrypt.GenerateFromPassword([]byte(password), h.cost)
	}); serr != nil {
		return "", serr
	}
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare returns nil on match and ErrMismatch otherwise.
func (h *Hasher) Compare(ctx context.Context, hash, password string) error {
	var err error
	if serr := h.submit(ctx, func() {
		err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	}); serr != nil {
		return serr
	}
	return err
}
