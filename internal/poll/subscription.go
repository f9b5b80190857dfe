package poll

import "sync"

// Subscription delivers state changes of one channel. C holds at most one
// pending state; an undelivered state is replaced by the newer one, so slow
// readers always see the latest. C is closed by Close.
type Subscription[T any] struct {
	C <-chan State[T]

	ch       chan State[T]
	closeFn  func()
	release  []func()
	closeOne sync.Once
}

func newSubscription[T any]() *Subscription[T] {
	ch := make(chan State[T], 1)
	return &Subscription[T]{C: ch, ch: ch}
}

// offer must be called with the owning channel's lock held.
func (s *Subscription[T]) offer(st State[T]) {
	for {
		select {
		case s.ch <- st:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// Close unsubscribes. The last Close on a channel stops its polling.
// Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.closeOne.Do(func() {
		if s.closeFn != nil {
			s.closeFn()
		}
		for _, fn := range s.release {
			fn()
		}
	})
}
