package usecase

import "sync"

// PanelEvent announces that a panel's state changed.
type PanelEvent struct {
	Panel  string `json:"panel"`
	Seq    uint64 `json:"seq"`
	Status Status `json:"status"`
}

const listenerBuffer = 32

// hub fans panel events out to listeners. A listener that falls behind
// loses its oldest pending event, never blocks the publisher.
type hub struct {
	mu        sync.Mutex
	listeners map[chan PanelEvent]struct{}
	closed    bool
}

func newHub() *hub {
	return &hub{listeners: make(map[chan PanelEvent]struct{})}
}

func (h *hub) add() (<-chan PanelEvent, func()) {
	ch := make(chan PanelEvent, listenerBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.listeners[ch] = struct{}{}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.listeners[ch]; ok {
				delete(h.listeners, ch)
				close(ch)
			}
		})
	}
}

func (h *hub) publish(ev PanelEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.listeners {
		for {
			select {
			case ch <- ev:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// close ends every listener.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.listeners {
		close(ch)
	}
	h.listeners = make(map[chan PanelEvent]struct{})
}
