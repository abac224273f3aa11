package kvstore

import "sync"

// notifier 进程内订阅表，各后端共用
type notifier struct {
	mu   sync.RWMutex
	seq  int
	subs map[string]map[int]Listener
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int]Listener)}
}

func (n *notifier) subscribe(key string, fn Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.seq++
	id := n.seq
	if n.subs[key] == nil {
		n.subs[key] = make(map[int]Listener)
	}
	n.subs[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs[key], id)
			if len(n.subs[key]) == 0 {
				delete(n.subs, key)
			}
		})
	}
}

func (n *notifier) publish(c Change) {
	n.mu.RLock()
	listeners := make([]Listener, 0, len(n.subs[c.Key])+len(n.subs[""]))
	for _, fn := range n.subs[c.Key] {
		listeners = append(listeners, fn)
	}
	if c.Key != "" {
		for _, fn := range n.subs[""] {
			listeners = append(listeners, fn)
		}
	}
	n.mu.RUnlock()

	for _, fn := range listeners {
		fn(c)
	}
}
