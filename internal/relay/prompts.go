package relay

import "sync"

// promptTable matches prompt answers back to their blocked askers.
type promptTable struct {
	mu      sync.Mutex
	nextID  int
	pending map[int]chan bool
}

func newPromptTable() *promptTable {
	return &promptTable{pending: make(map[int]chan bool)}
}

func (t *promptTable) add() (int, chan bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	ch := make(chan bool, 1)
	t.pending[t.nextID] = ch
	return t.nextID, ch
}

func (t *promptTable) resolve(id int, accept bool) {
	t.mu.Lock()
	ch, ok := t.pending[id]
	delete(t.pending, id)
	t.mu.Unlock()
	if ok {
		ch <- accept
	}
}

func (t *promptTable) remove(id int) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}
