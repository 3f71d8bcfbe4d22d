package watchstate

// MemoryBackend holds the progress map in memory only. It backs tests and
// the storage-disabled mode.
type MemoryBackend struct {
	states map[string]Record
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{states: map[string]Record{}}
}

func (b *MemoryBackend) Load() (map[string]Record, error) {
	out := make(map[string]Record, len(b.states))
	for k, v := range b.states {
		out[k] = v
	}
	return out, nil
}

func (b *MemoryBackend) Save(states map[string]Record) error {
	out := make(map[string]Record, len(states))
	for k, v := range states {
		out[k] = v
	}
	b.states = out
	return nil
}
