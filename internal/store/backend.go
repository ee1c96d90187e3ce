package store

import (
	"context"
	"sync"
)

// Backend — стратегия хранения снимка. Save и Load атомарны: либо весь снимок, либо ошибка.
// Load возвращает nil, nil, если хранилище пустое.
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// Pinger реализуют бэкенды с внешним хранилищем (для /healthz).
type Pinger interface {
	Ping(ctx context.Context) error
}

// MemoryBackend держит закодированный снимок в памяти процесса.
// Кодирование при каждом Save повторяет поведение внешних бэкендов.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(_ context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return DecodeSnapshot(m.entries)
}

func (m *MemoryBackend) Save(_ context.Context, snap *Snapshot) error {
	entries, err := snap.Encode()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return nil
}

// Raw — копия сохранённых записей (для тестов и отладки).
func (m *MemoryBackend) Raw() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.entries))
	for k, v := range m.entries {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
