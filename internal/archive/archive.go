// Пакет archive — архивирование строк, удаляемых по политике хранения.
// Строки таблицы записываются одним объектом JSON Lines в блоб-хранилище
// до фиксации удаления.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
)

// BlobStore — хранилище объектов архива.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Archiver раскладывает архивы по ключам prefix/table/YYYY/MM/DD/<uuid>.jsonl.
type Archiver struct {
	store  BlobStore
	prefix string
	now    func() time.Time
	logger *slog.Logger
}

// New создаёт Archiver поверх BlobStore.
func New(store BlobStore, prefix string, logger *slog.Logger) *Archiver {
	return &Archiver{
		store:  store,
		prefix: prefix,
		now:    time.Now,
		logger: logger.With(slog.String("component", "retention_archive")),
	}
}

// Archive сохраняет строки таблицы и возвращает ключ объекта.
func (a *Archiver) Archive(ctx context.Context, table string, rows []json.RawMessage) (string, error) {
	var buf bytes.Buffer
	for _, row := range rows {
		// Компактная запись: одна строка JSON на строку таблицы
		if err := json.Compact(&buf, row); err != nil {
			return "", fmt.Errorf("некорректная строка %s: %w", table, err)
		}
		buf.WriteByte('\n')
	}

	now := a.now().UTC()
	key := path.Join(a.prefix, table, now.Format("2006/01/02"), uuid.NewString()+".jsonl")
	if err := a.store.Put(ctx, key, buf.Bytes(), "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("запись архива %s: %w", key, err)
	}

	a.logger.Info("Строки заархивированы",
		slog.String("table", table),
		slog.Int("rows", len(rows)),
		slog.String("key", key),
	)
	return key, nil
}

// MemoryStore — BlobStore в памяти (тесты и локальный запуск).
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

// Objects возвращает копию содержимого хранилища.
func (m *MemoryStore) Objects() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.objects))
	for k, v := range m.objects {
		out[k] = v
	}
	return out
}
