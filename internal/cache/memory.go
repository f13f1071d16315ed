package cache

import (
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory кеш в памяти процесса. Используется, когда Redis не настроен,
// и для коротких справочников вроде списков județe.
type Memory struct {
	c *gocache.Cache
}

// NewMemory создаёт кеш с временем жизни по умолчанию и периодом очистки.
func NewMemory(defaultExpiration, cleanupInterval time.Duration) *Memory {
	return &Memory{c: gocache.New(defaultExpiration, cleanupInterval)}
}

// Get читает значение по ключу в result.
func (m *Memory) Get(key string, result any) (bool, error) {
	const op = "cache.Memory.Get"
	raw, found := m.c.Get(key)
	if !found {
		return false, nil
	}
	data, ok := raw.([]byte)
	if !ok {
		return false, fmt.Errorf("%s: unexpected value type %T", op, raw)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет копию значения в JSON, чтобы вызывающий код не мог изменить закешированные данные.
func (m *Memory) Set(key string, value any, expiration time.Duration) error {
	const op = "cache.Memory.Set"
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.c.Set(key, data, expiration)
	return nil
}

// Invalidate удаляет ключ.
func (m *Memory) Invalidate(key string) error {
	m.c.Delete(key)
	return nil
}
