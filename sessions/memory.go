package sessions

import (
	"context"
	"sync"
	"time"

	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
)

//Memory is an in-process ussd.Sessions store used by the console simulator
//and by tests; entries expire by TTL the same way the redis store does
type Memory struct {
	sync.Mutex
	ttl     time.Duration
	entries map[string]memEntry
}

type memEntry struct {
	value   *ussd.Session
	expires time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Memory{
		ttl:     ttl,
		entries: map[string]memEntry{},
	}
}

func (m *Memory) Get(ctx context.Context, id string) (*ussd.Session, error) {
	m.Lock()
	defer m.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expires) {
		delete(m.entries, id)
		return nil, nil //expired is the same as never existed
	}
	copied := *e.value
	return &copied, nil
}

func (m *Memory) Put(ctx context.Context, id string, s *ussd.Session) error {
	m.Lock()
	defer m.Unlock()
	copied := *s
	m.entries[id] = memEntry{
		value:   &copied,
		expires: time.Now().Add(m.ttl), //sliding expiry
	}
	return nil
}

func (m *Memory) Del(ctx context.Context, id string) error {
	m.Lock()
	defer m.Unlock()
	delete(m.entries, id)
	return nil
}
