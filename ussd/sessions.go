package ussd

import (
	"context"
	"time"

	"bitbucket.org/vservices/utils/v4/logger"
)

var log = logger.NewLogger()

//Sessions is a generic key-value session store with per-key TTL
//Get() returns (nil,nil) when the session does not exist - that is not an error
//Put() is a full overwrite of the session value and refreshes the TTL
type Sessions interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, id string, s *Session) error
	Del(ctx context.Context, id string) error
}

//Locker is optionally implemented by a store that supports a per-session
//advisory lock (acquire before load, release after save)
type Locker interface {
	Lock(ctx context.Context, id string) (bool, error)
	Unlock(ctx context.Context, id string) error
}

//Manager owns the session lifecycle on top of a Sessions store and applies
//the degraded-but-available policy: a store failure is reported to the
//caller as "no session", forcing a restart at the entry menu instead of
//propagating a transport error into the dialog
type Manager struct {
	store Sessions
}

func NewManager(store Sessions) *Manager {
	if store == nil {
		panic("NewManager(nil)")
	}
	return &Manager{store: store}
}

//Begin() creates the session object for a new dialog
//idempotent in effect: a second Begin for the same id simply replaces the
//first, which is the last-writer-wins policy the store already applies
func (m *Manager) Begin(id string, msisdn string, menu string) *Session {
	t0 := time.Now()
	return &Session{
		ID:          id,
		Msisdn:      msisdn,
		CurrentMenu: menu,
		StartTime:   t0,
		LastTime:    t0,
	}
}

//Load() returns nil when the session does not exist or the store failed
func (m *Manager) Load(ctx context.Context, id string) *Session {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		log.Errorf("session(%s) store get failed, treating as no session: %+v", id, err)
		return nil
	}
	return s
}

//Save() overwrites the session and refreshes its TTL
//a failed save is logged and dropped: the session may have expired or been
//deleted while we were busy, and the next request will restart cleanly
func (m *Manager) Save(ctx context.Context, s *Session) {
	s.LastTime = time.Now()
	if err := m.store.Put(ctx, s.ID, s); err != nil {
		log.Errorf("session(%s) store put failed, dropped: %+v", s.ID, err)
	}
}

//End() deletes the session and its bookkeeping
func (m *Manager) End(ctx context.Context, id string) {
	if err := m.store.Del(ctx, id); err != nil {
		log.Errorf("session(%s) store del failed: %+v", id, err)
	}
}
