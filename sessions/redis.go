package sessions

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
	"bitbucket.org/vservices/utils/v4/errors"
	"bitbucket.org/vservices/utils/v4/logger"
	datatype "bitbucket.org/vservices/utils/v4/type"
	"github.com/go-redis/redis/v8"
)

var log = logger.NewLogger()

type RedisConfig struct {
	Addr       string            `json:"addr" doc:"Redis address (default 127.0.0.1:6379)"`
	Password   datatype.EncStr   `json:"password"`
	Database   int               `json:"database"`
	SessionTTL datatype.Duration `json:"session_ttl" doc:"Maximum dialog duration (default 2m)"`
	LockTTL    datatype.Duration `json:"lock_ttl" doc:"Advisory lock expiry (default 5s)"`
}

func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:6379"
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = datatype.Duration(2 * time.Minute)
	}
	if c.LockTTL <= 0 {
		c.LockTTL = datatype.Duration(5 * time.Second)
	}
	return nil
}

//Redis stores one JSON session value per dialog under a namespaced key with
//a sliding TTL; session-start bookkeeping lives under its own key with the
//same expiry
//it also implements ussd.Locker with a short SETNX advisory lock to fail
//safe under rare duplicate telco deliveries
type Redis struct {
	config RedisConfig
	rdb    *redis.Client
}

func NewRedis(c RedisConfig, rdb *redis.Client) (*Redis, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid redis sessions config")
	}
	if rdb == nil {
		return nil, errors.Errorf("nil redis client")
	}
	return &Redis{config: c, rdb: rdb}, nil
}

func sessionKey(id string) string { return "session:" + id }
func startKey(id string) string   { return "session:" + id + ":start" }
func lockKey(id string) string    { return "session:" + id + ":lock" }

func (r *Redis) Get(ctx context.Context, id string) (*ussd.Session, error) {
	value, err := r.rdb.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get session(%s)", id)
	}
	var s ussd.Session
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		//a corrupt value cannot be continued - discard it so the next
		//request restarts at the entry menu
		log.Errorf("session(%s) corrupt, discarded: %+v", id, err)
		r.rdb.Del(ctx, sessionKey(id))
		return nil, nil
	}
	return &s, nil
}

func (r *Redis) Put(ctx context.Context, id string, s *ussd.Session) error {
	value, err := json.Marshal(s)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal session(%s)", id)
	}
	ttl := r.config.SessionTTL.Duration()
	if err := r.rdb.Set(ctx, sessionKey(id), value, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to put session(%s)", id)
	}
	//start-time telemetry is written once per dialog
	r.rdb.SetNX(ctx, startKey(id), s.StartTime.Format(time.RFC3339Nano), ttl)
	return nil
}

func (r *Redis) Del(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, sessionKey(id), startKey(id)).Err(); err != nil {
		return errors.Wrapf(err, "failed to del session(%s)", id)
	}
	return nil
}

//Lock() acquires the per-session advisory lock; false means another
//delivery of the same session is still being processed
func (r *Redis) Lock(ctx context.Context, id string) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, lockKey(id), "1", r.config.LockTTL.Duration()).Result()
	if err != nil {
		return false, errors.Wrapf(err, "failed to lock session(%s)", id)
	}
	return ok, nil
}

func (r *Redis) Unlock(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, lockKey(id)).Err(); err != nil {
		return errors.Wrapf(err, "failed to unlock session(%s)", id)
	}
	return nil
}
