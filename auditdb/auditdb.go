package auditdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bitbucket.org/vservices/utils/v4/errors"
	"bitbucket.org/vservices/utils/v4/logger"
	"github.com/gchaincl/sqlhooks"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

var log = logger.NewLogger()

func init() {
	sql.Register("mysqlwithlog", sqlhooks.Wrap(&mysql.MySQLDriver{}, hooks{}))
}

//Entry is one completed gateway submission, recorded for reconciliation
type Entry struct {
	SessionID string        `db:"session_id"`
	Msisdn    string        `db:"msisdn"`
	Menu      string        `db:"menu"`
	Service   string        `db:"service"`
	Status    string        `db:"status"`
	Elapsed   time.Duration `db:"-"`
	ElapsedMs int64         `db:"elapsed_ms"`
}

//Recorder writes the transaction audit trail
//recording is best effort: a failed insert is logged, never surfaced to the
//subscriber's dialog
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

//Nop() is used when no audit database is configured
func Nop() Recorder { return nop{} }

type nop struct{}

func (nop) Record(ctx context.Context, e Entry) {}

type DatabaseConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Database       string `json:"database"`
	MaxConnSeconds int    `json:"max_conn_seconds" doc:"Max nr of seconds to wait for db connection to be established"`
	MaxConnOpen    int    `json:"max_conn_open" doc:"Max nr of open connections in pool"`
	MaxConnIdle    int    `json:"max_conn_idle" doc:"Max nr of idle connections in pool"`
}

func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.Username == "" {
		return errors.Errorf("missing username")
	}
	if c.Password == "" {
		return errors.Errorf("missing password")
	}
	if c.Database == "" {
		return errors.Errorf("missing database name")
	}
	if c.MaxConnSeconds <= 0 {
		c.MaxConnSeconds = 2
	}
	if c.MaxConnOpen <= 0 {
		c.MaxConnOpen = 5
	}
	if c.MaxConnIdle <= 0 {
		c.MaxConnIdle = 5
	}
	return nil
} //DatabaseConfig.Validate()

func (c DatabaseConfig) ConnectString() string {
	return fmt.Sprintf("%s:%s@(%s:%d)/%s",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database)
}

type DB struct {
	db   *sqlx.DB
	stmt *sqlx.NamedStmt
}

const insertSQL = `insert into ussd_txn_log` +
	` (session_id,msisdn,menu,service,status,elapsed_ms)` +
	` values (:session_id,:msisdn,:menu,:service,:status,:elapsed_ms)`

func Connect(c DatabaseConfig) (*DB, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid database config")
	}

	//connect in the background so a down database cannot stall startup
	//longer than the configured bound
	type connResult struct {
		db  *sqlx.DB
		err error
	}
	connResultChan := make(chan connResult, 1)
	go func() {
		db, err := sqlx.Connect("mysqlwithlog", c.ConnectString())
		connResultChan <- connResult{db: db, err: err}
	}()

	select {
	case res := <-connResultChan:
		if res.err != nil {
			return nil, errors.Wrapf(res.err, "failed to connect to database %s on %s:%d", c.Database, c.Host, c.Port)
		}
		res.db.SetMaxOpenConns(c.MaxConnOpen)
		res.db.SetMaxIdleConns(c.MaxConnIdle)
		stmt, err := res.db.PrepareNamed(insertSQL)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to prepare audit insert")
		}
		return &DB{db: res.db, stmt: stmt}, nil

	case <-time.After(time.Duration(c.MaxConnSeconds) * time.Second):
		return nil, errors.Errorf("%d second timeout connecting to db %s on %s:%d", c.MaxConnSeconds, c.Database, c.Host, c.Port)
	} //select
}

func (d *DB) Record(ctx context.Context, e Entry) {
	e.ElapsedMs = e.Elapsed.Milliseconds()
	if _, err := d.stmt.ExecContext(ctx, e); err != nil {
		log.Errorf("audit record(%s %s) failed: %+v", e.Service, e.SessionID, err)
	}
}

//hooks logs each SQL statement with its duration
type hooks struct{}

type hookBegin struct{}

func (h hooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	return context.WithValue(ctx, hookBegin{}, time.Now()), nil
}

func (h hooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	begin := ctx.Value(hookBegin{}).(time.Time)
	log.Infof("SQL (dur: %10.10s) %s (%d args=%+v)", time.Since(begin), query, len(args), args)
	return ctx, nil
}
