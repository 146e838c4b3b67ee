package pg

import (
	"context"
	"time"

	"DreamsChat/tools/errs"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	DSN      string
	MaxConns int32
}

// NewPool 建连并 Ping
func NewPool(ctx context.Context, c Config) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, errs.WrapMsg(err, "parse pg dsn")
	}
	if c.MaxConns > 0 {
		pc.MaxConns = c.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, errs.WrapMsg(err, "connect pg")
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, errs.WrapMsg(err, "ping pg")
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS dreams_messages (
	id              BIGINT PRIMARY KEY,
	conversation_id BIGINT      NOT NULL,
	sender_id       BIGINT      NOT NULL,
	content         TEXT        NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_dreams_messages_conv
	ON dreams_messages (conversation_id, created_at DESC, id DESC);
CREATE TABLE IF NOT EXISTS dreams_conversation_members (
	conversation_id BIGINT      NOT NULL,
	user_id         BIGINT      NOT NULL,
	role            TEXT        NOT NULL DEFAULT 'member',
	joined_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (conversation_id, user_id)
);
CREATE TABLE IF NOT EXISTS dreams_sessions (
	token      TEXT PRIMARY KEY,
	user_id    BIGINT NOT NULL,
	expires_at TIMESTAMPTZ
);`

// Migrate 建表，可重复执行
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return errs.WrapMsg(err, "migrate")
}
