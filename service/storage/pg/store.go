package pg

import (
	"context"
	"errors"
	"time"

	"DreamsChat/module/chat/model"
	"DreamsChat/tools/errs"
	"DreamsChat/tools/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier *pgxpool.Pool / pgx.Tx 的公共子集
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store 消息日志、成员关系与会话 token 都在 PostgreSQL
type Store struct {
	db  querier
	gen *ids.Generator
}

func NewStore(db querier, gen *ids.Generator) *Store {
	return &Store{db: db, gen: gen}
}

func (s *Store) Append(ctx context.Context, conversationID, senderID int64, content string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO `+model.MsgTableName+` (id, conversation_id, sender_id, content, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		s.gen.Next(), conversationID, senderID, content, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, errs.ErrStore.WrapMsg(err.Error(), "conversation_id", conversationID)
	}
	return id, nil
}

func (s *Store) Recent(ctx context.Context, conversationID int64, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return []model.Message{}, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, conversation_id, sender_id, content, created_at
		 FROM `+model.MsgTableName+`
		 WHERE conversation_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		conversationID, limit,
	)
	if err != nil {
		return nil, errs.ErrStore.WrapMsg(err.Error(), "conversation_id", conversationID)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Message])
	if err != nil {
		return nil, errs.ErrStore.WrapMsg(err.Error(), "conversation_id", conversationID)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if out == nil {
		out = []model.Message{}
	}
	return out, nil
}

func (s *Store) IsMember(ctx context.Context, userID, conversationID int64) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+model.MemberTableName+` WHERE conversation_id = $1 AND user_id = $2)`,
		conversationID, userID,
	).Scan(&ok)
	if err != nil {
		return false, errs.WrapMsg(err, "query member")
	}
	return ok, nil
}

func (s *Store) AddMember(ctx context.Context, conversationID, userID int64, role string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO `+model.MemberTableName+` (conversation_id, user_id, role)
		 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		conversationID, userID, role,
	)
	return errs.WrapMsg(err, "add member")
}

// Resolve 过期或不存在的 token 一律视为无效
func (s *Store) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, errs.ErrTokenMissing.Wrap()
	}
	var uid int64
	err := s.db.QueryRow(ctx,
		`SELECT user_id FROM `+model.SessionTableName+`
		 WHERE token = $1 AND (expires_at IS NULL OR expires_at > now())`,
		token,
	).Scan(&uid)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errs.ErrTokenInvalid.Wrap()
	}
	if err != nil {
		return 0, errs.WrapMsg(err, "query session")
	}
	return uid, nil
}
