package kv

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"DreamsChat/module/chat/model"
	"DreamsChat/tools/decode"
	"DreamsChat/tools/errs"
	"DreamsChat/tools/ids"

	"github.com/dgraph-io/badger/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// key 布局（定长十进制，字典序即数值序）：
//
//	msg:<conv>:<created_at ns>:<id>   -> structpb(Message)
//	member:<conv>:<uid>               -> role
const (
	msgPrefix    = "msg:"
	memberPrefix = "member:"
)

func msgConvPrefix(conv int64) []byte { return []byte(fmt.Sprintf("%s%020d:", msgPrefix, conv)) }

func msgKey(conv, tsNano, id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d:%020d:%020d", msgPrefix, conv, tsNano, id))
}

func memberKey(conv, uid int64) []byte {
	return []byte(fmt.Sprintf("%s%020d:%020d", memberPrefix, conv, uid))
}

type Config struct {
	Dir      string
	InMemory bool
}

// Store 单机嵌入式存储（Badger）
type Store struct {
	db  *badger.DB
	gen *ids.Generator
	now func() time.Time
}

func Open(c Config, gen *ids.Generator) (*Store, error) {
	opts := badger.DefaultOptions(c.Dir).WithLogger(nil)
	if c.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "open badger", "dir", c.Dir)
	}
	return &Store{db: db, gen: gen, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

type msgWire struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	SenderID       int64  `json:"sender_id"`
	Content        string `json:"content"`
	CreatedAt      int64  `json:"created_at"`
}

// int64 以字符串写入，避免 structpb 数值精度问题
func encodeMessage(m model.Message) ([]byte, error) {
	st, err := structpb.NewStruct(map[string]any{
		"id":              strconv.FormatInt(m.ID, 10),
		"conversation_id": strconv.FormatInt(m.ConversationID, 10),
		"sender_id":       strconv.FormatInt(m.SenderID, 10),
		"content":         m.Content,
		"created_at":      strconv.FormatInt(m.CreatedAt.UnixNano(), 10),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

func decodeMessage(raw []byte) (model.Message, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(raw, &st); err != nil {
		return model.Message{}, err
	}
	w, err := decode.DecodeStruct[msgWire](&st)
	if err != nil {
		return model.Message{}, err
	}
	return model.Message{
		ID:             w.ID,
		ConversationID: w.ConversationID,
		SenderID:       w.SenderID,
		Content:        w.Content,
		CreatedAt:      time.Unix(0, w.CreatedAt).UTC(),
	}, nil
}

func (s *Store) Append(ctx context.Context, conversationID, senderID int64, content string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, errs.ErrStore.WrapMsg(err.Error())
	}
	m := model.Message{
		ID:             s.gen.Next(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      s.now().UTC(),
	}
	val, err := encodeMessage(m)
	if err != nil {
		return 0, errs.ErrStore.WrapMsg(err.Error())
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(msgKey(m.ConversationID, m.CreatedAt.UnixNano(), m.ID), val)
	})
	if err != nil {
		return 0, errs.ErrStore.WrapMsg(err.Error(), "conversation_id", conversationID)
	}
	return m.ID, nil
}

// Recent 逆序扫描该会话前缀，取 limit 条后翻转为正序
func (s *Store) Recent(ctx context.Context, conversationID int64, limit int) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.ErrStore.WrapMsg(err.Error())
	}
	out := make([]model.Message, 0)
	if limit <= 0 {
		return out, nil
	}
	prefix := msgConvPrefix(conversationID)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var m model.Message
			err := it.Item().Value(func(val []byte) error {
				var derr error
				m, derr = decodeMessage(val)
				return derr
			})
			if err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, errs.ErrStore.WrapMsg(err.Error(), "conversation_id", conversationID)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) AddMember(conversationID, userID int64, role string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(memberKey(conversationID, userID), []byte(role))
	})
}

func (s *Store) IsMember(_ context.Context, userID, conversationID int64) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(conversationID, userID))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case err == badger.ErrKeyNotFound:
		return false, nil
	default:
		return false, errs.WrapMsg(err, "badger get member")
	}
}
