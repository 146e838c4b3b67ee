package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"DreamsChat/module/chat/model"
	"DreamsChat/tools/errs"
	"DreamsChat/tools/ids"
)

type memberKey struct {
	conv int64
	uid  int64
}

// Store 单机内存实现：消息日志、成员关系、静态 token。
// 用于本地开发与测试，进程退出即丢失。
type Store struct {
	mu       sync.RWMutex
	gen      *ids.Generator
	now      func() time.Time
	messages map[int64][]model.Message
	members  map[memberKey]model.Member
	tokens   map[string]int64
}

func New(node int64) *Store {
	return &Store{
		gen:      ids.NewGenerator(node),
		now:      time.Now,
		messages: make(map[int64][]model.Message),
		members:  make(map[memberKey]model.Member),
		tokens:   make(map[string]int64),
	}
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
	s.mu.Lock()
	s.messages[conversationID] = append(s.messages[conversationID], m)
	s.mu.Unlock()
	return m.ID, nil
}

func (s *Store) Recent(ctx context.Context, conversationID int64, limit int) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.ErrStore.WrapMsg(err.Error())
	}
	if limit <= 0 {
		return []model.Message{}, nil
	}
	s.mu.RLock()
	all := append([]model.Message(nil), s.messages[conversationID]...)
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].Less(all[j]) })
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *Store) AddMember(conversationID, userID int64, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[memberKey{conversationID, userID}] = model.Member{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		JoinedAt:       s.now().UTC(),
	}
}

func (s *Store) IsMember(_ context.Context, userID, conversationID int64) (bool, error) {
	s.mu.RLock()
	_, ok := s.members[memberKey{conversationID, userID}]
	s.mu.RUnlock()
	return ok, nil
}

func (s *Store) AddToken(token string, userID int64) {
	s.mu.Lock()
	s.tokens[token] = userID
	s.mu.Unlock()
}

func (s *Store) Resolve(_ context.Context, token string) (int64, error) {
	if token == "" {
		return 0, errs.ErrTokenMissing.Wrap()
	}
	s.mu.RLock()
	uid, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return 0, errs.ErrTokenInvalid.Wrap()
	}
	return uid, nil
}
