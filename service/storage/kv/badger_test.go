package kv

import (
	"context"
	"fmt"
	"testing"
	"time"

	"DreamsChat/module/chat/model"
	"DreamsChat/tools/ids"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true}, ids.NewGenerator(5))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEncodeDecodeMessage(t *testing.T) {
	req := require.New(t)
	in := model.Message{
		ID:             767857412345678901,
		ConversationID: 9007199254740993,
		SenderID:       42,
		Content:        "你好 world",
		CreatedAt:      time.Date(2026, 4, 1, 8, 0, 0, 123456789, time.UTC),
	}
	raw, err := encodeMessage(in)
	req.NoError(err)
	out, err := decodeMessage(raw)
	req.NoError(err)
	req.Equal(in, out)
}

func TestStore_RecentReturnsNewestOldestFirst(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	s.now = func() time.Time { n++; return base.Add(time.Duration(n) * time.Millisecond) }

	// Given 会话 1 五条，会话 2 一条
	for i := 1; i <= 5; i++ {
		_, err := s.Append(ctx, 1, 10, fmt.Sprintf("m%d", i))
		req.NoError(err)
	}
	_, err := s.Append(ctx, 2, 10, "elsewhere")
	req.NoError(err)

	// When
	got, err := s.Recent(ctx, 1, 3)

	// Then
	req.NoError(err)
	req.Len(got, 3)
	req.Equal([]string{"m3", "m4", "m5"}, []string{got[0].Content, got[1].Content, got[2].Content})

	all, err := s.Recent(ctx, 1, 50)
	req.NoError(err)
	req.Len(all, 5)

	other, err := s.Recent(ctx, 2, 50)
	req.NoError(err)
	req.Len(other, 1)

	none, err := s.Recent(ctx, 3, 50)
	req.NoError(err)
	req.Empty(none)
}

func TestStore_SameTimestampOrdersByID(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	a, err := s.Append(context.Background(), 1, 1, "a")
	req.NoError(err)
	b, err := s.Append(context.Background(), 1, 1, "b")
	req.NoError(err)

	got, err := s.Recent(context.Background(), 1, 10)
	req.NoError(err)
	req.Equal([]int64{a, b}, []int64{got[0].ID, got[1].ID})
}

func TestStore_Membership(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	req.NoError(s.AddMember(1, 2, "member"))

	ok, err := s.IsMember(context.Background(), 2, 1)
	req.NoError(err)
	req.True(ok)

	ok, err = s.IsMember(context.Background(), 3, 1)
	req.NoError(err)
	req.False(ok)
}
