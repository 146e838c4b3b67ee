package mgo

import (
	"context"
	"time"

	"DreamsChat/module/chat/model"
	"DreamsChat/tools/errs"
	"DreamsChat/tools/ids"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store 消息与成员关系落在 MongoDB
type Store struct {
	msgs    *mongo.Collection
	members *mongo.Collection
	gen     *ids.Generator
}

func NewStore(db *mongo.Database, gen *ids.Generator) *Store {
	return &Store{
		msgs:    db.Collection(model.MsgTableName),
		members: db.Collection(model.MemberTableName),
		gen:     gen,
	}
}

// EnsureIndexes 启动时调用，可重复执行
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.msgs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
	})
	if err != nil {
		return errs.WrapMsg(err, "create message index")
	}
	_, err = s.members.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errs.WrapMsg(err, "create member index")
}

func (s *Store) Append(ctx context.Context, conversationID, senderID int64, content string) (int64, error) {
	m := model.Message{
		ID:             s.gen.Next(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		// BSON 时间精度为毫秒
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.msgs.InsertOne(ctx, m); err != nil {
		return 0, errs.ErrStore.WrapMsg(err.Error(), "conversation_id", conversationID)
	}
	return m.ID, nil
}

func (s *Store) Recent(ctx context.Context, conversationID int64, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return []model.Message{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.msgs.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, errs.ErrStore.WrapMsg(err.Error(), "conversation_id", conversationID)
	}
	out := make([]model.Message, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrStore.WrapMsg(err.Error(), "conversation_id", conversationID)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) IsMember(ctx context.Context, userID, conversationID int64) (bool, error) {
	n, err := s.members.CountDocuments(ctx,
		bson.M{"conversation_id": conversationID, "user_id": userID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, errs.WrapMsg(err, "count member")
	}
	return n > 0, nil
}

// AddMember upsert；用于初始化数据
func (s *Store) AddMember(ctx context.Context, conversationID, userID int64, role string) error {
	filter := bson.M{"conversation_id": conversationID, "user_id": userID}
	update := bson.M{"$setOnInsert": model.Member{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		JoinedAt:       time.Now().UTC().Truncate(time.Millisecond),
	}}
	_, err := s.members.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return errs.WrapMsg(err, "add member")
}
