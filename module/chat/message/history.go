package message

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"DreamsChat/global"
	"DreamsChat/middleware/security"
	"DreamsChat/module/chat/model"
	"DreamsChat/tools/errs"
	"DreamsChat/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type Store interface {
	Recent(ctx context.Context, conversationID int64, limit int) ([]model.Message, error)
}

type Members interface {
	IsMember(ctx context.Context, userID, conversationID int64) (bool, error)
}

// MessageItem 对外返回；id 用字符串避免 JS 精度丢失
type MessageItem struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type HistoryResp struct {
	ConversationID string        `json:"conversation_id"`
	Messages       []MessageItem `json:"messages"`
}

type HistoryHandler struct {
	store        Store
	members      Members
	defaultLimit int
	timeout      time.Duration
}

func NewHistoryHandler(store Store, members Members, defaultLimit int, timeout time.Duration) *HistoryHandler {
	safe.MustNotNil(store, "store")
	safe.MustNotNil(members, "members")
	// 超过上限的默认值按上限处理，与 ?limit= 的截断一致
	switch {
	case defaultLimit <= 0:
		defaultLimit = DefaultLimit
	case defaultLimit > MaxLimit:
		defaultLimit = MaxLimit
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HistoryHandler{store: store, members: members, defaultLimit: defaultLimit, timeout: timeout}
}

func fail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(global.HTTPStatus(err), global.Fail(err))
}

// List GET /api/conversations/:conversation_id/messages?limit=N
func (h *HistoryHandler) List(c *gin.Context) {
	uid, ok := security.UserID(c)
	if !ok {
		fail(c, errs.ErrTokenMissing.Wrap())
		return
	}
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil || conversationID <= 0 {
		fail(c, errs.ErrArgs.WrapMsg("invalid conversation_id"))
		return
	}
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fail(c, errs.ErrArgs.WrapMsg("invalid limit", "limit", raw))
			return
		}
		limit = min(n, MaxLimit)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	member, err := h.members.IsMember(ctx, uid, conversationID)
	if err != nil {
		_ = c.Error(err)
		fail(c, errs.ErrInternalServer.WrapMsg("membership lookup"))
		return
	}
	if !member {
		fail(c, errs.ErrNotMember.Wrap())
		return
	}

	msgs, err := h.store.Recent(ctx, conversationID, limit)
	if err != nil {
		_ = c.Error(err)
		fail(c, errs.ErrStore.Wrap())
		return
	}
	c.JSON(http.StatusOK, global.Success(HistoryResp{
		ConversationID: strconv.FormatInt(conversationID, 10),
		Messages: lo.Map(msgs, func(m model.Message, _ int) MessageItem {
			return MessageItem{
				ID:             strconv.FormatInt(m.ID, 10),
				ConversationID: strconv.FormatInt(m.ConversationID, 10),
				SenderID:       strconv.FormatInt(m.SenderID, 10),
				Content:        m.Content,
				CreatedAt:      m.CreatedAt,
			}
		}),
	}))
}
