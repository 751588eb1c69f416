package ws

import (
	"github.com/google/uuid"
	"github.com/niranda/ukrainians-api/internal/models"
)

// Counters 维护 (用户, 房间) 维度的未读计数，所有变更都落库。
type Counters struct {
	store NotificationStore
}

func NewCounters(store NotificationStore) *Counters {
	return &Counters{store: store}
}

// GetOrCreate 读取计数，不存在则以 initial 值创建。
func (c *Counters) GetOrCreate(username string, roomID uuid.UUID, initial int) (*models.ChatNotification, error) {
	n, err := c.store.ByUsernameAndRoom(username, roomID)
	if err != nil {
		return nil, err
	}
	if n != nil {
		return n, nil
	}
	n = &models.ChatNotification{Username: username, UnreadMessages: initial, ChatRoomID: &roomID}
	if err := c.store.Create(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Increment 未读计数加一，不存在则从 1 开始。
func (c *Counters) Increment(username string, roomID uuid.UUID) (*models.ChatNotification, error) {
	n, err := c.store.ByUsernameAndRoom(username, roomID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return c.GetOrCreate(username, roomID, 1)
	}
	n.UnreadMessages++
	if err := c.store.Update(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Reset 将计数重置为 value（用户打开房间时置 0），不存在则以该值创建。
func (c *Counters) Reset(username string, roomID uuid.UUID, value int) (*models.ChatNotification, error) {
	n, err := c.store.ByUsernameAndRoom(username, roomID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return c.GetOrCreate(username, roomID, value)
	}
	n.UnreadMessages = value
	if err := c.store.Update(n); err != nil {
		return nil, err
	}
	return n, nil
}
