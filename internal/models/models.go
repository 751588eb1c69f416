package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Username       string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email          string         `gorm:"size:254" json:"email"`
	PasswordHash   string         `gorm:"not null" json:"-"`
	ProfilePicture []byte         `json:"profilePicture,omitempty"`
	Status         string         `gorm:"size:100" json:"status,omitempty"`
	CreatedAt      time.Time      `json:"-"`
	UpdatedAt      time.Time      `json:"-"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

type ChatRoom struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	RoomName      string             `gorm:"uniqueIndex;size:128;not null" json:"roomName"`
	ChatMessages  []ChatMessage      `json:"chatMessages,omitempty"`
	Users         []User             `gorm:"many2many:chat_room_users" json:"users,omitempty"`
	Notifications []ChatNotification `json:"notifications,omitempty"`
	CreatedAt     time.Time          `json:"-"`
	UpdatedAt     time.Time          `json:"-"`
	DeletedAt     gorm.DeletedAt     `gorm:"index" json:"-"`
}

type ChatMessage struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Created    time.Time      `gorm:"index" json:"created"`
	Content    string         `gorm:"size:500" json:"content"`
	Picture    []byte         `json:"picture,omitempty"`
	From       string         `gorm:"size:50;not null" json:"from"`
	To         string         `gorm:"size:50" json:"to,omitempty"`
	Unread     bool           `json:"unread"`
	ChatRoomID *uuid.UUID     `gorm:"type:uuid;index" json:"chatRoomId,omitempty"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

type ChatNotification struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Username       string         `gorm:"size:50;index:idx_notification_user_room,unique" json:"username"`
	UnreadMessages int            `json:"unreadMessages"`
	ChatRoomID     *uuid.UUID     `gorm:"type:uuid;index:idx_notification_user_room,unique" json:"chatRoomId,omitempty"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

type PushSubscription struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username  string    `gorm:"uniqueIndex;size:50;not null"`
	Endpoint  string    `gorm:"size:500;not null"`
	P256DH    string    `gorm:"size:255;not null"`
	Auth      string    `gorm:"size:255;not null"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Token     string    `gorm:"uniqueIndex;size:128;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}

// BeforeCreate 在插入前补齐 uuid 主键。
func (u *User) BeforeCreate(*gorm.DB) error { ensureID(&u.ID); return nil }

func (r *ChatRoom) BeforeCreate(*gorm.DB) error { ensureID(&r.ID); return nil }

func (m *ChatMessage) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	if m.Created.IsZero() {
		m.Created = time.Now()
	}
	return nil
}

func (n *ChatNotification) BeforeCreate(*gorm.DB) error { ensureID(&n.ID); return nil }

func (s *PushSubscription) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }

func (t *RefreshToken) BeforeCreate(*gorm.DB) error { ensureID(&t.ID); return nil }

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
