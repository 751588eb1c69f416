package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/niranda/ukrainians-api/internal/models"
	"gorm.io/gorm"
)

// ChatRoomService 封装房间相关的业务逻辑。
type ChatRoomService struct {
	db *gorm.DB
}

func NewChatRoomService(db *gorm.DB) *ChatRoomService {
	return &ChatRoomService{db: db}
}

// GetAll 返回全部未删除的房间（含消息）。
func (s *ChatRoomService) GetAll() ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	if err := s.db.Preload("ChatMessages").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// GetByID 按 id 查询房间，消息按创建时间升序。
func (s *ChatRoomService) GetByID(id uuid.UUID) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.db.
		Preload("ChatMessages", func(tx *gorm.DB) *gorm.DB { return tx.Order("created asc") }).
		First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetByName 按名称查询房间（含消息与通知），不存在时返回 (nil, nil)。
func (s *ChatRoomService) GetByName(name string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.db.
		Preload("ChatMessages").
		Preload("Notifications").
		First(&room, "room_name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Create 创建新房间。
func (s *ChatRoomService) Create(room *models.ChatRoom) error {
	return s.db.Create(room).Error
}

// Update 保存房间当前状态（参与者等关联一并保存）。
func (s *ChatRoomService) Update(room *models.ChatRoom) error {
	return s.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(room).Error
}

// Delete 软删除房间，并级联软删除其通知。
func (s *ChatRoomService) Delete(id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ChatNotification{}, "chat_room_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ChatRoom{}, "id = ?", id).Error
	})
}

// RoomsUserInteractedWith 返回名称中含有该用户名的私聊房间，
// 每个房间的消息按创建时间降序（最新在前）。
func (s *ChatRoomService) RoomsUserInteractedWith(username string) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := s.db.
		Where("room_name LIKE ?", "%"+username+"%").
		Preload("ChatMessages", func(tx *gorm.DB) *gorm.DB { return tx.Order("created desc") }).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// UsernamesUserInteractedWith 从私聊房间名中拆出对方用户名。
func (s *ChatRoomService) UsernamesUserInteractedWith(username string) ([]string, error) {
	rooms, err := s.RoomsUserInteractedWith(username)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rooms))
	for _, r := range rooms {
		if other := OtherParticipant(r.RoomName, username); other != "" {
			names = append(names, other)
		}
	}
	return names, nil
}

// OtherParticipant 按分隔符拆开私聊房间名，取出非当前用户的那一方。
func OtherParticipant(roomName, username string) string {
	for _, part := range strings.Split(roomName, "-") {
		if part != username && part != "" {
			return part
		}
	}
	return ""
}
