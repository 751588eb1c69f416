package service

import (
	"errors"

	"github.com/google/uuid"
	"github.com/niranda/ukrainians-api/internal/models"
	"gorm.io/gorm"
)

// ChatNotificationService 封装未读计数（用户 × 房间）的持久化。
type ChatNotificationService struct {
	db *gorm.DB
}

func NewChatNotificationService(db *gorm.DB) *ChatNotificationService {
	return &ChatNotificationService{db: db}
}

// ByUsernameAndRoom 查询某用户在某房间的未读计数，不存在时返回 (nil, nil)。
func (s *ChatNotificationService) ByUsernameAndRoom(username string, roomID uuid.UUID) (*models.ChatNotification, error) {
	var n models.ChatNotification
	err := s.db.First(&n, "username = ? AND chat_room_id = ?", username, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ByUsername 返回某用户的全部未读计数。
func (s *ChatNotificationService) ByUsername(username string) ([]models.ChatNotification, error) {
	var list []models.ChatNotification
	if err := s.db.Where("username = ?", username).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *ChatNotificationService) Create(n *models.ChatNotification) error {
	return s.db.Create(n).Error
}

func (s *ChatNotificationService) Update(n *models.ChatNotification) error {
	return s.db.Save(n).Error
}
