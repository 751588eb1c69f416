package service

import (
	"errors"

	"github.com/niranda/ukrainians-api/internal/models"
	"gorm.io/gorm"
)

// PushSubscriptionService 封装浏览器推送订阅的持久化，每个用户至多一条。
type PushSubscriptionService struct {
	db *gorm.DB
}

func NewPushSubscriptionService(db *gorm.DB) *PushSubscriptionService {
	return &PushSubscriptionService{db: db}
}

// ByUsername 查询某用户的订阅，不存在时返回 (nil, nil)。
func (s *PushSubscriptionService) ByUsername(username string) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	err := s.db.First(&sub, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *PushSubscriptionService) Create(sub *models.PushSubscription) error {
	return s.db.Create(sub).Error
}

// Delete 按用户名移除订阅；没有订阅时静默跳过。
func (s *PushSubscriptionService) Delete(username string) error {
	return s.db.Delete(&models.PushSubscription{}, "username = ?", username).Error
}
