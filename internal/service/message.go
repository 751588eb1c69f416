package service

import (
	"errors"

	"github.com/google/uuid"
	"github.com/niranda/ukrainians-api/internal/crypt"
	"github.com/niranda/ukrainians-api/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ChatMessageService 封装消息相关的业务逻辑，内容落库前加密、读出时解密。
type ChatMessageService struct {
	db     *gorm.DB
	cipher *crypt.Cipher
}

func NewChatMessageService(db *gorm.DB, cipher *crypt.Cipher) *ChatMessageService {
	return &ChatMessageService{db: db, cipher: cipher}
}

// GetAll 返回全部未删除的消息。
func (s *ChatMessageService) GetAll() ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	if err := s.db.Order("created asc").Find(&msgs).Error; err != nil {
		return nil, err
	}
	s.decryptAll(msgs)
	return msgs, nil
}

// GetByID 按 id 查询单条消息。
func (s *ChatMessageService) GetByID(id uuid.UUID) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	err := s.db.First(&msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	s.decryptOne(&msg)
	return &msg, nil
}

// Add 持久化新消息并返回落库后的状态（id、时间戳已填充，内容为明文）。
func (s *ChatMessageService) Add(msg *models.ChatMessage) error {
	plain := msg.Content
	enc, err := s.cipher.Encrypt(plain)
	if err != nil {
		return err
	}
	msg.Content = enc
	if err := s.db.Create(msg).Error; err != nil {
		msg.Content = plain
		return err
	}
	msg.Content = plain
	return nil
}

// Update 保存消息修改（编辑内容、已读标记等）。
func (s *ChatMessageService) Update(msg *models.ChatMessage) error {
	plain := msg.Content
	enc, err := s.cipher.Encrypt(plain)
	if err != nil {
		return err
	}
	msg.Content = enc
	err = s.db.Save(msg).Error
	msg.Content = plain
	return err
}

// UpdateAll 批量保存消息（标记已读路径）。
func (s *ChatMessageService) UpdateAll(msgs []models.ChatMessage) error {
	for i := range msgs {
		if err := s.Update(&msgs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Delete 软删除消息。
func (s *ChatMessageService) Delete(id uuid.UUID) error {
	return s.db.Delete(&models.ChatMessage{}, "id = ?", id).Error
}

// ListByRoom 返回某房间全部消息，按创建时间升序，内容已解密。
func (s *ChatMessageService) ListByRoom(roomID uuid.UUID) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	if err := s.db.Where("chat_room_id = ?", roomID).Order("created asc").Find(&msgs).Error; err != nil {
		return nil, err
	}
	s.decryptAll(msgs)
	return msgs, nil
}

// Decrypt 供聊天列表预览使用；空内容直接短路。
func (s *ChatMessageService) Decrypt(content string) string {
	if content == "" {
		return ""
	}
	plain, err := s.cipher.Decrypt(content)
	if err != nil {
		log.Warn().Err(err).Msg("decrypt message preview")
		return ""
	}
	return plain
}

func (s *ChatMessageService) decryptAll(msgs []models.ChatMessage) {
	for i := range msgs {
		s.decryptOne(&msgs[i])
	}
}

func (s *ChatMessageService) decryptOne(msg *models.ChatMessage) {
	if msg.Content == "" {
		return
	}
	plain, err := s.cipher.Decrypt(msg.Content)
	if err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID.String()).Msg("decrypt message")
		return
	}
	msg.Content = plain
}
