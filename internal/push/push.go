package push

import (
	"encoding/json"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/niranda/ukrainians-api/internal/config"
	"github.com/niranda/ukrainians-api/internal/metrics"
	"github.com/niranda/ukrainians-api/internal/models"
	"github.com/rs/zerolog/log"
)

// Notification 是推给浏览器的载荷。
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// Sender 通过 Web Push（VAPID）投递离线通知。
type Sender struct {
	subject    string
	publicKey  string
	privateKey string
}

func NewSender(cfg config.Config) *Sender {
	return &Sender{
		subject:    cfg.VapidSubject,
		publicKey:  cfg.VapidPublicKey,
		privateKey: cfg.VapidPrivateKey,
	}
}

// Send 发送一条推送。fire-and-forget：失败只记日志，不影响调用方主流程。
func (s *Sender) Send(sub *models.PushSubscription, n Notification) {
	if sub == nil || s.privateKey == "" {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		log.Error().Err(err).Msg("marshal push payload")
		return
	}
	resp, err := webpush.SendNotification(payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Auth,
			P256dh: sub.P256DH,
		},
	}, &webpush.Options{
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             60,
	})
	metrics.PushSentTotal.Inc()
	if err != nil {
		metrics.PushFailedTotal.Inc()
		log.Warn().Err(err).Str("username", sub.Username).Msg("send push")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		metrics.PushFailedTotal.Inc()
		log.Warn().Int("status", resp.StatusCode).Str("username", sub.Username).Msg("push rejected")
	}
}
