package config

import (
	"encoding/hex"
	"errors"
	"os"
	"strconv"
)

type Config struct {
	Port                  string
	DatabaseDSN           string
	JWTSecret             string
	Env                   string
	AccessTokenTTLMinutes int
	RefreshTokenTTLDays   int

	// 主聊天室名称，所有连接默认加入该房间。
	MainRoomName string

	// 消息落库用的对称密钥（hex 编码，32 字节），留空则明文存储。
	MessageKey string

	// Web Push 的 VAPID 配置，留空则不派发离线推送。
	VapidSubject    string
	VapidPublicKey  string
	VapidPrivateKey string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v, err := strconv.Atoi(getenv(key, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func Load() Config {
	return Config{
		Port:                  getenv("APP_PORT", "8080"),
		DatabaseDSN:           getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=chat port=5432 sslmode=disable TimeZone=UTC"),
		JWTSecret:             getenv("JWT_SECRET", "dev-secret-change-me"),
		Env:                   getenv("APP_ENV", "dev"),
		AccessTokenTTLMinutes: getenvInt("ACCESS_TOKEN_TTL_MINUTES", 15),
		RefreshTokenTTLDays:   getenvInt("REFRESH_TOKEN_TTL_DAYS", 7),
		MainRoomName:          getenv("MAIN_ROOM_NAME", "MainChatRoom"),
		MessageKey:            getenv("MESSAGE_KEY", ""),
		VapidSubject:          getenv("VAPID_SUBJECT", ""),
		VapidPublicKey:        getenv("VAPID_PUBLIC_KEY", ""),
		VapidPrivateKey:       getenv("VAPID_PRIVATE_KEY", ""),
	}
}

// Validate 启动前检查关键配置项。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("port is required")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("database dsn is required")
	}
	if cfg.Env != "dev" && cfg.JWTSecret == "dev-secret-change-me" {
		return errors.New("default jwt secret is not allowed outside dev")
	}
	if cfg.MainRoomName == "" {
		return errors.New("main room name is required")
	}
	if cfg.MessageKey != "" {
		if b, err := hex.DecodeString(cfg.MessageKey); err != nil || len(b) != 32 {
			return errors.New("message key must be 32 hex-encoded bytes")
		}
	}
	if (cfg.VapidPublicKey == "") != (cfg.VapidPrivateKey == "") {
		return errors.New("vapid keys must be set together")
	}
	return nil
}
