package main

import (
	"github.com/niranda/ukrainians-api/internal/config"
	"github.com/niranda/ukrainians-api/internal/crypt"
	"github.com/niranda/ukrainians-api/internal/db"
	clog "github.com/niranda/ukrainians-api/internal/log"
	"github.com/niranda/ukrainians-api/internal/push"
	"github.com/niranda/ukrainians-api/internal/server"
	"github.com/niranda/ukrainians-api/internal/service"
	"github.com/niranda/ukrainians-api/internal/ws"

	"github.com/rs/zerolog/log"
)

func main() {
	// main 函数负责加载配置、初始化日志、连接数据库并启动 Gin 服务。
	cfg := config.Load()
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validate")
	}

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	cipher, err := crypt.New(cfg.MessageKey)
	if err != nil {
		log.Fatal().Err(err).Msg("message cipher")
	}

	userSvc := service.NewUserService(gdb, cfg)
	roomSvc := service.NewChatRoomService(gdb)
	msgSvc := service.NewChatMessageService(gdb, cipher)
	notifSvc := service.NewChatNotificationService(gdb)
	subSvc := service.NewPushSubscriptionService(gdb)

	hub := ws.NewHub(cfg, roomSvc, msgSvc, notifSvc, subSvc, userSvc, push.NewSender(cfg))
	h := server.NewHandler(userSvc, roomSvc, msgSvc, hub)

	r := server.SetupRouter(cfg, gdb, h, hub)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
