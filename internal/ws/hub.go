package ws

import (
	"sync"

	"github.com/google/uuid"
	"github.com/niranda/ukrainians-api/internal/config"
	"github.com/niranda/ukrainians-api/internal/metrics"
	"github.com/niranda/ukrainians-api/internal/models"
	"github.com/niranda/ukrainians-api/internal/push"
	"github.com/rs/zerolog/log"
)

// 持久化协作方契约，由 service 层实现。查无记录时返回 (nil, nil)。
type RoomStore interface {
	GetByName(name string) (*models.ChatRoom, error)
	Create(room *models.ChatRoom) error
	Update(room *models.ChatRoom) error
	RoomsUserInteractedWith(username string) ([]models.ChatRoom, error)
}

type MessageStore interface {
	Add(msg *models.ChatMessage) error
	Update(msg *models.ChatMessage) error
	UpdateAll(msgs []models.ChatMessage) error
	Delete(id uuid.UUID) error
	ListByRoom(roomID uuid.UUID) ([]models.ChatMessage, error)
	Decrypt(content string) string
}

type NotificationStore interface {
	ByUsernameAndRoom(username string, roomID uuid.UUID) (*models.ChatNotification, error)
	ByUsername(username string) ([]models.ChatNotification, error)
	Create(n *models.ChatNotification) error
	Update(n *models.ChatNotification) error
}

type SubscriptionStore interface {
	ByUsername(username string) (*models.PushSubscription, error)
	Create(sub *models.PushSubscription) error
	Delete(username string) error
}

type UserDirectory interface {
	FindByName(username string) (*models.User, error)
	UpdateProfilePicture(username string, picture []byte) error
}

type Pusher interface {
	Send(sub *models.PushSubscription, n push.Notification)
}

// Hub 是会话编排核心：连接生命周期、群组成员、消息分发、
// 未读计数与离线推送都经过这里。
type Hub struct {
	mainRoomName string

	rooms         RoomStore
	messages      MessageStore
	notifications NotificationStore
	subscriptions SubscriptionStore
	users         UserDirectory
	pusher        Pusher

	presence *Presence
	resolver *Resolver
	counters *Counters

	gmu    sync.RWMutex
	groups map[string]map[*Client]struct{}

	// 主聊天室是进程级单例：首个连接创建，之后所有连接共用，
	// 断开时回写当前状态。
	roomMu   sync.Mutex
	mainRoom *models.ChatRoom
}

func NewHub(cfg config.Config, rooms RoomStore, messages MessageStore,
	notifications NotificationStore, subscriptions SubscriptionStore,
	users UserDirectory, pusher Pusher) *Hub {
	return &Hub{
		mainRoomName:  cfg.MainRoomName,
		rooms:         rooms,
		messages:      messages,
		notifications: notifications,
		subscriptions: subscriptions,
		users:         users,
		pusher:        pusher,
		presence:      NewPresence(),
		resolver:      NewResolver(rooms, users),
		counters:      NewCounters(notifications),
		groups:        make(map[string]map[*Client]struct{}),
	}
}

// Presence 暴露在线注册表（REST 层复用在线列表）。
func (h *Hub) Presence() *Presence { return h.presence }

// ---- 群组管理 ----

func (h *Hub) joinGroup(name string, c *Client) {
	h.gmu.Lock()
	defer h.gmu.Unlock()
	g, ok := h.groups[name]
	if !ok {
		g = make(map[*Client]struct{})
		h.groups[name] = g
	}
	g[c] = struct{}{}
}

func (h *Hub) leaveGroup(name string, c *Client) {
	h.gmu.Lock()
	defer h.gmu.Unlock()
	if g, ok := h.groups[name]; ok {
		delete(g, c)
		if len(g) == 0 {
			delete(h.groups, name)
		}
	}
}

func (h *Hub) leaveAllGroups(c *Client) {
	h.gmu.Lock()
	defer h.gmu.Unlock()
	for name, g := range h.groups {
		delete(g, c)
		if len(g) == 0 {
			delete(h.groups, name)
		}
	}
}

func (h *Hub) sendToGroup(name, event string, args ...interface{}) {
	payload, err := marshalEvent(event, args...)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal group event")
		return
	}
	h.gmu.RLock()
	members := make([]*Client, 0, len(h.groups[name]))
	for c := range h.groups[name] {
		members = append(members, c)
	}
	h.gmu.RUnlock()
	for _, c := range members {
		c.enqueue(payload)
	}
}

// ---- 主聊天室单例 ----

func (h *Hub) mainChatRoom() (*models.ChatRoom, error) {
	h.roomMu.Lock()
	defer h.roomMu.Unlock()
	if h.mainRoom != nil {
		return h.mainRoom, nil
	}
	room, err := h.resolver.GetOrCreate(h.mainRoomName)
	if err != nil {
		return nil, err
	}
	h.mainRoom = room
	return room, nil
}

// ---- 连接生命周期 ----

// HandleConnect 处理新连接：加入主房间群组，下发 UserConnected，
// 并向整个主房间广播消息历史。
func (h *Hub) HandleConnect(c *Client) {
	h.joinGroup(h.mainRoomName, c)

	room, err := h.mainChatRoom()
	if err != nil {
		log.Error().Err(err).Msg("init main chat room")
		return
	}

	c.sendEvent(EvtUserConnected)

	history, err := h.messages.ListByRoom(room.ID)
	if err != nil {
		log.Error().Err(err).Msg("load main room history")
		return
	}
	h.sendToGroup(h.mainRoomName, EvtInitializeMainRoom, room.ID.String(), history)
}

// HandleDisconnect 完整执行断开序列：退出所有群组、摘除在线登记、
// 广播新的在线列表并回写主房间状态。任一步失败不阻断后续步骤。
func (h *Hub) HandleDisconnect(c *Client) {
	h.leaveAllGroups(c)

	if username := h.presence.Remove(c); username != "" {
		log.Debug().Str("username", username).Msg("user disconnected")
	}

	h.broadcastOnlineUsers()

	// 回写的是锁内拷贝：AddUser 可能并发追加参与者，
	// 不能把活指针交给锁外的持久化调用。
	h.roomMu.Lock()
	var room *models.ChatRoom
	if h.mainRoom != nil {
		cp := *h.mainRoom
		cp.Users = append([]models.User(nil), h.mainRoom.Users...)
		room = &cp
	}
	h.roomMu.Unlock()
	if room != nil {
		if err := h.rooms.Update(room); err != nil {
			log.Error().Err(err).Msg("persist main room on disconnect")
		}
	}
}

// AddUser 记录连接的用户名（客户端连接后自报身份），
// 并下发私聊列表、在线用户与待读通知。
func (h *Hub) AddUser(c *Client, username string) {
	h.presence.Add(username, c)

	if user, err := h.users.FindByName(username); err != nil {
		log.Error().Err(err).Str("username", username).Msg("resolve user")
	} else if user != nil {
		h.roomMu.Lock()
		if h.mainRoom != nil {
			h.mainRoom.Users = appendUnique(h.mainRoom.Users, *user)
		}
		h.roomMu.Unlock()
	}

	h.sendPrivateChats(username, c)
	h.broadcastOnlineUsers()
	h.sendNotifications(username)
}

// ---- 消息收发 ----

// ReceiveMessage 处理主房间广播消息：落库后发给主房间全员。
func (h *Hub) ReceiveMessage(c *Client, msg models.ChatMessage) {
	room, err := h.mainChatRoom()
	if err != nil {
		log.Error().Err(err).Msg("resolve main room")
		return
	}
	msg.ChatRoomID = &room.ID
	if err := h.messages.Add(&msg); err != nil {
		log.Error().Err(err).Msg("persist broadcast message")
		return
	}
	metrics.WsMessagesTotal.Inc()
	h.sendToGroup(h.mainRoomName, EvtNewMessage, msg)
}

// ReceivePrivateMessage 处理私聊消息：解析规范房间、累加接收方未读计数、
// 将发送方此前的未读消息置为已读、落库并分别投递给双方；
// 接收方不在线时改走离线推送。
func (h *Hub) ReceivePrivateMessage(c *Client, msg models.ChatMessage) {
	roomName := PrivateRoomName(msg.From, msg.To)
	room, err := h.resolver.GetOrCreate(roomName, msg.From, msg.To)
	if err != nil {
		log.Error().Err(err).Str("room", roomName).Msg("resolve private room")
		return
	}

	h.sendPrivateChats(msg.From, c)

	if _, err := h.counters.Increment(msg.To, room.ID); err != nil {
		log.Warn().Err(err).Str("username", msg.To).Msg("increment unread counter")
	}

	h.markMessagesRead(room.ID, msg.From)

	msg.ChatRoomID = &room.ID
	msg.Unread = true
	if err := h.messages.Add(&msg); err != nil {
		log.Error().Err(err).Str("room", roomName).Msg("persist private message")
		return
	}
	metrics.PrivateMessagesTotal.Inc()

	h.joinGroup(roomName, c)

	peer, online := h.presence.Get(msg.To)
	if online {
		h.joinGroup(roomName, peer)
		h.sendPrivateChats(msg.To, peer)
		notifs, err := h.notifications.ByUsername(msg.To)
		if err != nil {
			log.Warn().Err(err).Str("username", msg.To).Msg("load notifications")
		}
		peer.sendEvent(EvtNewPrivateMessage, msg, notifs)
	}

	c.sendEvent(EvtNewPrivateMessage, msg)

	if !online {
		h.dispatchPush(msg.From, msg.To, msg.Content)
	}
}

// OpenPrivateChat 显式打开私聊：计数清零、双方入组、
// 发送方的未读消息置为已读，并把完整历史与通知快照发给打开方。
func (h *Hub) OpenPrivateChat(c *Client, from, to string) {
	roomName := PrivateRoomName(from, to)
	room, err := h.resolver.GetOrCreate(roomName, from, to)
	if err != nil {
		log.Error().Err(err).Str("room", roomName).Msg("resolve private room")
		return
	}

	h.sendPrivateChats(from, c)

	if _, err := h.counters.Reset(from, room.ID, 0); err != nil {
		log.Warn().Err(err).Str("username", from).Msg("reset unread counter")
	}

	h.joinGroup(roomName, c)
	if peer, ok := h.presence.Get(to); ok {
		h.joinGroup(roomName, peer)
		peer.sendEvent(EvtMessagesRead)
	}

	h.markMessagesRead(room.ID, from)

	history, err := h.messages.ListByRoom(room.ID)
	if err != nil {
		log.Error().Err(err).Str("room", roomName).Msg("load private history")
		return
	}
	notifs, err := h.notifications.ByUsername(from)
	if err != nil {
		log.Warn().Err(err).Str("username", from).Msg("load notifications")
	}
	c.sendEvent(EvtOpenPrivateChat, history, notifs, from, to)
}

// RemovePrivateChat 通知私聊双方会话关闭，并将双方移出群组。
func (h *Hub) RemovePrivateChat(c *Client, from, to string) {
	roomName := PrivateRoomName(from, to)
	h.sendToGroup(roomName, EvtClosePrivateChat, from, to)

	h.leaveGroup(roomName, c)
	if peer, ok := h.presence.Get(to); ok {
		h.leaveGroup(roomName, peer)
	}
}

// DeleteMessage 软删除消息并通知对应群组。
// 消息有无收件人是路由的唯一判据：无收件人走主房间，有则走私聊群组。
func (h *Hub) DeleteMessage(c *Client, msg models.ChatMessage) {
	group := h.mainRoomName
	if msg.To != "" {
		group = PrivateRoomName(msg.From, msg.To)
	}
	if err := h.messages.Delete(msg.ID); err != nil {
		log.Error().Err(err).Str("message_id", msg.ID.String()).Msg("delete message")
		return
	}
	h.sendToGroup(group, EvtDeleteMessage, msg)
}

// EditMessage 保存消息修改并通知对应群组。
func (h *Hub) EditMessage(c *Client, msg models.ChatMessage) {
	group := h.mainRoomName
	if msg.To != "" {
		group = PrivateRoomName(msg.From, msg.To)
	}
	if err := h.messages.Update(&msg); err != nil {
		log.Error().Err(err).Str("message_id", msg.ID.String()).Msg("update message")
		return
	}
	h.sendToGroup(group, EvtUpdateMessage, msg)
}

// ---- 推送订阅 ----

// Subscribe 保存用户的浏览器推送订阅；已有订阅时跳过。
func (h *Hub) Subscribe(sub models.PushSubscription) {
	existing, err := h.subscriptions.ByUsername(sub.Username)
	if err != nil {
		log.Error().Err(err).Str("username", sub.Username).Msg("lookup subscription")
		return
	}
	if existing != nil {
		return
	}
	if err := h.subscriptions.Create(&sub); err != nil {
		log.Error().Err(err).Str("username", sub.Username).Msg("save subscription")
	}
}

// Unsubscribe 移除用户的推送订阅；没有订阅时静默跳过。
func (h *Hub) Unsubscribe(username string) {
	existing, err := h.subscriptions.ByUsername(username)
	if err != nil || existing == nil {
		return
	}
	if err := h.subscriptions.Delete(username); err != nil {
		log.Error().Err(err).Str("username", username).Msg("delete subscription")
	}
}

// SaveFile 保存用户头像（socket 上传的二进制内容）。
func (h *Hub) SaveFile(username string, file []byte) {
	if len(file) == 0 {
		return
	}
	user, err := h.users.FindByName(username)
	if err != nil || user == nil {
		return
	}
	if err := h.users.UpdateProfilePicture(username, file); err != nil {
		log.Error().Err(err).Str("username", username).Msg("save profile picture")
	}
}

// ---- 内部辅助 ----

// markMessagesRead 把房间里「未读且收件人为 reader」的消息置为已读。
// 发送方自己的消息不会被这条路径改动。
func (h *Hub) markMessagesRead(roomID uuid.UUID, reader string) {
	msgs, err := h.messages.ListByRoom(roomID)
	if err != nil {
		log.Warn().Err(err).Msg("load messages for read marking")
		return
	}
	var toUpdate []models.ChatMessage
	for _, m := range msgs {
		if m.Unread && m.To == reader {
			m.Unread = false
			toUpdate = append(toUpdate, m)
		}
	}
	if len(toUpdate) == 0 {
		return
	}
	if err := h.messages.UpdateAll(toUpdate); err != nil {
		log.Warn().Err(err).Msg("mark messages read")
	}
}

// sendPrivateChats 组装并下发某用户的私聊预览列表。
// 房间名拆不出有效对端（账号已删除）的条目会被跳过。
func (h *Hub) sendPrivateChats(username string, c *Client) {
	rooms, err := h.rooms.RoomsUserInteractedWith(username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("load private chats")
		return
	}

	previews := make([]ChatPreview, 0, len(rooms))
	for _, room := range rooms {
		other := otherParticipant(room.RoomName, username)
		if other == "" {
			continue
		}
		user, err := h.users.FindByName(other)
		if err != nil {
			log.Warn().Err(err).Str("username", other).Msg("resolve chat counterpart")
			continue
		}
		if user == nil {
			continue
		}

		var lastMessage string
		if len(room.ChatMessages) > 0 && room.ChatMessages[0].Content != "" {
			lastMessage = h.messages.Decrypt(room.ChatMessages[0].Content)
		}

		unread := 0
		if n, err := h.notifications.ByUsernameAndRoom(username, room.ID); err == nil && n != nil {
			unread = n.UnreadMessages
		}

		previews = append(previews, ChatPreview{
			ChatMessage:   lastMessage,
			PrivateChatID: room.ID,
			User: UserModel{
				Name:           user.Username,
				Email:          user.Email,
				ProfilePicture: user.ProfilePicture,
			},
			Unread: unread,
		})
	}
	c.sendEvent(EvtPrivateChats, previews)
}

// broadcastOnlineUsers 把在线用户摘要广播给主房间全员。
func (h *Hub) broadcastOnlineUsers() {
	names := h.presence.Online()
	users := make([]UserModel, 0, len(names))
	for _, name := range names {
		user, err := h.users.FindByName(name)
		if err != nil || user == nil {
			continue
		}
		users = append(users, UserModel{
			Name:           user.Username,
			Email:          user.Email,
			ProfilePicture: user.ProfilePicture,
		})
	}
	h.sendToGroup(h.mainRoomName, EvtOnlineUsers, users)
}

// sendNotifications 把待读通知单发给该用户的连接。
func (h *Hub) sendNotifications(username string) {
	notifs, err := h.notifications.ByUsername(username)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("load notifications")
		return
	}
	if c, ok := h.presence.Get(username); ok {
		c.sendEvent(EvtNotify, notifs)
	}
}

// dispatchPush 为离线接收方派发 Web Push；没有订阅时整体跳过。
// 推送失败只记日志，不影响应用内投递。
func (h *Hub) dispatchPush(sender, receiver, content string) {
	sub, err := h.subscriptions.ByUsername(receiver)
	if err != nil {
		log.Warn().Err(err).Str("username", receiver).Msg("lookup push subscription")
		return
	}
	if sub == nil {
		return
	}
	go h.pusher.Send(sub, push.Notification{
		Title:   "New message from " + sender,
		Message: content,
	})
}

func appendUnique(users []models.User, u models.User) []models.User {
	for _, existing := range users {
		if existing.Username == u.Username {
			return users
		}
	}
	return append(users, u)
}
