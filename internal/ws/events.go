package ws

import (
	"encoding/json"

	"github.com/google/uuid"
)

// 出站事件名，与前端的 SignalR 风格契约保持兼容。
const (
	EvtUserConnected      = "UserConnected"
	EvtInitializeMainRoom = "InitializeMainRoom"
	EvtPrivateChats       = "PrivateChats"
	EvtOnlineUsers        = "OnlineUsers"
	EvtNotify             = "Notify"
	EvtNewMessage         = "NewMessage"
	EvtOpenPrivateChat    = "OpenPrivateChat"
	EvtNewPrivateMessage  = "NewPrivateMessage"
	EvtMessagesRead       = "MessagesRead"
	EvtClosePrivateChat   = "ClosePrivateChat"
	EvtDeleteMessage      = "DeleteMessage"
	EvtUpdateMessage      = "UpdateMessage"
)

// 入站事件名。连接与断开由 websocket 本身承担，不走信封。
const (
	ActAddUser               = "AddUserConnectionId"
	ActReceiveMessage        = "ReceiveMessage"
	ActOpenPrivateChat       = "OpenPrivateChat"
	ActReceivePrivateMessage = "ReceivePrivateMessage"
	ActRemovePrivateChat     = "RemovePrivateChat"
	ActDeleteMessage         = "DeleteMessage"
	ActEditMessage           = "EditMessage"
	ActSubscribe             = "SubscribeForNotifications"
	ActUnsubscribe           = "UnsubscribeFromNotifications"
	ActSaveFile              = "SaveFile"
)

// Envelope 是统一的消息信封：data 为事件的位置参数数组。
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func marshalEvent(event string, args ...interface{}) ([]byte, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// UserModel 是对外展示的用户摘要。
type UserModel struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture []byte `json:"profilePicture,omitempty"`
}

// ChatPreview 是私聊列表里的一条会话预览。
type ChatPreview struct {
	ChatMessage   string    `json:"chatMessage"`
	PrivateChatID uuid.UUID `json:"privateChatId"`
	User          UserModel `json:"user"`
	Unread        int       `json:"unread"`
}

type privateChatArgs struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type subscribeArgs struct {
	Username     string `json:"username"`
	Subscription struct {
		Endpoint string `json:"endpoint"`
		P256DH   string `json:"p256dh"`
		Auth     string `json:"auth"`
	} `json:"subscription"`
}

type unsubscribeArgs struct {
	Username string `json:"username"`
}

type saveFileArgs struct {
	Username string `json:"username"`
	File     []byte `json:"file"`
}
