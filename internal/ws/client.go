package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/niranda/ukrainians-api/internal/metrics"
	"github.com/niranda/ukrainians-api/internal/models"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client 对应一条活跃的 websocket 连接。
// 每个连接一个读 goroutine 一个写 goroutine，事件按到达顺序处理；
// send 带缓冲，写不进去的慢客户端直接丢弃该条消息，不阻塞 Hub。
// 其他连接的 handler 可能持有已断开连接的句柄继续投递，
// 因此关闭与入队用同一把锁串行化：关闭后的入队是 no-op，不会 panic。
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// Serve 把 HTTP 请求升级为 websocket 并接入 Hub。
func Serve(h *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}
		metrics.WsConnections.Inc()

		go client.writePump()
		h.HandleConnect(client)
		client.readPump()
	}
}

func (c *Client) sendEvent(event string, args ...interface{}) {
	payload, err := marshalEvent(event, args...)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal event")
		return
	}
	c.enqueue(payload)
}

func (c *Client) enqueue(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.HandleDisconnect(c)
		c.close()
		_ = c.conn.Close()
		metrics.WsConnections.Dec()
	}()
	c.conn.SetReadLimit(10 << 20) // 10MB，头像上传也走 socket
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		c.dispatch(env)
	}
}

// dispatch 按事件名把入站消息路由到 Hub 对应的处理方法。
func (c *Client) dispatch(env Envelope) {
	switch env.Event {
	case ActAddUser:
		var name string
		if json.Unmarshal(env.Data, &name) == nil && name != "" {
			c.hub.AddUser(c, name)
		}
	case ActReceiveMessage:
		var msg models.ChatMessage
		if json.Unmarshal(env.Data, &msg) == nil {
			c.hub.ReceiveMessage(c, msg)
		}
	case ActReceivePrivateMessage:
		var msg models.ChatMessage
		if json.Unmarshal(env.Data, &msg) == nil && msg.To != "" {
			c.hub.ReceivePrivateMessage(c, msg)
		}
	case ActOpenPrivateChat:
		var args privateChatArgs
		if json.Unmarshal(env.Data, &args) == nil && args.From != "" && args.To != "" {
			c.hub.OpenPrivateChat(c, args.From, args.To)
		}
	case ActRemovePrivateChat:
		var args privateChatArgs
		if json.Unmarshal(env.Data, &args) == nil && args.From != "" && args.To != "" {
			c.hub.RemovePrivateChat(c, args.From, args.To)
		}
	case ActDeleteMessage:
		var msg models.ChatMessage
		if json.Unmarshal(env.Data, &msg) == nil {
			c.hub.DeleteMessage(c, msg)
		}
	case ActEditMessage:
		var msg models.ChatMessage
		if json.Unmarshal(env.Data, &msg) == nil {
			c.hub.EditMessage(c, msg)
		}
	case ActSubscribe:
		var args subscribeArgs
		if json.Unmarshal(env.Data, &args) == nil && args.Username != "" {
			c.hub.Subscribe(models.PushSubscription{
				Username: args.Username,
				Endpoint: args.Subscription.Endpoint,
				P256DH:   args.Subscription.P256DH,
				Auth:     args.Subscription.Auth,
			})
		}
	case ActUnsubscribe:
		var args unsubscribeArgs
		if json.Unmarshal(env.Data, &args) == nil && args.Username != "" {
			c.hub.Unsubscribe(args.Username)
		}
	case ActSaveFile:
		var args saveFileArgs
		if json.Unmarshal(env.Data, &args) == nil && args.Username != "" {
			c.hub.SaveFile(args.Username, args.File)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
