package ws

import (
	"strings"
	"sync"

	"github.com/niranda/ukrainians-api/internal/models"
)

// PrivateRoomName 返回两个用户名的规范私聊房间名：
// 按字典序小者在前，用 "-" 连接，与参数顺序无关。
func PrivateRoomName(a, b string) string {
	if strings.Compare(a, b) < 0 {
		return a + "-" + b
	}
	return b + "-" + a
}

// otherParticipant 按分隔符拆开私聊房间名，取出非当前用户的那一方。
func otherParticipant(roomName, username string) string {
	for _, part := range strings.Split(roomName, "-") {
		if part != "" && part != username {
			return part
		}
	}
	return ""
}

// Resolver 按规范名 get-or-create 房间。
// 同名并发请求用每名互斥锁串行化，保证同一规范名至多创建一个房间；
// 锁按引用计数回收，最后一个持有者释放时从表里摘除，表不随历史房间数增长。
type Resolver struct {
	rooms RoomStore
	users UserDirectory

	mu    sync.Mutex
	locks map[string]*nameLock
}

type nameLock struct {
	mu   sync.Mutex
	refs int
}

func NewResolver(rooms RoomStore, users UserDirectory) *Resolver {
	return &Resolver{rooms: rooms, users: users, locks: make(map[string]*nameLock)}
}

func (r *Resolver) acquire(name string) *nameLock {
	r.mu.Lock()
	l, ok := r.locks[name]
	if !ok {
		l = &nameLock{}
		r.locks[name] = l
	}
	l.refs++
	r.mu.Unlock()
	l.mu.Lock()
	return l
}

func (r *Resolver) release(name string, l *nameLock) {
	l.mu.Unlock()
	r.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, name)
	}
	r.mu.Unlock()
}

// GetOrCreate 按名称查找房间，不存在则以给定参与者创建。
// 返回的已有房间带有消息历史与通知列表。
func (r *Resolver) GetOrCreate(name string, participants ...string) (*models.ChatRoom, error) {
	l := r.acquire(name)
	defer r.release(name, l)

	room, err := r.rooms.GetByName(name)
	if err != nil {
		return nil, err
	}
	if room != nil {
		return room, nil
	}

	var users []models.User
	for _, p := range participants {
		u, err := r.users.FindByName(p)
		if err != nil {
			return nil, err
		}
		if u != nil {
			users = append(users, *u)
		}
	}
	room = &models.ChatRoom{RoomName: name, Users: users}
	if err := r.rooms.Create(room); err != nil {
		return nil, err
	}
	return room, nil
}
