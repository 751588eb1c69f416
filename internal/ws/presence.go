package ws

import "sync"

// Presence 维护用户名与活跃连接的双向映射。
// 同名重连时后到者覆盖先到者；所有方法并发安全。
type Presence struct {
	mu     sync.RWMutex
	byName map[string]*Client
	byConn map[*Client]string
}

func NewPresence() *Presence {
	return &Presence{
		byName: make(map[string]*Client),
		byConn: make(map[*Client]string),
	}
}

// Add 登记用户名到连接的映射，覆盖该用户名此前的连接。
func (p *Presence) Add(username string, c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.byName[username]; ok && old != c {
		delete(p.byConn, old)
	}
	if prev, ok := p.byConn[c]; ok && prev != username {
		delete(p.byName, prev)
	}
	p.byName[username] = c
	p.byConn[c] = username
}

// Remove 按连接摘除登记并返回其用户名；未登记时为 no-op。
func (p *Presence) Remove(c *Client) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	username, ok := p.byConn[c]
	if !ok {
		return ""
	}
	delete(p.byConn, c)
	// 重连覆盖后旧连接不再指向该用户名，避免误删新连接。
	if p.byName[username] == c {
		delete(p.byName, username)
	}
	return username
}

// Get 返回某用户名当前的连接。
func (p *Presence) Get(username string) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.byName[username]
	return c, ok
}

// Username 返回某连接登记的用户名。
func (p *Presence) Username(c *Client) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	name, ok := p.byConn[c]
	return name, ok
}

// Online 返回当前在线的全部用户名。
func (p *Presence) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.byName))
	for name := range p.byName {
		names = append(names, name)
	}
	return names
}
