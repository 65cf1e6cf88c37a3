// Package hub 实现访客列表变更的实时广播：发布方把最新列表快照
// 推送给所有在线订阅者，慢订阅者不会阻塞发布方。
package hub

import (
	"sync"
	"time"
)

// subscriberBuffer 是单个订阅者的待投递快照上限。
// 负载是完整列表快照，后到的快照可以覆盖更早的，缓冲打满时丢弃最旧一条。
const subscriberBuffer = 16

// Hub 维护按客户端标识分组的订阅注册表。
// 注册表的增删与遍历由同一把互斥锁保护；投递在锁外进行，
// 并发的订阅/退订不会影响进行中的广播。
type Hub struct {
	mu      sync.Mutex
	clients map[string][]*Subscription
}

// Subscription 是单个订阅者的投递通道。
type Subscription struct {
	clientID string
	ch       chan []byte
}

// New 构造空的 Hub。
func New() *Hub {
	return &Hub{clients: make(map[string][]*Subscription)}
}

// Subscribe 为指定客户端注册一条新的投递通道。
// 同一客户端可以持有多条通道（例如多开的浏览器标签页）。
func (h *Hub) Subscribe(clientID string) *Subscription {
	sub := &Subscription{
		clientID: clientID,
		ch:       make(chan []byte, subscriberBuffer),
	}

	h.mu.Lock()
	h.clients[clientID] = append(h.clients[clientID], sub)
	h.mu.Unlock()

	return sub
}

// Unsubscribe 注销一条投递通道，客户端名下没有剩余通道时回收整个条目。
// 对未注册的通道调用是空操作。
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.clients[sub.clientID]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}

	if len(subs) == 0 {
		delete(h.clients, sub.clientID)
		return
	}
	h.clients[sub.clientID] = subs
}

// Publish 将负载投递给当前注册的全部订阅者。
// 先在锁内取订阅者快照，再在锁外逐个投递；单个订阅者缓冲打满时
// 丢弃其队列中最旧的快照为新快照腾位，绝不阻塞发布方。
func (h *Hub) Publish(payload []byte) {
	h.mu.Lock()
	snapshot := make([]*Subscription, 0, len(h.clients))
	for _, subs := range h.clients {
		snapshot = append(snapshot, subs...)
	}
	h.mu.Unlock()

	for _, sub := range snapshot {
		select {
		case sub.ch <- payload:
			continue
		default:
		}

		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- payload:
		default:
		}
	}
}

// ClientCount 返回当前持有订阅的客户端数量。
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Receive 阻塞等待下一条快照，最多等待 timeout。
// 超时返回 (nil, false)，调用方应视作保活周期而非错误。
func (s *Subscription) Receive(timeout time.Duration) ([]byte, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload := <-s.ch:
		return payload, true
	case <-timer.C:
		return nil, false
	}
}

// C 暴露底层通道，便于调用方在自有 select 中与取消信号一起等待。
func (s *Subscription) C() <-chan []byte {
	return s.ch
}
