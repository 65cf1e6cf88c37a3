package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// streamClientKey 是会话中保存的订阅客户端标识键。
	streamClientKey = "stream_client_id"
	// streamIdleTimeout 是单次等待的上限，超时后发送保活注释而非断开。
	streamIdleTimeout = 30 * time.Second
)

// StreamVisitors 以 SSE 推送访客列表变更。
// 连接建立时先发送一次当前快照，之后阻塞等待广播；
// 无论正常结束、超时还是客户端断开，订阅槽位都会被释放。
func (a *API) StreamVisitors(c *gin.Context) {
	clientID := a.ensureStreamClientID(c)

	sub := a.hub.Subscribe(clientID)
	defer a.hub.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	if views, err := a.currentVisitorViews(); err == nil {
		if payload, err := json.Marshal(views); err == nil {
			writeSSEData(c, payload)
		}
	}

	ctx := c.Request.Context()
	for {
		payload, ok := sub.Receive(streamIdleTimeout)
		if ctx.Err() != nil {
			return
		}
		if !ok {
			// 保活周期，维持长连接
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()
			continue
		}

		writeSSEData(c, payload)
	}
}

// ensureStreamClientID 从会话取出客户端标识，首次连接时生成并落盘。
func (a *API) ensureStreamClientID(c *gin.Context) string {
	session := sessions.Default(c)
	if id, ok := session.Get(streamClientKey).(string); ok && id != "" {
		return id
	}

	clientID := uuid.NewString()
	session.Set(streamClientKey, clientID)
	if err := session.Save(); err != nil {
		// 会话写入失败时标识仅在本次连接内有效
		return clientID
	}
	return clientID
}

func writeSSEData(c *gin.Context, payload []byte) {
	fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
	c.Writer.Flush()
}
