package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"substore/internal/eventbus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventStream 把事件总线上的事件推送给所有websocket连接。
// 没有连接时不占用总线：第一个连接建立时订阅，最后一个断开时退订。
type EventStream struct {
	bus eventbus.EventBus
	log *zap.SugaredLogger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewEventStream 创建事件推送器
func NewEventStream(bus eventbus.EventBus, log *zap.SugaredLogger) *EventStream {
	return &EventStream{
		bus:   bus,
		log:   log,
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// HandleEvent 实现eventbus.EventHandler，广播给所有连接
func (s *EventStream) HandleEvent(event eventbus.Event) error {
	payload := map[string]interface{}{
		"type":      event.GetType(),
		"timestamp": event.GetTimestamp().Format(time.RFC3339),
		"data":      event.GetData(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		if err := conn.WriteJSON(payload); err != nil {
			// 写失败视为连接断开
			s.log.Debugw("websocket写入失败，移除连接", "err", err)
			conn.Close()
			s.dropConnLocked(conn)
		}
	}
	return nil
}

func (s *EventStream) addConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.conns) == 0 {
		if err := s.bus.Subscribe(s); err != nil {
			s.log.Warnw("事件推送器订阅事件总线失败", "err", err)
		}
	}
	s.conns[conn] = struct{}{}
}

func (s *EventStream) removeConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropConnLocked(conn)
}

// dropConnLocked 移除连接，最后一个连接断开后退订总线
func (s *EventStream) dropConnLocked(conn *websocket.Conn) {
	if _, exists := s.conns[conn]; !exists {
		return
	}
	delete(s.conns, conn)
	if len(s.conns) == 0 {
		if err := s.bus.Unsubscribe(s); err != nil {
			s.log.Warnw("事件推送器退订事件总线失败", "err", err)
		}
	}
}

// Serve websocket升级入口
func (s *EventStream) Serve() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			fail(c, http.StatusBadRequest, "websocket upgrade failed")
			return
		}

		s.addConn(conn)

		// 只推不收，读循环仅用于感知客户端断开
		go func() {
			defer func() {
				s.removeConn(conn)
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
