package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Message 서버 -> 클라이언트 메시지
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Envelope 클라이언트 -> 서버 메시지. payload는 이벤트 타입별로 해석
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Conn 핸들러에 전달되는 연결 정보
type Conn struct {
	ID       string
	UserID   string
	Username string
}

// Lifecycle 연결 등록/해제 통지 (service.Service 구현)
type Lifecycle interface {
	Connect(connectionID, userID, username string)
	Disconnect(connectionID string)
}

// MessageHandler 인바운드 이벤트 처리
type MessageHandler interface {
	HandleMessage(ctx context.Context, conn Conn, msg Envelope)
}

// Hub WebSocket 연결 관리. 연결 id 단위로 전송
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	lifecycle Lifecycle
	handler   MessageHandler
	logger    *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Attach 수명 주기와 메시지 핸들러 연결. Run 전에 호출
func (h *Hub) Attach(lifecycle Lifecycle, handler MessageHandler) {
	h.lifecycle = lifecycle
	h.handler = handler
}

// Run ctx가 끝날 때까지 등록/해제 처리
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return nil
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	if h.lifecycle != nil {
		h.lifecycle.Connect(client.id, client.userID, client.username)
	}

	h.logger.Info("WebSocket client registered",
		zap.String("connectionId", client.id),
		zap.String("userId", client.userID),
		zap.Int("totalClients", total))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, exists := h.clients[client.id]
	if exists {
		delete(h.clients, client.id)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !exists {
		return
	}

	h.logger.Info("WebSocket client unregistered",
		zap.String("connectionId", client.id),
		zap.String("userId", client.userID),
		zap.Int("totalClients", total))

	// 몰수 처리가 다른 연결로 이벤트를 보내므로 Run 루프 밖에서 실행
	if h.lifecycle != nil {
		go h.lifecycle.Disconnect(client.id)
	}
}

// enqueue Run이 끝난 뒤에는 블록하지 않음
func (h *Hub) enqueue(ch chan *Client, client *Client) bool {
	select {
	case ch <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
}

// SendToConnection 특정 연결로 메시지 전송. 연결이 없거나 버퍼가 가득 차면 false
func (h *Hub) SendToConnection(connectionID, msgType string, payload interface{}) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connectionID]
	if !ok {
		return false
	}

	select {
	case client.send <- &Message{Type: msgType, Payload: payload}:
		return true
	default:
		h.logger.Warn("Client send channel full",
			zap.String("connectionId", connectionID),
			zap.String("type", msgType))
		return false
	}
}

// ClientCount 현재 연결 수
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
