package service

import "go.uber.org/zap"

// Notifier 사용자에게 라이프사이클 이벤트 전달
type Notifier interface {
	Notify(userID, eventType string, payload interface{})
}

// Sender 연결 단위 전송 (websocket.Hub 구현)
type Sender interface {
	SendToConnection(connectionID, msgType string, payload interface{}) bool
}

// ConnectionNotifier 레지스트리로 사용자의 현재 연결을 찾아 전송
type ConnectionNotifier struct {
	registry *Registry
	sender   Sender
	logger   *zap.Logger
}

func NewConnectionNotifier(registry *Registry, sender Sender, logger *zap.Logger) *ConnectionNotifier {
	return &ConnectionNotifier{
		registry: registry,
		sender:   sender,
		logger:   logger,
	}
}

// Notify 연결이 없는 사용자는 조용히 건너뜀
func (n *ConnectionNotifier) Notify(userID, eventType string, payload interface{}) {
	connID, ok := n.registry.ConnectionOf(userID)
	if !ok {
		n.logger.Debug("Dropping event for disconnected user",
			zap.String("userId", userID),
			zap.String("event", eventType))
		return
	}

	if !n.sender.SendToConnection(connID, eventType, payload) {
		n.logger.Warn("Failed to deliver event",
			zap.String("userId", userID),
			zap.String("connectionId", connID),
			zap.String("event", eventType))
	}
}

type notification struct {
	userID    string
	eventType string
	payload   interface{}
}

// deliver 락 해제 후 모아둔 이벤트 전송
func deliver(n Notifier, batch []notification) {
	for _, msg := range batch {
		n.Notify(msg.userID, msg.eventType, msg.payload)
	}
}
