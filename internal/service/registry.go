package service

import "sync"

// Binding 연결과 인증된 사용자의 매핑
type Binding struct {
	ConnectionID string
	UserID       string
	Username     string
}

// Registry 연결 id <-> 사용자 id 양방향 매핑 (메모리 전용)
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]Binding
	byUser map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]Binding),
		byUser: make(map[string]string),
	}
}

// Bind 매핑 기록. 같은 사용자의 이전 연결은 더 이상 현재 연결이 아님
func (r *Registry) Bind(connectionID, userID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[connectionID]; ok && prev.UserID != userID {
		if r.byUser[prev.UserID] == connectionID {
			delete(r.byUser, prev.UserID)
		}
	}

	r.byConn[connectionID] = Binding{
		ConnectionID: connectionID,
		UserID:       userID,
		Username:     username,
	}
	r.byUser[userID] = connectionID
}

// ConnectionOf 사용자의 현재 연결 조회
func (r *Registry) ConnectionOf(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byUser[userID]
	return connID, ok
}

// UserOf 연결에 바인딩된 사용자 조회
func (r *Registry) UserOf(connectionID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byConn[connectionID]
	return b, ok
}

// Unbind 연결 해제. current는 이 연결이 아직 사용자의 현재 연결이었는지 여부
func (r *Registry) Unbind(connectionID string) (b Binding, current bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byConn[connectionID]
	if !ok {
		return Binding{}, false
	}
	delete(r.byConn, connectionID)

	if r.byUser[b.UserID] == connectionID {
		delete(r.byUser, b.UserID)
		return b, true
	}
	return b, false
}

// Count 현재 연결된 사용자 수
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
