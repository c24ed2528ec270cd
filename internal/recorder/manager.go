package recorder

import (
	"fmt"
	"sync"

	"uirecorder/internal/models"
	"uirecorder/pkg/chrome"
)

// SessionManager tracks live recording sessions by id. Stopped sessions stay
// registered until the recorded flow is saved, then CleanupRecording drops
// them along with their caches.
type SessionManager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

var Manager = &SessionManager{
	sessions: make(map[string]*Session),
}

func (sm *SessionManager) StartRecording(sessionID, targetURL string, device chrome.DeviceInfo, cfg Config) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.sessions[sessionID]; exists {
		return fmt.Errorf("recording session %s already exists", sessionID)
	}

	session := NewSession(sessionID, device, cfg)
	err := session.Start(targetURL)
	if err != nil {
		return err
	}

	sm.sessions[sessionID] = session
	return nil
}

func (sm *SessionManager) StopRecording(sessionID string) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return fmt.Errorf("recording session %s not found", sessionID)
	}

	err := session.Stop()
	if err != nil {
		return err
	}

	// Don't delete the session here - keep it for saving
	// The session will be cleaned up when saving is complete
	return nil
}

func (sm *SessionManager) GetSession(sessionID string) (*Session, bool) {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	session, exists := sm.sessions[sessionID]
	return session, exists
}

func (sm *SessionManager) GetRecordingStatus(sessionID string) (bool, []models.Action, error) {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return false, nil, fmt.Errorf("recording session %s not found", sessionID)
	}

	return session.IsRecording(), session.GetActions(), nil
}

func (sm *SessionManager) CleanupRecording(sessionID string) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.sessions[sessionID]; exists {
		delete(sm.sessions, sessionID)
	}
	return nil
}
