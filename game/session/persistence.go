package session

import (
	"time"

	"github.com/wricardo/foodmaze/game/engine"
	"github.com/wricardo/foodmaze/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// LevelLoader resolves level ids for sessions saved without their level
type LevelLoader interface {
	LoadLevel(id string) (*engine.LevelDescriptor, error)
}

// PersistedSessionData is the JSON document stored per session. Level is the
// descriptor at save time; LevelID is resolved only when Level is missing.
type PersistedSessionData struct {
	ID             string                  `json:"id"`
	LevelID        string                  `json:"level_id"`
	CreatedAt      time.Time               `json:"created_at"`
	LastAccessedAt time.Time               `json:"last_accessed_at"`
	Level          *engine.LevelDescriptor `json:"level,omitempty"`
	Game           *engine.SavedGame       `json:"game"`
}
