package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/foodmaze/game/engine"
	"github.com/wricardo/foodmaze/game/service"
)

var (
	ErrLevelNotFound = service.ErrLevelNotFound
	ErrInvalidLevel  = service.ErrInvalidLevel
	ErrInvalidID     = errors.New("invalid level id")
)

// DefaultLevelID is tried first when picking the default level
const DefaultLevelID = "tutorial/corridor"

// Manager is the level catalog. Level ids are slash separated paths relative
// to the levels directory without the .json extension; the first path
// element is the pack.
type Manager struct {
	levelsDir    string
	defaultID    string
	defaultLevel *engine.LevelDescriptor
	levels       map[string]*engine.LevelDescriptor
	mu           sync.RWMutex
}

// NewManager creates a new level catalog over levelsDir
func NewManager(levelsDir string) (*Manager, error) {
	if _, err := os.Stat(levelsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("levels directory does not exist: %s", levelsDir)
	}

	m := &Manager{
		levelsDir: levelsDir,
		levels:    make(map[string]*engine.LevelDescriptor),
	}
	m.loadDefaultLevel()

	return m, nil
}

// LoadLevel loads a level by id
func (m *Manager) LoadLevel(id string) (*engine.LevelDescriptor, error) {
	id, err := cleanID(id)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	if level, exists := m.levels[id]; exists {
		m.mu.RUnlock()
		return level, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// double-check after acquiring the write lock
	if level, exists := m.levels[id]; exists {
		return level, nil
	}

	data, err := os.ReadFile(m.levelPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLevelNotFound, id)
		}
		return nil, fmt.Errorf("failed to read level file: %w", err)
	}

	level, err := engine.DecodeLevel(data)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", id, err)
	}
	if level.Name == "" {
		level.Name = path.Base(id)
	}

	m.levels[id] = level
	return level, nil
}

// ListLevels returns information about every valid level, sorted by id.
// Invalid files are skipped with a warning.
func (m *Manager) ListLevels() ([]*service.LevelInfo, error) {
	ids, err := m.levelIDs()
	if err != nil {
		return nil, err
	}

	levels := make([]*service.LevelInfo, 0, len(ids))
	for _, id := range ids {
		level, err := m.LoadLevel(id)
		if err != nil {
			log.WithError(err).WithField("level_id", id).Warn("skipping invalid level")
			continue
		}
		levels = append(levels, levelInfo(id, level))
	}
	return levels, nil
}

// GetDefault returns the default level and its id
func (m *Manager) GetDefault() (string, *engine.LevelDescriptor) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID, m.defaultLevel
}

// SetDefault sets the default level by id
func (m *Manager) SetDefault(id string) error {
	level, err := m.LoadLevel(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID, _ = cleanID(id)
	m.defaultLevel = level
	return nil
}

// RefreshCache drops cached levels and picks the default again
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.levels = make(map[string]*engine.LevelDescriptor)
	m.mu.Unlock()

	m.loadDefaultLevel()
}

// SaveLevel validates a level and writes it to disk, creating the pack directory
func (m *Manager) SaveLevel(id string, level *engine.LevelDescriptor) error {
	id, err := cleanID(id)
	if err != nil {
		return err
	}
	if err := engine.ValidateLevel(level); err != nil {
		return err
	}

	data, err := json.MarshalIndent(level, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}

	p := m.levelPath(id)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create pack directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	m.mu.Lock()
	m.levels[id] = level
	m.mu.Unlock()

	return nil
}

// NextLevel returns the id that follows id within its pack
func (m *Manager) NextLevel(id string) (string, error) {
	return m.step(id, 1)
}

// PreviousLevel returns the id that precedes id within its pack
func (m *Manager) PreviousLevel(id string) (string, error) {
	return m.step(id, -1)
}

func (m *Manager) step(id string, offset int) (string, error) {
	id, err := cleanID(id)
	if err != nil {
		return "", err
	}
	ids, err := m.levelIDs()
	if err != nil {
		return "", err
	}

	pack := packOf(id)
	var siblings []string
	for _, candidate := range ids {
		if packOf(candidate) == pack {
			siblings = append(siblings, candidate)
		}
	}

	for i, candidate := range siblings {
		if candidate != id {
			continue
		}
		j := i + offset
		if j < 0 || j >= len(siblings) {
			return "", fmt.Errorf("%w: no level %+d from %s in its pack", ErrLevelNotFound, offset, id)
		}
		return siblings[j], nil
	}
	return "", fmt.Errorf("%w: %s", ErrLevelNotFound, id)
}

// levelIDs walks the levels directory and returns every .json file as an id
func (m *Manager) levelIDs() ([]string, error) {
	var ids []string
	err := filepath.WalkDir(m.levelsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, err := filepath.Rel(m.levelsDir, p)
		if err != nil {
			return err
		}
		ids = append(ids, strings.TrimSuffix(filepath.ToSlash(rel), ".json"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read levels directory: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Manager) levelPath(id string) string {
	return filepath.Join(m.levelsDir, filepath.FromSlash(id)+".json")
}

// loadDefaultLevel prefers DefaultLevelID, then the first valid level, then a built-in level
func (m *Manager) loadDefaultLevel() {
	id := DefaultLevelID
	level, err := m.LoadLevel(id)
	if err != nil {
		levels, listErr := m.ListLevels()
		if listErr != nil || len(levels) == 0 {
			id, level = "default", createMinimalLevel()
		} else {
			id = levels[0].LevelID
			level, _ = m.LoadLevel(id)
		}
	}

	m.mu.Lock()
	m.defaultID = id
	m.defaultLevel = level
	m.mu.Unlock()
}

// cleanID normalizes an id and rejects ids that escape the levels directory
func cleanID(id string) (string, error) {
	id = strings.TrimSuffix(strings.TrimSpace(filepath.ToSlash(id)), ".json")
	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidID)
	}
	cleaned := path.Clean(id)
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	return cleaned, nil
}

// packOf returns the pack part of an id, empty for top-level levels
func packOf(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[:i]
	}
	return ""
}

func levelInfo(id string, level *engine.LevelDescriptor) *service.LevelInfo {
	return &service.LevelInfo{
		LevelID:     id,
		Filename:    id + ".json",
		Pack:        packOf(id),
		Name:        level.Name,
		Description: level.Description,
		GridSize:    level.GridSize,
		Players:     len(level.Players),
		Food:        len(level.FoodPositions()),
		HasTeleport: len(level.Teleports) > 0,
		HasGate:     level.Gate != nil && len(level.Gate.Cells) > 0,
	}
}

// createMinimalLevel is used when the levels directory has no valid level
func createMinimalLevel() *engine.LevelDescriptor {
	return &engine.LevelDescriptor{
		Name:        "default",
		Description: "Collect both pieces of food",
		GridSize:    5,
		Cells: []engine.CellSpec{
			{X: 4, Y: 0, Food: true},
			{X: 2, Y: 2, Walls: []string{"down"}},
			{X: 2, Y: 3, Walls: []string{"up"}},
			{X: 0, Y: 4, Food: true},
		},
		Players: []engine.Position{{X: 2, Y: 2}},
	}
}
