package rooms

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/cbodonnell/manhunt/pkg/game/constants"
	"github.com/cbodonnell/manhunt/pkg/game/types"
)

// ErrCodeExhausted is returned when no unused room code could be found.
var ErrCodeExhausted = errors.New("failed to generate a unique room code")

// Manager owns every live room, keyed by room code.
type Manager struct {
	rooms        map[string]*types.Room
	roomsLock    sync.RWMutex
	generateCode func() string
	now          func() time.Time
}

type NewManagerOptions struct {
	// CodeGenerator overrides the random room code generator
	CodeGenerator func() string
	Now           func() time.Time
}

func NewManager(opts NewManagerOptions) *Manager {
	m := &Manager{
		rooms:        make(map[string]*types.Room),
		generateCode: opts.CodeGenerator,
		now:          opts.Now,
	}
	if m.generateCode == nil {
		m.generateCode = GenerateCode
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// CreateRoom creates a room in LOBBY with a fresh code and the given settings merged over the defaults.
// The host player is not added.
func (m *Manager) CreateRoom(hostID string, patch *types.SettingsPatch) (*types.Room, error) {
	settings := types.DefaultSettings().Merge(patch)
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	m.roomsLock.Lock()
	defer m.roomsLock.Unlock()

	code, err := m.generateUniqueCode(constants.RoomCodeMaxRetries)
	if err != nil {
		return nil, err
	}

	room := types.NewRoom(code, hostID, settings, m.now().UnixMilli())
	m.rooms[code] = room

	return room, nil
}

// GetRoom returns the room with the given code, or nil when it does not exist.
func (m *Manager) GetRoom(roomID string) *types.Room {
	m.roomsLock.RLock()
	defer m.roomsLock.RUnlock()
	return m.rooms[roomID]
}

func (m *Manager) DeleteRoom(roomID string) bool {
	m.roomsLock.Lock()
	defer m.roomsLock.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return false
	}
	delete(m.rooms, roomID)
	return true
}

func (m *Manager) RoomExists(roomID string) bool {
	m.roomsLock.RLock()
	defer m.roomsLock.RUnlock()
	_, ok := m.rooms[roomID]
	return ok
}

// GetAllRooms returns the live rooms ordered by creation time.
func (m *Manager) GetAllRooms() []*types.Room {
	m.roomsLock.RLock()
	defer m.roomsLock.RUnlock()
	rooms := make([]*types.Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt != rooms[j].CreatedAt {
			return rooms[i].CreatedAt < rooms[j].CreatedAt
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms
}

func (m *Manager) GetRoomCount() int {
	m.roomsLock.RLock()
	defer m.roomsLock.RUnlock()
	return len(m.rooms)
}

// generateUniqueCode reads from rooms, so it needs to be locked before calling
func (m *Manager) generateUniqueCode(maxRetries int) (string, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		code := m.generateCode()
		if _, ok := m.rooms[code]; !ok {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrCodeExhausted, maxRetries)
}

// GenerateCode returns a random room code drawn from the room code alphabet.
func GenerateCode() string {
	b := make([]byte, constants.RoomCodeLength)
	max := big.NewInt(int64(len(constants.RoomCodeAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("failed to read random bytes: %v", err))
		}
		b[i] = constants.RoomCodeAlphabet[idx.Int64()]
	}
	return string(b)
}
