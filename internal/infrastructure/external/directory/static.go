package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
)

// StaticDirectory implements port.Directory from a JSON user file loaded at
// startup. The corporate LDAP sync process rewrites the file; a restart
// picks up the new roster.
type StaticDirectory struct {
	mu     sync.RWMutex
	users  map[string]*entity.User
	byRole map[entity.Role][]*entity.User
	logger *zap.Logger
}

// NewStaticDirectory loads the user roster from the given JSON file
func NewStaticDirectory(path string, logger *zap.Logger) (*StaticDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}

	var users []*entity.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("failed to parse directory file: %w", err)
	}

	d := &StaticDirectory{logger: logger}
	d.index(users)

	logger.Info("Directory loaded", zap.String("path", path), zap.Int("users", len(users)))
	return d, nil
}

// NewStaticDirectoryFromUsers builds a directory from an in-memory roster,
// used by tests and local development
func NewStaticDirectoryFromUsers(users []*entity.User, logger *zap.Logger) *StaticDirectory {
	d := &StaticDirectory{logger: logger}
	d.index(users)
	return d
}

func (d *StaticDirectory) index(users []*entity.User) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.users = make(map[string]*entity.User, len(users))
	d.byRole = make(map[entity.Role][]*entity.User)
	for _, u := range users {
		d.users[u.ID] = u
		d.byRole[u.Role] = append(d.byRole[u.Role], u)
	}
}

// GetUser retrieves one user by ID
func (d *StaticDirectory) GetUser(ctx context.Context, id string) (*entity.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return u, nil
}

// LookupUsersByGroup returns the users holding a role. The employee role is
// the whole roster since every directory entry is an employee.
func (d *StaticDirectory) LookupUsersByGroup(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if role == entity.RoleEmployee {
		out := make([]*entity.User, 0, len(d.users))
		for _, u := range d.users {
			out = append(out, u)
		}
		return out, nil
	}

	// Admins stand in for every approval group.
	out := append([]*entity.User{}, d.byRole[role]...)
	if role != entity.RoleAdmin {
		out = append(out, d.byRole[entity.RoleAdmin]...)
	}
	return out, nil
}

// Verify interface compliance
var _ port.Directory = (*StaticDirectory)(nil)
