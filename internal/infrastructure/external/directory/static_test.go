package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
)

func testRoster() []*entity.User {
	return []*entity.User{
		{ID: "u-1", Name: "Jana", Email: "jana@imcp.example", Role: entity.RoleQualityManager},
		{ID: "u-2", Name: "Petr", Email: "petr@imcp.example", Role: entity.RoleEmployee},
		{ID: "u-3", Name: "Eva", Email: "eva@imcp.example", Role: entity.RoleAdmin},
	}
}

func TestStaticDirectory_GetUser(t *testing.T) {
	d := NewStaticDirectoryFromUsers(testRoster(), zap.NewNop())

	u, err := d.GetUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Jana", u.Name)

	_, err = d.GetUser(context.Background(), "ghost")
	assert.True(t, errors.Is(err, port.ErrNotFound))
}

func TestStaticDirectory_EmployeeGroupIsWholeRoster(t *testing.T) {
	d := NewStaticDirectoryFromUsers(testRoster(), zap.NewNop())

	users, err := d.LookupUsersByGroup(context.Background(), entity.RoleEmployee)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestStaticDirectory_AdminsJoinEveryGroup(t *testing.T) {
	d := NewStaticDirectoryFromUsers(testRoster(), zap.NewNop())

	users, err := d.LookupUsersByGroup(context.Background(), entity.RoleQualityManager)
	require.NoError(t, err)

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []string{"u-1", "u-3"}, ids)
}

func TestStaticDirectory_EmptyGroupStillHasAdmins(t *testing.T) {
	d := NewStaticDirectoryFromUsers(testRoster(), zap.NewNop())

	users, err := d.LookupUsersByGroup(context.Background(), entity.RoleBoard)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u-3", users[0].ID)
}
