package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicehooks/userbase/internal/domain/entity"
	"github.com/servicehooks/userbase/internal/domain/repository"
)

func fixtureUsers() []*entity.User {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mk := func(id, email, name string, age int, active bool, role entity.UserRole) *entity.User {
		return &entity.User{
			ID:          id,
			Email:       email,
			DisplayName: name,
			CreatedAt:   base.Add(time.Duration(age) * time.Hour),
			UpdatedAt:   base.Add(time.Duration(age) * time.Hour),
			Metadata:    entity.UserMetadata{IsActive: active, Role: role},
		}
	}
	return []*entity.User{
		mk("u1", "alice@example.com", "Alice", 0, true, entity.RoleAdmin),
		mk("u2", "bob@example.com", "Bob", 1, true, entity.RoleUser),
		mk("u3", "carol@example.com", "Carol", 2, false, entity.RoleUser),
		mk("u4", "dave@example.com", "Dave", 3, true, entity.RoleGuest),
		mk("u5", "erin@example.com", "Erin", 4, false, entity.RoleUser),
	}
}

func TestApplyEqualityFilter(t *testing.T) {
	users := fixtureUsers()

	got := Apply(users, repository.QueryOptions{
		Where: []repository.WhereFilter{
			{Field: "email", Operator: repository.OpEqual, Value: "bob@example.com"},
		},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "u2", got[0].ID)
}

func TestApplyInequalityAndBoolFilters(t *testing.T) {
	users := fixtureUsers()

	notBob := Apply(users, repository.QueryOptions{
		Where: []repository.WhereFilter{
			{Field: "email", Operator: repository.OpNotEqual, Value: "bob@example.com"},
		},
	})
	assert.Len(t, notBob, 4)

	active := Apply(users, repository.QueryOptions{
		Where: []repository.WhereFilter{
			{Field: "metadata.isActive", Operator: repository.OpEqual, Value: true},
		},
	})
	assert.Len(t, active, 3)
}

func TestApplyComparisonOnDates(t *testing.T) {
	users := fixtureUsers()
	cutoff := users[2].CreatedAt

	got := Apply(users, repository.QueryOptions{
		Where: []repository.WhereFilter{
			{Field: "createdAt", Operator: repository.OpGreaterThan, Value: cutoff},
		},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "u4", got[0].ID)
	assert.Equal(t, "u5", got[1].ID)

	upTo := Apply(users, repository.QueryOptions{
		Where: []repository.WhereFilter{
			{Field: "createdAt", Operator: repository.OpLessOrEqual, Value: cutoff},
		},
	})
	assert.Len(t, upTo, 3)
}

func TestApplyInOperator(t *testing.T) {
	users := fixtureUsers()

	got := Apply(users, repository.QueryOptions{
		Where: []repository.WhereFilter{
			{Field: "metadata.role", Operator: repository.OpIn, Value: []interface{}{"admin", "guest"}},
		},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].ID)
	assert.Equal(t, "u4", got[1].ID)
}

// Operators outside the supported set pass every record through; this is
// long-standing behavior callers depend on.
func TestApplyUnsupportedOperatorMatchesAll(t *testing.T) {
	users := fixtureUsers()

	for _, op := range []repository.Operator{repository.OpArrayContainsAny, repository.OpNotIn} {
		got := Apply(users, repository.QueryOptions{
			Where: []repository.WhereFilter{
				{Field: "email", Operator: op, Value: "whatever"},
			},
		})
		assert.Len(t, got, len(users), "operator %s", op)
	}
}

func TestApplyOrderAndLimit(t *testing.T) {
	users := fixtureUsers()

	got := Apply(users, repository.QueryOptions{
		OrderBy: &repository.OrderBy{Field: "createdAt", Direction: repository.Desc},
		Limit:   2,
	})

	require.Len(t, got, 2)
	assert.Equal(t, "u5", got[0].ID)
	assert.Equal(t, "u4", got[1].ID)
}

func TestOrderAscendingByString(t *testing.T) {
	users := []*entity.User{
		{ID: "a", DisplayName: "Zoe"},
		{ID: "b", DisplayName: "Amy"},
		{ID: "c", DisplayName: "Mia"},
	}

	got := Order(users, repository.OrderBy{Field: "displayName", Direction: repository.Asc})

	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.Equal(t, "a", got[2].ID)
	// input slice untouched
	assert.Equal(t, "a", users[0].ID)
}

func TestPaginateFirstPage(t *testing.T) {
	users := fixtureUsers()

	page := Paginate(users, repository.QueryOptions{Limit: 2})

	assert.Len(t, page.Data, 2)
	assert.Equal(t, 5, page.Total)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.LastDoc)
	assert.Equal(t, 2, *page.LastDoc)
}

func TestPaginateFinalPartialPage(t *testing.T) {
	users := fixtureUsers()

	page := Paginate(users, repository.QueryOptions{Limit: 3, StartAfter: 3})

	assert.Len(t, page.Data, 2)
	assert.Equal(t, 5, page.Total)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.LastDoc)
}

func TestPaginateDefaultsLimitToTen(t *testing.T) {
	users := fixtureUsers()

	page := Paginate(users, repository.QueryOptions{})

	assert.Len(t, page.Data, 5)
	assert.False(t, page.HasMore)
}

func TestPaginateOffsetPastEnd(t *testing.T) {
	users := fixtureUsers()

	page := Paginate(users, repository.QueryOptions{Limit: 2, StartAfter: 10})

	assert.Empty(t, page.Data)
	assert.Equal(t, 5, page.Total)
	assert.False(t, page.HasMore)
}
