package application

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/servicehooks/userbase/internal/domain/entity"
	"github.com/servicehooks/userbase/internal/domain/repository"
	"github.com/servicehooks/userbase/pkg/apperrors"
)

// UserService orchestrates repository calls into business operations.
// Every mutating operation checks existence first so a vanished id
// surfaces as a typed not-found rather than a backend-specific error.
type UserService struct {
	Repo   repository.UserRepository
	Logger *logrus.Logger
}

func NewUserService(repo repository.UserRepository, logger *logrus.Logger) *UserService {
	return &UserService{Repo: repo, Logger: logger}
}

// UserStats is a one-pass aggregate over the whole store.
type UserStats struct {
	TotalUsers    int                     `json:"totalUsers"`
	ActiveUsers   int                     `json:"activeUsers"`
	InactiveUsers int                     `json:"inactiveUsers"`
	UsersByRole   map[entity.UserRole]int `json:"usersByRole"`
	RecentSignups int                     `json:"recentSignups"`
}

func (s *UserService) GetUser(userID string) (*entity.User, error) {
	user, err := s.Repo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFoundID("user", userID)
	}
	return user, nil
}

func (s *UserService) GetUserByEmail(email string) (*entity.User, error) {
	user, err := s.Repo.FindByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("user with email " + email)
	}
	return user, nil
}

func (s *UserService) UpdateUser(userID string, data entity.UpdateProfile) (*entity.User, error) {
	if err := s.requireExists(userID); err != nil {
		return nil, err
	}
	return s.Repo.UpdateProfile(userID, data)
}

func (s *UserService) DeleteUser(userID string) error {
	if err := s.requireExists(userID); err != nil {
		return err
	}
	if err := s.Repo.Delete(userID); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", userID).Info("user deleted")
	}
	return nil
}

func (s *UserService) DeactivateUser(userID string) error {
	if err := s.requireExists(userID); err != nil {
		return err
	}
	return s.Repo.Deactivate(userID)
}

func (s *UserService) ActivateUser(userID string) error {
	if err := s.requireExists(userID); err != nil {
		return err
	}
	return s.Repo.Activate(userID)
}

func (s *UserService) ChangeUserRole(userID string, role entity.UserRole) (*entity.User, error) {
	if !role.Valid() {
		return nil, apperrors.Validation("unknown role: " + string(role))
	}
	if _, err := s.GetUser(userID); err != nil {
		return nil, err
	}
	return s.Repo.UpdateProfile(userID, entity.UpdateProfile{
		Metadata: &entity.MetadataPatch{Role: &role},
	})
}

// SearchUsers treats a term containing '@' as an exact email match; the
// lookup stays exact even for partial input, matching how the search has
// always behaved. Anything else is a substring scan over lower-cased
// email and display name.
func (s *UserService) SearchUsers(term string) ([]*entity.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(term))

	if strings.Contains(normalized, "@") {
		return s.Repo.Query(repository.QueryOptions{
			Where: []repository.WhereFilter{
				{Field: "email", Operator: repository.OpEqual, Value: normalized},
			},
		})
	}

	all, err := s.Repo.FindAll()
	if err != nil {
		return nil, err
	}
	matches := make([]*entity.User, 0)
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Email), normalized) ||
			strings.Contains(strings.ToLower(u.DisplayName), normalized) {
			matches = append(matches, u)
		}
	}
	return matches, nil
}

// ListUsers defaults to newest-first with a page size of 10.
func (s *UserService) ListUsers(options *repository.QueryOptions) (*repository.PaginatedResult, error) {
	opts := repository.QueryOptions{}
	if options != nil {
		opts = *options
	}
	if opts.OrderBy == nil {
		opts.OrderBy = &repository.OrderBy{Field: "createdAt", Direction: repository.Desc}
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	return s.Repo.QueryPaginated(opts)
}

// GetUserStats scans the store once. Recent signups are counted against
// a 30-day window ending at the moment of the call.
func (s *UserService) GetUserStats() (*UserStats, error) {
	all, err := s.Repo.FindAll()
	if err != nil {
		return nil, err
	}

	stats := &UserStats{
		TotalUsers: len(all),
		UsersByRole: map[entity.UserRole]int{
			entity.RoleAdmin: 0,
			entity.RoleUser:  0,
			entity.RoleGuest: 0,
		},
	}
	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)

	for _, u := range all {
		if u.Metadata.IsActive {
			stats.ActiveUsers++
		} else {
			stats.InactiveUsers++
		}

		role := u.Metadata.Role
		if role == "" {
			role = entity.RoleUser
		}
		stats.UsersByRole[role]++

		if !u.CreatedAt.Before(thirtyDaysAgo) {
			stats.RecentSignups++
		}
	}
	return stats, nil
}

func (s *UserService) requireExists(userID string) error {
	exists, err := s.Repo.Exists(userID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NotFoundID("user", userID)
	}
	return nil
}
