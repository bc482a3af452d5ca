package localstore

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/servicehooks/userbase/internal/domain/entity"
	"github.com/servicehooks/userbase/internal/domain/repository"
	"github.com/servicehooks/userbase/internal/infrastructure/scan"
	"github.com/servicehooks/userbase/pkg/apperrors"
)

const (
	// UsersKey holds the full user array as one serialized document.
	UsersKey = "servicehooks_users"
	// CurrentUserKey is the session pointer document, absent when
	// signed out.
	CurrentUserKey = "servicehooks_current_user"
	// CredentialKeyPrefix prefixes the per-user credential artifact. The
	// value is base64 of the plaintext, a demo stand-in and explicitly
	// not real hashing.
	CredentialKeyPrefix = "password_"
)

// UserRepository is the local backend. The mutex serializes access
// within this process only; the read-modify-write sequence still races
// across processes sharing one data dir, which matches the intended
// single-user demo scope.
type UserRepository struct {
	store *Store
	mu    sync.Mutex
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func encodeCredential(password string) string {
	return base64.StdEncoding.EncodeToString([]byte(password))
}

func generateID() string {
	return fmt.Sprintf("user_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func (r *UserRepository) loadUsers() ([]*entity.User, error) {
	var users []*entity.User
	if _, err := r.store.GetJSON(UsersKey, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) saveUsers(users []*entity.User) error {
	return r.store.SetJSON(UsersKey, users)
}

func (r *UserRepository) currentUser() (*entity.User, error) {
	var u entity.User
	ok, err := r.store.GetJSON(CurrentUserKey, &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) setCurrentUser(u *entity.User) error {
	if u == nil {
		return r.store.Delete(CurrentUserKey)
	}
	return r.store.SetJSON(CurrentUserKey, u)
}

func findByID(users []*entity.User, id string) *entity.User {
	for _, u := range users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (r *UserRepository) Create(data entity.CreateUser) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.create(data)
}

func (r *UserRepository) create(data entity.CreateUser) (*entity.User, error) {
	users, err := r.loadUsers()
	if err != nil {
		return nil, err
	}

	if data.Email != "" {
		for _, u := range users {
			if u.Email == data.Email {
				return nil, apperrors.Validation("email already exists")
			}
		}
	}

	id := data.ID
	if id == "" {
		id = generateID()
	}
	now := time.Now().UTC()

	md := entity.UserMetadata{IsActive: true, Role: entity.RoleUser}
	if data.Metadata != nil {
		md = *data.Metadata
		if md.Role == "" {
			md.Role = entity.RoleUser
		}
	}

	user := &entity.User{
		ID:            id,
		Email:         data.Email,
		DisplayName:   data.DisplayName,
		PhotoURL:      data.PhotoURL,
		EmailVerified: data.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
		Metadata:      md,
	}

	users = append(users, user)
	if err := r.saveUsers(users); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) FindByID(id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.loadUsers()
	if err != nil {
		return nil, err
	}
	return findByID(users, id), nil
}

func (r *UserRepository) FindByEmail(email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.loadUsers()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

// FindAll returns users in insertion order.
func (r *UserRepository) FindAll() ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadUsers()
}

func (r *UserRepository) Update(id string, data entity.UpdateUser) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.update(id, data)
}

func (r *UserRepository) update(id string, data entity.UpdateUser) (*entity.User, error) {
	users, err := r.loadUsers()
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, u := range users {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, apperrors.NotFound("user")
	}

	updated := *users[idx]
	if data.DisplayName != nil {
		updated.DisplayName = *data.DisplayName
	}
	if data.PhotoURL != nil {
		updated.PhotoURL = *data.PhotoURL
	}
	if data.EmailVerified != nil {
		updated.EmailVerified = *data.EmailVerified
	}
	if data.Metadata != nil {
		updated.Metadata = *data.Metadata
	}
	// UpdatedAt must strictly increase across mutations.
	now := time.Now().UTC()
	if !now.After(updated.UpdatedAt) {
		now = updated.UpdatedAt.Add(time.Millisecond)
	}
	updated.UpdatedAt = now

	users[idx] = &updated
	if err := r.saveUsers(users); err != nil {
		return nil, err
	}

	if cur, err := r.currentUser(); err == nil && cur != nil && cur.ID == id {
		if err := r.setCurrentUser(&updated); err != nil {
			return nil, err
		}
	}
	return &updated, nil
}

func (r *UserRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.loadUsers()
	if err != nil {
		return err
	}
	kept := make([]*entity.User, 0, len(users))
	for _, u := range users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	if len(kept) == len(users) {
		return apperrors.NotFound("user")
	}
	if err := r.saveUsers(kept); err != nil {
		return err
	}
	_ = r.store.Delete(CredentialKeyPrefix + id)

	if cur, err := r.currentUser(); err == nil && cur != nil && cur.ID == id {
		return r.setCurrentUser(nil)
	}
	return nil
}

func (r *UserRepository) Exists(id string) (bool, error) {
	u, err := r.FindByID(id)
	return u != nil, err
}

func (r *UserRepository) CreateWithAuth(data entity.CreateUserWithAuth) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(data.Password) < 6 {
		return nil, apperrors.Validation("password must be at least 6 characters long")
	}

	now := time.Now().UTC()
	user, err := r.create(entity.CreateUser{
		Email:       data.Email,
		DisplayName: data.DisplayName,
		Metadata: &entity.UserMetadata{
			IsActive:       true,
			Role:           entity.RoleUser,
			LastLoginAt:    &now,
			SignInProvider: "password",
		},
	})
	if err != nil {
		return nil, err
	}

	if err := r.store.SetJSON(CredentialKeyPrefix+user.ID, encodeCredential(data.Password)); err != nil {
		return nil, err
	}
	if err := r.setCurrentUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) AuthenticateUser(email, password string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.loadUsers()
	if err != nil {
		return nil, err
	}
	var user *entity.User
	for _, u := range users {
		if u.Email == email {
			user = u
			break
		}
	}
	if user == nil {
		return nil, nil
	}

	var stored string
	ok, err := r.store.GetJSON(CredentialKeyPrefix+user.ID, &stored)
	if err != nil {
		return nil, err
	}
	if !ok || stored != encodeCredential(password) {
		return nil, nil
	}

	now := time.Now().UTC()
	md := user.Metadata
	md.LastLoginAt = &now
	updated, err := r.update(user.ID, entity.UpdateUser{Metadata: &md})
	if err != nil {
		return nil, err
	}
	if err := r.setCurrentUser(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *UserRepository) SetCredential(userID, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.SetJSON(CredentialKeyPrefix+userID, encodeCredential(password))
}

func (r *UserRepository) UpdateProfile(userID string, data entity.UpdateProfile) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	upd := entity.UpdateUser{DisplayName: data.DisplayName, PhotoURL: data.PhotoURL}
	if data.Metadata != nil {
		users, err := r.loadUsers()
		if err != nil {
			return nil, err
		}
		existing := findByID(users, userID)
		if existing != nil {
			md := existing.Metadata
			data.Metadata.Apply(&md)
			upd.Metadata = &md
		}
	}
	return r.update(userID, upd)
}

func (r *UserRepository) Deactivate(userID string) error {
	return r.setActive(userID, false)
}

func (r *UserRepository) Activate(userID string) error {
	return r.setActive(userID, true)
}

func (r *UserRepository) setActive(userID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.loadUsers()
	if err != nil {
		return err
	}
	user := findByID(users, userID)
	if user == nil {
		return apperrors.NotFound("user")
	}
	md := user.Metadata
	md.IsActive = active
	_, err = r.update(userID, entity.UpdateUser{Metadata: &md})
	return err
}

func (r *UserRepository) Query(options repository.QueryOptions) ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.loadUsers()
	if err != nil {
		return nil, err
	}
	return scan.Apply(users, options), nil
}

func (r *UserRepository) QueryPaginated(options repository.QueryOptions) (*repository.PaginatedResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.loadUsers()
	if err != nil {
		return nil, err
	}
	unlimited := options
	unlimited.Limit = 0
	filtered := scan.Apply(users, unlimited)
	return scan.Paginate(filtered, options), nil
}

func (r *UserRepository) CurrentUser() (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentUser()
}

func (r *UserRepository) SetCurrentUser(u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setCurrentUser(u)
}

func (r *UserRepository) SignOut() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setCurrentUser(nil)
}
