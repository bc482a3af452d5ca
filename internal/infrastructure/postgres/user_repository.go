package postgres

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/servicehooks/userbase/internal/domain/entity"
	"github.com/servicehooks/userbase/internal/domain/repository"
	"github.com/servicehooks/userbase/internal/infrastructure/scan"
	"github.com/servicehooks/userbase/pkg/apperrors"
	"github.com/servicehooks/userbase/pkg/helpers"
)

// CurrentUserKey is the session pointer record in Redis, absent when
// signed out. Same well-known key as the local backend uses on disk.
const CurrentUserKey = "servicehooks_current_user"

const uniqueViolation = "23505"

// UserRepository is the remote backend: user records and credential
// artifacts live in Postgres, the session pointer in Redis. Query
// operations load all rows and run the shared scan engine so filter and
// ordering semantics stay identical to the local backend.
type UserRepository struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

func NewUserRepository(pool *pgxpool.Pool, rdb *redis.Client) *UserRepository {
	return &UserRepository{pool: pool, rdb: rdb}
}

var _ repository.UserRepository = (*UserRepository)(nil)

const userColumns = `id, email, display_name, photo_url, email_verified, created_at, updated_at, metadata`

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var md []byte
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL,
		&u.EmailVerified, &u.CreatedAt, &u.UpdatedAt, &md); err != nil {
		return nil, err
	}
	if len(md) > 0 {
		if err := json.Unmarshal(md, &u.Metadata); err != nil {
			return nil, fmt.Errorf("parse user metadata: %w", err)
		}
	}
	return u, nil
}

func encodeCredential(password string) string {
	return base64.StdEncoding.EncodeToString([]byte(password))
}

func (r *UserRepository) insert(ctx context.Context, u *entity.User) error {
	md, err := json.Marshal(u.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (id, email, display_name, photo_url, email_verified, created_at, updated_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Email, u.DisplayName, u.PhotoURL, u.EmailVerified, u.CreatedAt, u.UpdatedAt, md)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperrors.Validation("email already exists")
	}
	return err
}

func (r *UserRepository) Create(data entity.CreateUser) (*entity.User, error) {
	ctx := context.Background()

	if data.Email != "" {
		existing, err := r.FindByEmail(data.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, apperrors.Validation("email already exists")
		}
	}

	id := data.ID
	if id == "" {
		id = fmt.Sprintf("user_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
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
	if err := r.insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) FindByID(id string) (*entity.User, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *UserRepository) FindByEmail(email string) (*entity.User, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *UserRepository) FindAll() ([]*entity.User, error) {
	rows, err := r.pool.Query(context.Background(),
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Update(id string, data entity.UpdateUser) (*entity.User, error) {
	ctx := context.Background()

	// Read-modify-write without row locking: last writer wins, same as
	// the local backend.
	existing, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperrors.NotFound("user")
	}

	updated := *existing
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
	now := time.Now().UTC()
	if !now.After(updated.UpdatedAt) {
		now = updated.UpdatedAt.Add(time.Millisecond)
	}
	updated.UpdatedAt = now

	md, err := json.Marshal(updated.Metadata)
	if err != nil {
		return nil, err
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET display_name = $1, photo_url = $2, email_verified = $3, updated_at = $4, metadata = $5
		WHERE id = $6
	`, updated.DisplayName, updated.PhotoURL, updated.EmailVerified, updated.UpdatedAt, md, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected() == 0 {
		return nil, apperrors.NotFound("user")
	}

	if cur, err := r.CurrentUser(); err == nil && cur != nil && cur.ID == id {
		if err := r.SetCurrentUser(&updated); err != nil {
			return nil, err
		}
	}
	return &updated, nil
}

func (r *UserRepository) Delete(id string) error {
	ctx := context.Background()
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return apperrors.NotFound("user")
	}

	if cur, err := r.CurrentUser(); err == nil && cur != nil && cur.ID == id {
		return r.SignOut()
	}
	return nil
}

func (r *UserRepository) Exists(id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *UserRepository) CreateWithAuth(data entity.CreateUserWithAuth) (*entity.User, error) {
	if len(data.Password) < 6 {
		return nil, apperrors.Validation("password must be at least 6 characters long")
	}

	now := time.Now().UTC()
	user, err := r.Create(entity.CreateUser{
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

	if err := r.SetCredential(user.ID, data.Password); err != nil {
		return nil, err
	}
	if err := r.SetCurrentUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) AuthenticateUser(email, password string) (*entity.User, error) {
	user, err := r.FindByEmail(email)
	if err != nil || user == nil {
		return nil, err
	}

	var stored string
	err = r.pool.QueryRow(context.Background(),
		`SELECT secret FROM user_credentials WHERE user_id = $1`, user.ID).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if stored != encodeCredential(password) {
		return nil, nil
	}

	now := time.Now().UTC()
	md := user.Metadata
	md.LastLoginAt = &now
	updated, err := r.Update(user.ID, entity.UpdateUser{Metadata: &md})
	if err != nil {
		return nil, err
	}
	if err := r.SetCurrentUser(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *UserRepository) SetCredential(userID, password string) error {
	_, err := r.pool.Exec(context.Background(), `
		INSERT INTO user_credentials (user_id, secret)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET secret = EXCLUDED.secret
	`, userID, encodeCredential(password))
	return err
}

func (r *UserRepository) UpdateProfile(userID string, data entity.UpdateProfile) (*entity.User, error) {
	upd := entity.UpdateUser{DisplayName: data.DisplayName, PhotoURL: data.PhotoURL}
	if data.Metadata != nil {
		existing, err := r.FindByID(userID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			md := existing.Metadata
			data.Metadata.Apply(&md)
			upd.Metadata = &md
		}
	}
	return r.Update(userID, upd)
}

func (r *UserRepository) Deactivate(userID string) error {
	return r.setActive(userID, false)
}

func (r *UserRepository) Activate(userID string) error {
	return r.setActive(userID, true)
}

func (r *UserRepository) setActive(userID string, active bool) error {
	user, err := r.FindByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.NotFound("user")
	}
	md := user.Metadata
	md.IsActive = active
	_, err = r.Update(userID, entity.UpdateUser{Metadata: &md})
	return err
}

func (r *UserRepository) Query(options repository.QueryOptions) ([]*entity.User, error) {
	users, err := r.FindAll()
	if err != nil {
		return nil, err
	}
	return scan.Apply(users, options), nil
}

func (r *UserRepository) QueryPaginated(options repository.QueryOptions) (*repository.PaginatedResult, error) {
	users, err := r.FindAll()
	if err != nil {
		return nil, err
	}
	unlimited := options
	unlimited.Limit = 0
	filtered := scan.Apply(users, unlimited)
	return scan.Paginate(filtered, options), nil
}

func (r *UserRepository) CurrentUser() (*entity.User, error) {
	var u entity.User
	ok, err := helpers.RedisGetJSON(context.Background(), r.rdb, CurrentUserKey, &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) SetCurrentUser(u *entity.User) error {
	ctx := context.Background()
	if u == nil {
		return helpers.RedisDel(ctx, r.rdb, CurrentUserKey)
	}
	return helpers.RedisSetJSON(ctx, r.rdb, CurrentUserKey, u, 0)
}

func (r *UserRepository) SignOut() error {
	return r.SetCurrentUser(nil)
}
