package application

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/servicehooks/userbase/internal/domain/entity"
	"github.com/servicehooks/userbase/internal/domain/repository"
	"github.com/servicehooks/userbase/pkg/apperrors"
	"github.com/servicehooks/userbase/pkg/helpers"
	"github.com/servicehooks/userbase/pkg/validation"
)

// AuthObserver receives the signed-in user, or nil when signed out.
type AuthObserver func(u *entity.User)

type observerEntry struct {
	id int
	fn AuthObserver
}

// AuthService owns the current-session state on top of the repository
// contract. The backend split lives entirely behind the repository, so
// one service serves both backends.
type AuthService struct {
	Repo   repository.UserRepository
	Tokens *helpers.TokenManager
	Logger *logrus.Logger

	mu        sync.Mutex
	current   *entity.User
	observers []observerEntry
	nextObsID int
}

// NewAuthService restores the session pointer from the repository. A
// failed session load reports the signed-out state rather than erroring.
func NewAuthService(repo repository.UserRepository, tokens *helpers.TokenManager, logger *logrus.Logger) *AuthService {
	s := &AuthService{Repo: repo, Tokens: tokens, Logger: logger}
	cur, err := repo.CurrentUser()
	if err != nil {
		if logger != nil {
			logger.WithError(err).Warn("session restore failed, starting signed out")
		}
		cur = nil
	}
	s.current = cur
	return s
}

func (s *AuthService) setCurrent(u *entity.User) {
	s.mu.Lock()
	s.current = u
	// Snapshot so an observer appended mid-notification does not join
	// the current pass and removals cannot skip entries.
	snapshot := make([]observerEntry, len(s.observers))
	copy(snapshot, s.observers)
	s.mu.Unlock()

	for _, o := range snapshot {
		o.fn(u)
	}
}

// CurrentUser returns the signed-in user or nil.
func (s *AuthService) CurrentUser() *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OnAuthStateChanged registers an observer, invokes it once immediately
// with the current state, and returns its unsubscribe function.
// Observers are notified synchronously in registration order.
func (s *AuthService) OnAuthStateChanged(cb AuthObserver) func() {
	s.mu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers = append(s.observers, observerEntry{id: id, fn: cb})
	cur := s.current
	s.mu.Unlock()

	cb(cur)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *AuthService) SignUp(email, password, displayName string) (*entity.User, error) {
	if errs := validation.ValidateUserInput(email, password, displayName); len(errs) > 0 {
		return nil, apperrors.Validation(strings.Join(errs, ", "))
	}

	existing, err := s.Repo.FindByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Validation("an account with this email already exists")
	}

	user, err := s.Repo.CreateWithAuth(entity.CreateUserWithAuth{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("user signed up")
	}
	s.setCurrent(user)
	return user, nil
}

func (s *AuthService) SignIn(email, password string) (*entity.User, error) {
	if errs := validation.ValidateUserInput(email, password, ""); len(errs) > 0 {
		return nil, apperrors.Validation(strings.Join(errs, ", "))
	}

	user, err := s.Repo.AuthenticateUser(email, password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Authentication("invalid email or password")
	}
	if !user.Metadata.IsActive {
		return nil, apperrors.Authentication("account is deactivated, please contact support")
	}

	s.setCurrent(user)
	return user, nil
}

func (s *AuthService) SignOut() error {
	if err := s.Repo.SignOut(); err != nil {
		return err
	}
	s.setCurrent(nil)
	return nil
}

// ResetPassword replaces the credential with a freshly generated one.
// An unknown email is a silent no-op so callers cannot probe for
// registered accounts. The new password surfaces through the log only;
// demo visibility, never the return value.
func (s *AuthService) ResetPassword(email string) error {
	user, err := s.Repo.FindByEmail(email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	newPassword, err := generatePassword()
	if err != nil {
		return err
	}
	if err := s.Repo.SetCredential(user.ID, newPassword); err != nil {
		return err
	}

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"email":        email,
			"new_password": newPassword,
		}).Warn("demo password reset, credential replaced")
	}
	return nil
}

func (s *AuthService) UpdatePassword(newPassword string) error {
	cur := s.CurrentUser()
	if cur == nil {
		return apperrors.Authentication("no authenticated user")
	}
	if !validation.IsValidPassword(newPassword) {
		return apperrors.Validation("password must be at least 6 characters long")
	}
	return s.Repo.SetCredential(cur.ID, newPassword)
}

// VerifyEmail marks the signed-in user as verified and re-broadcasts the
// auth state.
func (s *AuthService) VerifyEmail() (*entity.User, error) {
	cur := s.CurrentUser()
	if cur == nil {
		return nil, apperrors.Authentication("no authenticated user")
	}

	verified := true
	updated, err := s.Repo.Update(cur.ID, entity.UpdateUser{EmailVerified: &verified})
	if err != nil {
		return nil, err
	}
	s.setCurrent(updated)
	return updated, nil
}

// RefreshToken returns a session token for the signed-in user, or the
// empty string when signed out.
func (s *AuthService) RefreshToken() (string, error) {
	cur := s.CurrentUser()
	if cur == nil {
		return "", nil
	}
	token, _, err := s.Tokens.Generate(cur.ID, cur.Email)
	return token, err
}

func generatePassword() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
