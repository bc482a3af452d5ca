package repository

import "github.com/servicehooks/userbase/internal/domain/entity"

// UserRepository is the storage contract implemented identically by the
// localstore and postgres backends. The backend is chosen once at startup
// and never swapped afterwards within a running process.
type UserRepository interface {
	// Create assigns an id if absent, stamps timestamps, defaults
	// metadata (isActive=true, role=user) and rejects duplicate emails
	// with a validation error.
	Create(data entity.CreateUser) (*entity.User, error)
	FindByID(id string) (*entity.User, error)
	FindByEmail(email string) (*entity.User, error)
	FindAll() ([]*entity.User, error)
	// Update merges non-nil fields and re-stamps UpdatedAt. Returns a
	// not-found error for an unknown id. If the session pointer refers to
	// the same id it is refreshed too.
	Update(id string, data entity.UpdateUser) (*entity.User, error)
	// Delete removes the record and clears the session pointer when it
	// referred to this id.
	Delete(id string) error
	Exists(id string) (bool, error)

	// CreateWithAuth validates the password (>= 6 chars), delegates to
	// Create, persists the credential artifact keyed by the new id and
	// points the session at the new user.
	CreateWithAuth(data entity.CreateUserWithAuth) (*entity.User, error)
	// AuthenticateUser returns (nil, nil) on unknown email or credential
	// mismatch; bad credentials are a business outcome, not an error. On
	// success it refreshes lastLoginAt and the session pointer.
	AuthenticateUser(email, password string) (*entity.User, error)
	// SetCredential replaces the stored credential artifact for a user.
	SetCredential(userID, password string) error

	UpdateProfile(userID string, data entity.UpdateProfile) (*entity.User, error)
	Deactivate(userID string) error
	Activate(userID string) error

	Query(options QueryOptions) ([]*entity.User, error)
	QueryPaginated(options QueryOptions) (*PaginatedResult, error)

	// Session pointer: at most one current user per client context.
	CurrentUser() (*entity.User, error)
	SetCurrentUser(u *entity.User) error
	SignOut() error
}

// Operator is the comparison operator of a where filter. The set mirrors
// the Firestore operator surface; OpArrayContainsAny and OpNotIn are
// accepted but match every record (see scan.Match).
type Operator string

const (
	OpEqual            Operator = "=="
	OpNotEqual         Operator = "!="
	OpLessThan         Operator = "<"
	OpLessOrEqual      Operator = "<="
	OpGreaterThan      Operator = ">"
	OpGreaterOrEqual   Operator = ">="
	OpArrayContains    Operator = "array-contains"
	OpIn               Operator = "in"
	OpArrayContainsAny Operator = "array-contains-any"
	OpNotIn            Operator = "not-in"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type WhereFilter struct {
	Field    string      `json:"field"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value"`
}

type OrderBy struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// QueryOptions is consumed by both backends: filters first, then a
// single-field sort, then the result cap. StartAfter is the offset of the
// first record of the requested page (QueryPaginated only).
type QueryOptions struct {
	Where      []WhereFilter `json:"where,omitempty"`
	OrderBy    *OrderBy      `json:"orderBy,omitempty"`
	Limit      int           `json:"limit,omitempty"`
	StartAfter int           `json:"startAfter,omitempty"`
}

// PaginatedResult is one page of a filtered and ordered result set.
// Total counts the filtered set, not the whole store. LastDoc is the
// StartAfter offset for the next page and is nil on the final page.
type PaginatedResult struct {
	Data    []*entity.User `json:"data"`
	Total   int            `json:"total"`
	HasMore bool           `json:"hasMore"`
	LastDoc *int           `json:"lastDoc,omitempty"`
}
