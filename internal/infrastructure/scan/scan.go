// Package scan is the in-memory query engine shared by both storage
// backends: linear filter passes, a single-field three-way sort, and
// offset pagination over the full filtered set.
package scan

import (
	"sort"
	"strings"
	"time"

	"github.com/servicehooks/userbase/internal/domain/entity"
	"github.com/servicehooks/userbase/internal/domain/repository"
)

// Apply runs filters, ordering and the result cap, in that order.
func Apply(users []*entity.User, opts repository.QueryOptions) []*entity.User {
	out := users
	for _, f := range opts.Where {
		filtered := make([]*entity.User, 0, len(out))
		for _, u := range out {
			if Match(u, f) {
				filtered = append(filtered, u)
			}
		}
		out = filtered
	}
	if opts.OrderBy != nil {
		out = Order(out, *opts.OrderBy)
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out
}

// Paginate slices [startAfter, startAfter+limit) out of the already
// filtered and ordered set. Limit defaults to 10. Total counts the
// filtered set; LastDoc is the next page's offset, nil on the last page.
func Paginate(users []*entity.User, opts repository.QueryOptions) *repository.PaginatedResult {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	start := opts.StartAfter
	if start < 0 {
		start = 0
	}

	end := start + limit
	if start > len(users) {
		start = len(users)
	}
	if end > len(users) {
		end = len(users)
	}

	res := &repository.PaginatedResult{
		Data:    users[start:end],
		Total:   len(users),
		HasMore: opts.StartAfter+limit < len(users),
	}
	if res.HasMore {
		next := opts.StartAfter + limit
		res.LastDoc = &next
	}
	return res
}

// Match evaluates one where filter against a user. Operators outside the
// supported set (array-contains-any, not-in) match every record; that
// mirrors the behavior user-facing code has come to rely on, so reject
// them at a higher layer if stricter handling is ever wanted.
func Match(u *entity.User, f repository.WhereFilter) bool {
	val := fieldValue(u, f.Field)
	switch f.Operator {
	case repository.OpEqual:
		return equal(val, f.Value)
	case repository.OpNotEqual:
		return !equal(val, f.Value)
	case repository.OpLessThan:
		c, ok := compare(val, f.Value)
		return ok && c < 0
	case repository.OpLessOrEqual:
		c, ok := compare(val, f.Value)
		return ok && c <= 0
	case repository.OpGreaterThan:
		c, ok := compare(val, f.Value)
		return ok && c > 0
	case repository.OpGreaterOrEqual:
		c, ok := compare(val, f.Value)
		return ok && c >= 0
	case repository.OpArrayContains:
		arr, ok := val.([]interface{})
		if !ok {
			return false
		}
		for _, item := range arr {
			if equal(item, f.Value) {
				return true
			}
		}
		return false
	case repository.OpIn:
		candidates, ok := f.Value.([]interface{})
		if !ok {
			return false
		}
		for _, c := range candidates {
			if equal(val, c) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Order sorts by a single field. The sort is stable, so records that
// compare equal keep their relative store order within one backend.
func Order(users []*entity.User, by repository.OrderBy) []*entity.User {
	sorted := make([]*entity.User, len(users))
	copy(sorted, users)
	dir := 1
	if by.Direction == repository.Desc {
		dir = -1
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		c, ok := compare(fieldValue(sorted[i], by.Field), fieldValue(sorted[j], by.Field))
		if !ok {
			return false
		}
		return c*dir < 0
	})
	return sorted
}

// fieldValue resolves a query field name against a user record. Names
// follow the serialized document keys. Unknown fields resolve to nil and
// fail every comparison.
func fieldValue(u *entity.User, field string) interface{} {
	switch field {
	case "id":
		return u.ID
	case "email":
		return u.Email
	case "displayName":
		return u.DisplayName
	case "photoURL":
		return u.PhotoURL
	case "emailVerified":
		return u.EmailVerified
	case "createdAt":
		return u.CreatedAt
	case "updatedAt":
		return u.UpdatedAt
	case "metadata.isActive":
		return u.Metadata.IsActive
	case "metadata.role":
		return string(u.Metadata.Role)
	case "metadata.signInProvider":
		return u.Metadata.SignInProvider
	case "metadata.lastLoginAt":
		if u.Metadata.LastLoginAt == nil {
			return nil
		}
		return *u.Metadata.LastLoginAt
	default:
		return nil
	}
}

func equal(a, b interface{}) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	ab, aok := toBool(a)
	bb, bok := toBool(b)
	if aok && bok {
		return ab == bb
	}
	return false
}

// compare three-way compares two values using the native ordering of the
// field's type: lexical for strings, numeric for numbers, instant for
// dates. Returns false when the pair is not comparable.
func compare(a, b interface{}) (int, bool) {
	if at, ok := toTime(a); ok {
		bt, ok := toTime(b)
		if !ok {
			return 0, false
		}
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		}
		return 0, true
	}
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	}
	return time.Time{}, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toBool(v interface{}) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}
