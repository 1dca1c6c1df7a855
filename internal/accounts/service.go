// Package accounts narrows a freshly loaded account list down to the
// accounts a user's free-text qualifiers refer to.
package accounts

import (
	"fmt"
	"strings"

	"github.com/coba-dev/coba/internal/model"
)

// NotFoundError means no account matched the qualifiers.
type NotFoundError struct {
	Qualifiers []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no account matches %s", quote(e.Qualifiers))
}

// AmbiguousError means more than one account matched where exactly one
// was required.
type AmbiguousError struct {
	Qualifiers []string
	Candidates []model.Account
}

func (e *AmbiguousError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, a := range e.Candidates {
		names[i] = a.String()
	}
	return fmt.Sprintf("%s matches %d accounts: %s", quote(e.Qualifiers), len(e.Candidates), strings.Join(names, ", "))
}

func quote(qualifiers []string) string {
	if len(qualifiers) == 0 {
		return "(no qualifiers)"
	}
	return fmt.Sprintf("%q", strings.Join(qualifiers, " "))
}

// Set provides lookup over one accounts page load.
type Set struct {
	accounts []model.Account
	byID     map[string]model.Account
}

// NewSet creates a Set from the accounts of a single page load.
func NewSet(accounts []model.Account) *Set {
	byID := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return &Set{accounts: accounts, byID: byID}
}

// All returns all accounts in page order.
func (s *Set) All() []model.Account {
	return s.accounts
}

// Get returns an account by site id.
func (s *Set) Get(id string) (model.Account, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// ByCategory returns all accounts of the given category.
func (s *Set) ByCategory(c model.Category) []model.Account {
	var result []model.Account
	for _, a := range s.accounts {
		if a.Category == c {
			result = append(result, a)
		}
	}
	return result
}

// Resolve returns every account matched by all qualifiers, in page order.
// No qualifiers match everything.
func (s *Set) Resolve(qualifiers []string) []model.Account {
	qs := normalize(qualifiers)
	var result []model.Account
	for _, a := range s.accounts {
		if Matches(a, qs) {
			result = append(result, a)
		}
	}
	return result
}

// ResolveOne requires the qualifiers to pick out exactly one account.
func (s *Set) ResolveOne(qualifiers []string) (model.Account, error) {
	found := s.Resolve(qualifiers)
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return model.Account{}, &NotFoundError{Qualifiers: qualifiers}
	default:
		return model.Account{}, &AmbiguousError{Qualifiers: qualifiers, Candidates: found}
	}
}

// Matches reports whether every qualifier is a case-insensitive substring
// of the account's name or mask. Qualifiers may match different fields.
func Matches(a model.Account, qualifiers []string) bool {
	name := strings.ToLower(a.Name)
	mask := strings.ToLower(a.Mask)
	for _, q := range qualifiers {
		q = strings.ToLower(strings.TrimSpace(q))
		if q == "" {
			continue
		}
		if !strings.Contains(name, q) && !strings.Contains(mask, q) {
			return false
		}
	}
	return true
}

func normalize(qualifiers []string) []string {
	out := make([]string, 0, len(qualifiers))
	for _, q := range qualifiers {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// SameQualifiers reports whether two qualifier lists are identical after
// case folding, which means they can only resolve to the same account.
func SameQualifiers(a, b []string) bool {
	na, nb := normalize(a), normalize(b)
	if len(na) == 0 || len(na) != len(nb) {
		return false
	}
	for i := range na {
		if !strings.EqualFold(na[i], nb[i]) {
			return false
		}
	}
	return true
}
