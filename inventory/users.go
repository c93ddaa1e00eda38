/*
users.go - User directory (login collaborator)

The user collection is consumed read-only by passcode login and replaced
wholesale on import, mirroring the catalog's import semantics. Passcode
format rules are role-specific and shared with the spreadsheet importer:
students carry a 4-digit code, staff a 6-character alphanumeric one.
*/
package inventory

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	studentPasscodeRe = regexp.MustCompile(`^[0-9]{4}$`)
	staffPasscodeRe   = regexp.MustCompile(`^[a-zA-Z0-9]{6}$`)
)

// NormalizeRole maps free-form role text to the canonical Student/Staff
// values. Returns false when the text matches neither.
func NormalizeRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "student":
		return RoleStudent, true
	case "staff":
		return RoleStaff, true
	default:
		return "", false
	}
}

// ValidPasscode reports whether the passcode matches the format required
// for the role.
func ValidPasscode(role Role, passcode string) bool {
	switch role {
	case RoleStudent:
		return studentPasscodeRe.MatchString(passcode)
	case RoleStaff:
		return staffPasscodeRe.MatchString(passcode)
	default:
		return false
	}
}

// UserDirectory holds the current user collection.
type UserDirectory struct {
	mu    sync.RWMutex
	store UserStore
	users []User
	log   zerolog.Logger
}

// NewUserDirectory loads all persisted users.
func NewUserDirectory(ctx context.Context, store UserStore, log zerolog.Logger) (*UserDirectory, error) {
	users, err := store.LoadUsers(ctx)
	if err != nil {
		return nil, err
	}
	log.Info().Int("users", len(users)).Msg("user directory loaded")
	return &UserDirectory{store: store, users: users, log: log}, nil
}

// GetAll returns all users.
func (d *UserDirectory) GetAll() []User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]User, len(d.users))
	copy(out, d.users)
	return out
}

// FindByPasscode returns the user whose passcode matches exactly, or
// ErrUserNotFound.
func (d *UserDirectory) FindByPasscode(passcode string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.users {
		if u.Passcode == passcode {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

// FindByID returns the user with the given ID, or ErrUserNotFound.
func (d *UserDirectory) FindByID(userID int) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.users {
		if u.UserID == userID {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

// ReplaceAll replaces the whole directory with the given rows, skipping
// invalid rows individually with a reason. Role text is normalized to
// Student/Staff and passcodes are validated against the normalized role.
func (d *UserDirectory) ReplaceAll(ctx context.Context, rows []UserRow) ([]SkippedRow, error) {
	var (
		users   []User
		skipped []SkippedRow
	)

	seen := make(map[int]bool, len(rows))
	for i, row := range rows {
		rowNum := row.Row
		if rowNum == 0 {
			rowNum = i + 2
		}
		user, reason := buildUser(row)
		if reason == "" && seen[user.UserID] {
			reason = fmt.Sprintf("duplicate UserID %d", user.UserID)
		}
		if reason != "" {
			skipped = append(skipped, SkippedRow{Row: rowNum, Reason: reason})
			continue
		}
		seen[user.UserID] = true
		users = append(users, user)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.store.SaveUsers(ctx, users); err != nil {
		return skipped, &PersistenceError{Op: "user replace", Err: err}
	}
	d.users = users

	d.log.Info().Int("imported", len(users)).Int("skipped", len(skipped)).Msg("user directory replaced")
	return skipped, nil
}

func buildUser(row UserRow) (User, string) {
	if row.UserID <= 0 {
		return User{}, "UserID is missing or not a positive number"
	}
	if strings.TrimSpace(row.UserName) == "" {
		return User{}, "UserName is missing"
	}
	role, ok := NormalizeRole(row.Role)
	if !ok {
		return User{}, `Role must be "Student" or "Staff"`
	}
	passcode := strings.TrimSpace(row.Passcode)
	if passcode == "" {
		return User{}, "Passcode is missing"
	}
	if !ValidPasscode(role, passcode) {
		if role == RoleStudent {
			return User{}, "Student Passcode must be a 4-digit number"
		}
		return User{}, "Staff Passcode must be a 6-character alphanumeric string"
	}

	return User{
		UserID:    row.UserID,
		UserName:  strings.TrimSpace(row.UserName),
		Role:      role,
		UserSpecs: strings.TrimSpace(row.UserSpecs),
		Passcode:  passcode,
	}, ""
}
