/*
Package auth implements passcode login against the user directory.

PURPOSE:
  The stockroom terminal has no usernames or sessions: a person types
  their passcode and the directory tells us who they are. Students use
  4-digit numeric codes, staff use 6-character alphanumeric codes, and
  which format a person is allowed to use follows from their assigned
  role, not from which code happens to match.

INVARIANTS:
  - A successful login never echoes the passcode back to the caller.
  - A code matching a user whose role requires the other format is
    rejected, so a roster mistake surfaces at login rather than
    silently granting access.

SEE ALSO:
  - inventory/users.go: directory lookup and passcode format rules
*/
package auth

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/warp/stockroom/inventory"
)

// Sentinel errors for the login flow. ErrInvalidPasscode covers both
// unknown codes and empty input so callers cannot distinguish them.
var (
	ErrInvalidPasscode = errors.New("invalid passcode")
	ErrRoleMismatch    = errors.New("passcode format incorrect for assigned role")
)

// Authenticator resolves passcodes to users.
type Authenticator struct {
	directory *inventory.UserDirectory
	log       zerolog.Logger
}

func NewAuthenticator(directory *inventory.UserDirectory, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		directory: directory,
		log:       log.With().Str("component", "auth").Logger(),
	}
}

// Login looks up the user owning the given passcode. The returned copy
// has its Passcode cleared.
func (a *Authenticator) Login(passcode string) (inventory.User, error) {
	if passcode == "" {
		return inventory.User{}, ErrInvalidPasscode
	}

	user, err := a.directory.FindByPasscode(passcode)
	if err != nil {
		a.log.Warn().Msg("login attempt with unknown passcode")
		return inventory.User{}, ErrInvalidPasscode
	}

	if !inventory.ValidPasscode(user.Role, passcode) {
		a.log.Warn().
			Int("user_id", user.UserID).
			Str("role", string(user.Role)).
			Msg("passcode format does not match assigned role")
		return inventory.User{}, fmt.Errorf("user %d: %w", user.UserID, ErrRoleMismatch)
	}

	a.log.Info().
		Int("user_id", user.UserID).
		Str("role", string(user.Role)).
		Msg("login succeeded")

	user.Passcode = ""
	return user, nil
}
