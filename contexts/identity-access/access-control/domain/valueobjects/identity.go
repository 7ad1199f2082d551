package valueobjects

import (
	"strings"

	domainerrors "ballotproxy/contexts/identity-access/access-control/domain/errors"
)

// Identity names a caller. Identities compare case-insensitively so that hex
// addresses match regardless of checksum casing.
type Identity string

func NewIdentity(v string) (Identity, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", domainerrors.ErrInvalidOwner
	}
	return Identity(v), nil
}

func (i Identity) Equal(other Identity) bool {
	return strings.EqualFold(strings.TrimSpace(string(i)), strings.TrimSpace(string(other)))
}

func (i Identity) String() string {
	return string(i)
}
