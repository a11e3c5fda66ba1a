package model

import (
	"database/sql/driver"
	"fmt"
)

// Role is the closed set of account roles. The zero value is not a valid
// role; use ParseRole to convert untrusted input.
type Role uint8

const (
	RoleIntern Role = iota + 1
	RoleAdmin
)

// ParseRole converts a lowercase role name into a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "intern":
		return RoleIntern, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// String returns the lowercase role name used on the wire and in storage.
func (r Role) String() string {
	switch r {
	case RoleIntern:
		return "intern"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleIntern, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer so roles are stored as their names.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return r.String(), nil
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
}
