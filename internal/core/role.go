// AngelaMos | 2026
// role.go

package core

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleWorker    Role = "worker"
	RoleHousehold Role = "household"
	RoleAdmin     Role = "admin"
)

var roles = []Role{RoleWorker, RoleHousehold, RoleAdmin}

func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("parse role %q: %w", s, ErrInvalidInput)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleWorker, RoleHousehold, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Table is the identity table that holds records for the role.
func (r Role) Table() string {
	switch r {
	case RoleWorker:
		return "workers"
	case RoleHousehold:
		return "households"
	case RoleAdmin:
		return "admins"
	}
	return ""
}

// SelfRegisters reports whether identities of this role may sign up
// through the public registration endpoint.
func (r Role) SelfRegisters() bool {
	switch r {
	case RoleWorker, RoleHousehold:
		return true
	case RoleAdmin:
		return false
	}
	return false
}

type Status string

const (
	StatusVerifying Status = "verifying"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusVerifying, StatusActive, StatusSuspended:
		return st, nil
	}
	return "", fmt.Errorf("parse status %q: %w", s, ErrInvalidInput)
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
)
