package user

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	UsernameMinLength = 2
	UsernameMaxLength = 15
	PasswordMinLength = 6
)

// Email Value object - immutable, represents email address
type Email struct {
	value string
}

// NewEmail trims and lower-cases before validating.
func NewEmail(email string) (Email, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRegex.MatchString(email) {
		return Email{}, NewInvalidEmailError(email)
	}
	return Email{value: email}, nil
}

func (e Email) Value() string           { return e.value }
func (e Email) Equals(other Email) bool { return e.value == other.value }
func (e Email) IsZero() bool            { return e.value == "" }
func (e Email) String() string          { return e.value }

// Username Value object
type Username struct {
	value string
}

func NewUsername(name string) (Username, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < UsernameMinLength || n > UsernameMaxLength {
		return Username{}, NewInvalidUsernameError(name)
	}
	return Username{value: name}, nil
}

func (u Username) Value() string              { return u.value }
func (u Username) Equals(other Username) bool { return u.value == other.value }
func (u Username) IsZero() bool               { return u.value == "" }
func (u Username) String() string             { return u.value }

// Password Value object - holds either a plain text or a bcrypt-hashed value.
type Password struct {
	value  string
	hashed bool
}

// NewPassword validates a plain text password.
func NewPassword(plain string) (Password, error) {
	if utf8.RuneCountInString(plain) < PasswordMinLength {
		return Password{}, NewInvalidPasswordError()
	}
	return Password{value: plain}, nil
}

// PasswordFromHash wraps a stored bcrypt hash.
func PasswordFromHash(hash string) Password {
	return Password{value: hash, hashed: true}
}

func (p Password) IsHashed() bool { return p.hashed }
func (p Password) IsZero() bool   { return p.value == "" }

// Value returns the stored text, which is a hash when IsHashed is true.
func (p Password) Value() string { return p.value }

// Hash returns a hashed copy. Hashing an already hashed password is a no-op.
func (p Password) Hash() (Password, error) {
	if p.hashed {
		return p, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(p.value), bcrypt.DefaultCost)
	if err != nil {
		return Password{}, err
	}
	return Password{value: string(hash), hashed: true}, nil
}

// ComparePassword reports whether plain matches this password.
func (p Password) ComparePassword(plain string) (bool, error) {
	if !p.hashed {
		return p.value == plain, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(p.value), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return err == nil, err
}

// String never reveals the password.
func (p Password) String() string { return "********" }

// JWTToken is a signed access token.
type JWTToken string

// RefreshToken is an opaque token used to obtain a new access token.
type RefreshToken string
