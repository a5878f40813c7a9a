// Package validate implements the field checks applied to the signup, login,
// profile-edit and OTP forms.  Each Check* function returns a map of field
// name to a human readable message; an empty map means the input is valid.
package validate

import (
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	minNameLength     = 2
	maxNameLength     = 100
	otpLength         = 6
	idNumberLength    = 13
)

var (
	phonePattern = regexp.MustCompile(`^(\+27|0)\d{9}$`)
	digitsOnly   = regexp.MustCompile(`^\d+$`)
)

// Errors maps a form field to the first problem found with it.
type Errors map[string]string

// Signup holds the fields of the signup form.  Every field is required.
type Signup struct {
	FullName string
	Email    string
	Password string
	Phone    string
	IDNumber string
}

// ProfileEdit holds the editable profile fields.
type ProfileEdit struct {
	FullName string
	Phone    string
}

// Email checks the address format.
func Email(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Email is required"
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || !strings.Contains(s[strings.LastIndex(s, "@"):], ".") {
		return "Enter a valid email"
	}
	return ""
}

// Password checks the minimum length.
func Password(s string) string {
	if len(s) < minPasswordLength {
		return "Password must be 8+ chars"
	}
	return ""
}

// FullName checks the display name length in characters.
func FullName(s string) string {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n < minNameLength {
		return "Name must be at least 2 characters"
	}
	if n > maxNameLength {
		return "Name must be at most 100 characters"
	}
	return ""
}

// Phone checks a South African mobile number in local (0...) or
// international (+27...) form.
func Phone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Phone number is required"
	}
	if !phonePattern.MatchString(strings.TrimSpace(s)) {
		return "Enter a valid SA phone number (e.g. +27821234567)"
	}
	return ""
}

// IDNumber checks a 13-digit South African identity number including its
// check digit.
func IDNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "ID number is required"
	}
	if len(s) != idNumberLength || !digitsOnly.MatchString(s) {
		return "ID must be 13 digits"
	}
	if !idChecksumOK(s) {
		return "Invalid SA ID number"
	}
	return ""
}

// OTP checks a six digit verification code.
func OTP(s string) string {
	s = strings.TrimSpace(s)
	if len(s) != otpLength || !digitsOnly.MatchString(s) {
		return "Enter 6-digit code"
	}
	return ""
}

// CheckSignup validates the signup form.
func CheckSignup(in Signup) Errors {
	errs := Errors{}
	errs.add("fullName", FullName(in.FullName))
	errs.add("email", Email(in.Email))
	errs.add("password", Password(in.Password))
	errs.add("phone", Phone(in.Phone))
	errs.add("idNumber", IDNumber(in.IDNumber))
	return errs
}

// CheckLogin validates the login form.  Only presence and format are
// checked; credentials are verified by the gateway.
func CheckLogin(email, password string) Errors {
	errs := Errors{}
	errs.add("email", Email(email))
	if password == "" {
		errs.add("password", "Password is required")
	}
	return errs
}

// CheckPasswordReset validates the reset form: the address the code was
// sent to, the code, and the new password.
func CheckPasswordReset(email, code, password string) Errors {
	errs := Errors{}
	errs.add("email", Email(email))
	errs.add("code", OTP(code))
	errs.add("password", Password(password))
	return errs
}

// CheckProfileEdit validates the profile edit form.  An empty phone clears
// the stored number and is accepted.
func CheckProfileEdit(in ProfileEdit) Errors {
	errs := Errors{}
	errs.add("fullName", FullName(in.FullName))
	if strings.TrimSpace(in.Phone) != "" {
		errs.add("phone", Phone(in.Phone))
	}
	return errs
}

// HashIDNumber returns the hex SHA-256 digest of an identity number.  Only
// the digest is ever stored.
func HashIDNumber(id string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(id)))
	return hex.EncodeToString(sum[:])
}

// idChecksumOK applies the Luhn variant used by South African ID numbers:
// digits in odd positions are summed, the even-position digits are read as
// one number and doubled, and the digits of the product are added.
func idChecksumOK(s string) bool {
	sum := 0
	for i := 0; i < 12; i += 2 {
		sum += int(s[i] - '0')
	}
	even := 0
	for i := 1; i < 12; i += 2 {
		even = even*10 + int(s[i]-'0')
	}
	even *= 2
	for even > 0 {
		sum += even % 10
		even /= 10
	}
	return (10-sum%10)%10 == int(s[12]-'0')
}

func (e Errors) add(field, msg string) {
	if msg != "" {
		e[field] = msg
	}
}

// OK reports whether no errors were recorded.
func (e Errors) OK() bool { return len(e) == 0 }
