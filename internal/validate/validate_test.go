package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	assert.Empty(t, Email("thandi@example.co.za"))
	assert.NotEmpty(t, Email(""))
	assert.NotEmpty(t, Email("not-an-email"))
	assert.NotEmpty(t, Email("Thandi <thandi@example.com>"))
	assert.NotEmpty(t, Email("thandi@localhost"))
}

func TestPhone(t *testing.T) {
	for _, ok := range []string{"+27821234567", "0821234567"} {
		assert.Empty(t, Phone(ok), ok)
	}
	for _, bad := range []string{"821234567", "+2782123456", "+44821234567", "08212345678"} {
		assert.NotEmpty(t, Phone(bad), bad)
	}
}

func TestIDNumber(t *testing.T) {
	assert.Empty(t, IDNumber("8001015009087"))
	assert.Equal(t, "Invalid SA ID number", IDNumber("8001015009086"))
	assert.Equal(t, "ID must be 13 digits", IDNumber("800101500908"))
	assert.Equal(t, "ID must be 13 digits", IDNumber("80010150090a7"))
}

func TestCheckSignup(t *testing.T) {
	errs := CheckSignup(Signup{
		FullName: "Thandi Nkosi",
		Email:    "thandi@example.com",
		Password: "supersecret",
		Phone:    "0821234567",
		IDNumber: "8001015009087",
	})
	assert.True(t, errs.OK())

	errs = CheckSignup(Signup{
		FullName: "Thandi M",
		Email:    "t@example.co.za",
		Password: "password1",
	})
	assert.Equal(t, Errors{
		"phone":    "Phone number is required",
		"idNumber": "ID number is required",
	}, errs)

	errs = CheckSignup(Signup{
		FullName: "T",
		Email:    "bad",
		Password: "short",
		Phone:    "123",
		IDNumber: "1",
	})
	assert.Len(t, errs, 5)
	assert.Contains(t, errs, "phone")
	assert.Contains(t, errs, "idNumber")
}

func TestCheckProfileEditAllowsEmptyPhone(t *testing.T) {
	assert.True(t, CheckProfileEdit(ProfileEdit{FullName: "Sipho"}).OK())
	assert.False(t, CheckProfileEdit(ProfileEdit{FullName: "Sipho", Phone: "12"}).OK())
}

func TestCheckLogin(t *testing.T) {
	assert.True(t, CheckLogin("a@b.co", "x").OK())
	errs := CheckLogin("a@b.co", "")
	assert.Equal(t, "Password is required", errs["password"])
}

func TestCheckPasswordReset(t *testing.T) {
	assert.True(t, CheckPasswordReset("a@b.co", "123456", "new-password").OK())
	errs := CheckPasswordReset("a@b.co", "12", "short")
	assert.Len(t, errs, 2)
	assert.Contains(t, errs, "code")
	assert.Contains(t, errs, "password")
}

func TestOTP(t *testing.T) {
	assert.Empty(t, OTP("123456"))
	assert.NotEmpty(t, OTP("12345"))
	assert.NotEmpty(t, OTP("12a456"))
}

func TestHashIDNumber(t *testing.T) {
	assert.Equal(t,
		"41ff83e66446af998b8ce33cccb2c7cb9295ed586220b77d48ed877bb08c10e2",
		HashIDNumber("8001015009087"))
}
