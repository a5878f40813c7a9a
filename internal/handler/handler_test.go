package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/loyalty-rewards/internal/account"
	"github.com/iliyamo/loyalty-rewards/internal/config"
	"github.com/iliyamo/loyalty-rewards/internal/gateway"
	"github.com/iliyamo/loyalty-rewards/internal/logger"
	"github.com/iliyamo/loyalty-rewards/internal/middleware"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// ---- fakes ----

type fakeUsers struct {
	byEmail  map[string]model.User
	verified []string
	signups  []repository.NewIdentity
	resets   map[string]string // user id -> new password
}

func (f *fakeUsers) Signup(_ context.Context, in repository.NewIdentity) (string, error) {
	if _, ok := f.byEmail[strings.ToLower(in.Email)]; ok {
		return "", repository.ErrEmailExists
	}
	f.signups = append(f.signups, in)
	return "new-user", nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := f.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return u, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) MarkEmailVerified(_ context.Context, id string) error {
	f.verified = append(f.verified, id)
	return nil
}

func (f *fakeUsers) ResetPassword(_ context.Context, id, password string, _ int) error {
	if f.resets == nil {
		f.resets = map[string]string{}
	}
	f.resets[id] = password
	return nil
}

type fakeTokens struct {
	live    map[string]string // hash -> user
	revoked []string
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID, hash string, _ time.Time) error {
	f.live[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (string, error) {
	uid, ok := f.live[hash]
	if !ok {
		return "", repository.ErrNotFound
	}
	return uid, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	delete(f.live, hash)
	f.revoked = append(f.revoked, hash)
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID string) error {
	for h, u := range f.live {
		if u == userID {
			delete(f.live, h)
		}
	}
	return nil
}

type fakeCodes struct {
	issued   map[string]string // purpose:email -> code
	checkErr error
}

func codeKey(purpose, email string) string { return purpose + ":" + strings.ToLower(email) }

func (f *fakeCodes) Issue(_ context.Context, email, purpose, code string, _ time.Duration, _ int, _ time.Duration) error {
	f.issued[codeKey(purpose, email)] = code
	return nil
}

func (f *fakeCodes) Check(_ context.Context, email, purpose, code string) error {
	if f.checkErr != nil {
		return f.checkErr
	}
	want, ok := f.issued[codeKey(purpose, email)]
	if !ok {
		return repository.ErrNotFound
	}
	if want != code {
		return repository.ErrCodeMismatch
	}
	return nil
}

type fakeOTPEvents struct{ got []queue.OTPRequestedEvent }

func (f *fakeOTPEvents) OTPRequested(_ context.Context, ev queue.OTPRequestedEvent) error {
	f.got = append(f.got, ev)
	return nil
}

const testSecret = "handler-secret"

type authFixture struct {
	h      *AuthHandler
	users  *fakeUsers
	tokens *fakeTokens
	codes  *fakeCodes
	events *fakeOTPEvents
	e      *echo.Echo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	hash, err := utils.HashPassword("correct-horse", 4)
	require.NoError(t, err)
	f := &authFixture{
		users: &fakeUsers{byEmail: map[string]model.User{
			"thandi@example.com": {ID: "u1", Email: "thandi@example.com", PasswordHash: hash, EmailVerified: true},
			"new@example.com":    {ID: "u2", Email: "new@example.com", PasswordHash: hash},
		}},
		tokens: &fakeTokens{live: map[string]string{}},
		codes:  &fakeCodes{issued: map[string]string{}},
		events: &fakeOTPEvents{},
	}
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 30, BcryptCost: 4,
		OTP: config.OTPConfig{TTL: 10 * time.Minute, MaxAttempts: 5, ResendAfter: time.Minute}}
	f.h = NewAuthHandler(cfg, f.users, f.tokens, f.codes, f.events, logger.Nop())

	f.e = echo.New()
	f.e.POST("/auth/v1/signup", f.h.SignUp)
	f.e.POST("/auth/v1/token", f.h.Token)
	f.e.POST("/auth/v1/verify", f.h.Verify)
	f.e.POST("/auth/v1/otp", f.h.ResendOTP)
	f.e.POST("/auth/v1/recover", f.h.Recover)
	f.e.POST("/auth/v1/recover/confirm", f.h.ResetPassword)
	f.e.POST("/auth/v1/logout", f.h.Logout, middleware.JWTAuth(testSecret))
	f.e.GET("/auth/v1/user", f.h.User, middleware.JWTAuth(testSecret))
	return f
}

func do(e *echo.Echo, method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) gateway.Session {
	t.Helper()
	var s gateway.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return s
}

// ---- auth ----

func TestSignUpValidatesForm(t *testing.T) {
	f := newAuthFixture(t)
	rec := do(f.e, http.MethodPost, "/auth/v1/signup",
		`{"email":"nope","password":"short","full_name":"A","phone":"12345"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "password")
	assert.Contains(t, body.Fields, "fullName")
	assert.Contains(t, body.Fields, "phone")
	assert.Empty(t, f.users.signups)
}

func TestSignUpRequiresPhoneAndID(t *testing.T) {
	f := newAuthFixture(t)
	rec := do(f.e, http.MethodPost, "/auth/v1/signup",
		`{"email":"lerato@example.com","password":"longenough","full_name":"Lerato M"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{
		"phone":    "Phone number is required",
		"idNumber": "ID number is required",
	}, body.Fields)
	assert.Empty(t, f.users.signups)
}

func TestSignUpHashesIDAndSendsCode(t *testing.T) {
	f := newAuthFixture(t)
	rec := do(f.e, http.MethodPost, "/auth/v1/signup",
		`{"email":"Lerato@Example.com","password":"longenough","full_name":"Lerato M","phone":"0821234567","id_number":"8001015009087"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, f.users.signups, 1)
	in := f.users.signups[0]
	require.NotNil(t, in.IDNumberHash)
	assert.NotEqual(t, "8001015009087", *in.IDNumberHash)
	assert.Len(t, *in.IDNumberHash, 64)
	require.NotNil(t, in.Phone)
	assert.Equal(t, "0821234567", *in.Phone)

	require.Len(t, f.events.got, 1)
	assert.Equal(t, "lerato@example.com", f.events.got[0].Email)
	assert.Equal(t, gateway.OTPSignup, f.events.got[0].Purpose)
	assert.Equal(t, f.codes.issued[codeKey(model.CodeConfirm, "lerato@example.com")], f.events.got[0].Code)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	rec := do(f.e, http.MethodPost, "/auth/v1/signup",
		`{"email":"thandi@example.com","password":"longenough","full_name":"Thandi","phone":"+27821234567","id_number":"8001015009087"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPasswordGrant(t *testing.T) {
	f := newAuthFixture(t)

	rec := do(f.e, http.MethodPost, "/auth/v1/token?grant_type=password",
		`{"email":"thandi@example.com","password":"wrong-password"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(f.e, http.MethodPost, "/auth/v1/token?grant_type=password",
		`{"email":"new@example.com","password":"correct-horse"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(f.e, http.MethodPost, "/auth/v1/token?grant_type=password",
		`{"email":"thandi@example.com","password":"correct-horse"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	s := decodeSession(t, rec)
	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, "bearer", s.TokenType)
	assert.NotEmpty(t, s.RefreshToken)
	claims, err := utils.ParseAccessToken(testSecret, s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)

	rec = do(f.e, http.MethodPost, "/auth/v1/token?grant_type=magic", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshGrantRotates(t *testing.T) {
	f := newAuthFixture(t)
	rec := do(f.e, http.MethodPost, "/auth/v1/token?grant_type=password",
		`{"email":"thandi@example.com","password":"correct-horse"}`, "")
	first := decodeSession(t, rec)

	rec = do(f.e, http.MethodPost, "/auth/v1/token?grant_type=refresh_token",
		`{"refresh_token":"`+first.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeSession(t, rec)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The old token was revoked by the rotation.
	rec = do(f.e, http.MethodPost, "/auth/v1/token?grant_type=refresh_token",
		`{"refresh_token":"`+first.RefreshToken+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifySignupConfirmsEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.codes.issued[codeKey(model.CodeConfirm, "new@example.com")] = "123456"

	rec := do(f.e, http.MethodPost, "/auth/v1/verify", `{"email":"new@example.com","token":"12345"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(f.e, http.MethodPost, "/auth/v1/verify", `{"email":"new@example.com","token":"654321"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(f.e, http.MethodPost, "/auth/v1/verify", `{"email":"new@example.com","token":"123456","type":"signup"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"u2"}, f.users.verified)
	assert.True(t, decodeSession(t, rec).User.EmailVerified)
}

func TestVerifyMapsCodeErrors(t *testing.T) {
	f := newAuthFixture(t)
	f.codes.checkErr = repository.ErrTooManyAttempts
	rec := do(f.e, http.MethodPost, "/auth/v1/verify", `{"email":"new@example.com","token":"123456"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	f.codes.checkErr = repository.ErrCodeExpired
	rec = do(f.e, http.MethodPost, "/auth/v1/verify", `{"email":"new@example.com","token":"123456"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "code expired")
}

func TestResendOTPDoesNotLeakUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	rec := do(f.e, http.MethodPost, "/auth/v1/otp", `{"email":"ghost@example.com"}`, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.events.got)

	rec = do(f.e, http.MethodPost, "/auth/v1/otp", `{"email":"new@example.com"}`, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, f.events.got, 1)
	assert.Equal(t, gateway.OTPSignup, f.events.got[0].Purpose)
}

func TestRecoverSendsResetCode(t *testing.T) {
	f := newAuthFixture(t)
	rec := do(f.e, http.MethodPost, "/auth/v1/recover", `{"email":"ghost@example.com"}`, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.events.got)

	rec = do(f.e, http.MethodPost, "/auth/v1/recover", `{"email":"Thandi@Example.com"}`, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, f.events.got, 1)
	assert.Equal(t, gateway.OTPRecovery, f.events.got[0].Purpose)
	assert.Equal(t, f.codes.issued[codeKey(model.CodeRecovery, "thandi@example.com")], f.events.got[0].Code)
	assert.NotContains(t, f.codes.issued, codeKey(model.CodeConfirm, "thandi@example.com"))

	rec = do(f.e, http.MethodPost, "/auth/v1/recover", `{"email":"nope"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestResetPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.codes.issued[codeKey(model.CodeConfirm, "thandi@example.com")] = "111111"
	f.codes.issued[codeKey(model.CodeRecovery, "thandi@example.com")] = "222222"

	rec := do(f.e, http.MethodPost, "/auth/v1/recover/confirm",
		`{"email":"thandi@example.com","token":"222222","password":"short"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// A confirmation code cannot reset the password.
	rec = do(f.e, http.MethodPost, "/auth/v1/recover/confirm",
		`{"email":"thandi@example.com","token":"111111","password":"brand-new-pass"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.users.resets)

	rec = do(f.e, http.MethodPost, "/auth/v1/recover/confirm",
		`{"email":"thandi@example.com","token":"222222","password":"brand-new-pass"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]string{"u1": "brand-new-pass"}, f.users.resets)
	s := decodeSession(t, rec)
	assert.Equal(t, "u1", s.User.ID)
	assert.NotEmpty(t, s.RefreshToken)
	assert.Empty(t, f.users.verified)
}

func TestResetPasswordConfirmsEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.codes.issued[codeKey(model.CodeRecovery, "new@example.com")] = "333333"

	rec := do(f.e, http.MethodPost, "/auth/v1/recover/confirm",
		`{"email":"new@example.com","token":"333333","password":"brand-new-pass"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"u2"}, f.users.verified)
	assert.True(t, decodeSession(t, rec).User.EmailVerified)
}

func TestVerifyRejectsResetCode(t *testing.T) {
	f := newAuthFixture(t)
	f.codes.issued[codeKey(model.CodeRecovery, "new@example.com")] = "444444"
	rec := do(f.e, http.MethodPost, "/auth/v1/verify", `{"email":"new@example.com","token":"444444"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.users.verified)
}

func TestLogoutRevokesAll(t *testing.T) {
	f := newAuthFixture(t)
	s := decodeSession(t, do(f.e, http.MethodPost, "/auth/v1/token?grant_type=password",
		`{"email":"thandi@example.com","password":"correct-horse"}`, ""))
	require.Len(t, f.tokens.live, 1)

	rec := do(f.e, http.MethodPost, "/auth/v1/logout", "", s.AccessToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.tokens.live)

	rec = do(f.e, http.MethodGet, "/auth/v1/user", "", s.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"u1","email":"thandi@example.com","email_verified":true}`, rec.Body.String())
}

// ---- member ----

type fakeProfiles struct{ rows map[string]*model.Profile }

func (f *fakeProfiles) GetByUserID(_ context.Context, id string) (*model.Profile, error) {
	p, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Update(_ context.Context, id string, u model.ProfileUpdate) error {
	p, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.Phone != nil {
		p.Phone = u.Phone
	}
	return nil
}

type fakeLoyalty struct {
	accounts  map[string]*model.LoyaltyAccount
	redeemErr error
	cards     map[string]string
	purchases []model.NewPurchase
}

func (f *fakeLoyalty) GetByUserID(_ context.Context, id string) (*model.LoyaltyAccount, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (f *fakeLoyalty) Redeem(_ context.Context, userID, rewardID string, validFor time.Duration) (model.Redemption, error) {
	if f.redeemErr != nil {
		return model.Redemption{}, f.redeemErr
	}
	return model.Redemption{ID: "red1", RewardID: &rewardID, RedemptionCode: "RW-00000001",
		Status: model.RedemptionActive, ExpiresAt: time.Now().Add(validFor)}, nil
}

func (f *fakeLoyalty) RecordPurchase(_ context.Context, in model.NewPurchase) (model.Purchase, error) {
	f.purchases = append(f.purchases, in)
	return model.Purchase{ID: "p1", ReceiptReference: in.ReceiptReference, TotalAmount: in.TotalAmount}, nil
}

func (f *fakeLoyalty) UserIDForCard(_ context.Context, card string) (string, error) {
	uid, ok := f.cards[card]
	if !ok {
		return "", repository.ErrNotFound
	}
	return uid, nil
}

type fakeRoleStore map[string]bool

func (f fakeRoleStore) Has(_ context.Context, userID, role string) (bool, error) {
	return f[userID+"/"+role], nil
}

func (f fakeRoleStore) HasAny(ctx context.Context, userID string, roles ...string) (bool, error) {
	for _, r := range roles {
		if f[userID+"/"+r] {
			return true, nil
		}
	}
	return false, nil
}

func asUser(uid string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.KeyUserID, uid)
			return next(c)
		}
	}
}

func TestMemberRowsAreSelfOnly(t *testing.T) {
	phone := "0821234567"
	profiles := &fakeProfiles{rows: map[string]*model.Profile{
		"u1": {ID: "u1", UserID: "u1", FullName: "Thandi", Phone: &phone},
	}}
	loyalty := &fakeLoyalty{accounts: map[string]*model.LoyaltyAccount{}}
	h := NewMemberHandler(profiles, loyalty, fakeRoleStore{"u1/admin": true}, config.RedemptionConfig{ValidFor: time.Hour})

	e := echo.New()
	e.GET("/profiles/:id", h.GetProfile, asUser("u1"))
	e.GET("/users/:id/loyalty-account", h.GetLoyaltyAccount, asUser("u1"))
	e.GET("/users/:id/roles/:role", h.HasRole, asUser("u1"))

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/profiles/u1", "", "").Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/profiles/u2", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/users/u1/loyalty-account", "", "").Code)

	rec := do(e, http.MethodGet, "/users/u1/roles/admin", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"role":"admin","has_role":true}`, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/users/u1/roles/root", "", "").Code)
}

func TestUpdateProfileValidates(t *testing.T) {
	profiles := &fakeProfiles{rows: map[string]*model.Profile{"u1": {ID: "u1", UserID: "u1", FullName: "Thandi"}}}
	h := NewMemberHandler(profiles, &fakeLoyalty{}, fakeRoleStore{}, config.RedemptionConfig{})
	e := echo.New()
	e.PATCH("/profiles/:id", h.UpdateProfile, asUser("u1"))

	rec := do(e, http.MethodPatch, "/profiles/u1", `{"phone":"555"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(e, http.MethodPatch, "/profiles/u1", `{"full_name":"Thandi Nkosi","phone":"+27821234567"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p model.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Thandi Nkosi", p.FullName)
	require.NotNil(t, p.Phone)
	assert.Equal(t, "+27821234567", *p.Phone)
}

func TestRedeemErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{nil, http.StatusCreated},
		{repository.ErrInsufficientPoints, http.StatusUnprocessableEntity},
		{repository.ErrTierTooLow, http.StatusForbidden},
		{repository.ErrOutOfStock, http.StatusConflict},
		{repository.ErrNotFound, http.StatusNotFound},
		{errors.New("deadlock"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := NewMemberHandler(&fakeProfiles{}, &fakeLoyalty{redeemErr: tc.err}, fakeRoleStore{}, config.RedemptionConfig{ValidFor: time.Hour})
		e := echo.New()
		e.POST("/rewards/:id/redeem", h.Redeem, asUser("u1"))
		assert.Equal(t, tc.status, do(e, http.MethodPost, "/rewards/r1/redeem", "", "").Code, "err=%v", tc.err)
	}
}

// ---- catalog, till, account ----

type fakeCatalog struct{ deals []model.Deal }

func (f fakeCatalog) ActiveDeals(context.Context) ([]model.Deal, error)     { return f.deals, nil }
func (f fakeCatalog) ActiveRewards(context.Context) ([]model.Reward, error) { return nil, nil }
func (f fakeCatalog) ActiveStores(context.Context) ([]model.Store, error)   { return nil, nil }

func TestDealsCategoryFilter(t *testing.T) {
	h := NewCatalogHandler(fakeCatalog{deals: []model.Deal{
		{ID: "d1", Category: "Grocery"}, {ID: "d2", Category: "beauty"}, {ID: "d3", Category: "grocery"},
	}})
	e := echo.New()
	e.GET("/deals", h.Deals)

	var got []model.Deal
	require.NoError(t, json.Unmarshal(do(e, http.MethodGet, "/deals?category=grocery", "", "").Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "d1", got[0].ID)
	assert.Equal(t, "d3", got[1].ID)

	got = nil
	require.NoError(t, json.Unmarshal(do(e, http.MethodGet, "/deals?category=all", "", "").Body.Bytes(), &got))
	assert.Len(t, got, 3)
}

func TestRecordPurchaseByCard(t *testing.T) {
	loyalty := &fakeLoyalty{cards: map[string]string{"2000000000017": "u1"}}
	h := NewTillHandler(loyalty)
	e := echo.New()
	e.POST("/purchases", h.RecordPurchase, asUser("staff1"))

	rec := do(e, http.MethodPost, "/purchases", `{"card":"2000000000017","receipt_reference":"R-9","total_amount":25000}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, loyalty.purchases, 1)
	assert.Equal(t, "u1", loyalty.purchases[0].UserID)

	rec = do(e, http.MethodPost, "/purchases", `{"card":"unknown","receipt_reference":"R-10","total_amount":100}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPost, "/purchases", `{"card":"2000000000017","receipt_reference":"R-11","total_amount":100,"discount_applied":200}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeDeleter struct {
	err error
	got string
}

func (f *fakeDeleter) Delete(_ context.Context, userID string, _ account.Request) error {
	f.got = userID
	return f.err
}

func TestDeleteAccount(t *testing.T) {
	d := &fakeDeleter{}
	e := echo.New()
	e.POST("/delete-account", NewAccountHandler(d).DeleteAccount, asUser("u1"))

	rec := do(e, http.MethodPost, "/delete-account", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", d.got)

	d.err = account.ErrDeletionFailed
	rec = do(e, http.MethodPost, "/delete-account", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "contact support")
}

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/ok", Health(nil))
	e.GET("/down", Health(downDB{}))
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/ok", "", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/down", "", "").Code)
}
