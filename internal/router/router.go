// Package router wires the gateway's handlers and middleware onto echo.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/handler"
	"github.com/iliyamo/loyalty-rewards/internal/middleware"
	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// Handlers groups the endpoint implementations.
type Handlers struct {
	Auth    *handler.AuthHandler
	Member  *handler.MemberHandler
	Catalog *handler.CatalogHandler
	History *handler.HistoryHandler
	Inbox   *handler.InboxHandler
	Till    *handler.TillHandler
	Account *handler.AccountHandler
}

// Options carries the cross-cutting pieces.  Cache and RateLimit may be nil.
type Options struct {
	JWTSecret string
	Roles     middleware.RoleChecker
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
	DB        handler.Pinger
}

// Register mounts every route:
//
//	/healthz
//	/auth/v1/...       signup, token, verify, otp, recover, logout, user
//	/rest/v1/...       rows, catalog, history, inbox, redemption, till
//	/functions/v1/...  delete-account
func Register(e *echo.Echo, h Handlers, o Options) {
	e.GET("/healthz", handler.Health(o.DB))

	var limited []echo.MiddlewareFunc
	if o.RateLimit != nil {
		limited = append(limited, o.RateLimit)
	}
	jwt := middleware.JWTAuth(o.JWTSecret)

	auth := e.Group("/auth/v1", limited...)
	auth.POST("/signup", h.Auth.SignUp)
	auth.POST("/token", h.Auth.Token)
	auth.POST("/verify", h.Auth.Verify)
	auth.POST("/otp", h.Auth.ResendOTP)
	auth.POST("/recover", h.Auth.Recover)
	auth.POST("/recover/confirm", h.Auth.ResetPassword)
	auth.POST("/logout", h.Auth.Logout, jwt)
	auth.GET("/user", h.Auth.User, jwt)

	// Both route sets share the /rest/v1 prefix, so middleware is attached
	// per route rather than per group.
	rest := e.Group("/rest/v1")
	public := append([]echo.MiddlewareFunc{}, limited...)
	if o.Cache != nil {
		public = append(public, o.Cache)
	}
	rest.GET("/deals", h.Catalog.Deals, public...)
	rest.GET("/rewards", h.Catalog.Rewards, public...)
	rest.GET("/stores", h.Catalog.Stores, public...)

	member := append([]echo.MiddlewareFunc{jwt}, limited...)
	rest.GET("/profiles/:id", h.Member.GetProfile, member...)
	rest.PATCH("/profiles/:id", h.Member.UpdateProfile, member...)
	rest.GET("/users/:id/loyalty-account", h.Member.GetLoyaltyAccount, member...)
	rest.GET("/users/:id/roles/:role", h.Member.HasRole, member...)
	rest.POST("/rewards/:id/redeem", h.Member.Redeem, member...)

	rest.GET("/me/points-history", h.History.PointsHistory, member...)
	rest.GET("/me/purchases", h.History.Purchases, member...)
	rest.GET("/me/redemptions", h.History.Redemptions, member...)

	rest.GET("/me/notifications", h.Inbox.List, member...)
	rest.POST("/me/notifications/read", h.Inbox.MarkRead, member...)
	rest.GET("/me/preferences", h.Inbox.GetPreferences, member...)
	rest.PUT("/me/preferences", h.Inbox.PutPreferences, member...)

	staff := append(append([]echo.MiddlewareFunc{}, member...),
		middleware.RequireRole(o.Roles, model.RoleStaff, model.RoleAdmin))
	rest.POST("/purchases", h.Till.RecordPurchase, staff...)

	fn := e.Group("/functions/v1", jwt)
	fn.POST("/delete-account", h.Account.DeleteAccount)
}
