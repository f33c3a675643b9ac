package auth

import "time"

// LoginSession is the audit record of one dashboard sign-in.
type LoginSession struct {
	ID        string
	Username  string
	Role      string
	Group     string
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}

// LoginInput is the submitted login form.
type LoginInput struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	Role     string `form:"role" validate:"required,oneof=Admin Manager"`
}
