package models

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleMerchant Role = "merchant"
	RoleAdmin    Role = "admin"
)

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
)

// User is a marketplace account: customer, merchant owner or back-office admin.
type User struct {
	ID           string     `bson:"id" json:"id"`
	Email        string     `bson:"email" json:"email"`
	Name         string     `bson:"name" json:"name"`
	Role         Role       `bson:"role" json:"role"`
	Status       UserStatus `bson:"status" json:"status"`
	PasswordHash string     `bson:"passwordHash" json:"-"`
	FCMToken     string     `bson:"fcmToken,omitempty" json:"-"`
	MerchantID   string     `bson:"merchantId,omitempty" json:"merchantId,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt" json:"updatedAt"`
	LastLoginAt  *time.Time `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
}

// UserFilter narrows user listings.
type UserFilter struct {
	Query  string     `form:"q"`
	Role   Role       `form:"role"`
	Status UserStatus `form:"status"`
	Limit  int        `form:"limit"`
	Offset int        `form:"offset"`
}

// AdminClaims is the identity carried by an admin session token.
type AdminClaims struct {
	UserID string `json:"sub"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}
