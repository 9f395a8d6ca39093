package model

type Role string

const (
	RoleTenant   Role = "TENANT"
	RoleLandlord Role = "LANDLORD"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// User mirrors the platform API's user record. A user holds one or more
// concurrent roles; the role-specific profile blocks are present only for
// the roles the user actually has.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Roles     []Role `json:"roles"`

	TenantProfile   *TenantProfile   `json:"tenantProfile,omitempty"`
	LandlordProfile *LandlordProfile `json:"landlordProfile,omitempty"`
}

type TenantProfile struct {
	UnitID        string `json:"unitId,omitempty"`
	LeaseStart    string `json:"leaseStart,omitempty"`
	LeaseEnd      string `json:"leaseEnd,omitempty"`
	MonthlyRent   int64  `json:"monthlyRentCents,omitempty"`
	AchAuthorized bool   `json:"achAuthorized,omitempty"`
}

type LandlordProfile struct {
	CompanyName   string `json:"companyName,omitempty"`
	PropertyCount int    `json:"propertyCount,omitempty"`
	PayoutAccount string `json:"payoutAccount,omitempty"`
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// PrimaryRole picks the role that decides which dashboard a login lands on.
// Admin outranks manager outranks landlord outranks tenant.
func (u *User) PrimaryRole() Role {
	order := []Role{RoleAdmin, RoleManager, RoleLandlord, RoleTenant}
	for _, r := range order {
		if u.HasRole(r) {
			return r
		}
	}
	return RoleTenant
}

// Merge shallow-merges the non-nil fields of a partial update into a copy of
// the user and returns the copy. Nested profile blocks are replaced
// wholesale when present, matching the platform's profile-update semantics.
func (u User) Merge(partial UserPatch) User {
	if partial.Email != nil {
		u.Email = *partial.Email
	}
	if partial.FirstName != nil {
		u.FirstName = *partial.FirstName
	}
	if partial.LastName != nil {
		u.LastName = *partial.LastName
	}
	if partial.Phone != nil {
		u.Phone = *partial.Phone
	}
	if partial.AvatarURL != nil {
		u.AvatarURL = *partial.AvatarURL
	}
	if partial.Roles != nil {
		u.Roles = partial.Roles
	}
	if partial.TenantProfile != nil {
		u.TenantProfile = partial.TenantProfile
	}
	if partial.LandlordProfile != nil {
		u.LandlordProfile = partial.LandlordProfile
	}
	return u
}

// UserPatch carries a partial user update. Nil fields are left untouched.
type UserPatch struct {
	Email           *string          `json:"email,omitempty"`
	FirstName       *string          `json:"firstName,omitempty"`
	LastName        *string          `json:"lastName,omitempty"`
	Phone           *string          `json:"phone,omitempty"`
	AvatarURL       *string          `json:"avatarUrl,omitempty"`
	Roles           []Role           `json:"roles,omitempty"`
	TenantProfile   *TenantProfile   `json:"tenantProfile,omitempty"`
	LandlordProfile *LandlordProfile `json:"landlordProfile,omitempty"`
}
