package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/udereva/core"
	"github.com/trezcool/udereva/core/user"
)

// Member roles, by decreasing privilege.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

var (
	AllRoles   = []string{RoleOwner, RoleAdmin, RoleStudent}
	StaffRoles = []string{RoleOwner, RoleAdmin}

	rolePriorities = map[string]int{
		RoleOwner:   30,
		RoleAdmin:   20,
		RoleStudent: 10,
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

// Member statuses.
const (
	MemberActive    = "active"
	MemberSuspended = "suspended"
	MemberRemoved   = "removed"
)

// Subscription statuses.
const (
	SubscriptionActive     = "active"
	SubscriptionTrialing   = "trialing"
	SubscriptionPastDue    = "past_due"
	SubscriptionCanceled   = "canceled"
	SubscriptionIncomplete = "incomplete"
)

var SubscriptionStatuses = []string{
	SubscriptionActive, SubscriptionTrialing, SubscriptionPastDue, SubscriptionCanceled, SubscriptionIncomplete,
}

// School is the tenant root; all content, memberships, codes, events and forum
// entries hang off one School.
type School struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Slug               string    `json:"slug"`
	PrimaryColor       string    `json:"primary_color"`
	SecondaryColor     string    `json:"secondary_color"`
	LogoPath           string    `json:"logo_path"`
	BannerPath         string    `json:"banner_path"`
	ContactEmail       string    `json:"contact_email"`
	Phone              string    `json:"phone"`
	SubscriptionStatus string    `json:"subscription_status"`
	TrialEndsAt        time.Time `json:"trial_ends_at"`
	CreatedAt          time.Time `json:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at"` // UTC
}

// SchoolInfo is a School with cross-tenant stats; super-admin listings only.
type SchoolInfo struct {
	School
	MemberCount int `json:"member_count"`
}

// Member ties a user to a school with a role. A user's single active
// membership determines their effective role and tenant scope.
type Member struct {
	ID       string    `json:"id"`
	SchoolID string    `json:"school_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joined_at"` // UTC

	// denormalized for listings
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

func (m Member) IsStaff() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

// NewSchool contains information needed to sign up a school with its owner account.
type NewSchool struct {
	Name                 string `json:"name" validate:"required"`
	Slug                 string `json:"slug" validate:"omitempty,slug"`
	ContactEmail         string `json:"contact_email" validate:"required,email"`
	Phone                string `json:"phone" validate:"omitempty,min=6"`
	OwnerName            string `json:"owner_name" validate:"required"`
	OwnerEmail           string `json:"owner_email" validate:"required,email"`
	OwnerPassword        string `json:"owner_password" validate:"required"`
	OwnerPasswordConfirm string `json:"owner_password_confirm" validate:"required,eqfield=OwnerPassword"`
}

func (ns *NewSchool) Validate(validate *validator.Validate, svc *Service, usrSvc *user.Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Slug = core.CleanString(ns.Slug, true /* lower */)
	if ns.Slug == "" {
		ns.Slug = core.Slugify(ns.Name)
	}
	ns.ContactEmail = core.CleanString(ns.ContactEmail, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.OwnerName = core.CleanString(ns.OwnerName)
	ns.OwnerEmail = core.CleanString(ns.OwnerEmail, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if err := svc.CheckSlugUniqueness(ns.Slug); err != nil {
		return err
	}
	return usrSvc.CheckUniqueness(ns.OwnerEmail)
}

// UpdateSchool defines what information may be provided to modify an existing School.
type UpdateSchool struct {
	Name           string `json:"name"`
	PrimaryColor   string `json:"primary_color" validate:"omitempty,hexcolor_"`
	SecondaryColor string `json:"secondary_color" validate:"omitempty,hexcolor_"`
	LogoPath       string `json:"logo_path"`
	BannerPath     string `json:"banner_path"`
	ContactEmail   string `json:"contact_email" validate:"omitempty,email"`
	Phone          string `json:"phone" validate:"omitempty,min=6"`
}

func (us *UpdateSchool) Validate(orig School, validate *validator.Validate) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if email := core.CleanString(us.ContactEmail, true /* lower */); email != "" {
		us.ContactEmail = email
	} else {
		us.ContactEmail = orig.ContactEmail
	}
	return validate.Struct(us)
}

// UpdateMember defines a member status change (suspend/restore/remove).
type UpdateMember struct {
	Status string `json:"status" validate:"required,oneof=active suspended removed"`
}

func (um *UpdateMember) Validate(validate *validator.Validate) error {
	return validate.Struct(um)
}

type MemberFilter struct {
	Role   string `query:"role"`
	Status string `query:"status"`
}

func (mf *MemberFilter) Clean() {
	mf.Role = core.CleanString(mf.Role, true /* lower */)
	mf.Status = core.CleanString(mf.Status, true /* lower */)
}
