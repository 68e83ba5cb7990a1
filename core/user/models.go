package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkamau/elimu/core"
	"github.com/dkamau/elimu/core/auth"
)

// Roles. A user holds exactly one; it is authoritative and changed only
// by an explicit elevation action.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

var (
	AllRoles = []string{RoleStudent, RoleInstructor, RoleAdmin}

	rolePriorities = map[string]int{
		RoleAdmin:      3,
		RoleInstructor: 2,
		RoleStudent:    1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Instructor", Value: RoleInstructor},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func IsValidRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	IsActive      bool      `json:"is_active"`
	PasswordHash  []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
	LastLogin     time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool      { return u.Role == RoleAdmin }
func (u *User) IsInstructor() bool { return u.Role == RoleInstructor }
func (u *User) IsStudent() bool    { return u.Role == RoleStudent }

// Identity returns the normalized identity context snapshot for this user.
func (u *User) Identity() auth.Identity {
	return auth.Identity{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an
// existing User. Role is deliberately absent: it only moves through the
// explicit elevation action.
type UpdateUser struct {
	Name            string `json:"name"`
	Password        string `json:"password" validate:"omitempty,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	return validate.Struct(uu)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type VerifyUserEmail struct {
	Token string `json:"token,omitempty" validate:"required"`
	UID   string `json:"uid,omitempty" validate:"required"`
}

func (ve *VerifyUserEmail) Validate(validate *validator.Validate) error {
	return validate.Struct(ve)
}
