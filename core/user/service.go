package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	InitTokenGenerator([]byte(conf.SecretKey), conf.PasswordResetTimeoutDelta, conf.EmailVerificationTimeoutDelta)
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
	}
}

func (svc *Service) checkUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates a new unverified Student account and sends the email
// verification link.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        uuid.NewString(),
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      RoleStudent,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	svc.sendEmailVerificationMail(usr)
	return usr, nil
}

// VerifyEmail confirms an email verification token and flags the account verified.
func (svc *Service) VerifyEmail(ctx context.Context, data VerifyUserEmail) (User, error) {
	uid, err := DecodeUID(data.UID)
	if err != nil {
		return User{}, core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(ctx, uid)
	if err != nil {
		return User{}, core.NewValidationError(errInvalidToken)
	}
	if usr.EmailVerified {
		return usr, nil // idempotent
	}
	if err := verifyEmailVerificationToken(usr, data.Token); err != nil {
		return User{}, core.NewValidationError(err)
	}

	usr.EmailVerified = true
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Authenticate checks the credentials and returns the matching active user.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return User{}, err
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrNotFound
	}
	return usr, nil
}

// SetLastLogin stamps a successful login.
func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

// UpdateProfile applies profile-only changes; the role never moves here.
func (svc *Service) UpdateProfile(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Name = uu.Name
	usr.UpdatedAt = time.Now().UTC()
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// ElevateRole is the only operation that mutates a user's role. The
// change is audit-logged with the acting admin.
func (svc *Service) ElevateRole(ctx context.Context, actorID, userID, role string) (User, error) {
	if !IsValidRole(role) {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "unknown role"})
	}
	usr, err := svc.repo.GetUserByID(ctx, userID)
	if err != nil {
		return User{}, err
	}

	prev := usr.Role
	usr.Role = role
	usr.UpdatedAt = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}

	svc.logger.Info(
		fmt.Sprintf("role changed: user %s %s -> %s", usr.ID, prev, role),
		map[string]interface{}{"actor": actorID, "user": usr.ID, "from": prev, "to": role},
	)
	return usr, nil
}

// RequestPasswordReset mails a reset link to the account, if it exists.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/password-reset?t=%s&uid=%s", svc.conf.FrontendBaseURL, MakePasswordResetToken(usr), EncodeUID(usr))
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Password Reset",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nFollow this link to choose a new password:\n%s\n\n"+
				"If you did not request a password reset, you can ignore this email.",
			usr.Name, url,
		),
	})
	return nil
}

// ResetPassword confirms a reset token and sets the new password.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	uid, err := DecodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(ctx, uid)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	if err := verifyPasswordResetToken(usr, data.Token); err != nil {
		return core.NewValidationError(err)
	}

	if err := usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Password Changed",
		BodyStr: fmt.Sprintf("Hi %s,\n\nYour password has been changed.", usr.Name),
	})
	return nil
}

func (svc *Service) sendEmailVerificationMail(usr User) {
	url := fmt.Sprintf("%s/verify-email?t=%s&uid=%s", svc.conf.FrontendBaseURL, MakeEmailVerificationToken(usr), EncodeUID(usr))
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Welcome! Confirm your email address",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nWelcome to %s! Confirm your email address by following this link:\n%s",
			usr.Name, svc.conf.AppName, url,
		),
	})
}
