package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core"
	"github.com/dkamau/elimu/core/user"
)

// addUser updates or creates a user.User. Accounts made here are active
// and email-verified; they come from an operator, not a signup form.
func (cli *commandLine) addUser(name, email, pwd, role string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)

	if !user.IsValidRole(role) {
		return errors.Errorf("invalid role %q", role)
	}

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{
			ID:        uuid.NewString(),
			Email:     email,
			CreatedAt: now,
		}
	}
	usr.Name = name
	usr.Role = role
	usr.IsActive = true
	usr.EmailVerified = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
