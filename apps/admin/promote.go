package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core"
	"github.com/dkamau/elimu/core/user"
)

// promote assigns a role to an existing user.
func (cli *commandLine) promote(email, role string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)

	if !user.IsValidRole(role) {
		return errors.Errorf("invalid role %q", role)
	}

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	logger.Printf("role change: user=%s from=%s to=%s actor=admin-cli", usr.ID, usr.Role, role)
	usr.Role = role
	usr.UpdatedAt = time.Now().UTC()
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}

// resetPassword sets a new password for an existing user.
func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}
