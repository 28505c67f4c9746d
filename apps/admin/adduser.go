package main

import (
	"context"

	"github.com/workill/worknote/core"
	"github.com/workill/worknote/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	lookup := uname
	if lookup == "" {
		lookup = email
	}

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, lookup)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username: uname,
			Email:    email,
			Role:     user.RoleTeacher,
		}
	}
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	isActive := true
	if usr.ID == "" {
		usr.IsActive = &isActive
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &isActive)
	return err
}
