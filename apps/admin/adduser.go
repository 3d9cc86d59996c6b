package main

import (
	"context"
	"time"

	"github.com/trezcool/udereva/core"
	"github.com/trezcool/udereva/core/user"
)

// addUser updates or creates a user.User.
func (cli *commandLine) addUser(name, email, pwd string, isSuperuser bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if name != "" {
		usr.Name = name
	}
	usr.IsSuperuser = isSuperuser
	usr.IsActive = true
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
