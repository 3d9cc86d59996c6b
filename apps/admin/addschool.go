package main

import (
	"context"
	"time"

	"github.com/trezcool/udereva/core"
	"github.com/trezcool/udereva/core/school"
	"github.com/trezcool/udereva/core/user"
)

// addSchool creates a school together with its owner account. The owner
// membership is written in the same transaction as the school.
func (cli *commandLine) addSchool(name, contactEmail, ownerEmail, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	contactEmail = core.CleanString(contactEmail, true /* lower */)
	ownerEmail = core.CleanString(ownerEmail, true /* lower */)

	if err := cli.schoolRepo.CheckSlugUniqueness(ctx, core.Slugify(name)); err != nil {
		return err
	}
	if err := cli.usrRepo.CheckEmailUniqueness(ctx, ownerEmail); err != nil {
		return err
	}

	now := time.Now().UTC()
	owner := user.User{
		Name:      name + " Owner",
		Email:     ownerEmail,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := owner.SetPassword(pwd); err != nil {
		return err
	}

	sch := school.School{
		Name:               name,
		Slug:               core.Slugify(name),
		ContactEmail:       contactEmail,
		SubscriptionStatus: school.SubscriptionTrialing,
		TrialEndsAt:        now.Add(cli.conf.TrialPeriodDelta),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if _, _, err := cli.schoolRepo.CreateSchoolWithOwner(ctx, sch, owner); err != nil {
		return err
	}
	return nil
}
