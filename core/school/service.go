package school

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/udereva/core"
	"github.com/trezcool/udereva/core/user"
)

var (
	ErrNotFound           = errors.New("school not found")
	ErrSlugExists         = errors.New("a school with this slug already exists")
	ErrMemberNotFound     = errors.New("member not found")
	ErrNoActiveMembership = errors.New("no active school membership")
	ErrAlreadyMember      = errors.New("user is already a member of this school")
)

type (
	Repository interface {
		CheckSlugUniqueness(ctx context.Context, slug string, excludedSchools ...School) error
		// CreateSchoolWithOwner creates the school, the owner account and the
		// owner membership in a single transaction.
		CreateSchoolWithOwner(ctx context.Context, sch School, owner user.User) (School, Member, error)
		GetSchoolByID(ctx context.Context, id string) (School, error)
		GetSchoolBySlug(ctx context.Context, slug string) (School, error)
		QuerySchools(ctx context.Context) ([]SchoolInfo, error)
		UpdateSchool(ctx context.Context, sch School) (School, error)
		DeleteSchoolsByID(ctx context.Context, ids ...string) error

		GetActiveMembership(ctx context.Context, userID string) (Member, error)
		GetMemberByID(ctx context.Context, schoolID, id string) (Member, error)
		QueryMembers(ctx context.Context, schoolID string, filter MemberFilter) ([]Member, error)
		CreateMember(ctx context.Context, mbr Member) (Member, error)
		UpdateMemberStatus(ctx context.Context, schoolID, id, status string) (Member, error)

		CreateJoinCode(ctx context.Context, code JoinCode) (JoinCode, error)
		QueryJoinCodes(ctx context.Context, schoolID string) ([]JoinCode, error)
		GetJoinCodeByCode(ctx context.Context, code string) (JoinCode, error)
		// RedeemJoinCode atomically increments used_count iff the code is still
		// redeemable at `now`, flipping status to "used" when the limit is hit.
		// Returns the reason (ErrCode*) when the code cannot be redeemed;
		// used_count is left untouched in that case.
		RedeemJoinCode(ctx context.Context, code string, now time.Time) (JoinCode, error)
		UpdateJoinCodeStatus(ctx context.Context, schoolID, id, status string) (JoinCode, error)
	}

	Service struct {
		repo Repository
		mail core.EmailService
		conf *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	// invite tokens derive from the app secret
	secretKey = conf.SecretKey
	inviteExpirationDelta = conf.Server.InviteExpirationDelta
	return &Service{repo: repo, mail: mailSvc, conf: conf}
}

func (svc *Service) CheckSlugUniqueness(slug string, exclSchools ...School) error {
	if err := svc.repo.CheckSlugUniqueness(context.Background(), slug, exclSchools...); err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create signs up a school: the school record, its owner account and the owner
// membership are created together. New schools start a trial.
func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	now := time.Now().UTC()
	sch := School{
		Name:               ns.Name,
		Slug:               ns.Slug,
		ContactEmail:       ns.ContactEmail,
		Phone:              ns.Phone,
		SubscriptionStatus: SubscriptionTrialing,
		TrialEndsAt:        now.Add(svc.conf.TrialPeriodDelta),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	owner := user.User{
		Name:      ns.OwnerName,
		Email:     ns.OwnerEmail,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := owner.SetPassword(ns.OwnerPassword); err != nil {
		return School{}, errors.Wrap(err, "hashing owner password")
	}

	sch, _, err := svc.repo.CreateSchoolWithOwner(ctx, sch, owner)
	return sch, err
}

func (svc *Service) GetByID(ctx context.Context, id string) (School, error) {
	return svc.repo.GetSchoolByID(ctx, id)
}

func (svc *Service) GetBySlug(ctx context.Context, slug string) (School, error) {
	return svc.repo.GetSchoolBySlug(ctx, core.CleanString(slug, true /* lower */))
}

func (svc *Service) QueryAll(ctx context.Context) ([]SchoolInfo, error) {
	return svc.repo.QuerySchools(ctx)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateSchool) (School, error) {
	sch := School{
		ID:             id,
		Name:           us.Name,
		PrimaryColor:   us.PrimaryColor,
		SecondaryColor: us.SecondaryColor,
		LogoPath:       us.LogoPath,
		BannerPath:     us.BannerPath,
		ContactEmail:   us.ContactEmail,
		Phone:          us.Phone,
		UpdatedAt:      time.Now().UTC(),
	}
	return svc.repo.UpdateSchool(ctx, sch)
}

func (svc *Service) SetSubscriptionStatus(ctx context.Context, id, status string) (School, error) {
	sch, err := svc.repo.GetSchoolByID(ctx, id)
	if err != nil {
		return School{}, err
	}
	sch.SubscriptionStatus = status
	sch.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSchool(ctx, sch)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteSchoolsByID(ctx, ids...)
}

// ActiveMembership resolves the caller's tenant scope; ErrNoActiveMembership
// when the user belongs to no school (or only as suspended/removed).
func (svc *Service) ActiveMembership(ctx context.Context, userID string) (Member, error) {
	return svc.repo.GetActiveMembership(ctx, userID)
}

func (svc *Service) GetMember(ctx context.Context, schoolID, id string) (Member, error) {
	return svc.repo.GetMemberByID(ctx, schoolID, id)
}

func (svc *Service) QueryMembers(ctx context.Context, schoolID string, filter MemberFilter) ([]Member, error) {
	filter.Clean()
	return svc.repo.QueryMembers(ctx, schoolID, filter)
}

func (svc *Service) UpdateMemberStatus(ctx context.Context, schoolID, memberID, status string) (Member, error) {
	return svc.repo.UpdateMemberStatus(ctx, schoolID, memberID, status)
}

// AddMember enrolls a user into a school.
func (svc *Service) AddMember(ctx context.Context, schoolID string, usr user.User, role string) (Member, error) {
	if _, err := svc.repo.GetActiveMembership(ctx, usr.ID); err == nil {
		return Member{}, ErrAlreadyMember
	} else if errors.Cause(err) != ErrNoActiveMembership {
		return Member{}, errors.Wrap(err, "checking existing membership")
	}

	mbr := Member{
		ID:       uuid.New().String(),
		SchoolID: schoolID,
		UserID:   usr.ID,
		Role:     role,
		Status:   MemberActive,
		JoinedAt: time.Now().UTC(),
	}
	return svc.repo.CreateMember(ctx, mbr)
}

// Join codes

// JoinCodeDefaultTimeout is the expiry applied to new codes that do not set one.
func (svc *Service) JoinCodeDefaultTimeout() time.Duration {
	return svc.conf.Server.JoinCodeTimeoutDelta
}

func (svc *Service) IssueJoinCode(ctx context.Context, schoolID, createdBy string, nc NewJoinCode) (JoinCode, error) {
	code, err := generateCode()
	if err != nil {
		return JoinCode{}, errors.Wrap(err, "generating join code")
	}
	jc := JoinCode{
		SchoolID:  schoolID,
		Code:      code,
		Role:      nc.Role,
		Status:    CodeActive,
		MaxUses:   nc.MaxUses,
		UsedCount: 0,
		ExpiresAt: nc.ExpiresAt.UTC(),
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateJoinCode(ctx, jc)
}

func (svc *Service) QueryJoinCodes(ctx context.Context, schoolID string) ([]JoinCode, error) {
	return svc.repo.QueryJoinCodes(ctx, schoolID)
}

func (svc *Service) RevokeJoinCode(ctx context.Context, schoolID, codeID string) (JoinCode, error) {
	return svc.repo.UpdateJoinCodeStatus(ctx, schoolID, codeID, CodeRevoked)
}

// Redeem consumes one use of a join code and enrolls the user with the code's
// role. The increment is atomic; over-redemption past MaxUses is impossible
// under concurrent redemptions.
func (svc *Service) Redeem(ctx context.Context, code string, usr user.User) (Member, error) {
	// a use is only consumed once the user is known to be enrollable
	if _, err := svc.repo.GetActiveMembership(ctx, usr.ID); err == nil {
		return Member{}, ErrAlreadyMember
	} else if errors.Cause(err) != ErrNoActiveMembership {
		return Member{}, errors.Wrap(err, "checking existing membership")
	}

	jc, err := svc.repo.RedeemJoinCode(ctx, strings.ToUpper(core.CleanString(code)), time.Now().UTC())
	if err != nil {
		return Member{}, err
	}
	return svc.AddMember(ctx, jc.SchoolID, usr, jc.Role)
}

// ValidateCode reports whether the code can currently be redeemed, without
// consuming a use.
func (svc *Service) ValidateCode(ctx context.Context, code string) error {
	jc, err := svc.repo.GetJoinCodeByCode(ctx, strings.ToUpper(core.CleanString(code)))
	if err != nil {
		return err
	}
	return jc.Validate(time.Now().UTC())
}

// Invites

// InviteMember emails a signed invitation to join the school.
func (svc *Service) InviteMember(ctx context.Context, sch School, email, name, role string) error {
	email = core.CleanString(email, true /* lower */)
	token := makeInviteToken(Invite{SchoolID: sch.ID, Email: email, Role: role})

	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: email}},
		Subject:      "Invitation to join " + sch.Name,
		TemplateName: "school_invite",
		TemplateData: struct {
			Name       string
			SchoolName string
			Token      string
		}{name, sch.Name, token},
	})
	return nil
}

// VerifyInvite checks an invitation token and returns its payload.
func (svc *Service) VerifyInvite(token string) (Invite, error) {
	inv, err := verifyInviteToken(token)
	if err != nil {
		return Invite{}, core.NewValidationError(err)
	}
	return inv, nil
}
