package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/udereva/core"
	"github.com/trezcool/udereva/core/school"
	"github.com/trezcool/udereva/core/user"
)

type schoolApi struct {
	svc      *school.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerSchoolAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	member memberGuard,
	svc *school.Service,
	usrSvc *user.Service,
	validate *validator.Validate,
) {
	api := schoolApi{svc: svc, usrSvc: usrSvc, validate: validate}

	sg := g.Group("/schools")

	// un-authed endpoints: signup & self-service enrollment
	sg.POST("", api.create)
	sg.POST("/join", api.join)
	sg.POST("/join-with-invite", api.joinWithInvite)

	// authed endpoints
	ag := sg.Group("/mine", jwt)
	ag.GET("", api.retrieveMine, member())
	ag.PUT("", api.updateMine, member(school.StaffRoles...))
	ag.GET("/members", api.queryMembers, member(school.StaffRoles...))
	ag.PUT("/members/:id", api.updateMember, member(school.StaffRoles...))
	ag.POST("/codes", api.issueJoinCode, member(school.StaffRoles...))
	ag.GET("/codes", api.queryJoinCodes, member(school.StaffRoles...))
	ag.DELETE("/codes/:id", api.revokeJoinCode, member(school.StaffRoles...))
	ag.POST("/invites", api.inviteMember, member(school.StaffRoles...))
}

// Handlers

func (api *schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(api.validate, api.svc, api.usrSvc); err != nil {
		return err
	}

	sch, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (api *schoolApi) retrieveMine(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}
	sch, err := api.svc.GetByID(ctx.Request().Context(), mbr.SchoolID)
	if err != nil {
		return errors.Wrap(err, "finding school by ID")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) updateMine(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}
	sch, err := api.svc.GetByID(ctx.Request().Context(), mbr.SchoolID)
	if err != nil {
		return errors.Wrap(err, "finding school by ID")
	}

	var data school.UpdateSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchool")
	}
	if err := data.Validate(sch, api.validate); err != nil {
		return err
	}

	sch, err = api.svc.Update(ctx.Request().Context(), sch.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) queryMembers(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	var filter school.MemberFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to MemberFilter")
	}

	members, err := api.svc.QueryMembers(ctx.Request().Context(), mbr.SchoolID, filter)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	if members == nil {
		members = []school.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *schoolApi) updateMember(ctx echo.Context) error {
	ctxMbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	target, err := api.svc.GetMember(ctx.Request().Context(), ctxMbr.SchoolID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == school.ErrMemberNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding member by ID")
	}
	// the owner cannot be suspended or removed
	if target.Role == school.RoleOwner {
		return errHttpForbidden
	}

	var data school.UpdateMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMember")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	target, err = api.svc.UpdateMemberStatus(ctx.Request().Context(), ctxMbr.SchoolID, target.ID, data.Status)
	if err != nil {
		return errors.Wrap(err, "updating member status")
	}
	return ctx.JSON(http.StatusOK, target)
}

// Join codes

func (api *schoolApi) issueJoinCode(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	var data school.NewJoinCode
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewJoinCode")
	}
	if err := data.Validate(api.validate, time.Now().UTC(), api.svc.JoinCodeDefaultTimeout()); err != nil {
		return err
	}

	jc, err := api.svc.IssueJoinCode(ctx.Request().Context(), mbr.SchoolID, mbr.UserID, data)
	if err != nil {
		return errors.Wrap(err, "issuing join code")
	}
	return ctx.JSON(http.StatusCreated, jc)
}

func (api *schoolApi) queryJoinCodes(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	codes, err := api.svc.QueryJoinCodes(ctx.Request().Context(), mbr.SchoolID)
	if err != nil {
		return errors.Wrap(err, "querying join codes")
	}

	now := time.Now().UTC()
	resp := make([]JoinCodeResponse, 0, len(codes))
	for _, jc := range codes {
		resp = append(resp, JoinCodeResponse{JoinCode: jc, DisplayStatus: jc.DisplayStatus(now)})
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *schoolApi) revokeJoinCode(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}

	if _, err := api.svc.RevokeJoinCode(ctx.Request().Context(), mbr.SchoolID, ctx.Param("id")); err != nil {
		if errors.Cause(err) == school.ErrCodeNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "revoking join code")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) join(ctx echo.Context) error {
	var data JoinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err := data.Validate(api.validate, api.usrSvc); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()

	// reject a bad code before the account exists; a typo must not leave an
	// orphan user behind that blocks a retry on email uniqueness
	if err := api.svc.ValidateCode(reqCtx, data.Code); err != nil {
		if verr := joinCodeError(err); verr != nil {
			return verr
		}
		return errors.Wrap(err, "validating join code")
	}

	usr, err := api.usrSvc.Create(reqCtx, data.NewUser)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}

	mbr, err := api.svc.Redeem(reqCtx, data.Code, usr)
	if err != nil {
		// the code was claimed out from under us; the fresh account is useless
		// without a membership, drop it so the student can retry
		if derr := api.usrSvc.Delete(reqCtx, usr.ID); derr != nil {
			return errors.Wrap(derr, "deleting user after failed redemption")
		}
		if verr := joinCodeError(err); verr != nil {
			return verr
		}
		return errors.Wrap(err, "redeeming join code")
	}

	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, JoinResponse{Token: token, Member: mbr})
}

// Invites

func (api *schoolApi) inviteMember(ctx echo.Context) error {
	mbr, err := getContextMember(ctx)
	if err != nil {
		return err
	}
	sch, err := api.svc.GetByID(ctx.Request().Context(), mbr.SchoolID)
	if err != nil {
		return errors.Wrap(err, "finding school by ID")
	}

	var data InviteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InviteRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.InviteMember(ctx.Request().Context(), sch, data.Email, data.Name, data.Role); err != nil {
		return errors.Wrap(err, "inviting member")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Invitation sent."})
}

func (api *schoolApi) joinWithInvite(ctx echo.Context) error {
	var data JoinWithInviteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinWithInviteRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	inv, err := api.svc.VerifyInvite(data.Token)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	usr, err := api.usrSvc.GetByEmail(reqCtx, inv.Email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return errors.Wrap(err, "finding user by email")
		}
		// invitee has no account yet; create one from the payload
		nu := user.NewUser{
			Name:            data.Name,
			Email:           inv.Email,
			Password:        data.Password,
			PasswordConfirm: data.PasswordConfirm,
		}
		if err = nu.Validate(api.validate, api.usrSvc); err != nil {
			return err
		}
		if usr, err = api.usrSvc.Create(reqCtx, nu); err != nil {
			return errors.Wrap(err, "creating user")
		}
	}

	mbr, err := api.svc.AddMember(reqCtx, inv.SchoolID, usr, inv.Role)
	if err != nil {
		if errors.Cause(err) == school.ErrAlreadyMember {
			return core.NewValidationError(school.ErrAlreadyMember)
		}
		return errors.Wrap(err, "adding member")
	}

	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, JoinResponse{Token: token, Member: mbr})
}

type (
	JoinRequest struct {
		user.NewUser
		Code string `json:"code" validate:"required,len=8"`
	}

	JoinResponse struct {
		Token  string        `json:"token"`
		Member school.Member `json:"member"`
	}

	JoinCodeResponse struct {
		school.JoinCode
		DisplayStatus string `json:"display_status"`
	}

	InviteRequest struct {
		Name  string `json:"name" validate:"required"`
		Email string `json:"email" validate:"required,email"`
		Role  string `json:"role" validate:"omitempty,oneof=student admin"`
	}

	JoinWithInviteRequest struct {
		Token           string `json:"token" validate:"required"`
		Name            string `json:"name"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
	}
)

// joinCodeError maps redemption failures to a "code" field error; nil for
// errors that are not about the code itself.
func joinCodeError(err error) error {
	switch errors.Cause(err) {
	case school.ErrCodeNotFound, school.ErrCodeRevoked, school.ErrCodeExpired,
		school.ErrCodeExhausted, school.ErrCodeConflict:
		return core.NewValidationError(err, core.FieldError{Field: "code", Error: errors.Cause(err).Error()})
	}
	return nil
}

func (r *JoinRequest) Validate(validate *validator.Validate, usrSvc *user.Service) error {
	r.Code = strings.ToUpper(core.CleanString(r.Code))
	if err := validate.StructPartial(r, "Code"); err != nil {
		return err
	}
	return r.NewUser.Validate(validate, usrSvc)
}

func (r *InviteRequest) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	r.Email = core.CleanString(r.Email, true /* lower */)
	if r.Role == "" {
		r.Role = school.RoleStudent
	}
	return validate.Struct(r)
}

func (r *JoinWithInviteRequest) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	return validate.Struct(r)
}
