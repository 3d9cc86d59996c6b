package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/udereva/core/school"
	"github.com/trezcool/udereva/core/user"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

type schoolRow struct {
	ID                 string      `db:"id"`
	Name               string      `db:"name"`
	Slug               string      `db:"slug"`
	PrimaryColor       null.String `db:"primary_color"`
	SecondaryColor     null.String `db:"secondary_color"`
	LogoPath           null.String `db:"logo_path"`
	BannerPath         null.String `db:"banner_path"`
	ContactEmail       string      `db:"contact_email"`
	Phone              null.String `db:"phone"`
	SubscriptionStatus string      `db:"subscription_status"`
	TrialEndsAt        null.Time   `db:"trial_ends_at"`
	CreatedAt          null.Time   `db:"created_at"`
	UpdatedAt          null.Time   `db:"updated_at"`
}

func packSchool(sch school.School) schoolRow {
	return schoolRow{
		ID:                 sch.ID,
		Name:               sch.Name,
		Slug:               sch.Slug,
		PrimaryColor:       null.NewString(sch.PrimaryColor, sch.PrimaryColor != ""),
		SecondaryColor:     null.NewString(sch.SecondaryColor, sch.SecondaryColor != ""),
		LogoPath:           null.NewString(sch.LogoPath, sch.LogoPath != ""),
		BannerPath:         null.NewString(sch.BannerPath, sch.BannerPath != ""),
		ContactEmail:       sch.ContactEmail,
		Phone:              null.NewString(sch.Phone, sch.Phone != ""),
		SubscriptionStatus: sch.SubscriptionStatus,
		TrialEndsAt:        null.NewTime(sch.TrialEndsAt.UTC(), !sch.TrialEndsAt.IsZero()),
		CreatedAt:          null.NewTime(sch.CreatedAt.UTC(), !sch.CreatedAt.IsZero()),
		UpdatedAt:          null.NewTime(sch.UpdatedAt.UTC(), !sch.UpdatedAt.IsZero()),
	}
}

func (row schoolRow) unpack() school.School {
	return school.School{
		ID:                 row.ID,
		Name:               row.Name,
		Slug:               row.Slug,
		PrimaryColor:       row.PrimaryColor.String,
		SecondaryColor:     row.SecondaryColor.String,
		LogoPath:           row.LogoPath.String,
		BannerPath:         row.BannerPath.String,
		ContactEmail:       row.ContactEmail,
		Phone:              row.Phone.String,
		SubscriptionStatus: row.SubscriptionStatus,
		TrialEndsAt:        row.TrialEndsAt.Time,
		CreatedAt:          row.CreatedAt.Time,
		UpdatedAt:          row.UpdatedAt.Time,
	}
}

type memberRow struct {
	ID       string    `db:"id"`
	SchoolID string    `db:"school_id"`
	UserID   string    `db:"user_id"`
	Role     string    `db:"role"`
	Status   string    `db:"status"`
	JoinedAt null.Time `db:"joined_at"`

	UserName  null.String `db:"user_name"`
	UserEmail null.String `db:"user_email"`
}

func (row memberRow) unpack() school.Member {
	return school.Member{
		ID:        row.ID,
		SchoolID:  row.SchoolID,
		UserID:    row.UserID,
		Role:      row.Role,
		Status:    row.Status,
		JoinedAt:  row.JoinedAt.Time,
		UserName:  row.UserName.String,
		UserEmail: row.UserEmail.String,
	}
}

type joinCodeRow struct {
	ID        string    `db:"id"`
	SchoolID  string    `db:"school_id"`
	Code      string    `db:"code"`
	Role      string    `db:"role"`
	Status    string    `db:"status"`
	MaxUses   int       `db:"max_uses"`
	UsedCount int       `db:"used_count"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedBy string    `db:"created_by"`
	CreatedAt null.Time `db:"created_at"`
}

func (row joinCodeRow) unpack() school.JoinCode {
	return school.JoinCode{
		ID:        row.ID,
		SchoolID:  row.SchoolID,
		Code:      row.Code,
		Role:      row.Role,
		Status:    row.Status,
		MaxUses:   row.MaxUses,
		UsedCount: row.UsedCount,
		ExpiresAt: row.ExpiresAt,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to the given sentinel
func (repo schoolRepository) trapNoRowsErr(err, sentinel error, msg string) error {
	if err == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

// Schools

func (repo schoolRepository) CheckSlugUniqueness(ctx context.Context, slug string, excludedSchools ...school.School) error {
	q := `SELECT EXISTS (SELECT 1 FROM school WHERE slug = $1`
	args := []interface{}{slug}
	if len(excludedSchools) > 0 {
		ids := make([]string, 0, len(excludedSchools))
		for _, s := range excludedSchools {
			ids = append(ids, s.ID)
		}
		var err error
		q, args, err = sqlx.In(`SELECT EXISTS (SELECT 1 FROM school WHERE slug = ? AND id NOT IN (?))`, slug, ids)
		if err != nil {
			return errors.Wrap(err, "checking slug uniqueness")
		}
		q = repo.db.Rebind(q)
	} else {
		q += ")"
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, args...); err != nil {
		return errors.Wrap(err, "checking slug uniqueness")
	}
	if exists {
		return school.ErrSlugExists
	}
	return nil
}

func (repo schoolRepository) CreateSchoolWithOwner(ctx context.Context, sch school.School, owner user.User) (school.School, school.Member, error) {
	sch.ID = uuid.New().String()
	owner.ID = uuid.New().String()
	mbr := school.Member{
		ID:       uuid.New().String(),
		SchoolID: sch.ID,
		UserID:   owner.ID,
		Role:     school.RoleOwner,
		Status:   school.MemberActive,
		JoinedAt: sch.CreatedAt,
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return school.School{}, school.Member{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.NamedExecContext(ctx, `
		INSERT INTO school (id, name, slug, primary_color, secondary_color, logo_path, banner_path,
		                    contact_email, phone, subscription_status, trial_ends_at, created_at, updated_at)
		VALUES (:id, :name, :slug, :primary_color, :secondary_color, :logo_path, :banner_path,
		        :contact_email, :phone, :subscription_status, :trial_ends_at, :created_at, :updated_at)`,
		packSchool(sch),
	); err != nil {
		return school.School{}, school.Member{}, errors.Wrap(err, "inserting school")
	}

	if _, err = tx.NamedExecContext(ctx, `
		INSERT INTO "user" (id, name, email, phone, avatar_path, is_superuser, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :email, :phone, :avatar_path, :is_superuser, :is_active, :password_hash, :created_at, :updated_at, :last_login)`,
		packUser(owner),
	); err != nil {
		return school.School{}, school.Member{}, errors.Wrap(err, "inserting owner")
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO school_member (id, school_id, user_id, role, status, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		mbr.ID, mbr.SchoolID, mbr.UserID, mbr.Role, mbr.Status, mbr.JoinedAt,
	); err != nil {
		return school.School{}, school.Member{}, errors.Wrap(err, "inserting owner membership")
	}

	if err = tx.Commit(); err != nil {
		return school.School{}, school.Member{}, errors.Wrap(err, "committing transaction")
	}
	return sch, mbr, nil
}

func (repo schoolRepository) GetSchoolByID(ctx context.Context, id string) (school.School, error) {
	var row schoolRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM school WHERE id = $1`, id); err != nil {
		return school.School{}, repo.trapNoRowsErr(err, school.ErrNotFound, "getting school by ID")
	}
	return row.unpack(), nil
}

func (repo schoolRepository) GetSchoolBySlug(ctx context.Context, slug string) (school.School, error) {
	var row schoolRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM school WHERE slug = $1`, slug); err != nil {
		return school.School{}, repo.trapNoRowsErr(err, school.ErrNotFound, "getting school by slug")
	}
	return row.unpack(), nil
}

func (repo schoolRepository) QuerySchools(ctx context.Context) ([]school.SchoolInfo, error) {
	var rows []struct {
		schoolRow
		MemberCount int `db:"member_count"`
	}
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT s.*, COUNT(m.id) FILTER (WHERE m.status = 'active') AS member_count
		FROM school s
		LEFT JOIN school_member m ON m.school_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}

	infos := make([]school.SchoolInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, school.SchoolInfo{School: row.unpack(), MemberCount: row.MemberCount})
	}
	return infos, nil
}

// UpdateSchool only overwrites non-zero fields.
func (repo schoolRepository) UpdateSchool(ctx context.Context, sch school.School) (school.School, error) {
	orig, err := repo.GetSchoolByID(ctx, sch.ID)
	if err != nil {
		return school.School{}, err
	}
	if sch.Name == "" {
		sch.Name = orig.Name
	}
	sch.Slug = orig.Slug
	if sch.PrimaryColor == "" {
		sch.PrimaryColor = orig.PrimaryColor
	}
	if sch.SecondaryColor == "" {
		sch.SecondaryColor = orig.SecondaryColor
	}
	if sch.LogoPath == "" {
		sch.LogoPath = orig.LogoPath
	}
	if sch.BannerPath == "" {
		sch.BannerPath = orig.BannerPath
	}
	if sch.ContactEmail == "" {
		sch.ContactEmail = orig.ContactEmail
	}
	if sch.Phone == "" {
		sch.Phone = orig.Phone
	}
	if sch.SubscriptionStatus == "" {
		sch.SubscriptionStatus = orig.SubscriptionStatus
	}
	sch.TrialEndsAt = orig.TrialEndsAt
	sch.CreatedAt = orig.CreatedAt

	_, err = repo.db.NamedExecContext(ctx, `
		UPDATE school
		SET name = :name, primary_color = :primary_color, secondary_color = :secondary_color,
		    logo_path = :logo_path, banner_path = :banner_path, contact_email = :contact_email,
		    phone = :phone, subscription_status = :subscription_status, updated_at = :updated_at
		WHERE id = :id`,
		packSchool(sch),
	)
	if err != nil {
		return school.School{}, errors.Wrap(err, "updating school")
	}
	return sch, nil
}

func (repo schoolRepository) DeleteSchoolsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM school WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting schools")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting schools")
	}
	return nil
}

// Members

const memberSelect = `
	SELECT m.id, m.school_id, m.user_id, m.role, m.status, m.joined_at,
	       u.name AS user_name, u.email AS user_email
	FROM school_member m
	JOIN "user" u ON u.id = m.user_id`

func (repo schoolRepository) GetActiveMembership(ctx context.Context, userID string) (school.Member, error) {
	var row memberRow
	err := repo.db.GetContext(ctx, &row, memberSelect+` WHERE m.user_id = $1 AND m.status = 'active'`, userID)
	if err != nil {
		return school.Member{}, repo.trapNoRowsErr(err, school.ErrNoActiveMembership, "getting active membership")
	}
	return row.unpack(), nil
}

func (repo schoolRepository) GetMemberByID(ctx context.Context, schoolID, id string) (school.Member, error) {
	var row memberRow
	err := repo.db.GetContext(ctx, &row, memberSelect+` WHERE m.school_id = $1 AND m.id = $2`, schoolID, id)
	if err != nil {
		return school.Member{}, repo.trapNoRowsErr(err, school.ErrMemberNotFound, "getting member by ID")
	}
	return row.unpack(), nil
}

func (repo schoolRepository) QueryMembers(ctx context.Context, schoolID string, filter school.MemberFilter) ([]school.Member, error) {
	q := memberSelect + ` WHERE m.school_id = ?`
	args := []interface{}{schoolID}
	if filter.Role != "" {
		q += ` AND m.role = ?`
		args = append(args, filter.Role)
	}
	if filter.Status != "" {
		q += ` AND m.status = ?`
		args = append(args, filter.Status)
	}
	q = repo.db.Rebind(q + ` ORDER BY m.joined_at`)

	var rows []memberRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}

	members := make([]school.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.unpack())
	}
	return members, nil
}

func (repo schoolRepository) CreateMember(ctx context.Context, mbr school.Member) (school.Member, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO school_member (id, school_id, user_id, role, status, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		mbr.ID, mbr.SchoolID, mbr.UserID, mbr.Role, mbr.Status, mbr.JoinedAt,
	)
	if err != nil {
		return school.Member{}, errors.Wrap(err, "inserting member")
	}
	return mbr, nil
}

func (repo schoolRepository) UpdateMemberStatus(ctx context.Context, schoolID, id, status string) (school.Member, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE school_member SET status = $1 WHERE school_id = $2 AND id = $3`,
		status, schoolID, id,
	)
	if err != nil {
		return school.Member{}, errors.Wrap(err, "updating member status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Member{}, school.ErrMemberNotFound
	}
	return repo.GetMemberByID(ctx, schoolID, id)
}

// Join codes

func (repo schoolRepository) CreateJoinCode(ctx context.Context, jc school.JoinCode) (school.JoinCode, error) {
	jc.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO join_code (id, school_id, code, role, status, max_uses, used_count, expires_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		jc.ID, jc.SchoolID, jc.Code, jc.Role, jc.Status, jc.MaxUses, jc.UsedCount, jc.ExpiresAt, jc.CreatedBy, jc.CreatedAt,
	)
	if err != nil {
		return school.JoinCode{}, errors.Wrap(err, "inserting join code")
	}
	return jc, nil
}

func (repo schoolRepository) QueryJoinCodes(ctx context.Context, schoolID string) ([]school.JoinCode, error) {
	var rows []joinCodeRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM join_code WHERE school_id = $1 ORDER BY created_at DESC`, schoolID)
	if err != nil {
		return nil, errors.Wrap(err, "querying join codes")
	}

	codes := make([]school.JoinCode, 0, len(rows))
	for _, row := range rows {
		codes = append(codes, row.unpack())
	}
	return codes, nil
}

func (repo schoolRepository) GetJoinCodeByCode(ctx context.Context, code string) (school.JoinCode, error) {
	var row joinCodeRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM join_code WHERE code = $1`, code); err != nil {
		return school.JoinCode{}, repo.trapNoRowsErr(err, school.ErrCodeNotFound, "getting join code")
	}
	return row.unpack(), nil
}

// RedeemJoinCode claims one use in a single conditional UPDATE; two concurrent
// redeems of a code's last use cannot both succeed.
func (repo schoolRepository) RedeemJoinCode(ctx context.Context, code string, now time.Time) (school.JoinCode, error) {
	var row joinCodeRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE join_code
		SET used_count = used_count + 1,
		    status     = CASE WHEN used_count + 1 >= max_uses THEN 'used' ELSE status END
		WHERE code = $1 AND status = 'active' AND expires_at > $2 AND used_count < max_uses
		RETURNING *`,
		code, now,
	)
	if err == nil {
		return row.unpack(), nil
	}
	if err != sql.ErrNoRows {
		return school.JoinCode{}, errors.Wrap(err, "redeeming join code")
	}

	// the claim failed: report why
	jc, err := repo.GetJoinCodeByCode(ctx, code)
	if err != nil {
		return school.JoinCode{}, err
	}
	return school.JoinCode{}, redeemFailure(jc, now)
}

// redeemFailure explains a missed claim. A code that re-validates between the
// UPDATE and the follow-up read lost to a concurrent state change; that is
// never a successful redemption.
func redeemFailure(jc school.JoinCode, now time.Time) error {
	if err := jc.Validate(now); err != nil {
		return err
	}
	return school.ErrCodeConflict
}

func (repo schoolRepository) UpdateJoinCodeStatus(ctx context.Context, schoolID, id, status string) (school.JoinCode, error) {
	var row joinCodeRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE join_code SET status = $1 WHERE school_id = $2 AND id = $3
		RETURNING *`,
		status, schoolID, id,
	)
	if err != nil {
		return school.JoinCode{}, repo.trapNoRowsErr(err, school.ErrCodeNotFound, "updating join code status")
	}
	return row.unpack(), nil
}
