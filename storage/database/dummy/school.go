package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/udereva/core/school"
	"github.com/trezcool/udereva/core/user"
)

type schoolRepository struct {
	db    *schoolTable
	users *userTable
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db.school, users: db.user}
}

// denormalize fills the member's user fields from the user table.
func (repo *schoolRepository) denormalize(mbr school.Member) school.Member {
	repo.users.RLock()
	defer repo.users.RUnlock()

	if usr, ok := repo.users.table[mbr.UserID]; ok {
		mbr.UserName = usr.Name
		mbr.UserEmail = usr.Email
	}
	return mbr
}

// Schools

func (repo *schoolRepository) CheckSlugUniqueness(ctx context.Context, slug string, excludedSchools ...school.School) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedSchools))
	for _, s := range excludedSchools {
		excluded[s.ID] = true
	}

	for _, sch := range repo.db.schools {
		if sch.Slug == slug && !excluded[sch.ID] {
			return school.ErrSlugExists
		}
	}
	return nil
}

func (repo *schoolRepository) CreateSchoolWithOwner(ctx context.Context, sch school.School, owner user.User) (school.School, school.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.users.Lock()
	defer repo.users.Unlock()

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

	repo.db.schools[sch.ID] = &sch
	repo.users.table[owner.ID] = &owner
	repo.db.members[mbr.ID] = &mbr
	return sch, mbr, nil
}

func (repo *schoolRepository) GetSchoolByID(ctx context.Context, id string) (school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sch, ok := repo.db.schools[id]; ok {
		return *sch, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) GetSchoolBySlug(ctx context.Context, slug string) (school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sch := range repo.db.schools {
		if sch.Slug == slug {
			return *sch, nil
		}
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) QuerySchools(ctx context.Context) ([]school.SchoolInfo, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	counts := make(map[string]int)
	for _, mbr := range repo.db.members {
		if mbr.Status == school.MemberActive {
			counts[mbr.SchoolID]++
		}
	}

	infos := make([]school.SchoolInfo, 0, len(repo.db.schools))
	for _, sch := range repo.db.schools {
		infos = append(infos, school.SchoolInfo{School: *sch, MemberCount: counts[sch.ID]})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	return infos, nil
}

func (repo *schoolRepository) UpdateSchool(ctx context.Context, sch school.School) (school.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.schools[sch.ID]
	if !ok {
		return school.School{}, school.ErrNotFound
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

	repo.db.schools[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) DeleteSchoolsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.schools, id)
		for mid, mbr := range repo.db.members {
			if mbr.SchoolID == id {
				delete(repo.db.members, mid)
			}
		}
		for cid, jc := range repo.db.joinCodes {
			if jc.SchoolID == id {
				delete(repo.db.joinCodes, cid)
			}
		}
	}
	return nil
}

// Members

func (repo *schoolRepository) GetActiveMembership(ctx context.Context, userID string) (school.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, mbr := range repo.db.members {
		if mbr.UserID == userID && mbr.Status == school.MemberActive {
			return repo.denormalize(*mbr), nil
		}
	}
	return school.Member{}, school.ErrNoActiveMembership
}

func (repo *schoolRepository) GetMemberByID(ctx context.Context, schoolID, id string) (school.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if mbr, ok := repo.db.members[id]; ok && mbr.SchoolID == schoolID {
		return repo.denormalize(*mbr), nil
	}
	return school.Member{}, school.ErrMemberNotFound
}

func (repo *schoolRepository) QueryMembers(ctx context.Context, schoolID string, filter school.MemberFilter) ([]school.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make([]school.Member, 0, len(repo.db.members))
	for _, mbr := range repo.db.members {
		if mbr.SchoolID != schoolID {
			continue
		}
		if filter.Role != "" && mbr.Role != filter.Role {
			continue
		}
		if filter.Status != "" && mbr.Status != filter.Status {
			continue
		}
		members = append(members, repo.denormalize(*mbr))
	}
	sort.Slice(members, func(i, j int) bool { return members[i].JoinedAt.Before(members[j].JoinedAt) })
	return members, nil
}

func (repo *schoolRepository) CreateMember(ctx context.Context, mbr school.Member) (school.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.members[mbr.ID] = &mbr
	return repo.denormalize(mbr), nil
}

func (repo *schoolRepository) UpdateMemberStatus(ctx context.Context, schoolID, id, status string) (school.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	mbr, ok := repo.db.members[id]
	if !ok || mbr.SchoolID != schoolID {
		return school.Member{}, school.ErrMemberNotFound
	}
	mbr.Status = status
	return repo.denormalize(*mbr), nil
}

// Join codes

func (repo *schoolRepository) CreateJoinCode(ctx context.Context, jc school.JoinCode) (school.JoinCode, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	jc.ID = uuid.New().String()
	repo.db.joinCodes[jc.ID] = &jc
	return jc, nil
}

func (repo *schoolRepository) QueryJoinCodes(ctx context.Context, schoolID string) ([]school.JoinCode, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	codes := make([]school.JoinCode, 0, len(repo.db.joinCodes))
	for _, jc := range repo.db.joinCodes {
		if jc.SchoolID == schoolID {
			codes = append(codes, *jc)
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i].CreatedAt.After(codes[j].CreatedAt) })
	return codes, nil
}

func (repo *schoolRepository) GetJoinCodeByCode(ctx context.Context, code string) (school.JoinCode, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, jc := range repo.db.joinCodes {
		if jc.Code == code {
			return *jc, nil
		}
	}
	return school.JoinCode{}, school.ErrCodeNotFound
}

// RedeemJoinCode claims one use under the table write-lock; two concurrent
// redeems of a code's last use cannot both succeed.
func (repo *schoolRepository) RedeemJoinCode(ctx context.Context, code string, now time.Time) (school.JoinCode, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, jc := range repo.db.joinCodes {
		if jc.Code != code {
			continue
		}
		if err := jc.Validate(now); err != nil {
			return school.JoinCode{}, err
		}
		jc.UsedCount++
		if jc.UsedCount >= jc.MaxUses {
			jc.Status = school.CodeUsed
		}
		return *jc, nil
	}
	return school.JoinCode{}, school.ErrCodeNotFound
}

func (repo *schoolRepository) UpdateJoinCodeStatus(ctx context.Context, schoolID, id, status string) (school.JoinCode, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	jc, ok := repo.db.joinCodes[id]
	if !ok || jc.SchoolID != schoolID {
		return school.JoinCode{}, school.ErrCodeNotFound
	}
	jc.Status = status
	return *jc, nil
}
