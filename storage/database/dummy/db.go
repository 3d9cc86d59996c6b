package dummydb

import (
	"sync"

	"github.com/trezcool/udereva/core/activity"
	"github.com/trezcool/udereva/core/content"
	"github.com/trezcool/udereva/core/forum"
	"github.com/trezcool/udereva/core/school"
	"github.com/trezcool/udereva/core/user"
)

type (
	DB struct {
		user     *userTable
		school   *schoolTable
		content  *contentTable
		activity *activityTable
		forum    *forumTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	schoolTable struct {
		sync.RWMutex
		schools   map[string]*school.School
		members   map[string]*school.Member
		joinCodes map[string]*school.JoinCode
	}

	contentTable struct {
		sync.RWMutex
		modules  map[string]*content.Module
		lessons  map[string]*content.Lesson
		progress map[string]map[string]content.LessonProgress // userID -> lessonID
	}

	activityTable struct {
		sync.RWMutex
		events []activity.Event
	}

	forumTable struct {
		sync.RWMutex
		posts    map[string]*forum.Post
		comments map[string]*forum.Comment
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		school: &schoolTable{
			schools:   make(map[string]*school.School),
			members:   make(map[string]*school.Member),
			joinCodes: make(map[string]*school.JoinCode),
		},
		content: &contentTable{
			modules:  make(map[string]*content.Module),
			lessons:  make(map[string]*content.Lesson),
			progress: make(map[string]map[string]content.LessonProgress),
		},
		activity: &activityTable{},
		forum: &forumTable{
			posts:    make(map[string]*forum.Post),
			comments: make(map[string]*forum.Comment),
		},
	}
	return db, nil
}
