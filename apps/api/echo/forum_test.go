package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/udereva/core/forum"
	"github.com/trezcool/udereva/core/school"
)

func TestForumApi_posts(t *testing.T) {
	env := newTestEnv(t)
	sch := env.createSchool(t, "Kin Drivers", "kin-drivers")
	hero := env.createUser(t, "Hero", "hero@test.cd", "", true)
	env.addMember(t, sch, hero, school.RoleStudent)
	king := env.createUser(t, "King", "king@test.cd", "", true)
	env.addMember(t, sch, king, school.RoleStudent)
	admin := env.createUser(t, "Admin", "admin@test.cd", "", true)
	env.addMember(t, sch, admin, school.RoleAdmin)

	// another school's forum is invisible here
	other := env.createSchool(t, "Lubum Auto", "lubum-auto")
	otherUsr := env.createUser(t, "Out", "out@test.cd", "", true)
	env.addMember(t, other, otherUsr, school.RoleStudent)
	otherPost := env.createPost(t, other, otherUsr, "Other", "Not yours")

	var created forum.Post

	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, forum.NewPost{Title: "Parallel parking tips?", Body: "I keep hitting the cones."})
		req, rec := newAuthRequest(http.MethodPost, "/v1/forum/posts", getToken(t, hero), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if created.AuthorID != hero.ID {
			t.Errorf("author_id = %v; want %v", created.AuthorID, hero.ID)
		}
	})

	t.Run("list is school-scoped", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/forum/posts", getToken(t, king))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var posts []forum.Post
		if err := json.Unmarshal(rec.Body.Bytes(), &posts); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(posts) != 1 || posts[0].ID != created.ID {
			t.Errorf("posts = %+v; want just %v", posts, created.ID)
		}
	})

	t.Run("cross-school access is a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/forum/posts/"+otherPost.ID, getToken(t, hero))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("only the author or staff deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/forum/posts/"+created.ID, getToken(t, king))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}

		req, rec = newAuthRequest(http.MethodDelete, "/v1/forum/posts/"+created.ID, getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
	})
}

func TestForumApi_comments(t *testing.T) {
	env := newTestEnv(t)
	sch := env.createSchool(t, "Kin Drivers", "kin-drivers")
	hero := env.createUser(t, "Hero", "hero@test.cd", "", true)
	env.addMember(t, sch, hero, school.RoleStudent)
	king := env.createUser(t, "King", "king@test.cd", "", true)
	env.addMember(t, sch, king, school.RoleStudent)

	pst := env.createPost(t, sch, hero, "Parallel parking tips?", "I keep hitting the cones.")

	var created forum.Comment

	t.Run("reply", func(t *testing.T) {
		body := marchallObj(t, forum.NewComment{Body: "Aim for the far cone."})
		req, rec := newAuthRequest(http.MethodPost, "/v1/forum/posts/"+pst.ID+"/comments", getToken(t, king), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/forum/posts/"+pst.ID+"/comments", getToken(t, hero))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var comments []forum.Comment
		if err := json.Unmarshal(rec.Body.Bytes(), &comments); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(comments) != 1 || comments[0].ID != created.ID {
			t.Errorf("comments = %+v; want just %v", comments, created.ID)
		}
	})

	t.Run("author deletes own comment", func(t *testing.T) {
		// hero is not the comment's author and not staff
		req, rec := newAuthRequest(http.MethodDelete, "/v1/forum/posts/"+pst.ID+"/comments/"+created.ID, getToken(t, hero))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}

		req, rec = newAuthRequest(http.MethodDelete, "/v1/forum/posts/"+pst.ID+"/comments/"+created.ID, getToken(t, king))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
	})
}
