package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/udereva/core/forum"
)

type forumRepository struct {
	db    *forumTable
	users *userTable
}

var _ forum.Repository = (*forumRepository)(nil) // interface compliance check

func NewForumRepository(db *DB) *forumRepository {
	return &forumRepository{db: db.forum, users: db.user}
}

func (repo *forumRepository) authorName(userID string) string {
	repo.users.RLock()
	defer repo.users.RUnlock()

	if usr, ok := repo.users.table[userID]; ok {
		return usr.Name
	}
	return ""
}

func (repo *forumRepository) denormalizePost(pst forum.Post) forum.Post {
	pst.AuthorName = repo.authorName(pst.AuthorID)
	for _, cmt := range repo.db.comments {
		if cmt.PostID == pst.ID {
			pst.CommentCount++
		}
	}
	return pst
}

// Posts

func (repo *forumRepository) CreatePost(ctx context.Context, pst forum.Post) (forum.Post, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.posts[pst.ID] = &pst
	return repo.denormalizePost(pst), nil
}

func (repo *forumRepository) GetPostByID(ctx context.Context, schoolID, id string) (forum.Post, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pst, ok := repo.db.posts[id]; ok && pst.SchoolID == schoolID {
		return repo.denormalizePost(*pst), nil
	}
	return forum.Post{}, forum.ErrPostNotFound
}

func (repo *forumRepository) QueryPosts(ctx context.Context, schoolID string) ([]forum.Post, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	posts := make([]forum.Post, 0, len(repo.db.posts))
	for _, pst := range repo.db.posts {
		if pst.SchoolID == schoolID {
			posts = append(posts, repo.denormalizePost(*pst))
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

func (repo *forumRepository) DeletePostsByID(ctx context.Context, schoolID string, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		if pst, ok := repo.db.posts[id]; ok && pst.SchoolID == schoolID {
			delete(repo.db.posts, id)
			for cid, cmt := range repo.db.comments {
				if cmt.PostID == id {
					delete(repo.db.comments, cid)
				}
			}
		}
	}
	return nil
}

// Comments

func (repo *forumRepository) CreateComment(ctx context.Context, cmt forum.Comment) (forum.Comment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.comments[cmt.ID] = &cmt
	cmt.AuthorName = repo.authorName(cmt.AuthorID)
	return cmt, nil
}

func (repo *forumRepository) GetCommentByID(ctx context.Context, postID, id string) (forum.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cmt, ok := repo.db.comments[id]; ok && cmt.PostID == postID {
		out := *cmt
		out.AuthorName = repo.authorName(out.AuthorID)
		return out, nil
	}
	return forum.Comment{}, forum.ErrCommentNotFound
}

func (repo *forumRepository) QueryComments(ctx context.Context, postID string) ([]forum.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	comments := make([]forum.Comment, 0, len(repo.db.comments))
	for _, cmt := range repo.db.comments {
		if cmt.PostID == postID {
			out := *cmt
			out.AuthorName = repo.authorName(out.AuthorID)
			comments = append(comments, out)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}

func (repo *forumRepository) DeleteCommentsByID(ctx context.Context, postID string, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		if cmt, ok := repo.db.comments[id]; ok && cmt.PostID == postID {
			delete(repo.db.comments, id)
		}
	}
	return nil
}
