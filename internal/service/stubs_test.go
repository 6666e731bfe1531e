package service

import (
	"context"
	"sync"
	"testing"

	"beam/internal/models"
	"beam/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	feedFn          func(context.Context, repository.FeedFilter, int, int) ([]*models.Post, error)
	countFn         func(context.Context, repository.FeedFilter) (int64, error)
	getDetailFn     func(context.Context, uint) (*models.Post, error)
	getMetaFn       func(context.Context, uint) (*repository.PostMeta, error)
	searchFn        func(context.Context, string, int) ([]models.PostSummary, error)
	createFn        func(context.Context, *models.Post) error
	updateContentFn func(context.Context, uint, string, string, string) error
	deleteFn        func(context.Context, uint) error
	setHiddenFn     func(context.Context, uint, bool) error
	likeFn          func(context.Context, uint, uint) error
	unlikeFn        func(context.Context, uint, uint) error
}

func (s *postRepoStub) Feed(ctx context.Context, filter repository.FeedFilter, limit, offset int) ([]*models.Post, error) {
	return s.feedFn(ctx, filter, limit, offset)
}
func (s *postRepoStub) Count(ctx context.Context, filter repository.FeedFilter) (int64, error) {
	return s.countFn(ctx, filter)
}
func (s *postRepoStub) GetDetail(ctx context.Context, id uint) (*models.Post, error) {
	return s.getDetailFn(ctx, id)
}
func (s *postRepoStub) GetMeta(ctx context.Context, id uint) (*repository.PostMeta, error) {
	return s.getMetaFn(ctx, id)
}
func (s *postRepoStub) Search(ctx context.Context, query string, limit int) ([]models.PostSummary, error) {
	return s.searchFn(ctx, query, limit)
}
func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) UpdateContent(ctx context.Context, id uint, title, content, contentHTML string) error {
	return s.updateContentFn(ctx, id, title, content, contentHTML)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) SetHidden(ctx context.Context, id uint, hidden bool) error {
	return s.setHiddenFn(ctx, id, hidden)
}
func (s *postRepoStub) Like(ctx context.Context, postID, userID uint) error {
	return s.likeFn(ctx, postID, userID)
}
func (s *postRepoStub) Unlike(ctx context.Context, postID, userID uint) error {
	return s.unlikeFn(ctx, postID, userID)
}

// noopPostRepo answers every call as if post 1 by user 1 exists and is visible.
func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		feedFn:  func(_ context.Context, _ repository.FeedFilter, _, _ int) ([]*models.Post, error) { return nil, nil },
		countFn: func(_ context.Context, _ repository.FeedFilter) (int64, error) { return 0, nil },
		getDetailFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, AuthorID: 1}, nil
		},
		getMetaFn: func(_ context.Context, id uint) (*repository.PostMeta, error) {
			return &repository.PostMeta{ID: id, AuthorID: 1}, nil
		},
		searchFn:        func(_ context.Context, _ string, _ int) ([]models.PostSummary, error) { return nil, nil },
		createFn:        func(_ context.Context, _ *models.Post) error { return nil },
		updateContentFn: func(_ context.Context, _ uint, _, _, _ string) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		setHiddenFn:     func(_ context.Context, _ uint, _ bool) error { return nil },
		likeFn:          func(_ context.Context, _, _ uint) error { return nil },
		unlikeFn:        func(_ context.Context, _, _ uint) error { return nil },
	}
}

// failOnStore makes every repository call fail the test.
func failOnStore(t *testing.T) *postRepoStub {
	t.Helper()
	fail := func() { t.Helper(); t.Fatal("store must not be touched") }
	return &postRepoStub{
		feedFn: func(context.Context, repository.FeedFilter, int, int) ([]*models.Post, error) {
			fail()
			return nil, nil
		},
		countFn:     func(context.Context, repository.FeedFilter) (int64, error) { fail(); return 0, nil },
		getDetailFn: func(context.Context, uint) (*models.Post, error) { fail(); return nil, nil },
		getMetaFn:   func(context.Context, uint) (*repository.PostMeta, error) { fail(); return nil, nil },
		searchFn:    func(context.Context, string, int) ([]models.PostSummary, error) { fail(); return nil, nil },
		createFn:    func(context.Context, *models.Post) error { fail(); return nil },
		updateContentFn: func(context.Context, uint, string, string, string) error {
			fail()
			return nil
		},
		deleteFn:    func(context.Context, uint) error { fail(); return nil },
		setHiddenFn: func(context.Context, uint, bool) error { fail(); return nil },
		likeFn:      func(context.Context, uint, uint) error { fail(); return nil },
		unlikeFn:    func(context.Context, uint, uint) error { fail(); return nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn        func(context.Context, *models.Comment) error
	getByIDFn       func(context.Context, uint) (*models.Comment, error)
	getMetaFn       func(context.Context, uint) (*repository.CommentMeta, error)
	listByPostFn    func(context.Context, uint) ([]*models.Comment, error)
	updateContentFn func(context.Context, uint, string, string) error
	deleteFn        func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) GetMeta(ctx context.Context, id uint) (*repository.CommentMeta, error) {
	return s.getMetaFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) UpdateContent(ctx context.Context, id uint, content, contentHTML string) error {
	return s.updateContentFn(ctx, id, content, contentHTML)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, AuthorID: 1}, nil
		},
		getMetaFn: func(_ context.Context, id uint) (*repository.CommentMeta, error) {
			return &repository.CommentMeta{ID: id, AuthorID: 1, PostID: 1}, nil
		},
		listByPostFn:    func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		updateContentFn: func(_ context.Context, _ uint, _, _ string) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn        func(context.Context, uint) (*models.User, error)
	getCallerFn      func(context.Context, uint) (*models.Caller, error)
	createFn         func(context.Context, *models.User) error
	listForMentionFn func(context.Context, string, int) ([]models.UserSummary, error)
	setAdminFn       func(context.Context, uint, bool) error
	listAdminsFn     func(context.Context) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetCaller(ctx context.Context, id uint) (*models.Caller, error) {
	return s.getCallerFn(ctx, id)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) ListForMention(ctx context.Context, prefix string, limit int) ([]models.UserSummary, error) {
	return s.listForMentionFn(ctx, prefix, limit)
}
func (s *userRepoStub) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	return s.setAdminFn(ctx, id, isAdmin)
}
func (s *userRepoStub) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.listAdminsFn(ctx)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Name: "user"}, nil
		},
		getCallerFn: func(_ context.Context, id uint) (*models.Caller, error) {
			return &models.Caller{ID: id}, nil
		},
		createFn:         func(_ context.Context, _ *models.User) error { return nil },
		listForMentionFn: func(_ context.Context, _ string, _ int) ([]models.UserSummary, error) { return nil, nil },
		setAdminFn:       func(_ context.Context, _ uint, _ bool) error { return nil },
		listAdminsFn:     func(_ context.Context) ([]models.User, error) { return nil, nil },
	}
}

// announcerStub records lifecycle notifications.
type announcerStub struct {
	mu      sync.Mutex
	created []models.Post
	authors []string
	deleted []uint
	hidden  map[uint]bool
}

func (a *announcerStub) PostCreated(post models.Post, authorName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.created = append(a.created, post)
	a.authors = append(a.authors, authorName)
}

func (a *announcerStub) PostDeleted(postID, _ uint) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, postID)
}

func (a *announcerStub) PostVisibilityChanged(postID, _ uint, hidden bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hidden == nil {
		a.hidden = map[uint]bool{}
	}
	a.hidden[postID] = hidden
}

// wrapRenderer makes rendering observable without depending on the markdown pipeline.
type wrapRenderer struct{}

func (wrapRenderer) Render(src string) string { return "<p>" + src + "</p>" }

var (
	author   = models.Caller{ID: 1}
	stranger = models.Caller{ID: 2}
	admin    = models.Caller{ID: 3, IsAdmin: true}
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), "unexpected error: %v", err)
}

func hiddenMeta(id uint) func(context.Context, uint) (*repository.PostMeta, error) {
	return func(_ context.Context, _ uint) (*repository.PostMeta, error) {
		return &repository.PostMeta{ID: id, AuthorID: author.ID, Hidden: true}, nil
	}
}

func missingMeta(context.Context, uint) (*repository.PostMeta, error) {
	return nil, gorm.ErrRecordNotFound
}
