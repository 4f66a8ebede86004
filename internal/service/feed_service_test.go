package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ripple/internal/models"
	"ripple/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn            func(context.Context, *models.Post) error
	getByIDFn           func(context.Context, uint) (*models.Post, error)
	listFn              func(context.Context, int, int) ([]*models.Post, error)
	countFn             func(context.Context) (int64, error)
	listByAuthorFn      func(context.Context, uint, int, int) ([]*models.Post, error)
	countByAuthorFn     func(context.Context, uint) (int64, error)
	searchFn            func(context.Context, string, int, int) ([]*models.Post, error)
	countByNameFn       func(context.Context, string) (int64, error)
	incrementLikeFn     func(context.Context, uint, int) (*models.Post, error)
	incrementCommentsFn func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.listByAuthorFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) CountByAuthor(ctx context.Context, userID uint) (int64, error) {
	return s.countByAuthorFn(ctx, userID)
}
func (s *postRepoStub) SearchByAuthorName(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	return s.searchFn(ctx, query, limit, offset)
}
func (s *postRepoStub) CountByAuthorName(ctx context.Context, query string) (int64, error) {
	return s.countByNameFn(ctx, query)
}
func (s *postRepoStub) IncrementLikeCount(ctx context.Context, id uint, delta int) (*models.Post, error) {
	return s.incrementLikeFn(ctx, id, delta)
}
func (s *postRepoStub) IncrementCommentCount(ctx context.Context, id uint) error {
	return s.incrementCommentsFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listFn:    func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		countFn:   func(_ context.Context) (int64, error) { return 0, nil },
		listByAuthorFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Post, error) {
			return nil, nil
		},
		countByAuthorFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		searchFn: func(_ context.Context, _ string, _, _ int) ([]*models.Post, error) {
			return nil, nil
		},
		countByNameFn: func(_ context.Context, _ string) (int64, error) { return 0, nil },
		incrementLikeFn: func(_ context.Context, id uint, _ int) (*models.Post, error) {
			return &models.Post{ID: id}, nil
		},
		incrementCommentsFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	listByPostFn func(context.Context, uint, int, int) ([]*models.Comment, error)
	countFn      func(context.Context, uint) (int64, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID, limit, offset)
}
func (s *commentRepoStub) CountByPost(ctx context.Context, postID uint) (int64, error) {
	return s.countFn(ctx, postID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, _ *models.Comment) error { return nil },
		listByPostFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Comment, error) {
			return nil, nil
		},
		countFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createFn      func(context.Context, *models.User) error
	getByIDFn     func(context.Context, uint) (*models.User, error)
	getByEmailFn  func(context.Context, string) (*models.User, error)
	updateTokenFn func(context.Context, uint, string) error
	listFn        func(context.Context, int, int) ([]models.User, error)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) UpdateNotificationToken(ctx context.Context, id uint, token string) error {
	return s.updateTokenFn(ctx, id, token)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn:  func(_ context.Context, _ *models.User) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn: func(_ context.Context, _ string) (*models.User, error) {
			return nil, nil
		},
		updateTokenFn: func(_ context.Context, _ uint, _ string) error { return nil },
		listFn:        func(_ context.Context, _, _ int) ([]models.User, error) { return nil, nil },
	}
}

// notifierStub records sends and can be told to fail or panic.
type notifierStub struct {
	mu    sync.Mutex
	sent  []notifications.Push
	err   error
	panic bool
}

func (n *notifierStub) Send(_ context.Context, push notifications.Push) error {
	if n.panic {
		panic("notifier exploded")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, push)
	return n.err
}

func (n *notifierStub) pushes() []notifications.Push {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifications.Push, len(n.sent))
	copy(out, n.sent)
	return out
}

func newFeedService(posts *postRepoStub, comments *commentRepoStub, users *userRepoStub, n notifications.Notifier) *FeedService {
	return NewFeedService(posts, comments, users, n, nil)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestFeedService_ListFeed_Defaults(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	var gotLimit, gotOffset int
	posts.listFn = func(_ context.Context, limit, offset int) ([]*models.Post, error) {
		gotLimit, gotOffset = limit, offset
		return []*models.Post{{ID: 1}}, nil
	}
	posts.countFn = func(_ context.Context) (int64, error) { return 35, nil }

	svc := newFeedService(posts, noopCommentRepo(), noopUserRepo(), &notifierStub{})
	items, pagination, err := svc.ListFeed(context.Background(), 0, 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultFeedLimit, gotLimit)
	assert.Equal(t, 0, gotOffset)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(35), pagination.Total)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 4, pagination.TotalPages)
	assert.True(t, pagination.HasNextPage)
	assert.False(t, pagination.HasPrevPage)
}

func TestFeedService_ListFeed_OffsetFromPage(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	var gotLimit, gotOffset int
	posts.listFn = func(_ context.Context, limit, offset int) ([]*models.Post, error) {
		gotLimit, gotOffset = limit, offset
		return nil, nil
	}

	svc := newFeedService(posts, noopCommentRepo(), noopUserRepo(), &notifierStub{})
	items, _, err := svc.ListFeed(context.Background(), 3, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, 10, gotOffset)
	assert.NotNil(t, items, "empty window should be a slice, not nil")
	assert.Empty(t, items)
}

func TestFeedService_SearchByAuthorName_EmptyQuery(t *testing.T) {
	t.Parallel()

	svc := newFeedService(noopPostRepo(), noopCommentRepo(), noopUserRepo(), &notifierStub{})
	_, _, err := svc.SearchByAuthorName(context.Background(), "   ", 1, 10)
	assertValidationError(t, err)
}

func TestFeedService_CreatePost(t *testing.T) {
	t.Parallel()

	t.Run("empty description", func(t *testing.T) {
		t.Parallel()
		svc := newFeedService(noopPostRepo(), noopCommentRepo(), noopUserRepo(), &notifierStub{})
		_, err := svc.CreatePost(context.Background(), 1, "Alice", "   ")
		assertValidationError(t, err)
	})

	t.Run("snapshots author name and trims", func(t *testing.T) {
		t.Parallel()
		posts := noopPostRepo()
		var created *models.Post
		posts.createFn = func(_ context.Context, p *models.Post) error {
			p.ID = 7
			created = p
			return nil
		}

		svc := newFeedService(posts, noopCommentRepo(), noopUserRepo(), &notifierStub{})
		post, err := svc.CreatePost(context.Background(), 3, "Alice", "  hello world  ")
		require.NoError(t, err)

		require.NotNil(t, created)
		assert.Equal(t, uint(7), post.ID)
		assert.Equal(t, uint(3), created.UserID)
		assert.Equal(t, "Alice", created.PostedBy)
		assert.Equal(t, "hello world", created.Description)
		assert.Zero(t, created.LikeCount)
		assert.Zero(t, created.CommentCount)
	})
}

func TestFeedService_CreateComment(t *testing.T) {
	t.Parallel()

	t.Run("empty text", func(t *testing.T) {
		t.Parallel()
		svc := newFeedService(noopPostRepo(), noopCommentRepo(), noopUserRepo(), &notifierStub{})
		_, err := svc.CreateComment(context.Background(), 1, 2, "Bob", "")
		assertValidationError(t, err)
	})

	t.Run("missing post leaves no orphan comment", func(t *testing.T) {
		t.Parallel()
		posts := noopPostRepo()
		posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}
		comments := noopCommentRepo()
		created := false
		comments.createFn = func(_ context.Context, _ *models.Comment) error {
			created = true
			return nil
		}

		svc := newFeedService(posts, comments, noopUserRepo(), &notifierStub{})
		_, err := svc.CreateComment(context.Background(), 99, 2, "Bob", "hi")

		var appErr *models.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, models.CodeNotFound, appErr.Code)
		assert.False(t, created, "comment must not be written when the post is missing")
	})

	t.Run("persists comment then bumps counter", func(t *testing.T) {
		t.Parallel()
		posts := noopPostRepo()
		bumped := uint(0)
		posts.incrementCommentsFn = func(_ context.Context, id uint) error {
			bumped = id
			return nil
		}
		comments := noopCommentRepo()
		var created *models.Comment
		comments.createFn = func(_ context.Context, c *models.Comment) error {
			c.ID = 11
			created = c
			return nil
		}

		svc := newFeedService(posts, comments, noopUserRepo(), &notifierStub{})
		comment, err := svc.CreateComment(context.Background(), 5, 2, "Bob", "  nice!  ")
		require.NoError(t, err)

		assert.Equal(t, uint(11), comment.ID)
		assert.Equal(t, uint(5), created.PostID)
		assert.Equal(t, "Bob", created.PostedBy)
		assert.Equal(t, "nice!", created.Text)
		assert.Equal(t, uint(5), bumped)
	})

	t.Run("counter failure surfaces", func(t *testing.T) {
		t.Parallel()
		posts := noopPostRepo()
		posts.incrementCommentsFn = func(_ context.Context, _ uint) error {
			return models.NewInternalError(errors.New("db down"))
		}

		svc := newFeedService(posts, noopCommentRepo(), noopUserRepo(), &notifierStub{})
		_, err := svc.CreateComment(context.Background(), 5, 2, "Bob", "hi")
		require.Error(t, err)
	})
}

func TestFeedService_ToggleLike(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	var gotDelta int
	posts.incrementLikeFn = func(_ context.Context, id uint, delta int) (*models.Post, error) {
		gotDelta = delta
		return &models.Post{ID: id, LikeCount: delta}, nil
	}

	svc := newFeedService(posts, noopCommentRepo(), noopUserRepo(), &notifierStub{})

	post, err := svc.ToggleLike(context.Background(), 4, 2, true)
	require.NoError(t, err)
	assert.Equal(t, 1, gotDelta)
	assert.Equal(t, 1, post.LikeCount)

	_, err = svc.ToggleLike(context.Background(), 4, 2, false)
	require.NoError(t, err)
	assert.Equal(t, -1, gotDelta)
}

func TestFeedService_ToggleLike_MissingPost(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.incrementLikeFn = func(_ context.Context, id uint, _ int) (*models.Post, error) {
		return nil, models.NewNotFoundError("Post", id)
	}

	svc := newFeedService(posts, noopCommentRepo(), noopUserRepo(), &notifierStub{})
	_, err := svc.ToggleLike(context.Background(), 404, 2, true)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestFeedService_DispatchEngagement(t *testing.T) {
	t.Parallel()

	post := &models.Post{ID: 9, UserID: 1}

	t.Run("delivers like push with event data", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, NotificationToken: "device-1"}, nil
		}
		n := &notifierStub{}
		svc := newFeedService(noopPostRepo(), noopCommentRepo(), users, n)

		svc.dispatchEngagement(notifications.EventLike, post, 2)

		pushes := n.pushes()
		require.Len(t, pushes, 1)
		assert.Equal(t, "device-1", pushes[0].Token)
		assert.Equal(t, "New like", pushes[0].Title)
		assert.Equal(t, notifications.EventLike, pushes[0].Data["type"])
		assert.Equal(t, "9", pushes[0].Data["postId"])
		assert.Equal(t, "2", pushes[0].Data["userId"])
	})

	t.Run("comment push carries comment wording", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, NotificationToken: "device-1"}, nil
		}
		n := &notifierStub{}
		svc := newFeedService(noopPostRepo(), noopCommentRepo(), users, n)

		svc.dispatchEngagement(notifications.EventComment, post, 2)

		pushes := n.pushes()
		require.Len(t, pushes, 1)
		assert.Equal(t, "New comment", pushes[0].Title)
	})

	t.Run("skips self engagement", func(t *testing.T) {
		t.Parallel()
		n := &notifierStub{}
		svc := newFeedService(noopPostRepo(), noopCommentRepo(), noopUserRepo(), n)

		svc.dispatchEngagement(notifications.EventLike, post, post.UserID)

		assert.Empty(t, n.pushes())
	})

	t.Run("skips author without device token", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id}, nil
		}
		n := &notifierStub{}
		svc := newFeedService(noopPostRepo(), noopCommentRepo(), users, n)

		svc.dispatchEngagement(notifications.EventLike, post, 2)

		assert.Empty(t, n.pushes())
	})

	t.Run("send failure is swallowed", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, NotificationToken: "device-1"}, nil
		}
		n := &notifierStub{err: errors.New("push gateway down")}
		svc := newFeedService(noopPostRepo(), noopCommentRepo(), users, n)

		assert.NotPanics(t, func() {
			svc.dispatchEngagement(notifications.EventLike, post, 2)
		})
	})

	t.Run("notifier panic is recovered", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, NotificationToken: "device-1"}, nil
		}
		n := &notifierStub{panic: true}
		svc := newFeedService(noopPostRepo(), noopCommentRepo(), users, n)

		assert.NotPanics(t, func() {
			svc.dispatchEngagement(notifications.EventLike, post, 2)
		})
	})
}

func TestFeedService_MutationsSucceedWhenNotifierFails(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, NotificationToken: "device-1"}, nil
	}
	n := &notifierStub{err: errors.New("push gateway down")}
	svc := newFeedService(noopPostRepo(), noopCommentRepo(), users, n)

	_, err := svc.ToggleLike(context.Background(), 4, 2, true)
	assert.NoError(t, err)

	_, err = svc.CreateComment(context.Background(), 4, 2, "Bob", "hello")
	assert.NoError(t, err)
}

func TestFeedService_ListComments_EmptyThread(t *testing.T) {
	t.Parallel()

	svc := newFeedService(noopPostRepo(), noopCommentRepo(), noopUserRepo(), &notifierStub{})
	comments, pagination, err := svc.ListComments(context.Background(), 8, 0, 0)
	require.NoError(t, err)

	assert.NotNil(t, comments)
	assert.Empty(t, comments)
	assert.Equal(t, DefaultCommentLimit, pagination.Limit)
	assert.Zero(t, pagination.TotalPages)
}
