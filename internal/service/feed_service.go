// Package service implements the application's business operations on top of
// the repository layer.
package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"ripple/internal/cache"
	"ripple/internal/models"
	"ripple/internal/notifications"
	"ripple/internal/observability"
	"ripple/internal/repository"

	"golang.org/x/sync/errgroup"
)

// Window defaults. A missing or non-positive page/limit falls back to these;
// comment threads use a larger default window than the feed.
const (
	DefaultPage         = 1
	DefaultFeedLimit    = 10
	DefaultCommentLimit = 20
)

// dispatchTimeout bounds a single best-effort push attempt. The triggering
// mutation has already returned by the time this clock starts.
const dispatchTimeout = 5 * time.Second

// FeedService orchestrates posts, comments, like toggles, and the
// notification dispatch they trigger. All shared state lives in the
// repositories; the service itself holds none.
type FeedService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	notifier    notifications.Notifier
	logger      *observability.Logger
}

// NewFeedService creates a FeedService. The notifier is an injected
// capability so tests can swap in failing or recording implementations.
func NewFeedService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	notifier notifications.Notifier,
	logger *observability.Logger,
) *FeedService {
	if logger == nil {
		logger = observability.GlobalLogger
	}
	return &FeedService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// normalizeWindow replaces non-positive page/limit values with defaults.
func normalizeWindow(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}

// postWindow is one fetched page of posts together with the total count it
// was cut from. The two are queried concurrently without snapshot isolation,
// so they may reflect slightly different points in time under concurrent
// writes; the feed is not safety-critical and accepts that skew.
type postWindow struct {
	Items []*models.Post `json:"items"`
	Total int64          `json:"total"`
}

func (s *FeedService) loadWindow(
	ctx context.Context,
	fetch func(ctx context.Context) ([]*models.Post, error),
	count func(ctx context.Context) (int64, error),
) (postWindow, error) {
	var win postWindow
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := fetch(gctx)
		win.Items = items
		return err
	})
	g.Go(func() error {
		total, err := count(gctx)
		win.Total = total
		return err
	})
	if err := g.Wait(); err != nil {
		return postWindow{}, err
	}
	if win.Items == nil {
		win.Items = []*models.Post{}
	}
	return win, nil
}

// ListFeed returns all posts newest first. The default anonymous first page
// is served cache-aside with a short TTL.
func (s *FeedService) ListFeed(ctx context.Context, page, limit int) ([]*models.Post, models.Pagination, error) {
	page, limit = normalizeWindow(page, limit, DefaultFeedLimit)
	offset := (page - 1) * limit

	load := func() (postWindow, error) {
		return s.loadWindow(ctx,
			func(ctx context.Context) ([]*models.Post, error) {
				return s.postRepo.List(ctx, limit, offset)
			},
			s.postRepo.Count,
		)
	}

	var win postWindow
	var err error
	if page == DefaultPage && limit == DefaultFeedLimit {
		err = cache.Aside(ctx, cache.FeedFirstPageKey(), &win, cache.FeedTTL, func() error {
			var loadErr error
			win, loadErr = load()
			return loadErr
		})
	} else {
		win, err = load()
	}
	if err != nil {
		return nil, models.Pagination{}, err
	}

	return win.Items, models.NewPagination(win.Total, page, limit), nil
}

// ListMyPosts returns the caller's posts newest first. Identity enforcement
// happens at the boundary; the service only filters.
func (s *FeedService) ListMyPosts(ctx context.Context, userID uint, page, limit int) ([]*models.Post, models.Pagination, error) {
	page, limit = normalizeWindow(page, limit, DefaultFeedLimit)
	offset := (page - 1) * limit

	win, err := s.loadWindow(ctx,
		func(ctx context.Context) ([]*models.Post, error) {
			return s.postRepo.ListByAuthor(ctx, userID, limit, offset)
		},
		func(ctx context.Context) (int64, error) {
			return s.postRepo.CountByAuthor(ctx, userID)
		},
	)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return win.Items, models.NewPagination(win.Total, page, limit), nil
}

// SearchByAuthorName matches posts whose denormalized author name contains
// the query, case-insensitively.
func (s *FeedService) SearchByAuthorName(ctx context.Context, query string, page, limit int) ([]*models.Post, models.Pagination, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.Pagination{}, models.NewValidationError("Username query parameter is required")
	}

	page, limit = normalizeWindow(page, limit, DefaultFeedLimit)
	offset := (page - 1) * limit

	win, err := s.loadWindow(ctx,
		func(ctx context.Context) ([]*models.Post, error) {
			return s.postRepo.SearchByAuthorName(ctx, query, limit, offset)
		},
		func(ctx context.Context) (int64, error) {
			return s.postRepo.CountByAuthorName(ctx, query)
		},
	)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return win.Items, models.NewPagination(win.Total, page, limit), nil
}

// GetPost returns a single post, cache-aside with a short TTL.
func (s *FeedService) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(postID), &post, cache.PostTTL, func() error {
		p, fetchErr := s.postRepo.GetByID(ctx, postID)
		if fetchErr != nil {
			return fetchErr
		}
		post = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost persists a new post with both counters at zero. The author's
// display name is snapshotted into the post at this moment and never
// recomputed. Creation does not notify anyone.
func (s *FeedService) CreatePost(ctx context.Context, authorID uint, authorName, description string) (*models.Post, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, models.NewValidationError("Description is required")
	}

	post := &models.Post{
		UserID:      authorID,
		PostedBy:    authorName,
		Description: description,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	cache.Invalidate(ctx, cache.FeedFirstPageKey())
	return post, nil
}

// ListComments returns a post's thread oldest first.
func (s *FeedService) ListComments(ctx context.Context, postID uint, page, limit int) ([]*models.Comment, models.Pagination, error) {
	page, limit = normalizeWindow(page, limit, DefaultCommentLimit)
	offset := (page - 1) * limit

	var comments []*models.Comment
	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.commentRepo.ListByPost(gctx, postID, limit, offset)
		comments = items
		return err
	})
	g.Go(func() error {
		n, err := s.commentRepo.CountByPost(gctx, postID)
		total = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, models.Pagination{}, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, models.NewPagination(total, page, limit), nil
}

// CreateComment persists the comment, bumps the post's cached comment
// counter, and dispatches a best-effort notification to the post author.
// The returned comment does not carry the fresh counter; callers wanting it
// must re-fetch the post. The insert and the counter bump are separate
// statements: a crash between them leaves a comment its parent never counted,
// which is accepted best-effort behavior rather than a transactional
// guarantee.
func (s *FeedService) CreateComment(ctx context.Context, postID, authorID uint, authorName, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Comment text is required")
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   postID,
		UserID:   authorID,
		PostedBy: authorName,
		Text:     text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	if err := s.postRepo.IncrementCommentCount(ctx, postID); err != nil {
		return nil, err
	}
	observability.EngagementEvents.WithLabelValues(notifications.EventComment).Inc()
	cache.Invalidate(ctx, cache.PostKey(postID), cache.FeedFirstPageKey())

	go s.dispatchEngagement(notifications.EventComment, post, authorID)

	return comment, nil
}

// ToggleLike applies a +1 or -1 delta to the post's like counter as a single
// atomic increment and returns the updated post. The server keeps no per-user
// like records, so it cannot reject repeated or unmatched deltas; the counter
// is exactly the sum of deltas received. Only increments notify.
func (s *FeedService) ToggleLike(ctx context.Context, postID, actorID uint, increment bool) (*models.Post, error) {
	delta := 1
	if !increment {
		delta = -1
	}

	post, err := s.postRepo.IncrementLikeCount(ctx, postID, delta)
	if err != nil {
		return nil, err
	}
	observability.EngagementEvents.WithLabelValues(notifications.EventLike).Inc()
	cache.Invalidate(ctx, cache.PostKey(postID), cache.FeedFirstPageKey())

	if increment {
		go s.dispatchEngagement(notifications.EventLike, post, actorID)
	}

	return post, nil
}

// dispatchEngagement delivers one best-effort push for an engagement event.
// It runs on its own goroutine after the persistence write committed: the
// mutation's response never waits on it, and no outcome here, error or
// panic, may reach the mutation path.
func (s *FeedService) dispatchEngagement(event string, post *models.Post, actorID uint) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in notification dispatch",
				slog.String("event", event),
				slog.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	if post.UserID == actorID {
		observability.NotificationsSkipped.WithLabelValues(event, "self").Inc()
		return
	}

	author, err := s.userRepo.GetByID(ctx, post.UserID)
	if err != nil {
		s.logger.Warn("notification dispatch: author lookup failed",
			slog.String("event", event),
			slog.Uint64("post_id", uint64(post.ID)),
			slog.String("error", err.Error()),
		)
		return
	}
	if author.NotificationToken == "" {
		observability.NotificationsSkipped.WithLabelValues(event, "no_token").Inc()
		return
	}

	push := notifications.Push{
		Token: author.NotificationToken,
		Data: map[string]string{
			"type":   event,
			"postId": strconv.FormatUint(uint64(post.ID), 10),
			"userId": strconv.FormatUint(uint64(actorID), 10),
		},
	}
	switch event {
	case notifications.EventLike:
		push.Title = "New like"
		push.Body = "Someone liked your post"
	case notifications.EventComment:
		push.Title = "New comment"
		push.Body = "Someone commented on your post"
	}

	if err := s.notifier.Send(ctx, push); err != nil {
		observability.NotificationsFailed.WithLabelValues(event).Inc()
		s.logger.Warn("push send failed",
			slog.String("event", event),
			slog.Uint64("post_id", uint64(post.ID)),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.NotificationsDispatched.WithLabelValues(event).Inc()
}
