// Package seed creates demo data for development databases. Not used by the
// server itself.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"ripple/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder populates the database with generated users, posts, and comments.
type Seeder struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:  db,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll removes all seeded data. Comments first so no post is left
// pointing at counted comments that no longer exist.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	for _, model := range []any{&models.Comment{}, &models.Post{}, &models.User{}} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedUsers creates n users, all with the password "password123".
func (s *Seeder) SeedUsers(n int) ([]*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		user := &models.User{
			Name:     gofakeit.Name(),
			Email:    fmt.Sprintf("%d.%s", i, gofakeit.Email()),
			Password: string(hashed),
		}
		// Roughly half the users have a registered device.
		if s.rng.Intn(2) == 0 {
			user.NotificationToken = fmt.Sprintf("ExponentPushToken[%s]", gofakeit.LetterN(22))
		}
		users = append(users, user)
	}
	if err := s.db.Create(&users).Error; err != nil {
		return nil, err
	}
	log.Printf("Created %d users", len(users))
	return users, nil
}

// SeedPosts creates n posts spread over the past maxDays days, each attributed
// to a random seeded user with the author name snapshotted at creation.
func (s *Seeder) SeedPosts(users []*models.User, n, maxDays int) ([]*models.Post, error) {
	if maxDays <= 0 {
		maxDays = 90
	}

	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[s.rng.Intn(len(users))]
		post := &models.Post{
			UserID:      author.ID,
			PostedBy:    author.Name,
			Description: gofakeit.Paragraph(1, 2, 8, " "),
			CreatedAt:   s.pastTimestamp(maxDays),
		}
		posts = append(posts, post)
	}
	if err := s.db.Create(&posts).Error; err != nil {
		return nil, err
	}
	log.Printf("Created %d posts", len(posts))
	return posts, nil
}

// SeedEngagement adds random like counts and comments to the given posts,
// keeping each post's comment counter in step with its thread.
func (s *Seeder) SeedEngagement(users []*models.User, posts []*models.Post) error {
	var totalComments int
	for _, post := range posts {
		post.LikeCount = s.rng.Intn(40)

		numComments := s.rng.Intn(6)
		comments := make([]*models.Comment, 0, numComments)
		for i := 0; i < numComments; i++ {
			commenter := users[s.rng.Intn(len(users))]
			comments = append(comments, &models.Comment{
				PostID:    post.ID,
				UserID:    commenter.ID,
				PostedBy:  commenter.Name,
				Text:      gofakeit.Sentence(s.rng.Intn(10) + 3),
				CreatedAt: post.CreatedAt.Add(time.Duration(i+1) * time.Minute),
			})
		}
		if len(comments) > 0 {
			if err := s.db.Create(&comments).Error; err != nil {
				return err
			}
		}
		post.CommentCount = numComments
		totalComments += numComments

		if err := s.db.Model(post).Updates(map[string]any{
			"like_count":    post.LikeCount,
			"comment_count": post.CommentCount,
		}).Error; err != nil {
			return err
		}
	}
	log.Printf("Created %d comments and like counts across %d posts", totalComments, len(posts))
	return nil
}

func (s *Seeder) pastTimestamp(maxDays int) time.Time {
	daysBack := s.rng.Intn(maxDays)
	hoursBack := s.rng.Intn(24)
	minsBack := s.rng.Intn(60)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour -
		time.Duration(minsBack)*time.Minute)
}
