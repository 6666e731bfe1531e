// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"strings"
	"time"

	"beam/internal/markdown"
	"beam/internal/middleware"
	"beam/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed and tests.
type Factory struct {
	db       *gorm.DB
	opts     Options
	faker    *gofakeit.Faker
	renderer *markdown.Renderer
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB. A zero
// Options.RandomSeed picks a time-based seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:       db,
		opts:     opts,
		faker:    gofakeit.New(seed),
		renderer: markdown.New(),
		nextID:   1000,
	}
}

// BuildUser constructs a sample user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	name := f.faker.FirstName() + " " + f.faker.LastName()
	user := &models.User{
		Name:  name,
		Email: fmt.Sprintf("%s.%d@example.com", strings.ToLower(f.faker.Username()), f.faker.Number(1000, 9999)),
		Image: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		middleware.Logger.Debug("dry-run CreateUser", "name", user.Name)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a markdown post by author with its rendered HTML, spread over the last
// MaxDays days. It does not persist it.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Title:     strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), "."),
		Content:   f.markdownBody(),
		AuthorID:  author.ID,
		CreatedAt: f.pastTime(),
	}
	post.UpdatedAt = post.CreatedAt
	if f.opts.HiddenRatio > 0 && f.faker.Float64Range(0, 1) < f.opts.HiddenRatio {
		post.Hidden = true
	}
	for _, override := range overrides {
		override(post)
	}
	post.ContentHTML = f.renderer.Render(post.Content)
	return post
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		middleware.Logger.Debug("dry-run CreatePostsBatch", "count", len(posts))
		return nil
	}
	return f.db.Omit(clause.Associations).CreateInBatches(&posts, 200).Error
}

// CreateComment constructs and persists a sample comment by author on post.
func (f *Factory) CreateComment(author *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Content:  f.faker.Sentence(f.faker.Number(4, 14)),
		AuthorID: author.ID,
		PostID:   post.ID,
	}
	for _, override := range overrides {
		override(comment)
	}
	comment.ContentHTML = f.renderer.Render(comment.Content)

	if f.opts.DryRun {
		f.nextID++
		comment.ID = f.nextID
		return comment, nil
	}
	if err := f.db.Omit(clause.Associations).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from user on post. Liking twice is a no-op.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	if f.opts.DryRun {
		return nil
	}
	like := &models.Like{UserID: user.ID, PostID: post.ID}
	return f.db.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error
}

// markdownBody writes a few paragraphs with the constructs the renderer has to handle.
func (f *Factory) markdownBody() string {
	var sb strings.Builder
	sb.WriteString(f.faker.Paragraph(1, f.faker.Number(2, 4), 10, " "))
	sb.WriteString("\n\n")

	switch f.faker.Number(0, 3) {
	case 0:
		fmt.Fprintf(&sb, "## %s\n\n", f.faker.HackerPhrase())
		for i := 0; i < f.faker.Number(2, 4); i++ {
			fmt.Fprintf(&sb, "- %s\n", f.faker.HackeringVerb()+" "+f.faker.HackerNoun())
		}
	case 1:
		fmt.Fprintf(&sb, "```%s\n%s\n```\n", f.faker.RandomString([]string{"go", "sql", "bash"}), f.faker.HackerPhrase())
	case 2:
		fmt.Fprintf(&sb, "> %s\n\nMore at [%s](%s).\n", f.faker.Quote(), f.faker.DomainName(), f.faker.URL())
	default:
		fmt.Fprintf(&sb, "![%s](https://picsum.photos/seed/%s/800/600)\n", f.faker.Word(), f.faker.UUID())
	}
	return sb.String()
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}
