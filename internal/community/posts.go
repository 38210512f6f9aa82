package community

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const resourcePosts = "posts"

// PostInput is the create payload for a post.
type PostInput struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	AuthorID *uint   `json:"author_id"`
	EstateID *uint   `json:"estate_id"`
}

// PostPatch is the partial-update payload for a post. The author is fixed at creation.
type PostPatch struct {
	Title    Optional[string] `json:"title"`
	Content  Optional[string] `json:"content"`
	EstateID Optional[uint]   `json:"estate_id"`
}

func (p PostPatch) empty() bool {
	return !p.Title.Set && !p.Content.Set && !p.EstateID.Set
}

// PostView is the output representation of a post.
type PostView struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	AuthorID  uint   `json:"author_id"`
	EstateID  *uint  `json:"estate_id"`
	CreatedAt string `json:"created_at"`
}

func newPostView(post Post) PostView {
	return PostView{
		ID:        post.ID,
		Title:     post.Title,
		Content:   post.Content,
		AuthorID:  post.AuthorID,
		EstateID:  post.EstateID,
		CreatedAt: formatTimestamp(post.CreatedAt),
	}
}

// PostService manages posts on the community board.
type PostService struct {
	store
}

// NewPostService constructs the post service.
func NewPostService(cfg ServiceConfig) (*PostService, error) {
	base, err := newStore(resourcePosts, cfg)
	if err != nil {
		return nil, err
	}
	return &PostService{store: base}, nil
}

func (s *PostService) List(ctx context.Context) ([]PostView, error) {
	var posts []Post
	if err := s.db.WithContext(ctx).Order("id").Find(&posts).Error; err != nil {
		return nil, s.fail(ErrPersistence, opList, "query_failed", err)
	}
	views := make([]PostView, 0, len(posts))
	for _, post := range posts {
		views = append(views, newPostView(post))
	}
	return views, nil
}

func (s *PostService) Get(ctx context.Context, id uint) (PostView, error) {
	var post Post
	if err := s.load(s.db.WithContext(ctx), opGet, id, &post); err != nil {
		return PostView{}, err
	}
	return newPostView(post), nil
}

func (s *PostService) Create(ctx context.Context, input PostInput) (PostView, error) {
	if err := checkRequired(
		required("title", input.Title != nil),
		required("content", input.Content != nil),
		required("author_id", input.AuthorID != nil),
	); err != nil {
		return PostView{}, s.fail(ErrValidation, opCreate, "missing_required_fields", err)
	}

	post := Post{
		Title:     *input.Title,
		Content:   *input.Content,
		AuthorID:  *input.AuthorID,
		EstateID:  input.EstateID,
		CreatedAt: s.now(),
	}
	err := s.inTransaction(ctx, opCreate, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&post).Error; err != nil {
			return s.fail(ErrPersistence, opCreate, "insert_failed", err, zap.Uint("author_id", post.AuthorID))
		}
		return nil
	})
	if err != nil {
		return PostView{}, err
	}
	return newPostView(post), nil
}

func (s *PostService) Update(ctx context.Context, id uint, patch PostPatch) (PostView, error) {
	var updated Post
	err := s.inTransaction(ctx, opUpdate, func(tx *gorm.DB) error {
		var post Post
		if err := s.load(tx, opUpdate, id, &post); err != nil {
			return err
		}
		if patch.empty() {
			return s.fail(ErrValidation, opUpdate, "empty_payload", ErrEmptyPayload, zap.Uint("id", id))
		}

		updates := map[string]any{}
		if patch.Title.Set {
			updates["title"] = patch.Title.column()
		}
		if patch.Content.Set {
			updates["content"] = patch.Content.column()
		}
		if patch.EstateID.Set {
			updates["estate_id"] = patch.EstateID.column()
		}

		if err := tx.Model(&Post{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return s.fail(ErrPersistence, opUpdate, "update_failed", err, zap.Uint("id", id))
		}
		return s.load(tx, opUpdate, id, &updated)
	})
	if err != nil {
		return PostView{}, err
	}
	return newPostView(updated), nil
}

// Delete removes the post. Posts that still have comments cannot be removed.
func (s *PostService) Delete(ctx context.Context, id uint) error {
	return s.inTransaction(ctx, opDelete, func(tx *gorm.DB) error {
		var post Post
		if err := s.load(tx, opDelete, id, &post); err != nil {
			return err
		}
		if err := tx.Delete(&Post{}, id).Error; err != nil {
			return s.fail(ErrPersistence, opDelete, "delete_failed", err, zap.Uint("id", id))
		}
		return nil
	})
}
