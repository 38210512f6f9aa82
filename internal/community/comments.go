package community

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const resourceComments = "comments"

// CommentInput is the create payload for a comment on a post.
type CommentInput struct {
	Content  *string `json:"content"`
	AuthorID *uint   `json:"author_id"`
	PostID   *uint   `json:"post_id"`
}

// CommentPatch only carries content; author and post are fixed at creation.
type CommentPatch struct {
	Content Optional[string] `json:"content"`
}

// CommentView is the output representation of a comment.
type CommentView struct {
	ID        uint   `json:"id"`
	Content   string `json:"content"`
	AuthorID  uint   `json:"author_id"`
	PostID    uint   `json:"post_id"`
	CreatedAt string `json:"created_at"`
}

func newCommentView(comment Comment) CommentView {
	return CommentView{
		ID:        comment.ID,
		Content:   comment.Content,
		AuthorID:  comment.AuthorID,
		PostID:    comment.PostID,
		CreatedAt: formatTimestamp(comment.CreatedAt),
	}
}

// CommentService manages comments attached to posts.
type CommentService struct {
	store
}

// NewCommentService constructs the comment service.
func NewCommentService(cfg ServiceConfig) (*CommentService, error) {
	base, err := newStore(resourceComments, cfg)
	if err != nil {
		return nil, err
	}
	return &CommentService{store: base}, nil
}

func (s *CommentService) List(ctx context.Context) ([]CommentView, error) {
	var comments []Comment
	if err := s.db.WithContext(ctx).Order("id").Find(&comments).Error; err != nil {
		return nil, s.fail(ErrPersistence, opList, "query_failed", err)
	}
	views := make([]CommentView, 0, len(comments))
	for _, comment := range comments {
		views = append(views, newCommentView(comment))
	}
	return views, nil
}

func (s *CommentService) Get(ctx context.Context, id uint) (CommentView, error) {
	var comment Comment
	if err := s.load(s.db.WithContext(ctx), opGet, id, &comment); err != nil {
		return CommentView{}, err
	}
	return newCommentView(comment), nil
}

func (s *CommentService) Create(ctx context.Context, input CommentInput) (CommentView, error) {
	if err := checkRequired(
		required("content", input.Content != nil),
		required("author_id", input.AuthorID != nil),
		required("post_id", input.PostID != nil),
	); err != nil {
		return CommentView{}, s.fail(ErrValidation, opCreate, "missing_required_fields", err)
	}

	comment := Comment{
		Content:   *input.Content,
		AuthorID:  *input.AuthorID,
		PostID:    *input.PostID,
		CreatedAt: s.now(),
	}
	err := s.inTransaction(ctx, opCreate, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&comment).Error; err != nil {
			return s.fail(ErrPersistence, opCreate, "insert_failed", err,
				zap.Uint("author_id", comment.AuthorID),
				zap.Uint("post_id", comment.PostID))
		}
		return nil
	})
	if err != nil {
		return CommentView{}, err
	}
	return newCommentView(comment), nil
}

func (s *CommentService) Update(ctx context.Context, id uint, patch CommentPatch) (CommentView, error) {
	var updated Comment
	err := s.inTransaction(ctx, opUpdate, func(tx *gorm.DB) error {
		var comment Comment
		if err := s.load(tx, opUpdate, id, &comment); err != nil {
			return err
		}
		if !patch.Content.Set {
			return s.fail(ErrValidation, opUpdate, "empty_payload", ErrEmptyPayload, zap.Uint("id", id))
		}
		if err := tx.Model(&Comment{}).Where("id = ?", id).Update("content", patch.Content.column()).Error; err != nil {
			return s.fail(ErrPersistence, opUpdate, "update_failed", err, zap.Uint("id", id))
		}
		return s.load(tx, opUpdate, id, &updated)
	})
	if err != nil {
		return CommentView{}, err
	}
	return newCommentView(updated), nil
}

func (s *CommentService) Delete(ctx context.Context, id uint) error {
	return s.inTransaction(ctx, opDelete, func(tx *gorm.DB) error {
		var comment Comment
		if err := s.load(tx, opDelete, id, &comment); err != nil {
			return err
		}
		if err := tx.Delete(&Comment{}, id).Error; err != nil {
			return s.fail(ErrPersistence, opDelete, "delete_failed", err, zap.Uint("id", id))
		}
		return nil
	})
}
