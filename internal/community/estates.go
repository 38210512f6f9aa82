package community

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const resourceEstates = "estates"

// EstateInput is the create payload for an estate.
type EstateInput struct {
	Name        *string `json:"name"`
	Address     *string `json:"address"`
	Description *string `json:"description"`
}

// EstatePatch is the partial-update payload for an estate.
type EstatePatch struct {
	Name        Optional[string] `json:"name"`
	Address     Optional[string] `json:"address"`
	Description Optional[string] `json:"description"`
}

func (p EstatePatch) empty() bool {
	return !p.Name.Set && !p.Address.Set && !p.Description.Set
}

// EstateView is the output representation of an estate.
type EstateView struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Address     *string `json:"address"`
	Description *string `json:"description"`
	CreatedAt   string  `json:"created_at"`
}

func newEstateView(estate Estate) EstateView {
	return EstateView{
		ID:          estate.ID,
		Name:        estate.Name,
		Address:     estate.Address,
		Description: estate.Description,
		CreatedAt:   formatTimestamp(estate.CreatedAt),
	}
}

// EstateService manages estates.
type EstateService struct {
	store
}

// NewEstateService constructs the estate service.
func NewEstateService(cfg ServiceConfig) (*EstateService, error) {
	base, err := newStore(resourceEstates, cfg)
	if err != nil {
		return nil, err
	}
	return &EstateService{store: base}, nil
}

func (s *EstateService) List(ctx context.Context) ([]EstateView, error) {
	var estates []Estate
	if err := s.db.WithContext(ctx).Order("id").Find(&estates).Error; err != nil {
		return nil, s.fail(ErrPersistence, opList, "query_failed", err)
	}
	views := make([]EstateView, 0, len(estates))
	for _, estate := range estates {
		views = append(views, newEstateView(estate))
	}
	return views, nil
}

func (s *EstateService) Get(ctx context.Context, id uint) (EstateView, error) {
	var estate Estate
	if err := s.load(s.db.WithContext(ctx), opGet, id, &estate); err != nil {
		return EstateView{}, err
	}
	return newEstateView(estate), nil
}

func (s *EstateService) Create(ctx context.Context, input EstateInput) (EstateView, error) {
	if err := checkRequired(required("name", input.Name != nil)); err != nil {
		return EstateView{}, s.fail(ErrValidation, opCreate, "missing_required_fields", err)
	}

	estate := Estate{
		Name:        *input.Name,
		Address:     input.Address,
		Description: input.Description,
		CreatedAt:   s.now(),
	}
	err := s.inTransaction(ctx, opCreate, func(tx *gorm.DB) error {
		if err := tx.Create(&estate).Error; err != nil {
			return s.fail(ErrPersistence, opCreate, "insert_failed", err, zap.String("name", estate.Name))
		}
		return nil
	})
	if err != nil {
		return EstateView{}, err
	}
	return newEstateView(estate), nil
}

func (s *EstateService) Update(ctx context.Context, id uint, patch EstatePatch) (EstateView, error) {
	var updated Estate
	err := s.inTransaction(ctx, opUpdate, func(tx *gorm.DB) error {
		var estate Estate
		if err := s.load(tx, opUpdate, id, &estate); err != nil {
			return err
		}
		if patch.empty() {
			return s.fail(ErrValidation, opUpdate, "empty_payload", ErrEmptyPayload, zap.Uint("id", id))
		}

		updates := map[string]any{}
		if patch.Name.Set {
			updates["name"] = patch.Name.column()
		}
		if patch.Address.Set {
			updates["address"] = patch.Address.column()
		}
		if patch.Description.Set {
			updates["description"] = patch.Description.column()
		}

		if err := tx.Model(&Estate{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return s.fail(ErrPersistence, opUpdate, "update_failed", err, zap.Uint("id", id))
		}
		return s.load(tx, opUpdate, id, &updated)
	})
	if err != nil {
		return EstateView{}, err
	}
	return newEstateView(updated), nil
}

// Delete removes the estate. Estates with residents, events, posts or projects cannot be removed.
func (s *EstateService) Delete(ctx context.Context, id uint) error {
	return s.inTransaction(ctx, opDelete, func(tx *gorm.DB) error {
		var estate Estate
		if err := s.load(tx, opDelete, id, &estate); err != nil {
			return err
		}
		if err := tx.Delete(&Estate{}, id).Error; err != nil {
			return s.fail(ErrPersistence, opDelete, "delete_failed", err, zap.Uint("id", id))
		}
		return nil
	})
}
