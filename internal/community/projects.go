package community

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const resourceProjects = "projects"

// ProjectInput is the create payload for a project. State defaults to active.
type ProjectInput struct {
	ProjectName   *string  `json:"project_name"`
	Description   *string  `json:"description"`
	EstateID      *uint    `json:"estate_id"`
	CreatorID     *uint    `json:"creator_id"`
	State         *bool    `json:"state"`
	CostEstimates *float64 `json:"cost_estimates"`
	Contributors  []uint   `json:"contributors"`
}

// ProjectPatch is the partial-update payload for a project. A present Contributors list
// replaces the whole contributor set.
type ProjectPatch struct {
	ProjectName   Optional[string]  `json:"project_name"`
	Description   Optional[string]  `json:"description"`
	EstateID      Optional[uint]    `json:"estate_id"`
	State         Optional[bool]    `json:"state"`
	CostEstimates Optional[float64] `json:"cost_estimates"`
	Contributors  Optional[[]uint]  `json:"contributors"`
}

func (p ProjectPatch) empty() bool {
	return !p.ProjectName.Set && !p.Description.Set && !p.EstateID.Set &&
		!p.State.Set && !p.CostEstimates.Set && !p.Contributors.Set
}

// ProjectView is the output representation of a project with its contributor user ids.
type ProjectView struct {
	ID            uint     `json:"id"`
	ProjectName   string   `json:"project_name"`
	Description   *string  `json:"description"`
	EstateID      *uint    `json:"estate_id"`
	CreatorID     uint     `json:"creator_id"`
	State         bool     `json:"state"`
	CostEstimates *float64 `json:"cost_estimates"`
	CreatedAt     string   `json:"created_at"`
	Contributors  []uint   `json:"contributors"`
}

func newProjectView(project Project, contributors []uint) ProjectView {
	if contributors == nil {
		contributors = []uint{}
	}
	return ProjectView{
		ID:            project.ID,
		ProjectName:   project.ProjectName,
		Description:   project.Description,
		EstateID:      project.EstateID,
		CreatorID:     project.CreatorID,
		State:         project.State,
		CostEstimates: project.CostEstimates,
		CreatedAt:     formatTimestamp(project.CreatedAt),
		Contributors:  contributors,
	}
}

// ProjectService manages community projects and their contributor sets.
type ProjectService struct {
	store
}

// NewProjectService constructs the project service.
func NewProjectService(cfg ServiceConfig) (*ProjectService, error) {
	base, err := newStore(resourceProjects, cfg)
	if err != nil {
		return nil, err
	}
	return &ProjectService{store: base}, nil
}

func (s *ProjectService) List(ctx context.Context) ([]ProjectView, error) {
	db := s.db.WithContext(ctx)
	var projects []Project
	if err := db.Order("id").Find(&projects).Error; err != nil {
		return nil, s.fail(ErrPersistence, opList, "query_failed", err)
	}
	projectIDs := make([]uint, 0, len(projects))
	for _, project := range projects {
		projectIDs = append(projectIDs, project.ID)
	}
	contributors, err := projectContribution.membersByOwner(db, projectIDs)
	if err != nil {
		return nil, s.fail(ErrPersistence, opList, "contributors_query_failed", err)
	}
	views := make([]ProjectView, 0, len(projects))
	for _, project := range projects {
		views = append(views, newProjectView(project, contributors[project.ID]))
	}
	return views, nil
}

func (s *ProjectService) Get(ctx context.Context, id uint) (ProjectView, error) {
	db := s.db.WithContext(ctx)
	var project Project
	if err := s.load(db, opGet, id, &project); err != nil {
		return ProjectView{}, err
	}
	contributors, err := projectContribution.members(db, id)
	if err != nil {
		return ProjectView{}, s.fail(ErrPersistence, opGet, "contributors_query_failed", err, zap.Uint("id", id))
	}
	return newProjectView(project, contributors), nil
}

// Create stores the project and attaches the listed contributors that resolve to existing users.
func (s *ProjectService) Create(ctx context.Context, input ProjectInput) (ProjectView, error) {
	if err := checkRequired(
		required("project_name", input.ProjectName != nil),
		required("creator_id", input.CreatorID != nil),
	); err != nil {
		return ProjectView{}, s.fail(ErrValidation, opCreate, "missing_required_fields", err)
	}

	state := true
	if input.State != nil {
		state = *input.State
	}
	project := Project{
		ProjectName:   *input.ProjectName,
		Description:   input.Description,
		EstateID:      input.EstateID,
		CreatorID:     *input.CreatorID,
		State:         state,
		CostEstimates: input.CostEstimates,
		CreatedAt:     s.now(),
	}
	var contributors []uint
	err := s.inTransaction(ctx, opCreate, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&project).Error; err != nil {
			return s.fail(ErrPersistence, opCreate, "insert_failed", err, zap.Uint("creator_id", project.CreatorID))
		}
		attached, err := projectContribution.attach(tx, project.ID, input.Contributors)
		if err != nil {
			return s.fail(ErrPersistence, opCreate, "contributors_insert_failed", err, zap.Uint("id", project.ID))
		}
		contributors = attached
		return nil
	})
	if err != nil {
		return ProjectView{}, err
	}
	return newProjectView(project, contributors), nil
}

func (s *ProjectService) Update(ctx context.Context, id uint, patch ProjectPatch) (ProjectView, error) {
	var (
		updated      Project
		contributors []uint
	)
	err := s.inTransaction(ctx, opUpdate, func(tx *gorm.DB) error {
		var project Project
		if err := s.load(tx, opUpdate, id, &project); err != nil {
			return err
		}
		if patch.empty() {
			return s.fail(ErrValidation, opUpdate, "empty_payload", ErrEmptyPayload, zap.Uint("id", id))
		}

		updates := map[string]any{}
		if patch.ProjectName.Set {
			updates["project_name"] = patch.ProjectName.column()
		}
		if patch.Description.Set {
			updates["description"] = patch.Description.column()
		}
		if patch.EstateID.Set {
			updates["estate_id"] = patch.EstateID.column()
		}
		if patch.State.Set {
			updates["state"] = patch.State.column()
		}
		if patch.CostEstimates.Set {
			updates["cost_estimates"] = patch.CostEstimates.column()
		}

		if len(updates) > 0 {
			if err := tx.Model(&Project{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return s.fail(ErrPersistence, opUpdate, "update_failed", err, zap.Uint("id", id))
			}
		}
		if patch.Contributors.Set && patch.Contributors.Value != nil {
			if _, err := projectContribution.replace(tx, id, *patch.Contributors.Value); err != nil {
				return s.fail(ErrPersistence, opUpdate, "contributors_replace_failed", err, zap.Uint("id", id))
			}
		}

		if err := s.load(tx, opUpdate, id, &updated); err != nil {
			return err
		}
		members, err := projectContribution.members(tx, id)
		if err != nil {
			return s.fail(ErrPersistence, opUpdate, "contributors_query_failed", err, zap.Uint("id", id))
		}
		contributors = members
		return nil
	})
	if err != nil {
		return ProjectView{}, err
	}
	return newProjectView(updated, contributors), nil
}

// Delete removes the project together with its contributor rows.
func (s *ProjectService) Delete(ctx context.Context, id uint) error {
	return s.inTransaction(ctx, opDelete, func(tx *gorm.DB) error {
		var project Project
		if err := s.load(tx, opDelete, id, &project); err != nil {
			return err
		}
		if err := projectContribution.removeOwner(tx, id); err != nil {
			return s.fail(ErrPersistence, opDelete, "contributors_delete_failed", err, zap.Uint("id", id))
		}
		if err := tx.Delete(&Project{}, id).Error; err != nil {
			return s.fail(ErrPersistence, opDelete, "delete_failed", err, zap.Uint("id", id))
		}
		return nil
	})
}
