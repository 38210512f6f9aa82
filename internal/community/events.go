package community

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const resourceEvents = "events"

var errNullDate = errors.New("date cannot be null")

// EventInput is the create payload for an event. Date accepts RFC 3339 or naive ISO-8601 text.
type EventInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Location    *string `json:"location"`
	EstateID    *uint   `json:"estate_id"`
	CreatorID   *uint   `json:"creator_id"`
	Attendees   []uint  `json:"attendees"`
}

// EventPatch is the partial-update payload for an event. A present Attendees list replaces the
// whole attendee set; an explicit null leaves it untouched.
type EventPatch struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
	Date        Optional[string] `json:"date"`
	Location    Optional[string] `json:"location"`
	EstateID    Optional[uint]   `json:"estate_id"`
	Attendees   Optional[[]uint] `json:"attendees"`
}

func (p EventPatch) empty() bool {
	return !p.Name.Set && !p.Description.Set && !p.Date.Set &&
		!p.Location.Set && !p.EstateID.Set && !p.Attendees.Set
}

// EventView is the output representation of an event with its attendee user ids.
type EventView struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Date        string  `json:"date"`
	Location    *string `json:"location"`
	EstateID    *uint   `json:"estate_id"`
	CreatorID   uint    `json:"creator_id"`
	CreatedAt   string  `json:"created_at"`
	Attendees   []uint  `json:"attendees"`
}

func newEventView(event Event, attendees []uint) EventView {
	if attendees == nil {
		attendees = []uint{}
	}
	return EventView{
		ID:          event.ID,
		Name:        event.Name,
		Description: event.Description,
		Date:        formatTimestamp(event.Date),
		Location:    event.Location,
		EstateID:    event.EstateID,
		CreatorID:   event.CreatorID,
		CreatedAt:   formatTimestamp(event.CreatedAt),
		Attendees:   attendees,
	}
}

// EventService manages events and their attendee sets.
type EventService struct {
	store
}

// NewEventService constructs the event service.
func NewEventService(cfg ServiceConfig) (*EventService, error) {
	base, err := newStore(resourceEvents, cfg)
	if err != nil {
		return nil, err
	}
	return &EventService{store: base}, nil
}

// List returns every event with its attendees.
func (s *EventService) List(ctx context.Context) ([]EventView, error) {
	db := s.db.WithContext(ctx)
	var events []Event
	if err := db.Order("id").Find(&events).Error; err != nil {
		return nil, s.fail(ErrPersistence, opList, "query_failed", err)
	}
	eventIDs := make([]uint, 0, len(events))
	for _, event := range events {
		eventIDs = append(eventIDs, event.ID)
	}
	attendees, err := eventAttendance.membersByOwner(db, eventIDs)
	if err != nil {
		return nil, s.fail(ErrPersistence, opList, "attendees_query_failed", err)
	}
	views := make([]EventView, 0, len(events))
	for _, event := range events {
		views = append(views, newEventView(event, attendees[event.ID]))
	}
	return views, nil
}

// Get returns the event with the given id and its attendees.
func (s *EventService) Get(ctx context.Context, id uint) (EventView, error) {
	db := s.db.WithContext(ctx)
	var event Event
	if err := s.load(db, opGet, id, &event); err != nil {
		return EventView{}, err
	}
	attendees, err := eventAttendance.members(db, id)
	if err != nil {
		return EventView{}, s.fail(ErrPersistence, opGet, "attendees_query_failed", err, zap.Uint("id", id))
	}
	return newEventView(event, attendees), nil
}

// Create stores the event and attaches the listed attendees that resolve to existing users.
func (s *EventService) Create(ctx context.Context, input EventInput) (EventView, error) {
	if err := checkRequired(
		required("name", input.Name != nil),
		required("date", input.Date != nil),
		required("creator_id", input.CreatorID != nil),
	); err != nil {
		return EventView{}, s.fail(ErrValidation, opCreate, "missing_required_fields", err)
	}
	date, err := parseDate(*input.Date)
	if err != nil {
		return EventView{}, s.fail(ErrValidation, opCreate, "invalid_date", err)
	}

	event := Event{
		Name:        *input.Name,
		Description: input.Description,
		Date:        date,
		Location:    input.Location,
		EstateID:    input.EstateID,
		CreatorID:   *input.CreatorID,
		CreatedAt:   s.now(),
	}
	var attendees []uint
	err = s.inTransaction(ctx, opCreate, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&event).Error; err != nil {
			return s.fail(ErrPersistence, opCreate, "insert_failed", err, zap.Uint("creator_id", event.CreatorID))
		}
		attached, err := eventAttendance.attach(tx, event.ID, input.Attendees)
		if err != nil {
			return s.fail(ErrPersistence, opCreate, "attendees_insert_failed", err, zap.Uint("id", event.ID))
		}
		attendees = attached
		return nil
	})
	if err != nil {
		return EventView{}, err
	}
	return newEventView(event, attendees), nil
}

// Update overwrites the fields present in patch and replaces the attendee set when listed.
func (s *EventService) Update(ctx context.Context, id uint, patch EventPatch) (EventView, error) {
	var (
		updated   Event
		attendees []uint
	)
	err := s.inTransaction(ctx, opUpdate, func(tx *gorm.DB) error {
		var event Event
		if err := s.load(tx, opUpdate, id, &event); err != nil {
			return err
		}
		if patch.empty() {
			return s.fail(ErrValidation, opUpdate, "empty_payload", ErrEmptyPayload, zap.Uint("id", id))
		}

		updates := map[string]any{}
		if patch.Name.Set {
			updates["name"] = patch.Name.column()
		}
		if patch.Description.Set {
			updates["description"] = patch.Description.column()
		}
		if patch.Date.Set {
			if patch.Date.Value == nil {
				return s.fail(ErrValidation, opUpdate, "null_date", errNullDate, zap.Uint("id", id))
			}
			date, err := parseDate(*patch.Date.Value)
			if err != nil {
				return s.fail(ErrValidation, opUpdate, "invalid_date", err, zap.Uint("id", id))
			}
			updates["date"] = date
		}
		if patch.Location.Set {
			updates["location"] = patch.Location.column()
		}
		if patch.EstateID.Set {
			updates["estate_id"] = patch.EstateID.column()
		}

		if len(updates) > 0 {
			if err := tx.Model(&Event{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return s.fail(ErrPersistence, opUpdate, "update_failed", err, zap.Uint("id", id))
			}
		}
		if patch.Attendees.Set && patch.Attendees.Value != nil {
			if _, err := eventAttendance.replace(tx, id, *patch.Attendees.Value); err != nil {
				return s.fail(ErrPersistence, opUpdate, "attendees_replace_failed", err, zap.Uint("id", id))
			}
		}

		if err := s.load(tx, opUpdate, id, &updated); err != nil {
			return err
		}
		members, err := eventAttendance.members(tx, id)
		if err != nil {
			return s.fail(ErrPersistence, opUpdate, "attendees_query_failed", err, zap.Uint("id", id))
		}
		attendees = members
		return nil
	})
	if err != nil {
		return EventView{}, err
	}
	return newEventView(updated, attendees), nil
}

// Delete removes the event together with its attendee rows.
func (s *EventService) Delete(ctx context.Context, id uint) error {
	return s.inTransaction(ctx, opDelete, func(tx *gorm.DB) error {
		var event Event
		if err := s.load(tx, opDelete, id, &event); err != nil {
			return err
		}
		if err := eventAttendance.removeOwner(tx, id); err != nil {
			return s.fail(ErrPersistence, opDelete, "attendees_delete_failed", err, zap.Uint("id", id))
		}
		if err := tx.Delete(&Event{}, id).Error; err != nil {
			return s.fail(ErrPersistence, opDelete, "delete_failed", err, zap.Uint("id", id))
		}
		return nil
	})
}
