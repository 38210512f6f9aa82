package community

import (
	"gorm.io/gorm"
)

// membership addresses one user association table keyed by (user_id, <owner>_id).
type membership struct {
	table       string
	ownerColumn string
}

var (
	eventAttendance     = membership{table: "event_attendees", ownerColumn: "event_id"}
	projectContribution = membership{table: "project_contributors", ownerColumn: "project_id"}
)

type membershipRow struct {
	OwnerID uint
	UserID  uint
}

// members returns the user ids attached to owner, ascending.
func (m membership) members(db *gorm.DB, ownerID uint) ([]uint, error) {
	userIDs := []uint{}
	err := db.Table(m.table).
		Where(m.ownerColumn+" = ?", ownerID).
		Order("user_id").
		Pluck("user_id", &userIDs).
		Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

// membersByOwner loads the memberships of every owner in one query.
func (m membership) membersByOwner(db *gorm.DB, ownerIDs []uint) (map[uint][]uint, error) {
	grouped := make(map[uint][]uint, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return grouped, nil
	}
	var rows []membershipRow
	err := db.Table(m.table).
		Select(m.ownerColumn+" AS owner_id, user_id").
		Where(m.ownerColumn+" IN ?", ownerIDs).
		Order("user_id").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		grouped[row.OwnerID] = append(grouped[row.OwnerID], row.UserID)
	}
	return grouped, nil
}

// attach links the candidates that name existing users to owner and returns the linked ids.
// Unknown ids are skipped and repeats collapse to one row.
func (m membership) attach(tx *gorm.DB, ownerID uint, candidates []uint) ([]uint, error) {
	userIDs, err := resolveUserIDs(tx, candidates)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return userIDs, nil
	}
	rows := make([]map[string]any, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, map[string]any{
			"user_id":     userID,
			m.ownerColumn: ownerID,
		})
	}
	if err := tx.Table(m.table).Create(rows).Error; err != nil {
		return nil, err
	}
	return userIDs, nil
}

// replace clears the memberships of owner and attaches candidates in their place.
func (m membership) replace(tx *gorm.DB, ownerID uint, candidates []uint) ([]uint, error) {
	if err := m.removeOwner(tx, ownerID); err != nil {
		return nil, err
	}
	return m.attach(tx, ownerID, candidates)
}

func (m membership) removeOwner(tx *gorm.DB, ownerID uint) error {
	return tx.Exec("DELETE FROM "+m.table+" WHERE "+m.ownerColumn+" = ?", ownerID).Error
}

func (m membership) removeUser(tx *gorm.DB, userID uint) error {
	return tx.Exec("DELETE FROM "+m.table+" WHERE user_id = ?", userID).Error
}

// resolveUserIDs keeps the candidates that name existing users, ascending and without repeats.
func resolveUserIDs(db *gorm.DB, candidates []uint) ([]uint, error) {
	existing := []uint{}
	if len(candidates) == 0 {
		return existing, nil
	}
	seen := make(map[uint]struct{}, len(candidates))
	unique := make([]uint, 0, len(candidates))
	for _, candidate := range candidates {
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		unique = append(unique, candidate)
	}
	err := db.Model(&User{}).
		Where("id IN ?", unique).
		Order("id").
		Pluck("id", &existing).
		Error
	if err != nil {
		return nil, err
	}
	return existing, nil
}
