package community

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserServiceCreateStoresHashedPassword(t *testing.T) {
	f := newFixture(t)
	estate := f.mustEstate(t, "Greenview")

	created, err := f.users.Create(context.Background(), UserInput{
		Username: ptr("alice"),
		Email:    ptr("alice@example.com"),
		Password: ptr("p@ss"),
		FullName: ptr("Alice Wanjiru"),
		Phone:    ptr("+254700000001"),
		EstateID: ptr(estate.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, uint(1), created.ID)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, "2026-10-01T12:30:00Z", created.CreatedAt)
	require.NotNil(t, created.EstateID)
	assert.Equal(t, estate.ID, *created.EstateID)

	var stored User
	require.NoError(t, f.db.Take(&stored, created.ID).Error)
	assert.NotEqual(t, "p@ss", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), passwordDigest("p@ss")))

	fetched, err := f.users.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)
}

func TestUserServiceCreateRejectsMissingFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Create(context.Background(), UserInput{Username: ptr("bob")})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "missing required fields: email, password, full_name")

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, "community.users.create.missing_required_fields", serviceErr.Code())
	assert.Zero(t, f.count(t, &User{}))
}

func TestUserServiceCreateRejectsDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.mustUser(t, "alice")

	_, err := f.users.Create(context.Background(), UserInput{
		Username: ptr("alice"),
		Email:    ptr("other@example.com"),
		Password: ptr("x"),
		FullName: ptr("Other Alice"),
	})
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, int64(1), f.count(t, &User{}))
}

func TestUserServiceUpdateKeepsAbsentFields(t *testing.T) {
	f := newFixture(t)
	created := f.mustUser(t, "alice")

	updated, err := f.users.Update(context.Background(), created.ID, UserPatch{
		Phone:    Some("+254711111111"),
		FullName: Null[string](),
	})
	require.NoError(t, err)
	assert.Equal(t, created.Username, updated.Username)
	assert.Equal(t, created.Email, updated.Email)
	assert.Nil(t, updated.FullName)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "+254711111111", *updated.Phone)
}

func TestUserServiceUpdateRehashesPassword(t *testing.T) {
	f := newFixture(t)
	created := f.mustUser(t, "alice")

	_, err := f.users.Update(context.Background(), created.ID, UserPatch{Password: Some("rotated")})
	require.NoError(t, err)

	var stored User
	require.NoError(t, f.db.Take(&stored, created.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), passwordDigest("rotated")))
}

func TestUserServiceAcceptsPasswordsBeyondBcryptLimit(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("p", 80)

	created, err := f.users.Create(context.Background(), UserInput{
		Username: ptr("alice"),
		Email:    ptr("alice@example.com"),
		Password: ptr(long),
		FullName: ptr("Alice Wanjiru"),
	})
	require.NoError(t, err)

	var stored User
	require.NoError(t, f.db.Take(&stored, created.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), passwordDigest(long)))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), passwordDigest(long[:72])),
		"passwords sharing a 72-byte prefix must not collide")

	rotated := strings.Repeat("q", 80)
	_, err = f.users.Update(context.Background(), created.ID, UserPatch{Password: Some(rotated)})
	require.NoError(t, err)
	require.NoError(t, f.db.Take(&stored, created.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), passwordDigest(rotated)))
}

func TestUserServiceUpdateRejections(t *testing.T) {
	f := newFixture(t)
	created := f.mustUser(t, "alice")

	testCases := []struct {
		name  string
		id    uint
		patch UserPatch
		kind  error
	}{
		{name: "unknown id", id: 42, patch: UserPatch{Phone: Some("1")}, kind: ErrNotFound},
		{name: "unknown id with empty patch", id: 42, patch: UserPatch{}, kind: ErrNotFound},
		{name: "empty patch", id: created.ID, patch: UserPatch{}, kind: ErrValidation},
		{name: "null password", id: created.ID, patch: UserPatch{Password: Null[string]()}, kind: ErrValidation},
		{name: "null username", id: created.ID, patch: UserPatch{Username: Null[string]()}, kind: ErrPersistence},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := f.users.Update(context.Background(), testCase.id, testCase.patch)
			assert.ErrorIs(t, err, testCase.kind)
		})
	}

	fetched, err := f.users.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)
}

func TestUserServiceDeleteRemovesAttendance(t *testing.T) {
	f := newFixture(t)
	creator := f.mustUser(t, "creator")
	guest := f.mustUser(t, "guest")

	event, err := f.events.Create(context.Background(), EventInput{
		Name:      ptr("Cleanup"),
		Date:      ptr("2026-11-01T09:00:00"),
		CreatorID: ptr(creator.ID),
		Attendees: []uint{creator.ID, guest.ID},
	})
	require.NoError(t, err)
	project, err := f.projects.Create(context.Background(), ProjectInput{
		ProjectName:  ptr("Borehole"),
		CreatorID:    ptr(creator.ID),
		Contributors: []uint{guest.ID},
	})
	require.NoError(t, err)

	require.NoError(t, f.users.Delete(context.Background(), guest.ID))

	_, err = f.users.Get(context.Background(), guest.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	reloaded, err := f.events.Get(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{creator.ID}, reloaded.Attendees)

	reloadedProject, err := f.projects.Get(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{}, reloadedProject.Contributors)
}

func TestUserServiceDeleteRestrictedByAuthoredRows(t *testing.T) {
	f := newFixture(t)
	creator := f.mustUser(t, "creator")
	event, err := f.events.Create(context.Background(), EventInput{
		Name:      ptr("Cleanup"),
		Date:      ptr("2026-11-01"),
		CreatorID: ptr(creator.ID),
		Attendees: []uint{creator.ID},
	})
	require.NoError(t, err)

	err = f.users.Delete(context.Background(), creator.ID)
	require.ErrorIs(t, err, ErrPersistence)

	_, err = f.users.Get(context.Background(), creator.ID)
	require.NoError(t, err)
	reloaded, err := f.events.Get(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{creator.ID}, reloaded.Attendees, "attendance removal must roll back")
}

func TestUserServiceListOrdersByID(t *testing.T) {
	f := newFixture(t)

	empty, err := f.users.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, empty)

	f.mustUser(t, "zed")
	f.mustUser(t, "amy")
	listed, err := f.users.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "zed", listed[0].Username)
	assert.Equal(t, "amy", listed[1].Username)
}
