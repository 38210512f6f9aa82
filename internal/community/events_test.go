package community

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventServiceCreateResolvesAttendees(t *testing.T) {
	f := newFixture(t)
	first := f.mustUser(t, "alice")
	second := f.mustUser(t, "bob")
	estate := f.mustEstate(t, "Greenview")

	created, err := f.events.Create(context.Background(), EventInput{
		Name:      ptr("Clean-up Day"),
		Date:      ptr("2024-06-01T09:00:00"),
		Location:  ptr("Main gate"),
		EstateID:  ptr(estate.ID),
		CreatorID: ptr(first.ID),
		Attendees: []uint{second.ID, first.ID, 999, second.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{first.ID, second.ID}, created.Attendees)
	assert.Equal(t, "2024-06-01T09:00:00Z", created.Date)
	assert.Equal(t, int64(2), f.count(t, &EventAttendee{}))

	fetched, err := f.events.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)
}

func TestEventServiceKeepsFractionalSeconds(t *testing.T) {
	f := newFixture(t)
	creator := f.mustUser(t, "alice")

	created, err := f.events.Create(context.Background(), EventInput{
		Name:      ptr("Sunrise walk"),
		Date:      ptr("2024-05-01T10:00:00.5+03:00"),
		CreatorID: ptr(creator.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T07:00:00.5Z", created.Date)

	fetched, err := f.events.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T07:00:00.5Z", fetched.Date)
}

func TestEventServiceCreateWithoutAttendeesRendersEmptyList(t *testing.T) {
	f := newFixture(t)
	creator := f.mustUser(t, "alice")

	created, err := f.events.Create(context.Background(), EventInput{
		Name:      ptr("Meeting"),
		Date:      ptr("2024-06-01"),
		CreatorID: ptr(creator.ID),
	})
	require.NoError(t, err)
	assert.NotNil(t, created.Attendees)
	assert.Empty(t, created.Attendees)

	listed, err := f.events.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.NotNil(t, listed[0].Attendees)
}

func TestEventServiceCreateRejections(t *testing.T) {
	f := newFixture(t)
	creator := f.mustUser(t, "alice")

	testCases := []struct {
		name  string
		input EventInput
		kind  error
	}{
		{name: "missing date", input: EventInput{Name: ptr("x"), CreatorID: ptr(creator.ID)}, kind: ErrValidation},
		{name: "unparseable date", input: EventInput{Name: ptr("x"), Date: ptr("next tuesday"), CreatorID: ptr(creator.ID)}, kind: ErrValidation},
		{name: "unknown creator", input: EventInput{Name: ptr("x"), Date: ptr("2024-06-01"), CreatorID: ptr(uint(77))}, kind: ErrPersistence},
		{name: "unknown estate", input: EventInput{Name: ptr("x"), Date: ptr("2024-06-01"), CreatorID: ptr(creator.ID), EstateID: ptr(uint(5))}, kind: ErrPersistence},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := f.events.Create(context.Background(), testCase.input)
			assert.ErrorIs(t, err, testCase.kind)
		})
	}
	assert.Zero(t, f.count(t, &Event{}))
}

func TestEventServiceUpdateReplacesAttendees(t *testing.T) {
	f := newFixture(t)
	alice := f.mustUser(t, "alice")
	bob := f.mustUser(t, "bob")
	carol := f.mustUser(t, "carol")

	created, err := f.events.Create(context.Background(), EventInput{
		Name:      ptr("Clean-up Day"),
		Date:      ptr("2024-06-01T09:00:00Z"),
		CreatorID: ptr(alice.ID),
		Attendees: []uint{alice.ID, bob.ID},
	})
	require.NoError(t, err)

	updated, err := f.events.Update(context.Background(), created.ID, EventPatch{
		Attendees: Some([]uint{carol.ID, carol.ID, 404}),
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{carol.ID}, updated.Attendees)
	assert.Equal(t, int64(1), f.count(t, &EventAttendee{}))
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.Date, updated.Date)

	untouched, err := f.events.Update(context.Background(), created.ID, EventPatch{
		Name:      Some("Renamed"),
		Attendees: Null[[]uint](),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", untouched.Name)
	assert.Equal(t, []uint{carol.ID}, untouched.Attendees)

	cleared, err := f.events.Update(context.Background(), created.ID, EventPatch{Attendees: Some([]uint{})})
	require.NoError(t, err)
	assert.Empty(t, cleared.Attendees)
}

func TestEventServiceUpdateDate(t *testing.T) {
	f := newFixture(t)
	creator := f.mustUser(t, "alice")
	created, err := f.events.Create(context.Background(), EventInput{
		Name:      ptr("Meeting"),
		Date:      ptr("2024-06-01"),
		CreatorID: ptr(creator.ID),
	})
	require.NoError(t, err)

	updated, err := f.events.Update(context.Background(), created.ID, EventPatch{Date: Some("2024-07-15 18:30:00")})
	require.NoError(t, err)
	assert.Equal(t, "2024-07-15T18:30:00Z", updated.Date)

	_, err = f.events.Update(context.Background(), created.ID, EventPatch{Date: Some("15/07/2024")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.events.Update(context.Background(), created.ID, EventPatch{Date: Null[string]()})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.events.Update(context.Background(), created.ID, EventPatch{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEventServiceDeleteRemovesAttendance(t *testing.T) {
	f := newFixture(t)
	creator := f.mustUser(t, "alice")
	created, err := f.events.Create(context.Background(), EventInput{
		Name:      ptr("Meeting"),
		Date:      ptr("2024-06-01"),
		CreatorID: ptr(creator.ID),
		Attendees: []uint{creator.ID},
	})
	require.NoError(t, err)

	require.NoError(t, f.events.Delete(context.Background(), created.ID))
	assert.Zero(t, f.count(t, &EventAttendee{}))
	_, err = f.events.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.events.Delete(context.Background(), created.ID), ErrNotFound)

	_, err = f.users.Get(context.Background(), creator.ID)
	assert.NoError(t, err)
}
