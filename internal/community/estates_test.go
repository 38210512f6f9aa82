package community

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstateServiceLifecycle(t *testing.T) {
	f := newFixture(t)

	created, err := f.estates.Create(context.Background(), EstateInput{
		Name:    ptr("Greenview"),
		Address: ptr("Ngong Road"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Greenview", created.Name)
	assert.Nil(t, created.Description)

	updated, err := f.estates.Update(context.Background(), created.ID, EstatePatch{
		Description: Some("Gated community"),
	})
	require.NoError(t, err)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.Address, updated.Address)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "Gated community", *updated.Description)

	require.NoError(t, f.estates.Delete(context.Background(), created.ID))
	_, err = f.estates.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEstateServiceRejectsDuplicateName(t *testing.T) {
	f := newFixture(t)
	f.mustEstate(t, "Greenview")

	_, err := f.estates.Create(context.Background(), EstateInput{Name: ptr("Greenview")})
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, int64(1), f.count(t, &Estate{}))

	_, err = f.estates.Create(context.Background(), EstateInput{Address: ptr("nowhere")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEstateServiceDeleteRestrictedByResidents(t *testing.T) {
	f := newFixture(t)
	estate := f.mustEstate(t, "Greenview")
	_, err := f.users.Create(context.Background(), UserInput{
		Username: ptr("alice"),
		Email:    ptr("alice@example.com"),
		Password: ptr("p"),
		FullName: ptr("Alice"),
		EstateID: ptr(estate.ID),
	})
	require.NoError(t, err)

	err = f.estates.Delete(context.Background(), estate.ID)
	require.ErrorIs(t, err, ErrPersistence)
	_, err = f.estates.Get(context.Background(), estate.ID)
	assert.NoError(t, err)
}
