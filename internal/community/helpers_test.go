package community

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, time.October, 1, 12, 30, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	users    *UserService
	estates  *EstateService
	events   *EventService
	posts    *PostService
	comments *CommentService
	projects *ProjectService
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "community.db")
	db, err := gorm.Open(sqlite.Open(databasePath+"?_pragma=foreign_keys(1)"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(Models()...))

	cfg := ServiceConfig{
		Database:     db,
		Clock:        func() time.Time { return fixedNow },
		PasswordCost: bcrypt.MinCost,
	}
	f := fixture{db: db}
	f.users, err = NewUserService(cfg)
	require.NoError(t, err)
	f.estates, err = NewEstateService(cfg)
	require.NoError(t, err)
	f.events, err = NewEventService(cfg)
	require.NoError(t, err)
	f.posts, err = NewPostService(cfg)
	require.NoError(t, err)
	f.comments, err = NewCommentService(cfg)
	require.NoError(t, err)
	f.projects, err = NewProjectService(cfg)
	require.NoError(t, err)
	return f
}

func ptr[T any](value T) *T {
	return &value
}

func (f fixture) mustUser(t *testing.T, username string) UserView {
	t.Helper()
	user, err := f.users.Create(context.Background(), UserInput{
		Username: ptr(username),
		Email:    ptr(username + "@example.com"),
		Password: ptr("secret-" + username),
		FullName: ptr("Resident " + username),
	})
	require.NoError(t, err)
	return user
}

func (f fixture) mustEstate(t *testing.T, name string) EstateView {
	t.Helper()
	estate, err := f.estates.Create(context.Background(), EstateInput{Name: ptr(name)})
	require.NoError(t, err)
	return estate
}

func (f fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var total int64
	require.NoError(t, f.db.Model(model).Count(&total).Error)
	return total
}
