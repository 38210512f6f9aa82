package community

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const resourceUsers = "users"

var errNullPassword = errors.New("password cannot be null")

// UserInput is the create payload for a user.
type UserInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	EstateID *uint   `json:"estate_id"`
}

// UserPatch is the partial-update payload for a user.
type UserPatch struct {
	Username Optional[string] `json:"username"`
	Email    Optional[string] `json:"email"`
	Password Optional[string] `json:"password"`
	FullName Optional[string] `json:"full_name"`
	Phone    Optional[string] `json:"phone"`
	EstateID Optional[uint]   `json:"estate_id"`
}

func (p UserPatch) empty() bool {
	return !p.Username.Set && !p.Email.Set && !p.Password.Set &&
		!p.FullName.Set && !p.Phone.Set && !p.EstateID.Set
}

// UserView is the output representation of a user; the credential is never included.
type UserView struct {
	ID        uint    `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FullName  *string `json:"full_name"`
	Phone     *string `json:"phone"`
	EstateID  *uint   `json:"estate_id"`
	CreatedAt string  `json:"created_at"`
}

func newUserView(user User) UserView {
	return UserView{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		Phone:     user.Phone,
		EstateID:  user.EstateID,
		CreatedAt: formatTimestamp(user.CreatedAt),
	}
}

// UserService manages community members and their hashed credentials.
type UserService struct {
	store
	passwordCost int
}

// NewUserService constructs the user service.
func NewUserService(cfg ServiceConfig) (*UserService, error) {
	base, err := newStore(resourceUsers, cfg)
	if err != nil {
		return nil, err
	}
	cost := cfg.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserService{store: base, passwordCost: cost}, nil
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]UserView, error) {
	var users []User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, s.fail(ErrPersistence, opList, "query_failed", err)
	}
	views := make([]UserView, 0, len(users))
	for _, user := range users {
		views = append(views, newUserView(user))
	}
	return views, nil
}

// Get returns the user with the given id.
func (s *UserService) Get(ctx context.Context, id uint) (UserView, error) {
	var user User
	if err := s.load(s.db.WithContext(ctx), opGet, id, &user); err != nil {
		return UserView{}, err
	}
	return newUserView(user), nil
}

// Create validates input, hashes the password and stores a new user.
func (s *UserService) Create(ctx context.Context, input UserInput) (UserView, error) {
	if err := checkRequired(
		required("username", input.Username != nil),
		required("email", input.Email != nil),
		required("password", input.Password != nil),
		required("full_name", input.FullName != nil),
	); err != nil {
		return UserView{}, s.fail(ErrValidation, opCreate, "missing_required_fields", err)
	}

	passwordHash, err := s.hashPassword(*input.Password)
	if err != nil {
		return UserView{}, s.fail(ErrPersistence, opCreate, "password_hash_failed", err)
	}

	user := User{
		Username:     *input.Username,
		Email:        *input.Email,
		PasswordHash: passwordHash,
		FullName:     input.FullName,
		Phone:        input.Phone,
		EstateID:     input.EstateID,
		CreatedAt:    s.now(),
	}
	err = s.inTransaction(ctx, opCreate, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&user).Error; err != nil {
			return s.fail(ErrPersistence, opCreate, "insert_failed", err, zap.String("username", user.Username))
		}
		return nil
	})
	if err != nil {
		return UserView{}, err
	}
	return newUserView(user), nil
}

// Update overwrites the fields present in patch.
func (s *UserService) Update(ctx context.Context, id uint, patch UserPatch) (UserView, error) {
	var updated User
	err := s.inTransaction(ctx, opUpdate, func(tx *gorm.DB) error {
		var user User
		if err := s.load(tx, opUpdate, id, &user); err != nil {
			return err
		}
		if patch.empty() {
			return s.fail(ErrValidation, opUpdate, "empty_payload", ErrEmptyPayload, zap.Uint("id", id))
		}

		updates := map[string]any{}
		if patch.Username.Set {
			updates["username"] = patch.Username.column()
		}
		if patch.Email.Set {
			updates["email"] = patch.Email.column()
		}
		if patch.Password.Set {
			if patch.Password.Value == nil {
				return s.fail(ErrValidation, opUpdate, "null_password", errNullPassword, zap.Uint("id", id))
			}
			passwordHash, err := s.hashPassword(*patch.Password.Value)
			if err != nil {
				return s.fail(ErrPersistence, opUpdate, "password_hash_failed", err, zap.Uint("id", id))
			}
			updates["password_hash"] = passwordHash
		}
		if patch.FullName.Set {
			updates["full_name"] = patch.FullName.column()
		}
		if patch.Phone.Set {
			updates["phone"] = patch.Phone.column()
		}
		if patch.EstateID.Set {
			updates["estate_id"] = patch.EstateID.column()
		}

		if err := tx.Model(&User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return s.fail(ErrPersistence, opUpdate, "update_failed", err, zap.Uint("id", id))
		}
		return s.load(tx, opUpdate, id, &updated)
	})
	if err != nil {
		return UserView{}, err
	}
	return newUserView(updated), nil
}

// Delete removes the user and its event attendance and project contribution rows. A user still
// referenced as creator or author of other rows cannot be removed.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	return s.inTransaction(ctx, opDelete, func(tx *gorm.DB) error {
		var user User
		if err := s.load(tx, opDelete, id, &user); err != nil {
			return err
		}
		if err := eventAttendance.removeUser(tx, id); err != nil {
			return s.fail(ErrPersistence, opDelete, "attendance_delete_failed", err, zap.Uint("id", id))
		}
		if err := projectContribution.removeUser(tx, id); err != nil {
			return s.fail(ErrPersistence, opDelete, "contribution_delete_failed", err, zap.Uint("id", id))
		}
		if err := tx.Delete(&User{}, id).Error; err != nil {
			return s.fail(ErrPersistence, opDelete, "delete_failed", err, zap.Uint("id", id))
		}
		return nil
	})
}

// hashPassword bcrypts the password digest, so passwords longer than bcrypt's 72-byte input
// limit are accepted without truncation.
func (s *UserService) hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(passwordDigest(password), s.passwordCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// passwordDigest is the base64 SHA-256 of password: 44 bytes regardless of input length.
func passwordDigest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(encoded, sum[:])
	return encoded
}
