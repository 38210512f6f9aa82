package community

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrValidation marks input that is missing required fields or carries unusable values.
	ErrValidation = errors.New("community: validation failed")
	// ErrNotFound marks an identifier that does not resolve to a stored row.
	ErrNotFound = errors.New("community: record not found")
	// ErrPersistence marks a storage failure; the surrounding transaction has been rolled back.
	ErrPersistence = errors.New("community: persistence failed")

	// ErrEmptyPayload is the cause of the validation failure an Update returns when the patch
	// names no field the entity recognises.
	ErrEmptyPayload = errors.New("no data provided")

	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew = "new"
	opList       = "list"
	opGet        = "get"
	opCreate     = "create"
	opUpdate     = "update"
	opDelete     = "delete"
)

// ServiceError carries the failure kind, a dotted code and the underlying cause.
type ServiceError struct {
	kind error
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Is reports whether target is the failure kind of this error.
func (e *ServiceError) Is(target error) bool {
	return target == e.kind
}

func (e *ServiceError) Code() string {
	return e.code
}

// Detail returns the cause text without the code prefix.
func (e *ServiceError) Detail() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func newServiceError(kind error, resource, operation, reason string, cause error) *ServiceError {
	return &ServiceError{
		kind: kind,
		code: fmt.Sprintf("community.%s.%s.%s", resource, operation, reason),
		err:  cause,
	}
}

// ServiceConfig describes the dependencies shared by every entity service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
	// PasswordCost is the bcrypt cost used by UserService; zero selects bcrypt.DefaultCost.
	PasswordCost int
}

// store holds the plumbing each entity service embeds.
type store struct {
	resource string
	db       *gorm.DB
	clock    func() time.Time
	logger   *zap.Logger
}

func newStore(resource string, cfg ServiceConfig) (store, error) {
	if cfg.Database == nil {
		return store{}, newServiceError(ErrPersistence, resource, opServiceNew, "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return store{
		resource: resource,
		db:       cfg.Database,
		clock:    clock,
		logger:   logger,
	}, nil
}

func (s store) now() time.Time {
	return s.clock().UTC()
}

// fail logs the failure and returns it as a ServiceError.
func (s store) fail(kind error, operation, reason string, cause error, fields ...zap.Field) error {
	serviceErr := newServiceError(kind, s.resource, operation, reason, cause)
	attrs := []zap.Field{
		zap.String("resource", s.resource),
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if cause != nil {
		attrs = append(attrs, zap.Error(cause))
	}
	attrs = append(attrs, fields...)
	if errors.Is(kind, ErrPersistence) {
		s.logger.Error("community service error", attrs...)
	} else {
		s.logger.Debug("community request rejected", attrs...)
	}
	return serviceErr
}

// load reads the row with the given id into dest using db, which may be a transaction.
func (s store) load(db *gorm.DB, operation string, id uint, dest any) error {
	err := db.Take(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.fail(ErrNotFound, operation, "not_found", fmt.Errorf("%s %d not found", s.resource, id), zap.Uint("id", id))
	}
	if err != nil {
		return s.fail(ErrPersistence, operation, "select_failed", err, zap.Uint("id", id))
	}
	return nil
}

// inTransaction runs fn in a single transaction. Errors returned by fn are expected to be
// ServiceErrors already; anything else (begin or commit failures) is wrapped as persistence.
func (s store) inTransaction(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return err
	}
	return s.fail(ErrPersistence, operation, "transaction_failed", err)
}

type requiredField struct {
	name    string
	present bool
}

func required(name string, present bool) requiredField {
	return requiredField{name: name, present: present}
}

func checkRequired(fields ...requiredField) error {
	missing := make([]string, 0, len(fields))
	for _, field := range fields {
		if !field.present {
			missing = append(missing, field.name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
}
