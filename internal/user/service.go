package user

import (
	"context"
	"fmt"
	"time"

	"user_api/internal/apperror"
	"user_api/internal/auth"
	"user_api/internal/observability"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProfileCache caches redacted profiles by user name.
type ProfileCache interface {
	Get(ctx context.Context, name string, dst interface{}) (bool, error)
	Set(ctx context.Context, name string, profile interface{}) error
	Delete(ctx context.Context, names ...string) error
}

// NameLocker serializes the uniqueness check and the write that claims a name.
type NameLocker interface {
	Acquire(ctx context.Context, name string) (func(), error)
}

type EventPublisher interface {
	Publish(ctx context.Context, payload interface{}) error
}

type UserServiceInterface interface {
	ListUsers(ctx context.Context) ([]NameOnly, error)
	GetUser(ctx context.Context, name string) (*Profile, error)
	CreateUser(ctx context.Context, req *UserRequest) (string, error)
	UpdateUser(ctx context.Context, name string, req *UserRequest) (*Profile, error)
	DeleteUser(ctx context.Context, name string) (string, error)
	Login(ctx context.Context, req *LoginRequest) (*LoginResult, error)
}

type ServiceOptions struct {
	Cache     ProfileCache
	Locker    NameLocker
	Publisher EventPublisher

	JWTSecret string
	TokenTTL  time.Duration

	// StorageTimeout bounds the storage calls of one operation. Zero disables it.
	StorageTimeout time.Duration
}

type UserService struct {
	repo UserRepositoryInterface
	opts ServiceOptions

	newID func() (string, error)
	now   func() time.Time
}

func NewUserService(repo UserRepositoryInterface, opts ServiceOptions) UserServiceInterface {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = auth.DefaultTokenTTL
	}
	return &UserService{
		repo:  repo,
		opts:  opts,
		newID: newUserID,
		now:   time.Now,
	}
}

// newUserID returns a time-based (version 1) uuid.
func newUserID() (string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]NameOnly, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.List(ctx)
}

// GetUser reads through the profile cache.
func (s *UserService) GetUser(ctx context.Context, name string) (*Profile, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if s.opts.Cache != nil {
		var cached Profile
		hit, err := s.opts.Cache.Get(ctx, name, &cached)
		if err != nil {
			logrus.WithError(err).Warn("Failed to read profile cache")
		} else if hit {
			logrus.WithField("userName", name).Debug("profile cache hit")
			return &cached, nil
		}
	}

	profile, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if s.opts.Cache != nil {
		if err := s.opts.Cache.Set(ctx, name, profile); err != nil {
			logrus.WithError(err).Warn("Failed to set profile cache")
		}
	}
	return profile, nil
}

// CreateUser rejects a taken name, then stores a new record with a fresh
// id and creation date. It returns the stored user name.
func (s *UserService) CreateUser(ctx context.Context, req *UserRequest) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	release, err := s.lock(ctx, req.UserName)
	if err != nil {
		return "", err
	}
	defer release()

	existing, err := s.repo.Exists(ctx, req.UserName)
	if err != nil {
		return "", err
	}
	if existing != nil {
		countConflict()
		return "", apperror.Conflict(fmt.Sprintf("user name: %s has already been used.", req.UserName))
	}

	id, err := s.newID()
	if err != nil {
		return "", apperror.StorageFault("Unable to generate user id", err)
	}

	user := &User{
		UserID:     id,
		UserName:   req.UserName,
		FirstName:  deref(req.UserFirstName),
		LastName:   deref(req.UserLastName),
		CreateDate: s.now().UTC().Format(time.RFC3339),
	}
	if req.UserPassword != nil {
		hash, err := auth.GeneratePasswordHash(*req.UserPassword)
		if err != nil {
			return "", apperror.StorageFault("Unable to hash password", err)
		}
		user.Password = hash
	}

	if err := s.repo.Insert(ctx, user); err != nil {
		return "", err
	}

	countMutation("create")
	s.publish(ctx, Event{Type: EventCreated, UserID: user.UserID, UserName: user.UserName})
	return user.UserName, nil
}

// UpdateUser replaces the mutable fields of the user called name.
// Renaming onto a name held by another user is a conflict.
func (s *UserService) UpdateUser(ctx context.Context, name string, req *UserRequest) (*Profile, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	target, err := s.resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	if req.UserName != name {
		release, err := s.lock(ctx, req.UserName)
		if err != nil {
			return nil, err
		}
		defer release()

		holder, err := s.repo.Exists(ctx, req.UserName)
		if err != nil {
			return nil, err
		}
		if holder != nil && holder.UserID != target.UserID {
			countConflict()
			return nil, apperror.Conflict(fmt.Sprintf("user name: %s has already been used.", req.UserName))
		}
	}

	fields := *req
	if req.UserPassword != nil {
		hash, err := auth.GeneratePasswordHash(*req.UserPassword)
		if err != nil {
			return nil, apperror.StorageFault("Unable to hash password", err)
		}
		fields.UserPassword = &hash
	}

	profile, err := s.repo.Update(ctx, target.UserID, &fields)
	if err != nil {
		return nil, err
	}

	s.evict(ctx, name, req.UserName)
	countMutation("update")
	s.publish(ctx, Event{Type: EventUpdated, UserID: target.UserID, UserName: profile.UserName, PrevName: name})
	return profile, nil
}

// DeleteUser removes the user called name and returns the name.
func (s *UserService) DeleteUser(ctx context.Context, name string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	target, err := s.resolve(ctx, name)
	if err != nil {
		return "", err
	}

	if err := s.repo.Remove(ctx, target.UserID); err != nil {
		return "", err
	}

	s.evict(ctx, name)
	countMutation("delete")
	s.publish(ctx, Event{Type: EventDeleted, UserID: target.UserID, UserName: name})
	return name, nil
}

// Login checks the credentials and signs a token for the user.
func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	invalid := apperror.Validation("Invalid user name or password")

	user, err := s.repo.Exists(ctx, req.UserName)
	if err != nil {
		return nil, err
	}
	if user == nil {
		countLogin("failed")
		return nil, invalid
	}

	if err := auth.ComparePasswordHash([]byte(user.Password), req.UserPassword); err != nil {
		logrus.WithField("userName", req.UserName).Warn("Login rejected: password mismatch")
		countLogin("failed")
		return nil, invalid
	}

	token, err := auth.GenerateToken(user.UserName, s.opts.JWTSecret, s.opts.TokenTTL)
	if err != nil {
		return nil, apperror.StorageFault("Unable to sign token", err)
	}

	countLogin("success")
	return &LoginResult{UserName: user.UserName, Token: token}, nil
}

// resolve is the existence check that precedes update and delete.
func (s *UserService) resolve(ctx context.Context, name string) (*User, error) {
	user, err := s.repo.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound(fmt.Sprintf("user name: %s does NOT exist.", name))
	}
	return user, nil
}

func (s *UserService) lock(ctx context.Context, name string) (func(), error) {
	if s.opts.Locker == nil {
		return func() {}, nil
	}
	release, err := s.opts.Locker.Acquire(ctx, name)
	if err != nil {
		logrus.WithError(err).WithField("userName", name).Error("Failed to acquire name lock")
		return nil, apperror.StorageFault(fmt.Sprintf("Unable to reserve user name: %s", name), err)
	}
	return release, nil
}

func (s *UserService) evict(ctx context.Context, names ...string) {
	if s.opts.Cache == nil {
		return
	}
	if err := s.opts.Cache.Delete(ctx, names...); err != nil {
		logrus.WithError(err).Warn("Failed to evict profile cache")
	}
}

func (s *UserService) publish(ctx context.Context, event Event) {
	if s.opts.Publisher == nil {
		return
	}
	event.OccurredAt = s.now().UTC().Format(time.RFC3339)
	if err := s.opts.Publisher.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithField("event", event.Type).Warn("Failed to publish user event")
	}
}

func (s *UserService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StorageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.StorageTimeout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func countMutation(op string) {
	if observability.GlobalMetrics != nil {
		observability.GlobalMetrics.UserMutationsTotal.WithLabelValues(op).Inc()
	}
}

func countConflict() {
	if observability.GlobalMetrics != nil {
		observability.GlobalMetrics.NameConflictsTotal.Inc()
	}
}

func countLogin(result string) {
	if observability.GlobalMetrics != nil {
		observability.GlobalMetrics.LoginsTotal.WithLabelValues(result).Inc()
	}
}
