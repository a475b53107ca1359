// Package service implements account and profile operations. Every write runs
// inside a unit of work; events are recorded on the unit of work and reach
// the bus only after commit.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"golang.org/x/crypto/bcrypt"

	"conduit/internal/events"
	jwttoken "conduit/internal/jwt_token"
	"conduit/internal/storage"
	"conduit/internal/user/models"
	"conduit/pkg/domainerrors"
	"conduit/pkg/platform/sentinel"
)

// AuthenticatedUser pairs an account with a freshly minted token.
type AuthenticatedUser struct {
	User  *models.User
	Token string
}

// ClientInfo describes the client making a login attempt, for the security
// audit trail.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Service implements registration, authentication and profile operations.
type Service struct {
	mgr    storage.Manager
	bus    events.Publisher
	tokens *jwttoken.Service
	logger *slog.Logger
}

func New(mgr storage.Manager, bus events.Publisher, tokens *jwttoken.Service, logger *slog.Logger) *Service {
	return &Service{
		mgr:    mgr,
		bus:    bus,
		tokens: tokens,
		logger: logger,
	}
}

// Register creates a new account and returns it with an access token.
func (s *Service) Register(ctx context.Context, input models.NewUserInput) (*AuthenticatedUser, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (*models.User, error) {
			if _, err := uow.Users().FindByEmail(ctx, input.Email); err == nil {
				return nil, domainerrors.WithCode(domainerrors.KindConflict, "EMAIL_TAKEN",
					"an account with this email already exists")
			} else if !errors.Is(err, sentinel.ErrNotFound) {
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "check email")
			}
			if _, err := uow.Users().FindByUsername(ctx, input.Username); err == nil {
				return nil, domainerrors.WithCode(domainerrors.KindConflict, "USERNAME_TAKEN",
					"this username is already taken")
			} else if !errors.Is(err, sentinel.ErrNotFound) {
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "check username")
			}

			if err := uow.Users().Create(ctx, user); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return nil, domainerrors.WithCode(domainerrors.KindConflict, "EMAIL_TAKEN",
						"an account with this email already exists")
				}
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "create user")
			}

			uow.Record(events.UserRegistered{
				UserID:   user.ID,
				Username: user.Username,
				Email:    user.Email,
			})
			return user, nil
		})
	if err != nil {
		return nil, err
	}

	return s.withToken(created)
}

// Login checks credentials and returns the account with a token. Every
// attempt, successful or not, produces a UserLoginAttempted event; failed
// attempts publish it directly since there is nothing to commit.
func (s *Service) Login(ctx context.Context, email, password string, client ClientInfo) (*AuthenticatedUser, error) {
	attempt := events.UserLoginAttempted{Email: email, IP: client.IP}
	if client.UserAgent != "" {
		ua := useragent.New(client.UserAgent)
		name, version := ua.Browser()
		attempt.Browser = name + " " + version
		attempt.OS = ua.OS()
	}

	invalidCredentials := domainerrors.WithCode(domainerrors.KindAuthentication, "INVALID_CREDENTIALS",
		"email or password is incorrect")

	user, err := storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (*models.User, error) {
			user, err := uow.Users().FindByEmail(ctx, email)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return nil, invalidCredentials
				}
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "find user")
			}
			if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
				return nil, invalidCredentials
			}

			attempt.Success = true
			uow.Record(attempt)
			uow.Record(events.UserLoggedIn{
				UserID:   user.ID,
				Username: user.Username,
				Email:    user.Email,
			})
			return user, nil
		})
	if err != nil {
		if s.bus != nil && domainerrors.HasCode(err, "INVALID_CREDENTIALS") {
			s.bus.Publish(ctx, attempt)
		}
		return nil, err
	}

	return s.withToken(user)
}

// GetCurrent loads the authenticated user's account.
func (s *Service) GetCurrent(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (*models.User, error) {
			user, err := uow.Users().FindByID(ctx, userID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return nil, domainerrors.New(domainerrors.KindNotFound, "user not found")
				}
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "find user")
			}
			return user, nil
		})
}

// Update applies the provided fields to the account. A password change is
// reported as its own event on top of the profile update.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, input models.UpdateUserInput) (*models.User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	return storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (*models.User, error) {
			user, err := uow.Users().FindByID(ctx, userID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return nil, domainerrors.New(domainerrors.KindNotFound, "user not found")
				}
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "find user")
			}

			var updated []string
			if input.Username != nil && *input.Username != user.Username {
				user.Username = *input.Username
				updated = append(updated, "username")
			}
			if input.Email != nil && *input.Email != user.Email {
				user.Email = *input.Email
				updated = append(updated, "email")
			}
			if input.Bio != nil && *input.Bio != user.Bio {
				user.Bio = *input.Bio
				updated = append(updated, "bio")
			}
			if input.Image != nil && *input.Image != user.Image {
				user.Image = *input.Image
				updated = append(updated, "image")
			}
			passwordChanged := false
			if input.Password != nil {
				hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
				if err != nil {
					return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "hash password")
				}
				user.PasswordHash = string(hash)
				updated = append(updated, "password")
				passwordChanged = true
			}
			if len(updated) == 0 {
				return user, nil
			}

			user.UpdatedAt = time.Now().UTC()
			if err := uow.Users().Update(ctx, user); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return nil, domainerrors.WithCode(domainerrors.KindConflict, "IDENTITY_TAKEN",
						"email or username is already taken")
				}
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "update user")
			}

			uow.Record(events.UserProfileUpdated{
				UserID:        user.ID,
				Username:      user.Username,
				UpdatedFields: updated,
			})
			if passwordChanged {
				uow.Record(events.UserPasswordChanged{
					UserID:   user.ID,
					Username: user.Username,
				})
			}
			return user, nil
		})
}

// Profile returns the public view of a user. viewerID is uuid.Nil for
// anonymous requests, in which case Following is always false.
func (s *Service) Profile(ctx context.Context, username string, viewerID uuid.UUID) (*models.Profile, error) {
	return storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (*models.Profile, error) {
			user, err := findByUsername(ctx, uow, username)
			if err != nil {
				return nil, err
			}
			following := false
			if viewerID != uuid.Nil {
				following, err = uow.Followers().IsFollowing(ctx, viewerID, user.ID)
				if err != nil {
					return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "check following")
				}
			}
			profile := user.Profile(following)
			return &profile, nil
		})
}

// Follow makes followerID follow the named user. Following an already
// followed user is a no-op; following yourself is rejected.
func (s *Service) Follow(ctx context.Context, followerID uuid.UUID, username string) (*models.Profile, error) {
	return storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (*models.Profile, error) {
			followee, err := findByUsername(ctx, uow, username)
			if err != nil {
				return nil, err
			}
			if followee.ID == followerID {
				return nil, domainerrors.WithCode(domainerrors.KindValidation, "CANNOT_FOLLOW_SELF",
					"you cannot follow yourself")
			}

			already, err := uow.Followers().IsFollowing(ctx, followerID, followee.ID)
			if err != nil {
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "check following")
			}
			if !already {
				if err := uow.Followers().Follow(ctx, followerID, followee.ID); err != nil {
					return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "follow")
				}
				uow.Record(events.UserFollowed{
					FollowerID: followerID,
					FolloweeID: followee.ID,
				})
			}

			profile := followee.Profile(true)
			return &profile, nil
		})
}

// Unfollow removes the follow relationship. Unfollowing a user who was never
// followed is a no-op.
func (s *Service) Unfollow(ctx context.Context, followerID uuid.UUID, username string) (*models.Profile, error) {
	return storage.Run(ctx, s.mgr, s.bus,
		func(ctx context.Context, uow storage.UnitOfWork) (*models.Profile, error) {
			followee, err := findByUsername(ctx, uow, username)
			if err != nil {
				return nil, err
			}

			following, err := uow.Followers().IsFollowing(ctx, followerID, followee.ID)
			if err != nil {
				return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "check following")
			}
			if following {
				if err := uow.Followers().Unfollow(ctx, followerID, followee.ID); err != nil {
					return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "unfollow")
				}
				uow.Record(events.UserUnfollowed{
					FollowerID: followerID,
					FolloweeID: followee.ID,
				})
			}

			profile := followee.Profile(false)
			return &profile, nil
		})
}

func (s *Service) withToken(user *models.User) (*AuthenticatedUser, error) {
	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "generate token")
	}
	return &AuthenticatedUser{User: user, Token: token}, nil
}

func findByUsername(ctx context.Context, uow storage.UnitOfWork, username string) (*models.User, error) {
	user, err := uow.Users().FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.Newf(domainerrors.KindNotFound, "user %q not found", username)
		}
		return nil, domainerrors.Wrap(err, domainerrors.KindInternal, "find user")
	}
	return user, nil
}
