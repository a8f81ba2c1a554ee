// Package auth issues and checks API tokens and manages user accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/staysync/staysync/internal/model"
	"github.com/staysync/staysync/internal/validate"
)

// Collection is the document holding users and roles.
const Collection = "users"

// ErrInvalidCredentials is returned by Login for an unknown email, a wrong
// password or a disabled account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Documents is the subset of the document store the service needs.
type Documents interface {
	Read(ctx context.Context, collection string, v any) error
	Update(ctx context.Context, collection string, v any, fn func() error) error
}

type document struct {
	Users map[string]model.User `json:"users"`
	Roles map[string]model.Role `json:"roles"`
}

func (d *document) roles() map[string]model.Role {
	if len(d.Roles) == 0 {
		return model.DefaultRoles()
	}
	return d.Roles
}

// Service manages users stored in the document store, keyed by email.
type Service struct {
	docs     Documents
	validate *validate.Validator
	now      func() time.Time
}

// NewService returns a user service.
func NewService(docs Documents, v *validate.Validator) *Service {
	return &Service{
		docs:     docs,
		validate: v,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, password, name, role string) (model.User, error) {
	if err := model.ValidatePassword(password); err != nil {
		return model.User{}, err
	}

	user := model.User{
		ID:     uuid.NewString(),
		Email:  normalizeEmail(email),
		Name:   strings.TrimSpace(name),
		Role:   role,
		Status: model.UserActive,
	}
	if err := s.validate.Struct(user); err != nil {
		return model.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hashing password: %w", err)
	}
	user.PasswordHash = string(hash)

	var doc document
	err = s.docs.Update(ctx, Collection, &doc, func() error {
		doc.Roles = doc.roles()
		if _, ok := doc.Roles[role]; !ok {
			return model.Invalid("role", fmt.Sprintf("unknown role %q", role))
		}
		if doc.Users == nil {
			doc.Users = map[string]model.User{}
		}
		if _, ok := doc.Users[user.Email]; ok {
			return model.Invalid("email", "already registered")
		}
		user.CreatedAt = s.now()
		doc.Users[user.Email] = user
		return nil
	})
	if err != nil {
		return model.User{}, err
	}

	slog.Info("user registered", "email", user.Email, "role", user.Role)
	return user, nil
}

// Login checks credentials and returns the matching user.
func (s *Service) Login(ctx context.Context, email, password string) (model.User, error) {
	var doc document
	if err := s.docs.Read(ctx, Collection, &doc); err != nil {
		return model.User{}, fmt.Errorf("reading users: %w", err)
	}

	user, ok := doc.Users[normalizeEmail(email)]
	if !ok || user.Status == model.UserDisabled {
		return model.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// User returns the user with the given id.
func (s *Service) User(ctx context.Context, id string) (model.User, error) {
	var doc document
	if err := s.docs.Read(ctx, Collection, &doc); err != nil {
		return model.User{}, fmt.Errorf("reading users: %w", err)
	}
	for _, u := range doc.Users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, model.NotFound("user")
}

// List returns every user ordered by email.
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	var doc document
	if err := s.docs.Read(ctx, Collection, &doc); err != nil {
		return nil, fmt.Errorf("reading users: %w", err)
	}
	users := make([]model.User, 0, len(doc.Users))
	for _, u := range doc.Users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b model.User) int { return strings.Compare(a.Email, b.Email) })
	return users, nil
}

// HasPermission reports whether the user's role grants permission.
// Unknown and disabled users have no permissions.
func (s *Service) HasPermission(ctx context.Context, userID, permission string) (bool, error) {
	var doc document
	if err := s.docs.Read(ctx, Collection, &doc); err != nil {
		return false, fmt.Errorf("reading users: %w", err)
	}
	for _, u := range doc.Users {
		if u.ID != userID {
			continue
		}
		if u.Status == model.UserDisabled {
			return false, nil
		}
		role, ok := doc.roles()[u.Role]
		return ok && role.Allows(permission), nil
	}
	return false, nil
}

// SetStatus enables or disables a user.
func (s *Service) SetStatus(ctx context.Context, email, status string) (model.User, error) {
	if status != model.UserActive && status != model.UserDisabled {
		return model.User{}, model.Invalid("status", fmt.Sprintf("must be %s or %s", model.UserActive, model.UserDisabled))
	}
	var updated model.User
	var doc document
	err := s.docs.Update(ctx, Collection, &doc, func() error {
		u, ok := doc.Users[normalizeEmail(email)]
		if !ok {
			return model.NotFound("user")
		}
		u.Status = status
		doc.Users[u.Email] = u
		updated = u
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	slog.Info("user status changed", "email", updated.Email, "status", status)
	return updated, nil
}
