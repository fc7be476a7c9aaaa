// Package services holds the business rules behind the HTTP handlers.
package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/01moynul/bashrometer-golang/internal/apperr"
	"github.com/01moynul/bashrometer-golang/internal/auth"
	"github.com/01moynul/bashrometer-golang/internal/models"
	"github.com/01moynul/bashrometer-golang/internal/store"
	"github.com/01moynul/bashrometer-golang/internal/validation"
)

const msgPasswordTooLong = "Password must be at most 72 bytes long."

// RegisterInput is a sign-up or admin provisioning request. bcrypt only
// reads the first 72 bytes of a password, so longer ones are refused.
type RegisterInput struct {
	Name     *string `json:"name"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Role     string  `json:"role"`
}

var credentialMessages = validation.Messages{
	"required":     "Email and password are required.",
	"email.email":  "Invalid email format.",
	"password.min": "Password must be at least 6 characters long.",
	"password.max": msgPasswordTooLong,
}

// AuthResult is a user plus a freshly issued access token.
type AuthResult struct {
	User  *models.User
	Token string
}

type AuthService struct {
	users               store.UserStore
	tokens              *auth.TokenManager
	allowRoleSelfAssign bool
}

func NewAuthService(users store.UserStore, tokens *auth.TokenManager, allowRoleSelfAssign bool) *AuthService {
	return &AuthService{users: users, tokens: tokens, allowRoleSelfAssign: allowRoleSelfAssign}
}

// Register creates a regular account and signs the new user in. The
// requested role is honored only when self-assignment is enabled.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	role := models.RoleUser
	if s.allowRoleSelfAssign && models.ValidRole(in.Role) {
		role = strings.ToLower(in.Role)
	}

	user, err := s.createUser(ctx, in, role)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}
	return &AuthResult{User: user, Token: token}, nil
}

// CreateUser provisions an account with any known role. It is reachable
// only by admins.
func (s *AuthService) CreateUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	role := strings.ToLower(strings.TrimSpace(in.Role))
	err := validation.Var(role, "omitempty,oneof=user admin editor",
		"Invalid role. Must be one of: user, admin, editor.")
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleUser
	}
	return s.createUser(ctx, in, role)
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput, role string) (*models.User, error) {
	// 1. --- Validate ---
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in, credentialMessages); err != nil {
		return nil, err
	}

	// 2. --- Hash the password ---
	var password models.Password
	if err := password.Set(in.Password); err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperr.Validation(msgPasswordTooLong)
		}
		return nil, errors.Wrap(err, "hash password")
	}

	// 3. --- Persist ---
	user := &models.User{
		Name:         trimmed(in.Name),
		Email:        in.Email,
		PasswordHash: password.Hash,
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Email already registered.")
		}
		return nil, errors.Wrap(err, "create user")
	}
	return user, nil
}

// Login verifies credentials. Unknown emails and wrong passwords produce
// the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required.")
	}
	invalid := apperr.Unauthenticated("Invalid credentials.")

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}

	ok, err := (&models.Password{Hash: user.PasswordHash}).Matches(password)
	if err != nil {
		return nil, errors.Wrap(err, "compare password")
	}
	if !ok {
		return nil, invalid
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Me re-reads the caller's profile from the store.
func (s *AuthService) Me(ctx context.Context, caller *models.Identity) (*models.User, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("Access denied. No token provided.")
	}
	user, err := s.users.GetUserByID(ctx, caller.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found.")
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return user, nil
}

// EnsureBootstrapAdmin creates the configured admin when no account with
// that email exists. An empty email disables it.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, email, password, name string) error {
	if email == "" {
		return nil
	}
	_, err := s.users.GetUserByEmail(ctx, strings.ToLower(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return errors.Wrap(err, "look up bootstrap admin")
	}

	user, err := s.createUser(ctx, RegisterInput{Name: &name, Email: email, Password: password}, models.RoleAdmin)
	if err != nil {
		return errors.Wrap(err, "create bootstrap admin")
	}
	zap.L().Info("bootstrap admin created", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
	return nil
}

// trimmed returns nil for a missing or blank string.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
