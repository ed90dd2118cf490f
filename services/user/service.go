package user

import (
	"context"
	"errors"
	"strings"
	"time"

	userRepo "footyreserve/database/repository/user"
	"footyreserve/models"
	"footyreserve/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// SignupInput carries the fields required to register an account.
type SignupInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Country   string `json:"country"`
}

// AuthResult is returned by Signup, Login and Refresh.
type AuthResult struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

// UserService defines account registration and authentication.
type UserService interface {
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
}

// DefaultUserService implements UserService on top of the user repository.
type DefaultUserService struct {
	Users  userRepo.UserRepository
	Logger *zap.Logger
}

func (s *DefaultUserService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.FirstName == "" || in.Email == "" || len(in.Password) < 8 {
		return nil, utils.ValidationErr("first name, email and a password of at least 8 characters are required")
	}

	if _, err := s.Users.GetByEmail(ctx, in.Email); err == nil {
		return nil, utils.ConflictErr("an account with this email already exists")
	} else if !errors.Is(err, userRepo.ErrNotFound) {
		return nil, utils.InternalErr("failed to check existing account", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.InternalErr("failed to hash password", err)
	}

	now := time.Now()
	u := &models.User{
		ID:           uuid.New().String(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: string(hash),
		Country:      in.Country,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, utils.InternalErr("failed to create account", err)
	}

	s.Logger.Info("user registered", zap.String("userId", u.ID))
	return s.issueTokens(ctx, u)
}

func (s *DefaultUserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return nil, utils.ForbiddenErr("invalid email or password")
		}
		return nil, utils.InternalErr("failed to fetch account", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, utils.ForbiddenErr("invalid email or password")
	}
	return s.issueTokens(ctx, u)
}

// Refresh exchanges a stored refresh token for a fresh token pair. The
// old refresh token is rotated out.
func (s *DefaultUserService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, err := utils.ExtractIDFromToken(refreshToken)
	if err != nil {
		return nil, utils.ForbiddenErr("invalid refresh token")
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return nil, utils.ForbiddenErr("invalid refresh token")
		}
		return nil, utils.InternalErr("failed to fetch account", err)
	}
	if u.RefreshToken == "" || u.RefreshToken != refreshToken {
		return nil, utils.ForbiddenErr("refresh token revoked")
	}
	return s.issueTokens(ctx, u)
}

func (s *DefaultUserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return nil, utils.NotFoundErr("user not found")
		}
		return nil, utils.InternalErr("failed to fetch user", err)
	}
	return u, nil
}

func (s *DefaultUserService) issueTokens(ctx context.Context, u *models.User) (*AuthResult, error) {
	token, err := utils.GenerateToken(u.ID, u.Email, accessTokenTTL)
	if err != nil {
		return nil, utils.InternalErr("failed to generate token", err)
	}
	refresh, err := utils.GenerateToken(u.ID, u.Email, refreshTokenTTL)
	if err != nil {
		return nil, utils.InternalErr("failed to generate refresh token", err)
	}

	u.RefreshToken = refresh
	u.UpdatedAt = time.Now()
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, utils.InternalErr("failed to persist refresh token", err)
	}
	return &AuthResult{User: u, Token: token, RefreshToken: refresh}, nil
}
