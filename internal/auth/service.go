package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

type Service struct {
	store  store.UserStore
	tokens *TokenIssuer
	cost   int
}

func NewService(st store.UserStore, tokens *TokenIssuer) *Service {
	return &Service{store: st, tokens: tokens, cost: bcrypt.DefaultCost}
}

type RegisterRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Country       string `json:"country"`
	WalletAddress string `json:"walletAddress"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type WalletConnectRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
}

// SessionUser is the public part of a user returned with a token
type SessionUser struct {
	Id            string  `json:"id"`
	Email         *string `json:"email,omitempty"`
	WalletAddress *string `json:"walletAddress,omitempty"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName,omitempty"`
}

type Session struct {
	User  SessionUser `json:"user"`
	Token string      `json:"token"`
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return &Session{
		User: SessionUser{
			Id:            user.Id,
			Email:         user.Email,
			WalletAddress: user.WalletAddress,
			FirstName:     user.FirstName,
			LastName:      user.LastName,
		},
		Token: token,
	}, nil
}

// Register creates an email account with a bcrypt password hash
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" || req.Country == "" {
		return nil, errs.Validation("Missing required fields")
	}
	if !models.ValidEmail(req.Email) {
		return nil, errs.Validation("Invalid email format")
	}
	if len(req.Password) < MinPasswordLength {
		return nil, errs.Validation("Password must be at least %d characters", MinPasswordLength)
	}

	_, err := s.store.GetUserByEmail(ctx, req.Email)
	if err == nil {
		return nil, errs.Validation("Email already registered")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, errs.Internal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, errs.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	email := req.Email
	user := &models.User{
		Id:           uuid.New().String(),
		Email:        &email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Country:      req.Country,
	}
	if wallet := strings.TrimSpace(req.WalletAddress); wallet != "" {
		user.WalletAddress = &wallet
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errs.Validation("Email or wallet address already registered")
		}
		return nil, errs.Internal(err)
	}

	zap.L().Info("User registered", zap.String("user_id", user.Id))
	return s.session(user)
}

// Login checks an email and password pair
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errs.Validation("Email and password required")
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, errs.Internal(err)
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		zap.L().Info("Login rejected", zap.String("user_id", user.Id))
		return nil, errs.Unauthorized("Invalid credentials")
	}
	return s.session(user)
}

// WalletConnect signs in a wallet, creating a wallet-only user on first
// use. The signature must be present but is not verified here.
func (s *Service) WalletConnect(ctx context.Context, req WalletConnectRequest) (*Session, error) {
	wallet := strings.TrimSpace(req.WalletAddress)
	if wallet == "" || req.Signature == "" {
		return nil, errs.Validation("Wallet address and signature required")
	}

	user, err := s.store.GetUserByWallet(ctx, wallet)
	if err == nil {
		return s.session(user)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, errs.Internal(err)
	}

	user = &models.User{
		Id:            uuid.New().String(),
		WalletAddress: &wallet,
		FirstName:     "Web3",
		LastName:      "User",
		Country:       "Global",
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, errs.Internal(err)
		}
		// Lost a race with a concurrent first connect
		user, err = s.store.GetUserByWallet(ctx, wallet)
		if err != nil {
			return nil, errs.Internal(err)
		}
	} else {
		zap.L().Info("Wallet user created", zap.String("user_id", user.Id))
	}
	return s.session(user)
}

// Authenticate resolves a bearer token to its claims
func (s *Service) Authenticate(token string) (*Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, errs.Unauthorized("Invalid or expired token")
	}
	return claims, nil
}

// Profile returns a user's public profile
func (s *Service) Profile(ctx context.Context, userId string) (*models.User, error) {
	user, err := s.store.GetUserById(ctx, userId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound("User not found")
	}
	if err != nil {
		return nil, errs.Internal(err)
	}
	return user, nil
}

// UpdateProfile changes the editable profile fields
func (s *Service) UpdateProfile(ctx context.Context, userId string, update store.ProfileUpdate) (*models.User, error) {
	user, err := s.store.UpdateProfile(ctx, userId, update)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound("User not found")
	}
	if err != nil {
		return nil, errs.Internal(err)
	}
	return user, nil
}
