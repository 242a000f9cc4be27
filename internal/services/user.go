package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"matching-backend/internal/models"
	"matching-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	minAge            = 18
	maxAge            = 100
	defaultJWTExpDays = 30
)

// UserServiceOptions configures account handling
type UserServiceOptions struct {
	JWTSecret         string
	JWTExpiryDays     int
	BcryptCost        int
	RequireInviteCode bool
}

// UserService handles user-related business logic
type UserService struct {
	userRepo UserStore
	invites  InviteCodeStore
	ledger   *MatchingLedger
	clock    Clock
	opts     UserServiceOptions
}

// NewUserService creates a new user service
func NewUserService(userRepo UserStore, invites InviteCodeStore, ledger *MatchingLedger, clock Clock, opts UserServiceOptions) *UserService {
	if opts.JWTExpiryDays <= 0 {
		opts.JWTExpiryDays = defaultJWTExpDays
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		userRepo: userRepo,
		invites:  invites,
		ledger:   ledger,
		clock:    clock,
		opts:     opts,
	}
}

// RequiresInviteCode reports whether registration consumes an invite code
func (s *UserService) RequiresInviteCode() bool {
	return s.opts.RequireInviteCode
}

// VerifyInviteCode checks a code without spending it. Always succeeds when
// registration is open.
func (s *UserService) VerifyInviteCode(ctx context.Context, code string) error {
	if !s.opts.RequireInviteCode {
		return nil
	}
	_, err := s.ledger.ValidateInviteCode(ctx, code, s.clock())
	return err
}

// Claims is the authenticated identity carried by a token
type Claims struct {
	UserID int64
	Email  string
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(user *models.User) (string, error) {
	now := time.Unix(s.clock(), 0)
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     now.AddDate(0, 0, s.opts.JWTExpiryDays).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.opts.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns its claims
func (s *UserService) ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.opts.JWTSecret), nil
	}, jwt.WithTimeFunc(func() time.Time { return time.Unix(s.clock(), 0) }))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse token: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}

	// JSON numbers decode as float64
	rawID, ok := claims["user_id"].(float64)
	if !ok || rawID <= 0 {
		return nil, fmt.Errorf("%w: user_id not found in token", ErrUnauthorized)
	}
	email, _ := claims["email"].(string)

	return &Claims{UserID: int64(rawID), Email: email}, nil
}

// RegisterInput is the payload of a sign-up
type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	Age        int
	Bio        string
	InviteCode string
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateProfile(name string, age int) error {
	if strings.TrimSpace(name) == "" {
		return invalidf("name is required")
	}
	if age < minAge || age > maxAge {
		return invalidf("age must be between %d and %d", minAge, maxAge)
	}
	return nil
}

// Register creates an account. The email is checked before the invite code
// is consumed so a duplicate sign-up does not burn a use.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, invalidf("invalid email address")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalidf("password must be at least %d characters", minPasswordLength)
	}
	if err := validateProfile(in.Name, in.Age); err != nil {
		return nil, err
	}

	taken, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, storeErr("check email", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	now := s.clock()
	var code string
	if s.opts.RequireInviteCode {
		res, err := s.ledger.ConsumeInviteCode(ctx, in.InviteCode, now)
		if err != nil {
			return nil, err
		}
		code = res.Code.Code
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hash),
		Name:      strings.TrimSpace(in.Name),
		Age:       in.Age,
		Bio:       strings.TrimSpace(in.Bio),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, storeErr("create user", err)
	}

	if code != "" {
		if err := s.invites.SetRedeemer(ctx, code, user.ID); err != nil {
			log.Warn().Err(err).Str("code", code).Int64("user_id", user.ID).Msg("Failed to record invite code redeemer")
		}
	}

	token, err := s.GenerateJWT(user)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", user.ID).
		Str("invite_code", code).
		Msg("User registered")

	return &AuthResult{Token: token, User: user}, nil
}

// Login checks credentials and issues a token
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr("get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.GenerateJWT(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// GetProfile returns the account of userID
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeErr("get user", err)
	}
	return user, nil
}

// IsAdmin reports whether userID has admin rights
func (s *UserService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// UpdateProfile changes name, age and bio
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, name string, age int, bio string) (*models.User, error) {
	if err := validateProfile(name, age); err != nil {
		return nil, err
	}

	err := s.userRepo.UpdateProfile(ctx, userID, strings.TrimSpace(name), age, strings.TrimSpace(bio), s.clock())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeErr("update profile", err)
	}
	return s.GetProfile(ctx, userID)
}

// UpdatePushToken stores the APNs device token. An empty token clears it.
func (s *UserService) UpdatePushToken(ctx context.Context, userID int64, pushToken string) error {
	var token *string
	if t := strings.TrimSpace(pushToken); t != "" {
		token = &t
	}

	if err := s.userRepo.UpdatePushToken(ctx, userID, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return storeErr("update push token", err)
	}
	return nil
}

// EnsureAdmin promotes the account with email, creating it if needed
func (s *UserService) EnsureAdmin(ctx context.Context, email, password, name string, age int) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, invalidf("admin email is required")
	}

	now := s.clock()
	user, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !user.IsAdmin {
			if err := s.userRepo.SetAdmin(ctx, user.ID, true, now); err != nil {
				return nil, storeErr("promote admin", err)
			}
			user.IsAdmin = true
			log.Info().Int64("user_id", user.ID).Msg("Existing user promoted to admin")
		}
		return user, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storeErr("get admin", err)
	}

	if len(password) < minPasswordLength {
		return nil, invalidf("admin password must be at least %d characters", minPasswordLength)
	}
	if err := validateProfile(name, age); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user = &models.User{
		Email:     email,
		Password:  string(hash),
		Name:      name,
		Age:       age,
		IsAdmin:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, storeErr("create admin", err)
	}

	log.Info().Int64("user_id", user.ID).Str("email", email).Msg("Admin account created")
	return user, nil
}
