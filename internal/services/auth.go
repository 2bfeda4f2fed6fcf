package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	ledgerrepo "github.com/mockly-app/mockly-backend/internal/data/repos/ledger"
	userrepo "github.com/mockly-app/mockly-backend/internal/data/repos/user"
	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
	"github.com/mockly-app/mockly-backend/internal/requestdata"
)

type AuthService interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	ParseToken(tokenString string) (uuid.UUID, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	AccessTTL() time.Duration
}

type AuthResult struct {
	User        *types.User `json:"user"`
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

const minPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type authService struct {
	db          *gorm.DB
	log         *logger.Logger
	userRepo    userrepo.UserRepo
	accountRepo ledgerrepo.AccountRepo
	credits     CreditsService
	analytics   AnalyticsService

	jwtSecret   []byte
	accessTTL   time.Duration
	signupBonus int64
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo userrepo.UserRepo,
	accountRepo ledgerrepo.AccountRepo,
	credits CreditsService,
	analytics AnalyticsService,
	jwtSecret string,
	accessTTL time.Duration,
	signupBonus int64,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:          db,
		log:         serviceLog,
		userRepo:    userRepo,
		accountRepo: accountRepo,
		credits:     credits,
		analytics:   analytics,
		jwtSecret:   []byte(jwtSecret),
		accessTTL:   accessTTL,
		signupBonus: signupBonus,
	}
}

func (as *authService) AccessTTL() time.Duration { return as.accessTTL }

func (as *authService) Register(ctx context.Context, email, password, firstName, lastName string) (*AuthResult, error) {
	const op = "auth.register"

	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return nil, fault.New(fault.CodeValidation, op, "invalid email address", nil)
	}
	if len(password) < minPasswordLength {
		return nil, fault.New(fault.CodeValidation, op, fmt.Sprintf("password must be at least %d characters", minPasswordLength), nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fault.New(fault.CodeInternal, op, "failed to hash password", err)
	}

	u := &types.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
	}

	// User, account and welcome credit are one atomic unit: a failure in
	// any of them leaves no partial registration behind.
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, exErr := as.userRepo.EmailExists(ctx, tx, email)
		if exErr != nil {
			return exErr
		}
		if exists {
			return fault.New(fault.CodeConflict, op, "email already registered", nil)
		}
		if cErr := as.userRepo.Create(ctx, tx, u); cErr != nil {
			return cErr
		}
		if aErr := as.accountRepo.Create(ctx, tx, &types.Account{UserID: u.ID, Balance: 0}); aErr != nil {
			return aErr
		}
		return as.credits.GrantSignupBonus(ctx, tx, u.ID, as.signupBonus)
	})
	if err != nil {
		return nil, fault.MapStorage(op, err)
	}

	token, expiresAt, err := as.generateAccessToken(u.ID)
	if err != nil {
		return nil, fault.New(fault.CodeInternal, op, "failed to sign access token", err)
	}

	as.log.Info("Registered user", "user_id", u.ID, "signup_bonus", as.signupBonus)
	as.analytics.Capture(u.ID, "user_registered", map[string]interface{}{
		"signup_bonus": as.signupBonus,
	})
	return &AuthResult{User: u, AccessToken: token, ExpiresAt: expiresAt}, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	const op = "auth.login"

	email = strings.ToLower(strings.TrimSpace(email))
	u, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if fault.IsCode(err, fault.CodeNotFound) {
			// Do not reveal whether the email exists.
			return nil, fault.New(fault.CodeUnauthorized, op, "invalid email or password", nil)
		}
		return nil, fault.MapStorage(op, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, fault.New(fault.CodeUnauthorized, op, "invalid email or password", nil)
	}

	token, expiresAt, err := as.generateAccessToken(u.ID)
	if err != nil {
		return nil, fault.New(fault.CodeInternal, op, "failed to sign access token", err)
	}

	as.analytics.Capture(u.ID, "user_authenticated", nil)
	return &AuthResult{User: u, AccessToken: token, ExpiresAt: expiresAt}, nil
}

func (as *authService) generateAccessToken(userID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(as.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    "mockly-backend",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(as.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (as *authService) ParseToken(tokenString string) (uuid.UUID, error) {
	const op = "auth.parse_token"

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return as.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fault.New(fault.CodeUnauthorized, op, "invalid or expired token", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fault.New(fault.CodeUnauthorized, op, "token subject is not a user id", err)
	}
	return userID, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	userID, err := as.ParseToken(tokenString)
	if err != nil {
		return ctx, err
	}
	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}), nil
}
