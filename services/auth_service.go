package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/auth"
	"github.com/cppla/aiblog/mailer"
	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/storage"
	"github.com/cppla/aiblog/utils"
)

// VerificationTTL bounds how long a sign-up verification link stays valid.
const VerificationTTL = 24 * time.Hour

const verifyPrefix = "verify:email:"

type SignUpInput struct {
	Name     string `json:"name" validate:"required,max=128"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is a freshly issued session.
type AuthResult struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      auth.Identity `json:"user"`
}

// Revoker invalidates an issued session before it expires.
type Revoker interface {
	Revoke(ctx context.Context, sess *auth.Session) error
}

// AuthService issues credentials for email and password accounts.
type AuthService struct {
	store   storage.Store
	issuer  *auth.TokenIssuer
	revoker Revoker
	tokens  utils.TokenStore
	mail    mailer.Dispatcher
	baseURL string
	logger  *zap.Logger
}

func NewAuthService(store storage.Store, issuer *auth.TokenIssuer, revoker Revoker, tokens utils.TokenStore,
	mail mailer.Dispatcher, baseURL string, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:   store,
		issuer:  issuer,
		revoker: revoker,
		tokens:  tokens,
		mail:    mail,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// SignUp creates an unverified USER account and mails a verification link.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	sanitizeFields(&in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Status:       models.UserActive,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	token := uuid.NewString()
	if err := s.tokens.Put(ctx, verifyPrefix+token, user.ID, VerificationTTL); err != nil {
		s.logger.Error("store verification token", zap.String("user_id", user.ID), zap.Error(err))
		return user, nil
	}
	link := s.baseURL + "/api/v1/auth/verify-email?token=" + url.QueryEscape(token)
	s.mail.Dispatch(ctx, mailer.Message{
		To:      user.Email,
		Subject: "Verify your email address",
		Content: mailer.VerificationContent(user.Name, link),
	})
	return user, nil
}

// VerifyEmail consumes a verification token and marks its account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}
	userID, ok, err := s.tokens.Take(ctx, verifyPrefix+token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidToken
	}
	return notFound(s.store.MarkEmailVerified(ctx, userID), ErrUserNotFound)
}

// SignIn checks the password and issues a session token.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	user, err := s.store.FindUserByEmail(ctx, in.Email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, in.Password) {
		return nil, ErrInvalidCredentials
	}
	if user.Status != models.UserActive {
		return nil, ErrUserInactive
	}

	id := auth.IdentityOf(user)
	token, expiresAt, err := s.issuer.Issue(id)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: id}, nil
}

// SignOut revokes the current session.
func (s *AuthService) SignOut(ctx context.Context, sess *auth.Session) error {
	if sess == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, sess)
}

// SeedAdmin creates a verified ADMIN account unless the email is taken. The
// boolean reports whether an account was created.
func (s *AuthService) SeedAdmin(ctx context.Context, in SignUpInput) (*models.User, bool, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, false, err
	}
	existing, err := s.store.FindUserByEmail(ctx, in.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, false, err
	}
	admin := &models.User{
		Name:          in.Name,
		Email:         in.Email,
		PasswordHash:  hash,
		Role:          models.RoleAdmin,
		Status:        models.UserActive,
		EmailVerified: true,
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		return nil, false, err
	}
	return admin, true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
