package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo        Repository
	tokens      *Tokens
	revocations RevocationList
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *Tokens, revocations RevocationList) *Service {
	return &Service{repo: repo, tokens: tokens, revocations: revocations}
}

// Login validates email/password credentials and issues a token carrying
// the user's current roles.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Session{}, shared.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, shared.ErrInvalidCredentials
	}
	roles, err := s.repo.RoleNames(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}
	token, exp, err := s.tokens.Issue(user.ID, roles)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		ExpiresAt: exp,
		User:      Profile{ID: user.ID, Email: user.Email, Name: user.Name, Roles: normalizeRoles(roles)},
	}, nil
}

// Me returns the profile behind the principal.
func (s *Service) Me(ctx context.Context, p shared.Principal) (Profile, error) {
	user, err := s.repo.FindByID(ctx, p.UserID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{ID: user.ID, Email: user.Email, Name: user.Name, Roles: p.Roles}, nil
}

// Logout revokes the token until its natural expiry.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	p, exp, err := s.tokens.Verify(rawToken)
	if err != nil {
		return err
	}
	if s.revocations == nil {
		return nil
	}
	return s.revocations.Revoke(ctx, p.TokenID, exp)
}
