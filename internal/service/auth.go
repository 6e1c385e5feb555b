// Package service contains the business logic layer.
//
// The layering follows the usual three-tier split:
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, enforces rules, orchestrates
//	Repository (DB) → reads/writes rows
//
// Services take repository interfaces, not concrete stores, so tests swap in
// in-memory fakes with no database at all. Services return apperror values;
// handlers translate them to status codes. Nothing here imports net/http.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/oauth2"

	"github.com/sakif/linkvault/internal/apperror"
	"github.com/sakif/linkvault/internal/auth"
	"github.com/sakif/linkvault/internal/model"
	"github.com/sakif/linkvault/internal/repository"
)

const minPasswordLength = 8

// AuthService handles registration, login, and the GitHub linking flow.
type AuthService struct {
	users       repository.UserRepository
	connections repository.ConnectionRepository
	tokens      *auth.TokenService
	passwords   *auth.PasswordService
	logger      *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	connections repository.ConnectionRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		connections: connections,
		tokens:      tokens,
		passwords:   passwords,
		logger:      logger,
	}
}

// AuthResult bundles the user and their freshly issued token — every
// successful auth operation returns one.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput is the payload for password registration.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register creates a password account and issues a token.
//
// All field failures are collected and reported together (one 400 with a
// details array), not one at a time. A duplicate email comes back as a
// conflict from the store's UNIQUE constraint — there is no
// check-then-insert window.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	var details []apperror.FieldError
	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		details = append(details, apperror.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if len(in.Password) < minPasswordLength {
		details = append(details, apperror.FieldError{Field: "password",
			Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)})
	}
	if in.FirstName == "" {
		details = append(details, apperror.FieldError{Field: "firstName", Message: "is required"})
	}
	if in.LastName == "" {
		details = append(details, apperror.FieldError{Field: "lastName", Message: "is required"})
	}
	if len(details) > 0 {
		return nil, apperror.ValidationErrors(details)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:         in.Email,
		PasswordHash:  &hash,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		PublicProfile: true,
		ShowLocation:  true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies an email/password pair and issues a token.
//
// Every failure mode — unknown email, OAuth-only account with no password,
// wrong password — returns the same InvalidCredentials error. Distinct
// messages would let an attacker enumerate which emails are registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InvalidCredentials()
	}
	if user.PasswordHash == nil {
		return nil, apperror.InvalidCredentials()
	}
	if err := s.passwords.Verify(*user.PasswordHash, password); err != nil {
		return nil, apperror.InvalidCredentials()
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for the /auth/me snapshot.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	return s.users.GetByID(ctx, id)
}

// CompleteGitHubLogin finishes the OAuth callback after the handler has
// exchanged the code and fetched the profile:
//
//  1. Upsert the user keyed on email (atomic in the store; concurrent
//     duplicate callbacks collapse to one row).
//  2. Upsert the github connection with tokens and display metadata.
//  3. Issue a JWT for the resulting user.
//
// repos may be nil — the repo fetch is best-effort and its failure must not
// abort linking.
func (s *AuthService) CompleteGitHubLogin(
	ctx context.Context,
	ghUser *auth.GitHubUser,
	oauthToken *oauth2.Token,
	repos []auth.GitHubRepo,
) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	seed := seedFromGitHub(ghUser)
	if err := s.users.UpsertGitHubUser(ctx, seed); err != nil {
		return nil, fmt.Errorf("service/auth: upserting GitHub user %q: %w", ghUser.Login, err)
	}

	conn := &model.Connection{
		UserID:   seed.ID,
		Platform: model.PlatformGitHub,
		Username: ghUser.Login,
		URL:      ghUser.HTMLURL,
		IsActive: true,
		Metadata: model.ConnectionMetadata{
			Repos:       ghUser.PublicRepos,
			Followers:   ghUser.Followers,
			Following:   ghUser.Following,
			RecentRepos: repoSummaries(repos),
		},
	}
	if oauthToken != nil {
		access := oauthToken.AccessToken
		conn.AccessToken = &access
		if oauthToken.RefreshToken != "" {
			refresh := oauthToken.RefreshToken
			conn.RefreshToken = &refresh
		}
	}
	if err := s.connections.Upsert(ctx, conn); err != nil {
		return nil, fmt.Errorf("service/auth: upserting github connection for user %s: %w", seed.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", seed.ID),
		slog.String("login", ghUser.Login),
	)

	token, err := s.tokens.Generate(seed.ID, seed.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", seed.ID, err)
	}

	return &AuthResult{User: seed, Token: token}, nil
}

// seedFromGitHub maps a GitHub profile onto a User for the upsert.
//
// GitHub may hide the email entirely; we synthesize a stable placeholder
// from the login so the email-keyed upsert still works. The display name
// splits on the first space; a user with no display name falls back to
// their login.
func seedFromGitHub(ghUser *auth.GitHubUser) *model.User {
	email := ghUser.Email
	if email == "" {
		email = ghUser.Login + "@github.local"
	}

	firstName := ghUser.Login
	lastName := ""
	if name := strings.TrimSpace(ghUser.Name); name != "" {
		firstName, lastName, _ = strings.Cut(name, " ")
	}

	githubID := fmt.Sprintf("%d", ghUser.ID)

	seed := &model.User{
		Email:     email,
		GitHubID:  &githubID,
		FirstName: firstName,
		LastName:  lastName,
		Bio:       ghUser.Bio,
		Location:  ghUser.Location,
	}
	if ghUser.AvatarURL != "" {
		avatarURL := ghUser.AvatarURL
		seed.AvatarURL = &avatarURL
	}
	if ghUser.Blog != nil && *ghUser.Blog != "" {
		seed.Website = ghUser.Blog
	}
	return seed
}

func repoSummaries(repos []auth.GitHubRepo) []model.RepoSummary {
	if len(repos) == 0 {
		return nil
	}
	summaries := make([]model.RepoSummary, 0, len(repos))
	for _, r := range repos {
		summaries = append(summaries, model.RepoSummary{
			Name:        r.Name,
			Description: r.Description,
			URL:         r.HTMLURL,
			Stars:       r.Stars,
			Language:    r.Language,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	return summaries
}
