package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sakif/linkvault/internal/apperror"
	"github.com/sakif/linkvault/internal/model"
	"github.com/sakif/linkvault/internal/repository"
)

// Compile-time check that *UserStore implements repository.UserRepository.
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore persists users. Obtain one via DB.Users().
type UserStore struct {
	conn *sql.DB
}

// userColumns is the canonical column list; every SELECT uses it so scanUser
// stays in lockstep with the schema.
const userColumns = `id, email, password_hash, github_id, first_name, last_name,
	bio, website, location, title, company, avatar_url,
	public_profile, show_email, show_location, created_at, updated_at`

// scannable covers both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanUser(row scannable) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.GitHubID, &u.FirstName, &u.LastName,
		&u.Bio, &u.Website, &u.Location, &u.Title, &u.Company, &u.AvatarURL,
		&u.PublicProfile, &u.ShowEmail, &u.ShowLocation, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user, generating the ID and timestamps.
// A duplicate email surfaces as apperror.ErrConflict so the registration
// handler can return its 400 without inspecting driver errors.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = uuid.NewString()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, github_id, first_name, last_name,
			bio, website, location, title, company, avatar_url,
			public_profile, show_email, show_location, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.GitHubID, user.FirstName, user.LastName,
		user.Bio, user.Website, user.Location, user.Title, user.Company, user.AvatarURL,
		user.PublicProfile, user.ShowEmail, user.ShowLocation, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Email already registered")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no such user exists.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// UpdateProfile applies only the non-nil fields of patch, then returns the
// updated row. Nil means "client didn't send the field"; a pointer to ""
// clears the column. The SET clause is assembled from code constants, so the
// dynamic SQL carries no injection risk — values still go through
// placeholders.
func (s *UserStore) UpdateProfile(ctx context.Context, id string, patch repository.UserProfilePatch) (*model.User, error) {
	set := make([]string, 0, 8)
	args := make([]any, 0, 9)

	appendField := func(column string, value *string) {
		if value == nil {
			return
		}
		set = append(set, column+" = ?")
		if *value == "" && column != "first_name" && column != "last_name" {
			// Explicit clear → NULL for the nullable columns.
			args = append(args, nil)
		} else {
			args = append(args, *value)
		}
	}

	appendField("first_name", patch.FirstName)
	appendField("last_name", patch.LastName)
	appendField("bio", patch.Bio)
	appendField("website", patch.Website)
	appendField("location", patch.Location)
	appendField("title", patch.Title)
	appendField("company", patch.Company)

	if len(set) > 0 {
		set = append(set, "updated_at = ?")
		args = append(args, time.Now().UTC())
		args = append(args, id)

		query := "UPDATE users SET " + strings.Join(set, ", ") + " WHERE id = ?"
		res, err := s.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("sqlite: updating user %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, apperror.NotFound("User")
		}
	}

	return s.GetByID(ctx, id)
}

// UpdatePrivacy applies only the non-nil privacy flags.
func (s *UserStore) UpdatePrivacy(ctx context.Context, id string, patch repository.UserPrivacyPatch) (*model.User, error) {
	set := make([]string, 0, 4)
	args := make([]any, 0, 5)

	appendFlag := func(column string, value *bool) {
		if value == nil {
			return
		}
		set = append(set, column+" = ?")
		args = append(args, *value)
	}

	appendFlag("public_profile", patch.PublicProfile)
	appendFlag("show_email", patch.ShowEmail)
	appendFlag("show_location", patch.ShowLocation)

	if len(set) > 0 {
		set = append(set, "updated_at = ?")
		args = append(args, time.Now().UTC())
		args = append(args, id)

		query := "UPDATE users SET " + strings.Join(set, ", ") + " WHERE id = ?"
		res, err := s.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("sqlite: updating privacy for user %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, apperror.NotFound("User")
		}
	}

	return s.GetByID(ctx, id)
}

// Delete removes the user row. Connections and analytics rows go with it via
// ON DELETE CASCADE (foreign_keys=ON is set at connect time).
func (s *UserStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("User")
	}
	return nil
}

// UpsertGitHubUser runs the OAuth account-linking transaction.
//
// Keyed on email: an unseen email inserts a fresh user seeded from the GitHub
// profile; a known email updates in place, filling only fields the user has
// left empty (provider data never overwrites user-entered data) while always
// refreshing github_id and avatar_url.
//
// RACE HANDLING:
// Two near-simultaneous callbacks for the same unseen email both take the
// insert path; the loser hits the UNIQUE(email) constraint. That violation is
// caught and retried as the update path inside the same transaction, so the
// caller always ends with exactly one row and never sees the conflict.
func (s *UserStore) UpsertGitHubUser(ctx context.Context, seed *model.User) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning upsert tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := getUserByEmailTx(ctx, tx, seed.Email)
	switch {
	case err == nil:
		if err := updateFromGitHubTx(ctx, tx, existing, seed); err != nil {
			return err
		}
	case errors.Is(err, apperror.ErrNotFound):
		if err := insertGitHubUserTx(ctx, tx, seed); err != nil {
			if !isUniqueViolation(err) {
				return err
			}
			// Lost the race — another callback inserted this email first.
			existing, err = getUserByEmailTx(ctx, tx, seed.Email)
			if err != nil {
				return fmt.Errorf("sqlite: re-reading user after insert race: %w", err)
			}
			if err := updateFromGitHubTx(ctx, tx, existing, seed); err != nil {
				return err
			}
		}
	default:
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing upsert tx: %w", err)
	}
	return nil
}

func getUserByEmailTx(ctx context.Context, tx *sql.Tx, email string) (*model.User, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("sqlite: getting user by email in tx: %w", err)
	}
	return user, nil
}

func insertGitHubUserTx(ctx context.Context, tx *sql.Tx, seed *model.User) error {
	seed.ID = uuid.NewString()
	now := time.Now().UTC()
	seed.CreatedAt = now
	seed.UpdatedAt = now
	seed.PublicProfile = true
	seed.ShowLocation = true

	_, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, github_id, first_name, last_name,
			bio, website, location, title, company, avatar_url,
			public_profile, show_email, show_location, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seed.ID, seed.Email, seed.PasswordHash, seed.GitHubID, seed.FirstName, seed.LastName,
		seed.Bio, seed.Website, seed.Location, seed.Title, seed.Company, seed.AvatarURL,
		seed.PublicProfile, seed.ShowEmail, seed.ShowLocation, seed.CreatedAt, seed.UpdatedAt,
	)
	return err
}

// updateFromGitHubTx merges provider data into existing, writes it, and
// copies the canonical row back into seed for the caller.
func updateFromGitHubTx(ctx context.Context, tx *sql.Tx, existing, seed *model.User) error {
	// Fill-only-empty: never clobber what the user typed themselves.
	if existing.FirstName == "" && seed.FirstName != "" {
		existing.FirstName = seed.FirstName
		existing.LastName = seed.LastName
	}
	if existing.Bio == nil && seed.Bio != nil {
		existing.Bio = seed.Bio
	}
	if existing.Location == nil && seed.Location != nil {
		existing.Location = seed.Location
	}
	if existing.Website == nil && seed.Website != nil {
		existing.Website = seed.Website
	}
	// Always refreshed on every login.
	existing.GitHubID = seed.GitHubID
	existing.AvatarURL = seed.AvatarURL
	existing.UpdatedAt = time.Now().UTC()

	_, err := tx.ExecContext(ctx,
		`UPDATE users SET github_id = ?, first_name = ?, last_name = ?, bio = ?,
			location = ?, website = ?, avatar_url = ?, updated_at = ?
		 WHERE id = ?`,
		existing.GitHubID, existing.FirstName, existing.LastName, existing.Bio,
		existing.Location, existing.Website, existing.AvatarURL, existing.UpdatedAt,
		existing.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s from GitHub profile: %w", existing.ID, err)
	}

	*seed = *existing
	return nil
}
