package services

import (
	"context"
	"database/sql"

	"examprep/internal/models"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface defines the interface for user account operations
type UserServiceInterface interface {
	CreateUser(ctx context.Context, username, email, password string) (*models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastActive(ctx context.Context, userID int) error
	UpdateUserPassword(ctx context.Context, userID int, password string) error
	IsAdmin(ctx context.Context, userID int) (bool, error)
	EnsureAdminUserExists(ctx context.Context, username, password string) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// UserService manages user accounts and credentials
type UserService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewUserService creates a new UserService instance
func NewUserService(db *sql.DB, logger *observability.Logger) *UserService {
	return &UserService{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, username, email, timezone, password_hash, last_active, created_at, updated_at`

// CreateUser registers a new account with a bcrypt-hashed password
func (s *UserService) CreateUser(ctx context.Context, username, email, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "CreateUser",
		attribute.String("user.username", username),
	)
	defer observability.FinishSpan(span, &err)

	if username == "" || password == "" {
		return nil, contextutils.WrapErrorf(contextutils.ErrMissingRequired, "username and password are required")
	}
	if email != "" && !contextutils.IsValidEmail(email) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid email address")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash password")
	}

	user := &models.User{Username: username}
	if email != "" {
		user.Email = sql.NullString{String: email, Valid: true}
	}
	user.PasswordHash = sql.NullString{String: string(hash), Valid: true}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		user.Username, user.Email, user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert user")
	}

	span.SetAttributes(observability.AttributeUserID(user.ID))
	return user, nil
}

// AuthenticateUser verifies credentials and returns the account. Invalid
// username and invalid password are deliberately indistinguishable.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "AuthenticateUser",
		attribute.String("user.username", username),
	)
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			return nil, contextutils.WrapErrorf(contextutils.ErrInvalidCredentials, "authentication failed")
		}
		return nil, err
	}
	if !user.PasswordHash.Valid {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidCredentials, "authentication failed")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(password)); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidCredentials, "authentication failed")
	}

	if err := s.UpdateLastActive(ctx, user.ID); err != nil {
		s.logger.Warn(ctx, "Failed to update last active", map[string]interface{}{"user_id": user.ID})
	}

	span.SetAttributes(observability.AttributeUserID(user.ID))
	return user, nil
}

// GetUserByID returns a user with their roles, or ErrRecordNotFound
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByID",
		observability.AttributeUserID(id),
	)
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user %d", id)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get user")
	}
	if err := s.loadRoles(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByUsername returns a user with their roles, or ErrRecordNotFound
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByUsername",
		attribute.String("user.username", username),
	)
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user %s", username)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get user")
	}
	if err := s.loadRoles(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateLastActive stamps the account's last activity time
func (s *UserService) UpdateLastActive(ctx context.Context, userID int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "UpdateLastActive",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx,
		"UPDATE users SET last_active = NOW(), updated_at = NOW() WHERE id = $1", userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update last active")
	}
	return nil
}

// UpdateUserPassword replaces the account's password hash
func (s *UserService) UpdateUserPassword(ctx context.Context, userID int, password string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "UpdateUserPassword",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	if password == "" {
		return contextutils.WrapErrorf(contextutils.ErrMissingRequired, "password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return contextutils.WrapError(err, "failed to hash password")
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2",
		string(hash), userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update password")
	}
	return requireOneRow(result, contextutils.ErrRecordNotFound, userID)
}

// IsAdmin reports whether the user holds the admin role
func (s *UserService) IsAdmin(ctx context.Context, userID int) (result0 bool, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "IsAdmin",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	var count int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND r.name = 'admin'`,
		userID).Scan(&count)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to check admin role")
	}
	return count > 0, nil
}

// EnsureAdminUserExists creates the admin account and role mapping on
// first boot. Idempotent across restarts.
func (s *UserService) EnsureAdminUserExists(ctx context.Context, username, password string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "EnsureAdminUserExists",
		attribute.String("user.username", username),
	)
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			return err
		}
		user, err = s.CreateUser(ctx, username, "", password)
		if err != nil {
			return err
		}
		s.logger.Info(ctx, "Admin user created", map[string]interface{}{"username": username})
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = 'admin'
		ON CONFLICT (user_id, role_id) DO NOTHING`,
		user.ID)
	if err != nil {
		return contextutils.WrapError(err, "failed to assign admin role")
	}
	return nil
}

// ListUsers returns all accounts, for the admin console
func (s *UserService) ListUsers(ctx context.Context) (result0 []models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "ListUsers")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query users")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	users := []models.User{}
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, contextutils.WrapError(scanErr, "failed to scan user")
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating users")
	}

	span.SetAttributes(attribute.Int("users.count", len(users)))
	return users, nil
}

func (s *UserService) loadRoles(ctx context.Context, user *models.User) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`,
		user.ID)
	if err != nil {
		return contextutils.WrapError(err, "failed to query roles")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return contextutils.WrapError(err, "failed to scan role")
		}
		user.Roles = append(user.Roles, role)
	}
	return rows.Err()
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Timezone,
		&user.PasswordHash, &user.LastActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
