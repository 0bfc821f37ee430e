package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/igorofyeshuasete/authgate/domain/model"
	"github.com/igorofyeshuasete/authgate/domain/port/inbound"
	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// authService orchestrates the credential store, the lockout tracker and
// the audit log. Attempts for the same username are serialized; attempts
// for different usernames run concurrently.
type authService struct {
	userRepo outbound.UserRepository
	lockout  outbound.LockoutTracker
	audit    outbound.AuditLog
	crypto   outbound.CryptoService
	logger   outbound.Logger
	clock    outbound.Clock

	jwtSecret            string
	jwtExpiry            time.Duration
	defaultAdminPassword string

	// mu guards db and userLocks. Per-username locks serialize the
	// lockout-check/credential-check/bookkeeping sequence so a second
	// concurrent attempt can never race past a stale failure count.
	mu        sync.Mutex
	db        *model.UserDatabase
	userLocks map[string]*sync.Mutex
}

func NewAuthService(
	userRepo outbound.UserRepository,
	lockout outbound.LockoutTracker,
	audit outbound.AuditLog,
	crypto outbound.CryptoService,
	logger outbound.Logger,
	clock outbound.Clock,
	jwtSecret string,
	jwtExpiryMinutes int,
	defaultAdminPassword string,
) inbound.AuthService {
	return &authService{
		userRepo:             userRepo,
		lockout:              lockout,
		audit:                audit,
		crypto:               crypto,
		logger:               logger,
		clock:                clock,
		jwtSecret:            jwtSecret,
		jwtExpiry:            time.Duration(jwtExpiryMinutes) * time.Minute,
		defaultAdminPassword: defaultAdminPassword,
		userLocks:            make(map[string]*sync.Mutex),
	}
}

func (s *authService) Authenticate(username, password string) (*model.AuthResult, error) {
	username = model.NormalizeUsername(username)

	lock := s.usernameLock(username)
	lock.Lock()
	defer lock.Unlock()

	now := s.clock.Now()

	if s.lockout.IsLocked(username, now) {
		s.logger.Warn("login attempt on locked account", "username", username)
		s.recordAudit(username, model.ActionLoginBlocked, "account locked")
		return &model.AuthResult{
			Status:   model.AuthLocked,
			UnlockIn: s.lockout.TimeUntilUnlock(username, now),
		}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadDatabaseLocked(); err != nil {
		return nil, err
	}

	user := s.db.Users[username]
	if user != nil && s.crypto.VerifyPassword(password, user.PasswordHash, user.Salt) {
		if err := s.lockout.RecordSuccess(username); err != nil {
			s.logger.Warn("failed to clear lockout state", "username", username, "error", err)
		}

		loginAt := now.Truncate(time.Second)
		user.LastLogin = &loginAt
		user.LastValidLogin = loginAt
		if err := s.saveDatabaseLocked(); err != nil {
			// the credential already verified; losing the lastLogin
			// update must not fail the login itself
			s.logger.Error("failed to persist last login", "username", username, "error", err)
		}

		token, err := s.generateToken(user, loginAt)
		if err != nil {
			return nil, err
		}

		s.logger.Info("successful login", "username", username)
		s.recordAudit(username, model.ActionLogin, "")
		return &model.AuthResult{Status: model.AuthSuccess, User: user, Token: token}, nil
	}

	if err := s.lockout.RecordFailure(username, now); err != nil {
		s.logger.Warn("failed to record login failure", "username", username, "error", err)
	}
	remaining := s.lockout.RemainingAttempts(username)
	s.logger.Warn("failed login attempt", "username", username, "remaining_attempts", remaining)
	s.recordAudit(username, model.ActionLoginFailed, "")
	return &model.AuthResult{Status: model.AuthFailed, RemainingAttempts: remaining}, nil
}

func (s *authService) ValidateToken(tokenString string) (*model.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	username, ok := claims["username"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	iatFloat, ok := claims["iat"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}
	issuedAt := time.Unix(int64(iatFloat), 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadDatabaseLocked(); err != nil {
		return nil, err
	}

	user := s.db.Users[model.NormalizeUsername(username)]
	if user == nil {
		return nil, model.ErrNotFound
	}

	if issuedAt.Before(user.LastValidLogin) {
		return nil, ErrInvalidToken
	}

	return user, nil
}

func (s *authService) CreateUser(username, password, name string, role model.UserRole) (*model.User, error) {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" || password == "" || strings.TrimSpace(name) == "" {
		return nil, model.ErrValidation
	}
	if len(trimmed) > model.MaxUsernameLen {
		return nil, model.ErrValidation
	}
	if role == "" {
		role = model.RoleUser
	}
	key := model.NormalizeUsername(trimmed)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadDatabaseLocked(); err != nil {
		return nil, err
	}

	if _, exists := s.db.Users[key]; exists {
		return nil, model.ErrDuplicateUser
	}

	salt := s.crypto.GenerateSalt()
	user := &model.User{
		ID:           s.db.NextID(),
		Username:     trimmed,
		PasswordHash: s.crypto.HashPassword(password, salt),
		Salt:         salt,
		Name:         strings.TrimSpace(name),
		Role:         role,
		CreatedAt:    s.clock.Now().Truncate(time.Second),
	}

	s.db.Users[key] = user
	if err := s.saveDatabaseLocked(); err != nil {
		delete(s.db.Users, key)
		return nil, err
	}

	s.logger.Info("user created", "username", user.Username, "role", user.Role)
	s.recordAudit(key, model.ActionUserCreated, fmt.Sprintf("id=%d role=%s", user.ID, user.Role))
	return user, nil
}

func (s *authService) UpdateUser(id int64, password, name string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadDatabaseLocked(); err != nil {
		return nil, err
	}

	user := s.db.FindByID(id)
	if user == nil {
		return nil, model.ErrNotFound
	}

	prevHash, prevSalt, prevName := user.PasswordHash, user.Salt, user.Name
	if password != "" {
		salt := s.crypto.GenerateSalt()
		user.PasswordHash = s.crypto.HashPassword(password, salt)
		user.Salt = salt
	}
	if name != "" {
		user.Name = strings.TrimSpace(name)
	}

	if err := s.saveDatabaseLocked(); err != nil {
		user.PasswordHash, user.Salt, user.Name = prevHash, prevSalt, prevName
		return nil, err
	}

	s.logger.Info("user updated", "id", id, "username", user.Username)
	s.recordAudit(model.NormalizeUsername(user.Username), model.ActionUserUpdated, fmt.Sprintf("id=%d", id))
	return user, nil
}

func (s *authService) DeleteUser(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadDatabaseLocked(); err != nil {
		return err
	}

	user := s.db.FindByID(id)
	if user == nil {
		return model.ErrNotFound
	}

	key := model.NormalizeUsername(user.Username)
	if key == model.AdminUsername {
		return model.ErrProtectedAccount
	}

	delete(s.db.Users, key)
	if err := s.saveDatabaseLocked(); err != nil {
		s.db.Users[key] = user
		return err
	}

	s.logger.Info("user deleted", "id", id, "username", user.Username)
	s.recordAudit(key, model.ActionUserDeleted, fmt.Sprintf("id=%d", id))
	return nil
}

func (s *authService) ListUsers() ([]*model.UserResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadDatabaseLocked(); err != nil {
		return nil, err
	}

	users := make([]*model.UserResponse, 0, len(s.db.Users))
	for _, user := range s.db.Users {
		users = append(users, user.ToResponse())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *authService) RecordEvent(username, action, details string) {
	s.recordAudit(model.NormalizeUsername(username), action, details)
}

func (s *authService) QueryAuditLog(filter model.AuditFilter) ([]model.AuditEntry, error) {
	return s.audit.Query(filter)
}

func (s *authService) ResetAdminPassword() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadDatabaseLocked(); err != nil {
		return err
	}

	admin := s.db.Users[model.AdminUsername]
	if admin == nil {
		return model.ErrNotFound
	}

	salt := s.crypto.GenerateSalt()
	admin.PasswordHash = s.crypto.HashPassword(s.defaultAdminPassword, salt)
	admin.Salt = salt
	admin.LastValidLogin = s.clock.Now().Truncate(time.Second)

	if err := s.saveDatabaseLocked(); err != nil {
		return err
	}

	s.logger.Warn("admin password reset to configured default")
	s.recordAudit(model.AdminUsername, model.ActionAdminReset, "")
	return nil
}

func (s *authService) InvalidateCache() {
	s.mu.Lock()
	s.db = nil
	s.mu.Unlock()
	s.logger.Info("user store cache invalidated")
}

// usernameLock returns the mutex serializing attempts for one username,
// creating it lazily.
func (s *authService) usernameLock(username string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[username]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[username] = lock
	}
	return lock
}

// loadDatabaseLocked reads the store into memory once. An absent or
// unreadable store is replaced by a freshly seeded default admin so the
// system always has a way in. Callers hold s.mu.
func (s *authService) loadDatabaseLocked() error {
	if s.db != nil {
		return nil
	}

	db, err := s.userRepo.Load()
	switch {
	case err == nil:
	case errors.Is(err, model.ErrUserStoreNotFound):
		s.logger.Info("user store not found, seeding default admin")
		db = nil
	case errors.Is(err, model.ErrUserStoreCorrupted), errors.Is(err, model.ErrInvalidChecksum):
		s.logger.Error("user store corrupted, seeding default admin", "error", err)
		db = nil
	default:
		return err
	}

	if db == nil || len(db.Users) == 0 {
		db = s.seedDefaultAdmin()
		if err := s.userRepo.Save(db); err != nil {
			s.logger.Error("failed to persist seeded user store", "error", err)
		}
	}

	s.db = db
	return nil
}

func (s *authService) saveDatabaseLocked() error {
	return s.userRepo.Save(s.db)
}

func (s *authService) seedDefaultAdmin() *model.UserDatabase {
	salt := s.crypto.GenerateSalt()
	admin := &model.User{
		ID:           1,
		Username:     model.AdminUsername,
		PasswordHash: s.crypto.HashPassword(s.defaultAdminPassword, salt),
		Salt:         salt,
		Name:         "Administrator",
		Role:         model.RoleAdmin,
		CreatedAt:    s.clock.Now().Truncate(time.Second),
	}
	return &model.UserDatabase{
		Users: map[string]*model.User{model.AdminUsername: admin},
	}
}

func (s *authService) generateToken(user *model.User, issuedAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"username": user.Username,
		"role":     user.Role,
		"exp":      issuedAt.Add(s.jwtExpiry).Unix(),
		"iat":      issuedAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// recordAudit appends to the audit trail. Audit availability is never
// allowed to block the primary operation.
func (s *authService) recordAudit(username, action, details string) {
	entry := model.AuditEntry{
		Timestamp: s.clock.Now().Truncate(time.Second),
		Username:  username,
		Action:    action,
		Details:   details,
	}
	if err := s.audit.Record(entry); err != nil {
		s.logger.Warn("audit log write failed", "action", action, "error", err)
	}
}
