package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gestornet/internal/core"
	"gestornet/internal/log"
	"gestornet/internal/storage"
)

const (
	minBossPasswordLen    = 6
	minManagerPasswordLen = 4
)

// SetupRequest is the first-run form: the boss account plus the first manager.
type SetupRequest struct {
	BossName        string `json:"bossName"`
	BossEmail       string `json:"bossEmail"`
	BossPassword    string `json:"bossPassword"`
	ConfirmPassword string `json:"confirmPassword"`
	ManagerName     string `json:"managerName"`
	ManagerPassword string `json:"managerPassword"`
}

// AuthManager owns managers and the boss account and issues sessions.
type AuthManager struct {
	mu       sync.RWMutex
	managers []core.Manager
	boss     *core.BossConfig

	persist Persister
	tokens  *SessionTokens
	logger  *log.Logger
	now     func() time.Time
	newID   func() string
}

func NewAuthManager(p Persister, tokens *SessionTokens, logger *log.Logger) *AuthManager {
	if logger == nil {
		logger = log.Discard()
	}
	return &AuthManager{
		persist: p,
		tokens:  tokens,
		logger:  logger.WithComponent(log.ComponentAuth),
		now:     time.Now,
		newID:   newID,
	}
}

// Load reads managers and the boss account from the store.
func (a *AuthManager) Load(ctx context.Context, s storage.Store) error {
	managers, err := storage.Load[core.Manager](ctx, s, storage.Managers)
	if err != nil {
		return fmt.Errorf("load managers: %w", err)
	}
	bosses, err := storage.Load[core.BossConfig](ctx, s, storage.BossConfig)
	if err != nil {
		return fmt.Errorf("load boss config: %w", err)
	}

	a.mu.Lock()
	a.managers = managers
	a.boss = nil
	for i := range bosses {
		if bosses[i].ID == core.BossConfigID {
			b := bosses[i]
			a.boss = &b
		}
	}
	a.mu.Unlock()

	a.logger.InfoContext(ctx, "Accounts loaded",
		"managers", len(managers),
		"setup_complete", a.IsSetupComplete())
	return nil
}

// Replace swaps the manager list after a restore. The boss account is not
// part of a backup and is left as is.
func (a *AuthManager) Replace(managers []core.Manager) {
	cp := make([]core.Manager, len(managers))
	copy(cp, managers)
	a.mu.Lock()
	a.managers = cp
	a.mu.Unlock()
}

func (a *AuthManager) IsSetupComplete() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.boss != nil
}

// Boss returns the boss account, if setup has run.
func (a *AuthManager) Boss() (core.BossConfig, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.boss == nil {
		return core.BossConfig{}, false
	}
	return *a.boss, true
}

func (a *AuthManager) Managers() []core.Manager {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]core.Manager, len(a.managers))
	copy(out, a.managers)
	return out
}

// SetupBoss creates the boss account. Calling it again overwrites it.
func (a *AuthManager) SetupBoss(ctx context.Context, name, email, password string) error {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	switch {
	case name == "":
		return core.ErrEmptyName
	case email == "":
		return core.ErrEmptyEmail
	case strings.TrimSpace(password) == "":
		return core.ErrEmptyPassword
	case len(password) < minBossPasswordLen:
		return core.ErrBossPasswordTooShort
	}

	boss := core.BossConfig{
		ID:        core.BossConfigID,
		Name:      name,
		Email:     email,
		Password:  password,
		CreatedAt: a.now(),
	}
	a.mu.Lock()
	a.boss = &boss
	persist(ctx, a.persist, storage.BossConfig, boss.ID, boss)
	a.mu.Unlock()

	a.logger.InfoContext(ctx, "Boss account configured", log.FieldOperation, log.OpCreate)
	return nil
}

// Setup runs the first-run flow: boss account, first manager, then login.
// Everything is validated before anything is written.
func (a *AuthManager) Setup(ctx context.Context, sess *Session, req SetupRequest) (core.Manager, error) {
	if a.IsSetupComplete() {
		return core.Manager{}, core.ErrSetupComplete
	}
	switch {
	case strings.TrimSpace(req.BossName) == "":
		return core.Manager{}, core.ErrEmptyName
	case strings.TrimSpace(req.BossEmail) == "":
		return core.Manager{}, core.ErrEmptyEmail
	case len(req.BossPassword) < minBossPasswordLen:
		return core.Manager{}, core.ErrBossPasswordTooShort
	}
	if err := ConfirmPassword(req.BossPassword, req.ConfirmPassword); err != nil {
		return core.Manager{}, err
	}
	if err := validateManager(req.ManagerName, req.ManagerPassword); err != nil {
		return core.Manager{}, err
	}
	if a.hasManagerNamed(req.ManagerName) {
		return core.Manager{}, core.ErrDuplicateManager
	}

	if err := a.SetupBoss(ctx, req.BossName, req.BossEmail, req.BossPassword); err != nil {
		return core.Manager{}, err
	}
	m, err := a.RegisterManager(ctx, req.ManagerName, req.ManagerPassword)
	if err != nil {
		return core.Manager{}, err
	}
	if err := a.Login(ctx, sess, m.Name, req.ManagerPassword); err != nil {
		return core.Manager{}, err
	}
	return m, nil
}

// RegisterManager adds a manager. Names are unique ignoring case.
func (a *AuthManager) RegisterManager(ctx context.Context, name, password string) (core.Manager, error) {
	name = strings.TrimSpace(name)
	if err := validateManager(name, password); err != nil {
		return core.Manager{}, err
	}

	a.mu.Lock()
	for _, m := range a.managers {
		if strings.EqualFold(m.Name, name) {
			a.mu.Unlock()
			return core.Manager{}, core.ErrDuplicateManager
		}
	}
	m := core.Manager{ID: a.newID(), Name: name, Password: password}
	a.managers = append(a.managers, m)
	persist(ctx, a.persist, storage.Managers, m.ID, m)
	a.mu.Unlock()

	a.logger.InfoContext(ctx, "Manager registered", log.FieldManager, m.Name)
	return m, nil
}

// RegisterManagerWithBoss is the login-page registration, gated by the boss password.
func (a *AuthManager) RegisterManagerWithBoss(ctx context.Context, bossPassword, name, password string) (core.Manager, error) {
	boss, ok := a.Boss()
	if !ok {
		return core.Manager{}, core.ErrSetupRequired
	}
	if err := validateManager(name, password); err != nil {
		return core.Manager{}, err
	}
	if !credentialsMatch(boss.Password, bossPassword) {
		return core.Manager{}, core.ErrWrongBossPassword
	}
	return a.RegisterManager(ctx, name, password)
}

// Login matches name and password exactly, case included.
func (a *AuthManager) Login(ctx context.Context, sess *Session, name, password string) error {
	a.mu.RLock()
	var found *core.Manager
	for i := range a.managers {
		if a.managers[i].Name == name && credentialsMatch(a.managers[i].Password, password) {
			m := a.managers[i]
			found = &m
			break
		}
	}
	a.mu.RUnlock()

	if found == nil {
		a.logger.WarnContext(ctx, "Login rejected",
			log.FieldManager, name,
			log.FieldErrorType, log.ErrorTypeAuth)
		return core.ErrInvalidCredentials
	}

	token, err := a.tokens.Issue(*found)
	if err != nil {
		return err
	}
	sess.set(*found, token)
	a.logger.InfoContext(ctx, "Manager logged in",
		log.FieldManager, found.Name,
		log.FieldOperation, log.OpLogin)
	return nil
}

func (a *AuthManager) Logout(ctx context.Context, sess *Session) {
	if name := sess.ManagerName(); name != "" {
		a.logger.InfoContext(ctx, "Manager logged out", log.FieldManager, name)
	}
	sess.clear()
}

// RestoreSession rebuilds a session from a token. The manager must still
// exist and its password must not have changed since the token was issued.
func (a *AuthManager) RestoreSession(ctx context.Context, token string) (*Session, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	i := a.indexOf(claims.Subject)
	var m core.Manager
	if i >= 0 {
		m = a.managers[i]
	}
	a.mu.RUnlock()

	if i < 0 || credentialFingerprint(m) != claims.Cred {
		log.FromContext(ctx).DebugContext(ctx, "Session token no longer valid", log.FieldManager, claims.Name)
		return nil, core.ErrNotLoggedIn
	}

	sess := NewSession()
	sess.set(m, token)
	return sess, nil
}

// DeleteManager needs the boss password and refuses to delete the manager
// that is logged in on sess. Unknown ids are ignored.
func (a *AuthManager) DeleteManager(ctx context.Context, sess *Session, id, bossPassword string) error {
	boss, ok := a.Boss()
	if !ok || !credentialsMatch(boss.Password, bossPassword) {
		return core.ErrCannotDeleteManager
	}
	if current, loggedIn := sess.Manager(); loggedIn && current.ID == id {
		return core.ErrCannotDeleteManager
	}

	a.mu.Lock()
	i := a.indexOf(id)
	if i < 0 {
		a.mu.Unlock()
		return nil
	}
	removed := a.managers[i]
	a.managers = append(a.managers[:i], a.managers[i+1:]...)
	forget(ctx, a.persist, storage.Managers, id)
	a.mu.Unlock()

	a.logger.InfoContext(ctx, "Manager deleted",
		log.FieldManager, removed.Name,
		log.FieldOperation, log.OpDelete)
	return nil
}

// ChangeBossPassword replaces the boss password. confirm must repeat
// newPassword.
func (a *AuthManager) ChangeBossPassword(ctx context.Context, current, newPassword, confirm string) error {
	if len(newPassword) < minBossPasswordLen {
		return core.ErrBossPasswordTooShort
	}
	if err := ConfirmPassword(newPassword, confirm); err != nil {
		return err
	}

	a.mu.Lock()
	if a.boss == nil {
		a.mu.Unlock()
		return core.ErrSetupRequired
	}
	if !credentialsMatch(a.boss.Password, current) {
		a.mu.Unlock()
		return core.ErrWrongBossPassword
	}
	a.boss.Password = newPassword
	boss := *a.boss
	persist(ctx, a.persist, storage.BossConfig, boss.ID, boss)
	a.mu.Unlock()

	a.logger.InfoContext(ctx, "Boss password changed", log.FieldOperation, log.OpUpdate)
	return nil
}

// ChangeManagerPassword updates the logged-in manager's password and
// reissues the session token. confirm must repeat newPassword.
func (a *AuthManager) ChangeManagerPassword(ctx context.Context, sess *Session, current, newPassword, confirm string) error {
	me, ok := sess.Manager()
	if !ok {
		return core.ErrNotLoggedIn
	}
	if len(newPassword) < minManagerPasswordLen {
		return core.ErrManagerPasswordShort
	}
	if err := ConfirmPassword(newPassword, confirm); err != nil {
		return err
	}

	a.mu.Lock()
	i := a.indexOf(me.ID)
	if i < 0 {
		a.mu.Unlock()
		return core.ErrNotLoggedIn
	}
	if !credentialsMatch(a.managers[i].Password, current) {
		a.mu.Unlock()
		return core.ErrWrongCurrentPassword
	}
	a.managers[i].Password = newPassword
	updated := a.managers[i]
	persist(ctx, a.persist, storage.Managers, updated.ID, updated)
	a.mu.Unlock()

	token, err := a.tokens.Issue(updated)
	if err != nil {
		return err
	}
	sess.set(updated, token)
	a.logger.InfoContext(ctx, "Manager password changed", log.FieldManager, updated.Name)
	return nil
}

// ConfirmPassword checks a password against its confirmation field.
func ConfirmPassword(password, confirm string) error {
	if password != confirm {
		return core.ErrPasswordMismatch
	}
	return nil
}

func validateManager(name, password string) error {
	if strings.TrimSpace(name) == "" {
		return core.ErrEmptyName
	}
	if strings.TrimSpace(password) == "" {
		return core.ErrEmptyPassword
	}
	return nil
}

func (a *AuthManager) hasManagerNamed(name string) bool {
	name = strings.TrimSpace(name)
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, m := range a.managers {
		if strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

func (a *AuthManager) indexOf(id string) int {
	for i := range a.managers {
		if a.managers[i].ID == id {
			return i
		}
	}
	return -1
}
