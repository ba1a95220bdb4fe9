package userservice

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/blogsphere/internal/common"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is deactivated")
	ErrSelfDeletion       = errors.New("you cannot delete your own account")
	ErrIdentityNoEmail    = errors.New("identity provider did not return an email address")
)

// NewUserService wires the user service. mb and n may be nil, in which case the welcome email and real-time account
// events are skipped.
func NewUserService(db *sql.DB, mb common.MessageProducer, tokens *TokenManager, n ActionBroadcaster, logger *slog.Logger) *UserService {
	return &UserService{
		m:      newUserModel(db),
		mb:     mb,
		tokens: tokens,
		n:      n,
		logger: logger,
	}
}

// CreateUser registers an account, signs it in, and publishes a user.created event for the welcome email.
func (s *UserService) CreateUser(ctx context.Context, req *CreateUserRequest) (*AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)

	v := common.NewValidator()
	validateUsername(v, req.Username)
	validateName(v, req.Name)
	validateEmail(v, req.Email)
	validatePassword(v, "password", req.Password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	emailTaken, usernameTaken, err := s.m.findConflict(ctx, req.Email, req.Username)
	if err != nil {
		return nil, err
	}
	switch {
	case emailTaken:
		return nil, ErrDuplicateEmail
	case usernameTaken:
		return nil, ErrDuplicateUsername
	}

	u := User{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Role:     RoleUser,
	}

	if err := u.Password.set(req.Password); err != nil {
		return nil, err
	}

	if err := s.m.insertUser(ctx, &u); err != nil {
		return nil, err
	}

	result, err := s.signIn(ctx, &u)
	if err != nil {
		return nil, err
	}

	s.publishUserCreated(ctx, &u)
	s.broadcast("register", &u)

	return result, nil
}

func (s *UserService) publishUserCreated(ctx context.Context, u *User) {
	if s.mb == nil {
		return
	}

	data := struct {
		Email    string
		Name     string
		Username string
	}{
		Email:    u.Email,
		Name:     u.Name,
		Username: u.Username,
	}

	msg, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("could not marshal user.created event", slog.String("error", err.Error()))
		return
	}

	if err := s.mb.Publish(ctx, msg, common.UserCreatedKey, common.UserExchange); err != nil {
		s.logger.Error("could not publish user.created event", slog.String("error", err.Error()), slog.String("user_id", u.ID.String()))
	}
}

func (s *UserService) broadcast(action string, u *User) {
	if s.n != nil {
		s.n.BroadcastUserAction(action, u.ID, u.Username, u.Name)
	}
}

// LoginUser signs a user in by email. Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) LoginUser(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	v := common.NewValidator()
	validateEmail(v, email)
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	user, err := s.m.getUserByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrInvalidCredentials
		default:
			return nil, err
		}
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	ok, err := user.Password.compare(password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	result, err := s.signIn(ctx, user)
	if err != nil {
		return nil, err
	}

	s.broadcast("login", user)

	return result, nil
}

// signIn issues an access and refresh token pair and stores the refresh digest, replacing any previous one.
func (s *UserService) signIn(ctx context.Context, u *User) (*AuthResult, error) {
	access, _, err := s.tokens.NewAccessToken(u.ID)
	if err != nil {
		return nil, err
	}

	refresh, _, err := s.tokens.NewRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}

	u.refreshHash = hashToken(refresh)
	if err := s.m.setRefreshToken(ctx, u.ID, u.refreshHash); err != nil {
		return nil, err
	}

	return &AuthResult{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

// RefreshAccessToken issues a new access token. The refresh token itself is not rotated.
func (s *UserService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	id, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}

	user, err := s.m.getUserByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return "", ErrInvalidToken
		default:
			return "", err
		}
	}

	if !user.IsActive {
		return "", ErrAccountInactive
	}

	if len(user.refreshHash) == 0 || subtle.ConstantTimeCompare(user.refreshHash, hashToken(refreshToken)) != 1 {
		return "", ErrInvalidToken
	}

	access, _, err := s.tokens.NewAccessToken(user.ID)
	if err != nil {
		return "", err
	}

	return access, nil
}

// LogoutUser forgets the stored refresh token.
func (s *UserService) LogoutUser(ctx context.Context, user *User) error {
	if err := s.m.setRefreshToken(ctx, user.ID, nil); err != nil {
		return err
	}

	s.broadcast("logout", user)

	return nil
}

// GetUserByAccessToken resolves the account behind a bearer token. Deleted and deactivated accounts are rejected.
func (s *UserService) GetUserByAccessToken(ctx context.Context, token string) (*User, error) {
	id, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.m.getUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.m.getUserByID(ctx, id)
}

// UpdateProfile applies the non-nil fields of req to the user's own account.
func (s *UserService) UpdateProfile(ctx context.Context, user *User, req *UpdateProfileRequest) (*User, error) {
	u := *user

	v := common.NewValidator()
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
		validateName(v, u.Name)
	}
	if req.Username != nil {
		u.Username = strings.TrimSpace(*req.Username)
		validateUsername(v, u.Username)
	}
	if req.Avatar != nil {
		u.Avatar = strings.TrimSpace(*req.Avatar)
		validateAvatar(v, u.Avatar)
	}
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if err := s.m.updateUser(ctx, &u); err != nil {
		return nil, err
	}

	return &u, nil
}

// ChangePassword verifies the current password before storing the new one. Accounts created through a third-party
// provider have no password yet and may set one without a current password.
func (s *UserService) ChangePassword(ctx context.Context, user *User, currentPassword, newPassword string) error {
	v := common.NewValidator()
	if user.Password.isSet() {
		v.Check(currentPassword != "", "currentPassword", "must be provided")
	}
	validatePassword(v, "newPassword", newPassword)
	if !v.Valid() {
		return v.ValidationError()
	}

	if user.Password.isSet() {
		ok, err := user.Password.compare(currentPassword)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidCredentials
		}
	}

	var pwd Password
	if err := pwd.set(newPassword); err != nil {
		return err
	}

	return s.m.updateUserPassword(ctx, pwd, user.ID, user.Version)
}

// LoginWithIdentity signs in through a third-party provider. The account is found by provider id, then linked by
// email, and otherwise created with a generated username.
func (s *UserService) LoginWithIdentity(ctx context.Context, id *ExternalIdentity) (*AuthResult, error) {
	id.Email = strings.ToLower(strings.TrimSpace(id.Email))

	user, err := s.m.getUserByProvider(ctx, id.Provider, id.Subject)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		user, err = s.linkOrCreate(ctx, id)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	result, err := s.signIn(ctx, user)
	if err != nil {
		return nil, err
	}

	s.broadcast("login", user)

	return result, nil
}

func (s *UserService) linkOrCreate(ctx context.Context, id *ExternalIdentity) (*User, error) {
	if id.Email == "" {
		return nil, ErrIdentityNoEmail
	}

	user, err := s.m.getUserByEmail(ctx, id.Email)
	switch {
	case err == nil:
		if user.Avatar == "" {
			user.Avatar = id.Avatar
		}
		if err := s.m.linkProvider(ctx, user, id.Provider, id.Subject); err != nil {
			return nil, err
		}
		setProviderID(user, id.Provider, id.Subject)
		return user, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	username := generateUsername(id.Email, time.Now())
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = username
	}

	u := User{
		Username: username,
		Name:     name,
		Email:    id.Email,
		Role:     RoleUser,
		Avatar:   id.Avatar,
	}
	setProviderID(&u, id.Provider, id.Subject)

	if err := s.m.insertUser(ctx, &u); err != nil {
		return nil, err
	}

	s.publishUserCreated(ctx, &u)
	s.broadcast("register", &u)

	return &u, nil
}

func setProviderID(u *User, p Provider, subject string) {
	switch p {
	case ProviderGoogle:
		u.GoogleID = &subject
	case ProviderFacebook:
		u.FacebookID = &subject
	}
}

// generateUsername derives "<email-local>_<unix-millis>" restricted to the username alphabet and length.
func generateUsername(email string, now time.Time) string {
	local, _, _ := strings.Cut(email, "@")

	var b strings.Builder
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	prefix := b.String()
	if prefix == "" {
		prefix = "user"
	}
	if len(prefix) > 16 {
		prefix = prefix[:16]
	}

	return prefix + "_" + strconv.FormatInt(now.UnixMilli(), 10)
}
