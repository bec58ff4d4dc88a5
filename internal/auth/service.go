package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hazher89/oppdrag-app/internal/notify"
	"github.com/Hazher89/oppdrag-app/internal/users"
	pkgAuth "github.com/Hazher89/oppdrag-app/pkg/auth"
	"github.com/Hazher89/oppdrag-app/pkg/config"
	"github.com/Hazher89/oppdrag-app/pkg/db"
	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	pkgerrors "github.com/Hazher89/oppdrag-app/pkg/errors"
	"github.com/Hazher89/oppdrag-app/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	invalidCodeMessage        = "invalid or expired code"

	verificationCodeDigits = 6
	verificationCodeTTL    = 10 * time.Minute
	resetCodeTTL           = 10 * time.Minute

	channelEmail = "email"
	channelSMS   = "sms"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*users.UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error
	VerifyEmail(ctx context.Context, req VerifyEmailRequest) error
	ResendVerificationCode(ctx context.Context, req ResendCodeRequest) error
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	UpdateDeviceToken(ctx context.Context, userID uuid.UUID, req DeviceTokenRequest) error
	Logout(ctx context.Context, userID uuid.UUID) error
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateDeviceToken(ctx context.Context, id uuid.UUID, token *string) error
}

type notifier interface {
	SendEmail(ctx context.Context, msg notify.EmailMessage) error
	SendSMS(ctx context.Context, msg notify.SMSMessage) error
}

type service struct {
	users       userRepository
	notifier    notifier
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	Notifier       notifier
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	return &service{
		users:       params.UserRepo,
		notifier:    params.Notifier,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	role := enums.UserRoleDriver
	if req.Role != "" {
		parsed, err := enums.ParseUserRole(req.Role)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		role = parsed
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:         email,
		PasswordHash:  hash,
		Name:          strings.TrimSpace(req.Name),
		Phone:         req.Phone,
		Role:          role,
		CompanyID:     strings.TrimSpace(req.CompanyID),
		LicenseNumber: req.LicenseNumber,
		VehicleID:     req.VehicleID,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	if err := s.issueVerificationCode(ctx, user, channelEmail); err != nil {
		return nil, err
	}

	token, err := s.mintToken(user, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	return &RegisterResponse{
		AccessToken: token,
		User:        users.FromModel(user),
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	if req.DeviceToken != nil {
		if err := s.users.UpdateDeviceToken(ctx, user.ID, req.DeviceToken); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store device token")
		}
		user.DeviceToken = req.DeviceToken
	}

	token, err := s.mintToken(user, now)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken: token,
		User:        users.FromModel(user),
	}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*users.UserDTO, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.LicenseNumber != nil {
		user.LicenseNumber = req.LicenseNumber
	}
	if req.VehicleID != nil {
		user.VehicleID = req.VehicleID
	}
	if req.ProfileImage != nil {
		user.ProfileImage = req.ProfileImage
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return users.FromModel(user), nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}

	valid, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store password")
	}
	return nil
}

func (s *service) VerifyEmail(ctx context.Context, req VerifyEmailRequest) error {
	user, err := s.findUserByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return nil
	}
	if !codeMatches(user.VerificationCode, user.VerificationCodeExpiry, req.Code) {
		return pkgerrors.New(pkgerrors.CodeValidation, invalidCodeMessage)
	}

	user.IsEmailVerified = true
	user.VerificationCode = nil
	user.VerificationCodeExpiry = nil
	if err := s.users.Update(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark email verified")
	}
	return nil
}

func (s *service) ResendVerificationCode(ctx context.Context, req ResendCodeRequest) error {
	user, err := s.findUserByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return pkgerrors.New(pkgerrors.CodeConflict, "email already verified")
	}
	return s.issueVerificationCode(ctx, user, defaultChannel(req.Channel))
}

func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	user, err := s.findUserByEmail(ctx, req.Email)
	if err != nil {
		// A missing account must look identical to a successful request.
		if pkgerrors.As(err) != nil && pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
			return nil
		}
		return err
	}

	channel := defaultChannel(req.Channel)
	if err := validateChannel(user, channel); err != nil {
		return err
	}

	code, err := security.GenerateNumericCode(verificationCodeDigits)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset code")
	}
	// Only a hash of the code is stored; a database leak must not hand out
	// live reset codes.
	hashed, err := security.HashPassword(code, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash reset code")
	}
	expiry := time.Now().UTC().Add(resetCodeTTL)

	user.ResetCode = &hashed
	user.ResetCodeExpiry = &expiry
	if err := s.users.Update(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store reset code")
	}

	body := fmt.Sprintf("Din tilbakestillingskode er %s. Koden utløper om 10 minutter.", code)
	return s.deliverCode(ctx, user, channel, "Tilbakestill passord", body)
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	user, err := s.findUserByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if !codeMatches(user.ResetCode, user.ResetCodeExpiry, req.Code) {
		return pkgerrors.New(pkgerrors.CodeValidation, invalidCodeMessage)
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user.PasswordHash = hash
	user.ResetCode = nil
	user.ResetCodeExpiry = nil
	if err := s.users.Update(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store password")
	}
	return nil
}

func (s *service) UpdateDeviceToken(ctx context.Context, userID uuid.UUID, req DeviceTokenRequest) error {
	if err := s.users.UpdateDeviceToken(ctx, userID, req.DeviceToken); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store device token")
	}
	return nil
}

func (s *service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.UpdateDeviceToken(ctx, userID, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear device token")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) issueVerificationCode(ctx context.Context, user *models.User, channel string) error {
	if err := validateChannel(user, channel); err != nil {
		return err
	}

	code, err := security.GenerateNumericCode(verificationCodeDigits)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}
	hashed, err := security.HashPassword(code, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash verification code")
	}
	expiry := time.Now().UTC().Add(verificationCodeTTL)

	user.VerificationCode = &hashed
	user.VerificationCodeExpiry = &expiry
	if err := s.users.Update(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store verification code")
	}

	body := fmt.Sprintf("Din bekreftelseskode er %s. Koden utløper om 10 minutter.", code)
	return s.deliverCode(ctx, user, channel, "Bekreft e-postadressen din", body)
}

// validateChannel rejects delivery channels the account cannot receive.
func validateChannel(user *models.User, channel string) error {
	if channel == channelSMS && (user.Phone == nil || *user.Phone == "") {
		return pkgerrors.New(pkgerrors.CodeValidation, "no phone number on file")
	}
	return nil
}

// deliverCode sends the one-time code over the requested channel.
func (s *service) deliverCode(ctx context.Context, user *models.User, channel, subject, body string) error {
	switch channel {
	case channelSMS:
		if err := s.notifier.SendSMS(ctx, notify.SMSMessage{To: *user.Phone, Body: body}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send code sms")
		}
		return nil
	default:
		msg := notify.EmailMessage{To: user.Email, Subject: subject, Body: body}
		if err := s.notifier.SendEmail(ctx, msg); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send code email")
		}
		return nil
	}
}

func defaultChannel(channel string) string {
	if channel == "" {
		return channelEmail
	}
	return channel
}

func (s *service) mintToken(user *models.User, now time.Time) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:    user.ID,
		Role:      user.Role,
		CompanyID: user.CompanyID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

func (s *service) findUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return user, nil
}

func (s *service) findUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return user, nil
}

func codeMatches(stored *string, expiry *time.Time, provided string) bool {
	if stored == nil || expiry == nil {
		return false
	}
	if time.Now().UTC().After(*expiry) {
		return false
	}
	ok, err := security.VerifyPassword(strings.TrimSpace(provided), *stored)
	return err == nil && ok
}
