// Package service implements the account operations: registration, login,
// email verification, session checks and password reset. It owns the
// verification state machine and the OTP rules; persistence, hashing, token
// signing and email delivery are injected.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/metrics"
	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/notify"
	"github.com/iliyamo/storefront-auth/internal/repository"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

// AccountStore is the credential store. Update must run fn and persist its
// changes atomically for the single account it names; an error from fn is
// returned unchanged and nothing is written.
type AccountStore interface {
	Create(ctx context.Context, username, email, passwordHash string) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	GetByID(ctx context.Context, id string) (model.Account, error)
	Update(ctx context.Context, id string, fn func(*model.Account) error) (model.Account, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(accountID string) (utils.SessionToken, error)
}

// OTPGenerator produces one-time passcodes.
type OTPGenerator interface {
	Generate() (model.OTP, error)
	TTL() time.Duration
}

// ProfileInvalidator drops cached profile responses for an account.
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, accountID string) error
}

// Deps are the collaborators every AuthService needs.
type Deps struct {
	Store    AccountStore
	Hasher   PasswordHasher
	Tokens   TokenIssuer
	OTPs     OTPGenerator
	Notifier notify.Notifier
}

// Session is the result of a successful register or login.
type Session struct {
	Account model.Account
	Token   utils.SessionToken
}

// AuthService orchestrates the account operations.
type AuthService struct {
	store  AccountStore
	hasher PasswordHasher
	tokens TokenIssuer
	otps   OTPGenerator
	cache  ProfileInvalidator

	now           func() time.Time
	log           *slog.Logger
	metrics       *metrics.Metrics
	notifyTimeout time.Duration
	concealReset  bool

	mail *dispatcher
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithClock replaces time.Now for OTP expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *AuthService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the counters. Without it nothing is recorded.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AuthService) { s.metrics = m }
}

// WithNotifyTimeout bounds each email send.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *AuthService) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// WithConcealUnknownResetEmail makes SendResetOTP succeed silently for
// unknown emails instead of reporting ErrNotFound.
func WithConcealUnknownResetEmail(conceal bool) Option {
	return func(s *AuthService) { s.concealReset = conceal }
}

// WithProfileCache lets the service invalidate cached profiles after a
// state change that the profile shows.
func WithProfileCache(c ProfileInvalidator) Option {
	return func(s *AuthService) { s.cache = c }
}

// NewAuthService validates deps and applies opts.
func NewAuthService(deps Deps, opts ...Option) (*AuthService, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("service: account store is required")
	case deps.Hasher == nil:
		return nil, errors.New("service: password hasher is required")
	case deps.Tokens == nil:
		return nil, errors.New("service: token issuer is required")
	case deps.OTPs == nil:
		return nil, errors.New("service: otp generator is required")
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Disabled{}
	}

	s := &AuthService{
		store:         deps.Store,
		hasher:        deps.Hasher,
		tokens:        deps.Tokens,
		otps:          deps.OTPs,
		now:           time.Now,
		log:           slog.Default(),
		notifyTimeout: DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mail = &dispatcher{
		notifier: notifier,
		timeout:  s.notifyTimeout,
		log:      s.log,
		metrics:  s.metrics,
	}
	return s, nil
}

// Register creates an unverified account, issues a session token and sends
// the welcome email in the background. A failed email never fails the
// registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (sess Session, err error) {
	defer func() { s.record("register", err) }()

	if err := in.Validate(); err != nil {
		return Session{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, oops.Code("PASSWORD_HASH_FAILED").With("operation", "register").Wrap(err)
	}
	acct, err := s.store.Create(ctx, in.Username, in.Email, hash)
	if err != nil {
		return Session{}, storeErr("Create", err)
	}
	tok, err := s.issue(acct.ID)
	if err != nil {
		return Session{}, err
	}

	s.log.Info("account registered", "account_id", acct.ID)
	s.mail.dispatch(ctx, acct.ID, notify.WelcomeMessage(acct.Username, acct.Email))
	return Session{Account: acct, Token: tok}, nil
}

// Login checks the password and issues a fresh session token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (sess Session, err error) {
	defer func() { s.record("login", err) }()

	if err := in.Validate(); err != nil {
		return Session{}, err
	}
	acct, err := s.store.GetByEmail(ctx, in.Email)
	if err != nil {
		return Session{}, storeErr("GetByEmail", err)
	}
	if !s.hasher.Verify(in.Password, acct.PasswordHash) {
		return Session{}, ErrInvalidCredential
	}
	tok, err := s.issue(acct.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Account: acct, Token: tok}, nil
}

// SendVerifyOTP stores a new verification code, replacing any previous one,
// and emails it. Verified accounts are rejected without touching the code.
func (s *AuthService) SendVerifyOTP(ctx context.Context, accountID string) (err error) {
	defer func() { s.record("send_verify_otp", err) }()

	if accountID == "" {
		return ErrUnauthenticated
	}
	otp, err := s.otps.Generate()
	if err != nil {
		return oops.Code("OTP_GENERATE_FAILED").With("operation", "send_verify_otp").Wrap(err)
	}
	acct, err := s.store.Update(ctx, accountID, func(a *model.Account) error {
		if a.IsVerified {
			return ErrAlreadyVerified
		}
		a.VerifyOTP = &otp
		return nil
	})
	if err != nil {
		return storeErr("Update", err)
	}

	s.mail.dispatch(ctx, acct.ID, notify.VerifyOTPMessage(acct.Username, acct.Email, otp.Code, s.otpMinutes()))
	return nil
}

// VerifyEmail consumes the verification code and marks the account
// verified. An expired code is left in place.
func (s *AuthService) VerifyEmail(ctx context.Context, accountID string, in VerifyEmailInput) (err error) {
	defer func() { s.record("verify_email", err) }()

	if err := in.Validate(); err != nil {
		return err
	}
	if accountID == "" {
		return ErrUnauthenticated
	}
	_, err = s.store.Update(ctx, accountID, func(a *model.Account) error {
		if err := checkOTP(a.VerifyOTP, in.OTP, s.now()); err != nil {
			return err
		}
		a.IsVerified = true
		a.VerifyOTP = nil
		return nil
	})
	if err != nil {
		return storeErr("Update", err)
	}

	s.invalidateProfile(ctx, accountID)
	s.log.Info("account verified", "account_id", accountID)
	return nil
}

// CheckSession reports whether the request carried a valid session. The
// session guard has already verified the token; an empty id means it did not
// run.
func (s *AuthService) CheckSession(_ context.Context, accountID string) (err error) {
	defer func() { s.record("check_session", err) }()

	if accountID == "" {
		return ErrUnauthenticated
	}
	return nil
}

// SendResetOTP stores a password reset code for the account with the given
// email and emails it. This path needs no session.
func (s *AuthService) SendResetOTP(ctx context.Context, in SendResetOTPInput) (err error) {
	defer func() { s.record("send_reset_otp", err) }()

	if err := in.Validate(); err != nil {
		return err
	}
	acct, err := s.store.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) && s.concealReset {
			s.log.Info("reset code requested for unknown email")
			return nil
		}
		return storeErr("GetByEmail", err)
	}

	otp, err := s.otps.Generate()
	if err != nil {
		return oops.Code("OTP_GENERATE_FAILED").With("operation", "send_reset_otp").Wrap(err)
	}
	acct, err = s.store.Update(ctx, acct.ID, func(a *model.Account) error {
		a.ResetOTP = &otp
		return nil
	})
	if err != nil {
		return storeErr("Update", err)
	}

	s.mail.dispatch(ctx, acct.ID, notify.ResetOTPMessage(acct.Username, acct.Email, otp.Code, s.otpMinutes()))
	return nil
}

// ResetPassword replaces the password when the reset code matches and has
// not expired, and consumes the code. The code is checked once before the
// slow hash and again under the row lock.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) (err error) {
	defer func() { s.record("reset_password", err) }()

	if err := in.Validate(); err != nil {
		return err
	}
	acct, err := s.store.GetByEmail(ctx, in.Email)
	if err != nil {
		return storeErr("GetByEmail", err)
	}
	if err := checkOTP(acct.ResetOTP, in.OTP, s.now()); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return oops.Code("PASSWORD_HASH_FAILED").With("operation", "reset_password").Wrap(err)
	}
	_, err = s.store.Update(ctx, acct.ID, func(a *model.Account) error {
		if err := checkOTP(a.ResetOTP, in.OTP, s.now()); err != nil {
			return err
		}
		a.PasswordHash = hash
		a.ResetOTP = nil
		return nil
	})
	if err != nil {
		return storeErr("Update", err)
	}

	s.log.Info("password reset", "account_id", acct.ID)
	return nil
}

// Profile returns the account behind an authenticated session.
func (s *AuthService) Profile(ctx context.Context, accountID string) (acct model.Account, err error) {
	defer func() { s.record("profile", err) }()

	if accountID == "" {
		return model.Account{}, ErrUnauthenticated
	}
	acct, err = s.store.GetByID(ctx, accountID)
	if err != nil {
		return model.Account{}, storeErr("GetByID", err)
	}
	return acct, nil
}

// Wait blocks until pending notifications are done or ctx ends. It is called
// once during shutdown.
func (s *AuthService) Wait(ctx context.Context) error {
	return s.mail.drain(ctx)
}

func (s *AuthService) issue(accountID string) (utils.SessionToken, error) {
	tok, err := s.tokens.Issue(accountID)
	if err != nil {
		return utils.SessionToken{}, oops.Code("TOKEN_ISSUE_FAILED").With("account_id", accountID).Wrap(err)
	}
	return tok, nil
}

func (s *AuthService) otpMinutes() int {
	return int(s.otps.TTL() / time.Minute)
}

func (s *AuthService) invalidateProfile(ctx context.Context, accountID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, accountID); err != nil {
		s.log.Warn("profile cache invalidation failed", "account_id", accountID, "error", err)
	}
}

func (s *AuthService) record(op string, err error) {
	switch {
	case err == nil:
		s.metrics.Operation(op, metrics.OutcomeSuccess)
	case isRejection(err):
		s.metrics.Operation(op, metrics.OutcomeRejected)
	default:
		s.metrics.Operation(op, metrics.OutcomeFailure)
		logging.LogError(s.log, op+" failed", err)
	}
}

// checkOTP compares the supplied code with the stored one. A mismatch wins
// over expiry so a stale wrong guess reads as invalid.
func checkOTP(stored *model.OTP, code string, now time.Time) error {
	if !stored.Matches(code) {
		return ErrInvalidOTP
	}
	if stored.Expired(now) {
		return ErrOTPExpired
	}
	return nil
}

var rejections = []error{
	ErrMissingFields, ErrDuplicateAccount, ErrNotFound, ErrInvalidCredential,
	ErrUnauthenticated, ErrAlreadyVerified, ErrInvalidOTP, ErrOTPExpired,
}

func isRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

// storeErr translates repository errors. Service errors raised inside an
// Update callback pass through untouched.
func storeErr(op string, err error) error {
	switch {
	case isRejection(err):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicateAccount):
		return ErrDuplicateAccount
	}
	return oops.Code("ACCOUNT_STORE_FAILED").With("operation", op).Wrap(err)
}
