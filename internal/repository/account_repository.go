package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/iliyamo/storefront-auth/internal/model"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY, raised by a unique index violation.
const mysqlDuplicateEntry = 1062

const accountColumns = "id,username,email,password_hash,is_verified," +
	"verify_otp,verify_otp_expires_at,reset_otp,reset_otp_expires_at,created_at,updated_at"

// AccountRepo persists accounts in MySQL.
type AccountRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{DB: db, now: time.Now}
}

// NormalizeEmail trims and lower-cases an address so lookups and the unique
// index agree on what "the same email" means.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new unverified account. Uniqueness is left to the
// database: a duplicate username or email surfaces as ErrDuplicateAccount.
func (r *AccountRepo) Create(ctx context.Context, username, email, passwordHash string) (model.Account, error) {
	ts := r.now().UTC().Truncate(time.Millisecond)
	a := model.Account{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(username),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO accounts (id,username,email,password_hash,created_at,updated_at) VALUES (?,?,?,?,?,?)",
		a.ID, a.Username, a.Email, a.PasswordHash, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return model.Account{}, ErrDuplicateAccount
		}
		return model.Account{}, err
	}
	return a, nil
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (model.Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id))
}

// Save writes every mutable column of a.
func (r *AccountRepo) Save(ctx context.Context, a model.Account) error {
	return r.save(ctx, r.DB, a)
}

// Update runs fn against a row-locked copy of the account and saves the
// result in the same transaction. If fn returns an error nothing is written
// and the error is returned as-is.
func (r *AccountRepo) Update(ctx context.Context, id string, fn func(*model.Account) error) (model.Account, error) {
	var out model.Account
	err := WithTx(ctx, r.DB, nil, func(ctx context.Context, tx DBTX) error {
		a, err := scanAccount(tx.QueryRowContext(ctx,
			"SELECT "+accountColumns+" FROM accounts WHERE id=? FOR UPDATE", id))
		if err != nil {
			return err
		}
		if err := fn(&a); err != nil {
			return err
		}
		if err := r.save(ctx, tx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return model.Account{}, err
	}
	return out, nil
}

func (r *AccountRepo) save(ctx context.Context, db DBTX, a model.Account) error {
	a.UpdatedAt = r.now().UTC().Truncate(time.Millisecond)
	verifyCode, verifyExp := otpColumns(a.VerifyOTP)
	resetCode, resetExp := otpColumns(a.ResetOTP)
	res, err := db.ExecContext(ctx,
		`UPDATE accounts SET username=?, email=?, password_hash=?, is_verified=?,
			verify_otp=?, verify_otp_expires_at=?, reset_otp=?, reset_otp_expires_at=?, updated_at=?
		WHERE id=?`,
		a.Username, NormalizeEmail(a.Email), a.PasswordHash, a.IsVerified,
		verifyCode, verifyExp, resetCode, resetExp, a.UpdatedAt, a.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateAccount
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (model.Account, error) {
	var (
		a                     model.Account
		verifyCode, resetCode sql.NullString
		verifyExp, resetExp   sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.IsVerified,
		&verifyCode, &verifyExp, &resetCode, &resetExp, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, ErrNotFound
		}
		return model.Account{}, err
	}
	a.VerifyOTP = otpFrom(verifyCode, verifyExp)
	a.ResetOTP = otpFrom(resetCode, resetExp)
	return a, nil
}

// otpColumns splits an OTP into its two nullable columns; both are NULL or
// both are set.
func otpColumns(o *model.OTP) (sql.NullString, sql.NullTime) {
	if o == nil || o.Code == "" {
		return sql.NullString{}, sql.NullTime{}
	}
	return sql.NullString{String: o.Code, Valid: true}, sql.NullTime{Time: o.ExpiresAt.UTC(), Valid: true}
}

func otpFrom(code sql.NullString, exp sql.NullTime) *model.OTP {
	if !code.Valid || code.String == "" || !exp.Valid {
		return nil
	}
	return &model.OTP{Code: code.String, ExpiresAt: exp.Time.UTC()}
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
