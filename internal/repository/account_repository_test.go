package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-auth/internal/model"
)

var fixedNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func newRepoWithMock(t *testing.T) (*AccountRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := NewAccountRepo(db)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "is_verified",
		"verify_otp", "verify_otp_expires_at", "reset_otp", "reset_otp_expires_at", "created_at", "updated_at"})
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`^INSERT INTO accounts \(id,username,email,password_hash,created_at,updated_at\)`).
		WithArgs(sqlmock.AnyArg(), "alice", "a@x.com", "hash", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a, err := repo.Create(context.Background(), " alice ", " A@X.com ", "hash")
	require.NoError(t, err)
	assert.Len(t, a.ID, 36)
	assert.Equal(t, "alice", a.Username)
	assert.Equal(t, "a@x.com", a.Email)
	assert.False(t, a.IsVerified)
	assert.Nil(t, a.VerifyOTP)
	assert.Equal(t, fixedNow, a.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateMapsToErrDuplicateAccount(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`^INSERT INTO accounts`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@x.com' for key 'uq_accounts_email'"})

	_, err := repo.Create(context.Background(), "alice", "a@x.com", "hash")
	assert.ErrorIs(t, err, ErrDuplicateAccount)
}

func TestCreate_OtherErrorsPassThrough(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	boom := errors.New("db down")

	mock.ExpectExec(`^INSERT INTO accounts`).WillReturnError(boom)

	_, err := repo.Create(context.Background(), "alice", "a@x.com", "hash")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrDuplicateAccount)
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	exp := fixedNow.Add(10 * time.Minute)

	mock.ExpectQuery(`^SELECT .+ FROM accounts WHERE email=\? LIMIT 1$`).
		WithArgs("a@x.com").
		WillReturnRows(accountRows().AddRow("acc-1", "alice", "a@x.com", "hash", false,
			nil, nil, "123456", exp, fixedNow, fixedNow))

	a, err := repo.GetByEmail(context.Background(), "A@x.com")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", a.ID)
	assert.Nil(t, a.VerifyOTP)
	require.NotNil(t, a.ResetOTP)
	assert.Equal(t, "123456", a.ResetOTP.Code)
	assert.Equal(t, exp, a.ResetOTP.ExpiresAt)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`^SELECT .+ FROM accounts WHERE id=\? LIMIT 1$`).
		WithArgs("missing").
		WillReturnRows(accountRows())

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByID_HalfSetOTPIsDropped(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM accounts WHERE id=\?`).
		WithArgs("acc-1").
		WillReturnRows(accountRows().AddRow("acc-1", "alice", "a@x.com", "hash", false,
			"123456", nil, nil, fixedNow, fixedNow, fixedNow))

	a, err := repo.GetByID(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Nil(t, a.VerifyOTP)
	assert.Nil(t, a.ResetOTP)
}

func TestSave_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`^UPDATE accounts SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), model.Account{ID: "missing", Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSave_WritesEveryMutableColumn(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	exp := fixedNow.Add(10 * time.Minute)

	mock.ExpectExec(`^UPDATE accounts SET`).
		WithArgs("alice", "a@x.com", "hash2", true, nil, nil, "654321", exp, fixedNow, "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), model.Account{
		ID: "acc-1", Username: "alice", Email: " A@x.com", PasswordHash: "hash2", IsVerified: true,
		ResetOTP: &model.OTP{Code: "654321", ExpiresAt: exp},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_CommitsClearedOTP(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	exp := fixedNow.Add(10 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM accounts WHERE id=\? FOR UPDATE$`).
		WithArgs("acc-1").
		WillReturnRows(accountRows().AddRow("acc-1", "alice", "a@x.com", "hash", false,
			"123456", exp, nil, nil, fixedNow, fixedNow))
	mock.ExpectExec(`^UPDATE accounts SET`).
		WithArgs("alice", "a@x.com", "hash", true, nil, nil, nil, nil, fixedNow, "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := repo.Update(context.Background(), "acc-1", func(a *model.Account) error {
		a.IsVerified = true
		a.VerifyOTP = nil
		return nil
	})
	require.NoError(t, err)
	assert.True(t, a.IsVerified)
	assert.Nil(t, a.VerifyOTP)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_FnErrorRollsBack(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	errStop := errors.New("otp expired")

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE$`).
		WithArgs("acc-1").
		WillReturnRows(accountRows().AddRow("acc-1", "alice", "a@x.com", "hash", false,
			nil, nil, nil, nil, fixedNow, fixedNow))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), "acc-1", func(*model.Account) error { return errStop })
	assert.ErrorIs(t, err, errStop)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_MissingRowRollsBack(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE$`).WithArgs("missing").WillReturnRows(accountRows())
	mock.ExpectRollback()

	called := false
	_, err := repo.Update(context.Background(), "missing", func(*model.Account) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_PanicRollsBackAndRethrows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = WithTx(context.Background(), db, nil, func(context.Context, DBTX) error { panic("boom") })
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

	err = WithTx(context.Background(), db, nil, func(context.Context, DBTX) error { return nil })
	assert.ErrorIs(t, err, sql.ErrConnDone)
}
