package account

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/loyalty-rewards/internal/logger"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
)

type recordingEvents struct {
	got []queue.AccountDeletedEvent
	err error
}

func (r *recordingEvents) AccountDeleted(_ context.Context, ev queue.AccountDeletedEvent) error {
	r.got = append(r.got, ev)
	return r.err
}

func expectLookup(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT u.email").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"email", "member_id"}).AddRow("a@b.co", "LR-ABCDEFGH"))
}

func TestDeleteRunsCascadeInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLookup(mock)
	mock.ExpectBegin()
	for _, s := range Steps {
		mock.ExpectExec(regexp.QuoteMeta(s.Query)).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), "u1", "account_hard_deleted", "profile", "u1", sqlmock.AnyArg(), "10.0.0.1", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	for _, s := range FinalSteps {
		arg := "u1"
		if s.Bind == ByEmail {
			arg = "a@b.co"
		}
		mock.ExpectExec(regexp.QuoteMeta(s.Query)).WithArgs(arg).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	events := &recordingEvents{}
	d := NewDeleter(db, events, logger.Nop())
	require.NoError(t, d.Delete(context.Background(), "u1", Request{IPAddress: "10.0.0.1"}))
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, events.got, 1)
	assert.Equal(t, "u1", events.got[0].UserID)
	assert.Equal(t, "LR-ABCDEFGH", events.got[0].MemberID)
	assert.Equal(t, "self_service", events.got[0].Method)
}

func TestDeleteRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLookup(mock)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(Steps[0].Query)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(Steps[1].Query)).WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	events := &recordingEvents{}
	err = NewDeleter(db, events, logger.Nop()).Delete(context.Background(), "u1", Request{})
	assert.ErrorIs(t, err, ErrDeletionFailed)
	assert.Empty(t, events.got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT u.email").WillReturnRows(sqlmock.NewRows([]string{"email", "member_id"}))
	err = NewDeleter(db, nil, logger.Nop()).Delete(context.Background(), "ghost", Request{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSurvivesEventFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLookup(mock)
	mock.ExpectBegin()
	for range Steps {
		mock.ExpectExec("DELETE FROM").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
	for range FinalSteps {
		mock.ExpectExec("DELETE FROM").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	events := &recordingEvents{err: errors.New("broker down")}
	require.NoError(t, NewDeleter(db, events, logger.Nop()).Delete(context.Background(), "u1", Request{}))
	assert.Len(t, events.got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditPrecedesProfileDelete(t *testing.T) {
	names := []string{}
	for _, s := range Steps {
		names = append(names, s.Name)
	}
	assert.NotContains(t, names, "profile")
	assert.NotContains(t, names, "identity")
	assert.Equal(t, "profile", FinalSteps[0].Name)
	assert.Equal(t, "identity", FinalSteps[len(FinalSteps)-1].Name)
}

func TestDeleteRemovesOneTimeCodesByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLookup(mock)
	mock.ExpectBegin()
	for range Steps {
		mock.ExpectExec("DELETE FROM").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM profiles").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM refresh_tokens").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM auth_verifications WHERE identifier=?")).
		WithArgs("a@b.co").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM users").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewDeleter(db, nil, logger.Nop()).Delete(context.Background(), "u1", Request{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
