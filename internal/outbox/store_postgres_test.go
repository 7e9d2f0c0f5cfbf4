package outbox

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"captable/pkg/platform/sentinel"
	txcontext "captable/pkg/platform/tx"
)

type PostgresStoreSuite struct {
	suite.Suite
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })
	s.db = db
	s.mock = mock
	s.store = NewPostgres(db)
}

func (s *PostgresStoreSuite) TestAppend() {
	e := Entry{ID: uuid.New(), AggregateType: AggregateToken, AggregateID: "t", EventType: "MINT",
		Payload: []byte(`{}`), CreatedAt: time.Unix(1_700_000_000, 0).UTC()}

	s.Run("inserts the entry", func() {
		s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox")).
			WithArgs(e.ID, e.AggregateType, e.AggregateID, e.EventType, e.Payload, e.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		s.Require().NoError(s.store.Append(context.Background(), e))
		s.NoError(s.mock.ExpectationsWereMet())
	})

	s.Run("joins the tx from context", func() {
		s.mock.ExpectBegin()
		s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox")).WillReturnResult(sqlmock.NewResult(0, 1))
		s.mock.ExpectCommit()

		tx, err := s.db.Begin()
		s.Require().NoError(err)
		s.Require().NoError(s.store.Append(txcontext.WithTx(context.Background(), tx), e))
		s.Require().NoError(tx.Commit())
		s.NoError(s.mock.ExpectationsWereMet())
	})

	s.Run("wraps failures", func() {
		s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox")).WillReturnError(errors.New("disk full"))
		err := s.store.Append(context.Background(), e)
		s.ErrorContains(err, "insert outbox entry")
	})
}

func (s *PostgresStoreSuite) TestFetchUnprocessed() {
	created := time.Unix(1_700_000_000, 0).UTC()
	entryID := uuid.New()
	columns := []string{"id", "aggregate_type", "aggregate_id", "event_type", "payload", "created_at"}

	s.Run("plain read", func() {
		s.mock.ExpectQuery(`FROM outbox\s+WHERE processed_at IS NULL\s+ORDER BY created_at, id\s+LIMIT \$1\s*$`).
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(entryID.String(), "token", "t", "MINT", []byte(`{}`), created))

		entries, err := s.store.FetchUnprocessed(context.Background(), 10)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(entryID, entries[0].ID)
		s.Equal("MINT", entries[0].EventType)
	})

	s.Run("locks rows inside a tx", func() {
		s.mock.ExpectBegin()
		s.mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
			WillReturnRows(sqlmock.NewRows(columns))
		s.mock.ExpectRollback()

		tx, err := s.db.Begin()
		s.Require().NoError(err)
		entries, err := s.store.FetchUnprocessed(txcontext.WithTx(context.Background(), tx), 10)
		s.Require().NoError(err)
		s.Empty(entries)
		s.Require().NoError(tx.Rollback())
		s.NoError(s.mock.ExpectationsWereMet())
	})
}

func (s *PostgresStoreSuite) TestMarkProcessed() {
	entryID := uuid.New()
	at := time.Unix(1_700_000_000, 0).UTC()

	s.Run("updates the row", func() {
		s.mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox SET processed_at")).
			WithArgs(entryID, at).
			WillReturnResult(sqlmock.NewResult(0, 1))
		s.NoError(s.store.MarkProcessed(context.Background(), entryID, at))
	})

	s.Run("missing or already processed", func() {
		s.mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox SET processed_at")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		s.ErrorIs(s.store.MarkProcessed(context.Background(), entryID, at), sentinel.ErrNotFound)
	})
}
