// internal/workers/roi/create-submission-record/retention_test.go
package createsubmissionrecord

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_SweepExpired(t *testing.T) {
	tests := []struct {
		name        string
		days        int
		setupMock   func(mock sqlmock.Sqlmock)
		expectError bool
		expected    int64
	}{
		{
			name: "deletes records past the cutoff",
			days: 90,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM roi_submissions WHERE created_at < $1`)).
					WithArgs(fixedNow.AddDate(0, 0, -90)).
					WillReturnResult(sqlmock.NewResult(0, 3))
			},
			expected: 3,
		},
		{
			name:        "rejects non-positive days",
			days:        0,
			setupMock:   func(mock sqlmock.Sqlmock) {},
			expectError: true,
		},
		{
			name: "database failure",
			days: 30,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM roi_submissions`).
					WillReturnError(errors.New("connection reset"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock, db := setupHandler(t)
			defer db.Close()
			tt.setupMock(mock)

			n, err := h.SweepExpired(context.Background(), tt.days)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, n)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_RunRetention_StopsOnCancel(t *testing.T) {
	h, mock, db := setupHandler(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM roi_submissions`).WillReturnResult(sqlmock.NewResult(0, 1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.RunRetention(ctx, time.Hour, 90)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retention loop did not stop")
	}
}

func TestHandler_RunRetention_NonPositiveInterval(t *testing.T) {
	h, mock, db := setupHandler(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM roi_submissions`).WillReturnResult(sqlmock.NewResult(0, 0))

	done := make(chan struct{})
	go func() {
		h.RunRetention(context.Background(), -time.Second, 90)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retention loop should return without a ticker")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
