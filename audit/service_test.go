package audit

import (
	"context"
	"testing"
	"time"

	"github.com/sharecal/server/model"
	"github.com/sharecal/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, func() []model.AuditLog) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger, _ := zap.NewDevelopment()
	svc := New(db, logger)
	t.Cleanup(func() { svc.Stop(context.Background()) })

	// No require inside; assert.Eventually polls this from another goroutine.
	fetch := func() []model.AuditLog {
		var logs []model.AuditLog
		if err := db.Find(&logs).Error; err != nil {
			t.Errorf("fetch audit logs: %v", err)
			return nil
		}
		return logs
	}
	return svc, fetch
}

func int64p(v int64) *int64 { return &v }

func TestLog_FlushOnStop(t *testing.T) {
	svc, fetch := newTestService(t)

	svc.Log(Entry{
		TraceID:    "trace-1",
		UserID:     int64p(7),
		Email:      "a@x.com",
		Action:     "login",
		Request:    map[string]string{"email": "a@x.com"},
		IP:         "127.0.0.1",
		DurationMs: 12,
	})
	svc.Stop(context.Background())

	logs := fetch()
	require.Len(t, logs, 1)
	assert.Equal(t, "trace-1", logs[0].TraceID)
	assert.Equal(t, "login", logs[0].Action)
	assert.Equal(t, "a@x.com", logs[0].Email)
	require.NotNil(t, logs[0].UserID)
	assert.EqualValues(t, 7, *logs[0].UserID)
}

func TestLog_TimerFlush(t *testing.T) {
	svc, fetch := newTestService(t)

	svc.Log(Entry{TraceID: "trace-2", Action: "signup", Email: "b@x.com"})

	// The worker flushes on a 2s ticker even when the batch is small.
	assert.Eventually(t, func() bool {
		return len(fetch()) == 1
	}, 5*time.Second, 100*time.Millisecond)
}

func TestLog_BatchFlush(t *testing.T) {
	svc, fetch := newTestService(t)

	for i := 0; i < 150; i++ {
		svc.Log(Entry{TraceID: "bulk", Action: "friend.request"})
	}
	svc.Stop(context.Background())

	assert.Len(t, fetch(), 150)
}

func TestLog_NilUserID(t *testing.T) {
	svc, fetch := newTestService(t)

	// Failed logins have no resolved user yet.
	svc.Log(Entry{TraceID: "trace-3", Action: "login", Error: "invalid credentials"})
	svc.Stop(context.Background())

	logs := fetch()
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].UserID)
	assert.Equal(t, "invalid credentials", logs[0].Error)
}

func TestPruneBefore(t *testing.T) {
	svc, fetch := newTestService(t)

	svc.Log(Entry{TraceID: "old", Action: "login"})
	svc.Log(Entry{TraceID: "older", Action: "login"})
	svc.Stop(context.Background())
	require.Len(t, fetch(), 2)

	svc.PruneBefore(time.Now().Add(time.Minute))
	assert.Empty(t, fetch())
}

func TestPruneBefore_KeepsRecent(t *testing.T) {
	svc, fetch := newTestService(t)

	svc.Log(Entry{TraceID: "fresh", Action: "login"})
	svc.Stop(context.Background())

	svc.PruneBefore(time.Now().Add(-time.Hour))
	assert.Len(t, fetch(), 1)
}
