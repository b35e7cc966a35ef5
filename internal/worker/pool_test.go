package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/prompt-lab/internal/chat"
	"github.com/suPer8Hu/prompt-lab/internal/db"
	"github.com/suPer8Hu/prompt-lab/internal/store/rabbitmq"
	"github.com/suPer8Hu/prompt-lab/internal/variation"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type ackLog struct {
	mu       sync.Mutex
	acked    []uint64
	nacked   []uint64
	requeued []uint64
}

func (a *ackLog) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackLog) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if requeue {
		a.requeued = append(a.requeued, tag)
	} else {
		a.nacked = append(a.nacked, tag)
	}
	return nil
}

func (a *ackLog) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func delivery(a *ackLog, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: a, DeliveryTag: tag, Body: []byte(body)}
}

func jobBody(id string, attempt int) string {
	return fmt.Sprintf(`{"job_id":%q,"attempt":%d}`, id, attempt)
}

type fakeRunner struct {
	mu   sync.Mutex
	errs map[string]error
	ran  []string
}

func (f *fakeRunner) RunJob(ctx context.Context, jobID string) (*chat.TurnResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, jobID)
	return nil, f.errs[jobID]
}

type fakeRetry struct {
	mu   sync.Mutex
	msgs []rabbitmq.JobMessage
	err  error
}

func (f *fakeRetry) PublishRetry(ctx context.Context, m rabbitmq.JobMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

// runAll pushes the deliveries through a pool and waits for it to drain.
func runAll(p *Pool, ds ...amqp.Delivery) {
	msgs := make(chan amqp.Delivery, len(ds))
	for _, d := range ds {
		msgs <- d
	}
	close(msgs)
	p.Run(context.Background(), msgs)
}

func TestPool_AcksSuccessAndDeadLettersFailures(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{
		"gone": chat.ErrSessionNotFound,
	}}
	acks := &ackLog{}
	p := NewPool(runner, &fakeRetry{}, 3, nil)

	runAll(p,
		delivery(acks, 1, jobBody("ok", 0)),
		delivery(acks, 2, jobBody("gone", 0)),
		delivery(acks, 3, `{"nope":true}`),
	)

	assert.ElementsMatch(t, []uint64{1}, acks.acked)
	assert.ElementsMatch(t, []uint64{2, 3}, acks.nacked)
	assert.ElementsMatch(t, []string{"ok", "gone"}, runner.ran)
}

func TestPool_RetriesStoreErrors(t *testing.T) {
	storeFail := &chat.StoreError{Op: "commit", Err: errors.New("connection reset")}
	runner := &fakeRunner{errs: map[string]error{"flaky": storeFail}}
	retry := &fakeRetry{}
	acks := &ackLog{}
	p := NewPool(runner, retry, 1, nil)

	runAll(p, delivery(acks, 7, jobBody("flaky", 0)))

	require.Len(t, retry.msgs, 1)
	assert.Equal(t, rabbitmq.JobMessage{JobID: "flaky", Attempt: 1}, retry.msgs[0])
	assert.Equal(t, []uint64{7}, acks.acked)
	assert.Empty(t, acks.nacked)
}

func TestPool_GivesUpAfterMaxAttempts(t *testing.T) {
	storeFail := &chat.StoreError{Op: "commit", Err: errors.New("connection reset")}
	runner := &fakeRunner{errs: map[string]error{"flaky": storeFail}}
	retry := &fakeRetry{}
	acks := &ackLog{}
	p := NewPool(runner, retry, 1, nil)

	runAll(p, delivery(acks, 1, jobBody("flaky", DefaultMaxAttempts-1)))

	assert.Empty(t, retry.msgs)
	assert.Equal(t, []uint64{1}, acks.nacked)
}

func TestPool_DeadLettersWhenRetryPublishFails(t *testing.T) {
	storeFail := &chat.StoreError{Op: "begin", Err: errors.New("too many connections")}
	runner := &fakeRunner{errs: map[string]error{"flaky": storeFail}}
	acks := &ackLog{}
	p := NewPool(runner, &fakeRetry{err: errors.New("channel closed")}, 1, nil)

	runAll(p, delivery(acks, 1, jobBody("flaky", 0)))

	assert.Empty(t, acks.acked)
	assert.Equal(t, []uint64{1}, acks.nacked)
}

func TestPool_ParksJobsClaimedElsewhere(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{"busy": chat.ErrJobInProgress}}
	retry := &fakeRetry{}
	acks := &ackLog{}
	p := NewPool(runner, retry, 1, nil)

	// the last attempt still parks: a live claim is not a failure
	runAll(p, delivery(acks, 4, jobBody("busy", DefaultMaxAttempts-1)))

	require.Len(t, retry.msgs, 1)
	assert.Equal(t, rabbitmq.JobMessage{JobID: "busy", Attempt: DefaultMaxAttempts - 1}, retry.msgs[0])
	assert.Equal(t, []uint64{4}, acks.acked)
	assert.Empty(t, acks.nacked)
}

func TestPool_DeadLettersClaimedJobsWithoutRetryQueue(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{"busy": chat.ErrJobInProgress}}
	acks := &ackLog{}

	runAll(NewPool(runner, nil, 1, nil), delivery(acks, 1, jobBody("busy", 0)))

	assert.Empty(t, acks.acked)
	assert.Equal(t, []uint64{1}, acks.nacked)
}

func TestPool_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan amqp.Delivery)
	done := make(chan struct{})
	go func() {
		NewPool(&fakeRunner{}, nil, 2, nil).Run(ctx, msgs)
		close(done)
	}()
	cancel()
	<-done
}

func TestPool_RunsJobsAgainstStore(t *testing.T) {
	gdb, err := db.Connect("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	svc := chat.NewService(chat.NewRepo(gdb), nil, nil, nil)
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)

	job, _, err := svc.SubmitJob(ctx, "01JQWORKERJOBJOBJOBJOBJOB1", "Explain recursion briefly",
		variation.DefaultParams(), nil)
	require.NoError(t, err)

	acks := &ackLog{}
	runAll(NewPool(svc, nil, 1, nil),
		delivery(acks, 1, jobBody(job.ID, 0)),
		// redelivery of the same job must not commit twice
		delivery(acks, 2, jobBody(job.ID, 0)),
	)
	assert.ElementsMatch(t, []uint64{1, 2}, acks.acked)

	got, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.JobSucceeded, got.Status)

	turns, err := svc.ListTurnsBySession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}
