package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nfrund/taskmanager/internal/database/memory"
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/modules/tasks/events"
	"github.com/nfrund/taskmanager/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPublisher keeps every published message.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []pubsub.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg pubsub.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.Topic)
	}
	return out
}

// fakeHooks rewrites or rejects input without running scripts.
type fakeHooks struct {
	prefix string
	reject error
}

func (h *fakeHooks) BeforeCreate(_ context.Context, in *domain.TaskCreate) error {
	if h.reject != nil {
		return h.reject
	}
	in.Title = h.prefix + in.Title
	return nil
}

func (h *fakeHooks) BeforeUpdate(_ context.Context, _ int64, in *domain.TaskUpdate) error {
	if h.reject != nil {
		return h.reject
	}
	if in.Title != nil {
		t := h.prefix + *in.Title
		in.Title = &t
	}
	return nil
}

func newTestService(t *testing.T, hooks Hooks) (*Service, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	return NewService(memory.NewTaskStore(), pub, hooks), pub
}

func TestService_CreatePublishes(t *testing.T) {
	svc, pub := newTestService(t, nil)
	ctx := context.Background()

	task, err := svc.Create(ctx, domain.TaskCreate{Title: "  Write tests ", Description: "all of them"})
	require.NoError(t, err)
	assert.Equal(t, "Write tests", task.Title)

	require.Equal(t, []string{events.Created.Name()}, pub.topics())
	payload, err := events.Created.Decode(pub.msgs[0])
	require.NoError(t, err)
	assert.Equal(t, task.ID, payload.Task.ID)
}

func TestService_CreateInvalid(t *testing.T) {
	svc, pub := newTestService(t, nil)

	_, err := svc.Create(context.Background(), domain.TaskCreate{Title: "   ", Description: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, pub.topics())

	tasks, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestService_Update(t *testing.T) {
	svc, pub := newTestService(t, nil)
	ctx := context.Background()
	task, err := svc.Create(ctx, domain.TaskCreate{Title: "a", Description: "b"})
	require.NoError(t, err)

	unchanged, err := svc.Update(ctx, task.ID, domain.TaskUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "a", unchanged.Title)
	assert.Equal(t, []string{events.Created.Name()}, pub.topics(), "an empty update is not announced")

	title := "renamed"
	updated, err := svc.Update(ctx, task.ID, domain.TaskUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "b", updated.Description)
	assert.Equal(t, []string{events.Created.Name(), events.Updated.Name()}, pub.topics())

	empty := ""
	_, err = svc.Update(ctx, task.ID, domain.TaskUpdate{Description: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Update(ctx, 999, domain.TaskUpdate{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Delete(t *testing.T) {
	svc, pub := newTestService(t, nil)
	ctx := context.Background()
	task, err := svc.Create(ctx, domain.TaskCreate{Title: "a", Description: "b"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, task.ID))
	assert.ErrorIs(t, svc.Delete(ctx, task.ID), domain.ErrNotFound)
	assert.Equal(t, []string{events.Created.Name(), events.Deleted.Name()}, pub.topics())

	payload, err := events.Deleted.Decode(pub.msgs[1])
	require.NoError(t, err)
	assert.Equal(t, task.ID, payload.TaskID)
}

func TestService_PublishFailureIsNotReturned(t *testing.T) {
	svc, pub := newTestService(t, nil)
	pub.err = errors.New("bus down")

	task, err := svc.Create(context.Background(), domain.TaskCreate{Title: "a", Description: "b"})
	require.NoError(t, err)
	assert.NotZero(t, task.ID)
}

func TestService_Hooks(t *testing.T) {
	t.Run("rewrite", func(t *testing.T) {
		svc, _ := newTestService(t, &fakeHooks{prefix: "[hook] "})
		task, err := svc.Create(context.Background(), domain.TaskCreate{Title: "a", Description: "b"})
		require.NoError(t, err)
		assert.Equal(t, "[hook] a", task.Title)

		title := "c"
		updated, err := svc.Update(context.Background(), task.ID, domain.TaskUpdate{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "[hook] c", updated.Title)
	})

	t.Run("reject", func(t *testing.T) {
		rejected := &domain.ValidationError{Fields: []domain.FieldError{{Field: "task", Message: "no", Type: "rejected"}}}
		svc, pub := newTestService(t, &fakeHooks{reject: rejected})

		_, err := svc.Create(context.Background(), domain.TaskCreate{Title: "a", Description: "b"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, pub.topics())
	})

	t.Run("rewritten input is validated again", func(t *testing.T) {
		long := make([]byte, domain.MaxTitleLength)
		for i := range long {
			long[i] = 'x'
		}
		svc, _ := newTestService(t, &fakeHooks{prefix: string(long)})
		_, err := svc.Create(context.Background(), domain.TaskCreate{Title: "a", Description: "b"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
