package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/internal/policy"
	"github.com/taskhive/taskhive/internal/shared"
)

type fakeRepo struct {
	rows       map[uuid.UUID]Notification
	countCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[uuid.UUID]Notification)}
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (Notification, error) {
	n, ok := f.rows[id]
	if !ok {
		return Notification{}, ErrNotFound
	}
	return n, nil
}

func (f *fakeRepo) ListForUser(_ context.Context, userID uuid.UUID, _ shared.PageRequest) ([]Notification, int, error) {
	list := make([]Notification, 0)
	for _, n := range f.rows {
		if n.UserID == userID {
			list = append(list, n)
		}
	}
	return list, len(list), nil
}

func (f *fakeRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	f.countCalls++
	count := 0
	for _, n := range f.rows {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) Create(_ context.Context, n Notification) (Notification, error) {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	f.rows[n.ID] = n
	return n, nil
}

func (f *fakeRepo) MarkRead(_ context.Context, id uuid.UUID) (Notification, error) {
	n, ok := f.rows[id]
	if !ok {
		return Notification{}, ErrNotFound
	}
	now := time.Now()
	n.ReadAt = &now
	f.rows[id] = n
	return n, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.rows[id]; !ok {
		return ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeRepo) ListUnreadUserIDs(_ context.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, n := range f.rows {
		if n.CompanyID != companyID || n.ReadAt != nil {
			continue
		}
		if _, ok := seen[n.UserID]; !ok {
			seen[n.UserID] = struct{}{}
			ids = append(ids, n.UserID)
		}
	}
	return ids, nil
}

func newTestCache(t *testing.T) *UnreadCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewUnreadCache(client, time.Minute)
}

func testActor() *policy.Actor {
	return &policy.Actor{UserID: uuid.New(), CompanyID: uuid.New(), DepartmentID: uuid.New(), Role: policy.RoleUser}
}

func TestUnreadUsesCacheOnSecondCall(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, newTestCache(t))
	actor := testActor()
	recorder := NewRecorder(repo, service.cache, nil, nil)
	require.NoError(t, recorder.Record(context.Background(), actor.CompanyID, []uuid.UUID{actor.UserID}, KindTaskAssigned, "t", "b"))

	count, err := service.Unread(context.Background(), actor)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = service.Unread(context.Background(), actor)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, 1, repo.countCalls, "second read must come from cache")
}

func TestMarkReadInvalidatesCache(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, newTestCache(t))
	actor := testActor()
	recorder := NewRecorder(repo, service.cache, nil, nil)
	require.NoError(t, recorder.Record(context.Background(), actor.CompanyID, []uuid.UUID{actor.UserID}, KindTaskAssigned, "t", "b"))

	count, err := service.Unread(context.Background(), actor)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	list, _, err := service.List(context.Background(), actor, shared.PageRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = service.MarkRead(context.Background(), actor, list[0].ID)
	require.NoError(t, err)

	count, err = service.Unread(context.Background(), actor)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestMarkReadDeniedForForeignInbox(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, newTestCache(t))
	owner := testActor()
	recorder := NewRecorder(repo, service.cache, nil, nil)
	require.NoError(t, recorder.Record(context.Background(), owner.CompanyID, []uuid.UUID{owner.UserID}, KindTaskAssigned, "t", "b"))

	list, _, err := service.List(context.Background(), owner, shared.PageRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)

	intruder := &policy.Actor{UserID: uuid.New(), CompanyID: owner.CompanyID, DepartmentID: uuid.New(), Role: policy.RoleAdmin}
	_, err = service.MarkRead(context.Background(), intruder, list[0].ID)
	var denied *policy.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, policy.ReasonNotificationAccessDenied, denied.Decision.Reason)
}

func TestCrossCompanyInboxDenied(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, newTestCache(t))
	owner := testActor()
	recorder := NewRecorder(repo, service.cache, nil, nil)
	require.NoError(t, recorder.Record(context.Background(), owner.CompanyID, []uuid.UUID{owner.UserID}, KindTaskAssigned, "t", "b"))

	list, _, err := service.List(context.Background(), owner, shared.PageRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)

	outsider := &policy.Actor{UserID: owner.UserID, CompanyID: uuid.New(), DepartmentID: uuid.New(), Role: policy.RoleSuperAdmin}
	_, err = service.MarkRead(context.Background(), outsider, list[0].ID)
	var denied *policy.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, policy.ReasonCompanyAccessDenied, denied.Decision.Reason)
}
