package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/repository"
)

// recordingStore records writes and fails them on demand.
type recordingStore struct {
	created   []domain.Project
	deleted   []string
	createErr error
	deleteErr error
}

func (r *recordingStore) Subscribe(context.Context, domain.Filter, func([]domain.Project), func(error)) (repository.Subscription, error) {
	return nil, errors.New("not used")
}

func (r *recordingStore) Create(_ context.Context, p domain.Project) (string, error) {
	if r.createErr != nil {
		return "", r.createErr
	}
	r.created = append(r.created, p)
	return "proj-00001-0001", nil
}

func (r *recordingStore) Delete(_ context.Context, ownerID, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deleted = append(r.deleted, ownerID+"/"+id)
	return nil
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
}

func TestCreate_SubmitsOwnedRecord(t *testing.T) {
	store := &recordingStore{}
	svc := NewProjectService(store, auth.StaticOwner("u1"), WithClock(fixedClock))

	id, err := svc.Create(context.Background(), "Demo", "First")

	require.NoError(t, err)
	assert.Equal(t, "proj-00001-0001", id)
	require.Len(t, store.created, 1)
	got := store.created[0]
	assert.Equal(t, "Demo", got.Name)
	assert.Equal(t, "First", got.Description)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, "2024-03-05T10:30:00.000Z", got.CreatedAt)
	assert.Empty(t, got.ID)
}

func TestCreate_ValidationHappensBeforeStore(t *testing.T) {
	tests := []struct {
		name        string
		projectName string
		description string
	}{
		{name: "missing name", projectName: "", description: "desc"},
		{name: "missing description", projectName: "Demo", description: ""},
		{name: "both missing", projectName: "", description: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{}
			svc := NewProjectService(store, auth.StaticOwner("u1"))

			_, err := svc.Create(context.Background(), tt.projectName, tt.description)

			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Empty(t, store.created)
		})
	}
}

func TestCreate_ValidationWinsOverMissingOwner(t *testing.T) {
	svc := NewProjectService(&recordingStore{}, auth.StaticOwner(""))

	_, err := svc.Create(context.Background(), "", "desc")

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreate_Unauthenticated(t *testing.T) {
	store := &recordingStore{}
	svc := NewProjectService(store, auth.StaticOwner(""))

	_, err := svc.Create(context.Background(), "Demo", "First")

	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Empty(t, store.created)
}

func TestCreate_StoreFailure(t *testing.T) {
	cause := errors.New("quota exceeded")
	svc := NewProjectService(&recordingStore{createErr: cause}, auth.StaticOwner("u1"))

	_, err := svc.Create(context.Background(), "Demo", "First")

	assert.ErrorIs(t, err, domain.ErrStoreWriteFailed)
	assert.ErrorIs(t, err, cause)
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "create", storeErr.Op)
}

func TestCreate_UsesSessionOwnerAtCallTime(t *testing.T) {
	store := &recordingStore{}
	session := auth.NewSession("u1")
	svc := NewProjectService(store, session)

	_, err := svc.Create(context.Background(), "A", "a")
	require.NoError(t, err)
	session.SignIn("u2")
	_, err = svc.Create(context.Background(), "B", "b")
	require.NoError(t, err)
	session.SignOut()
	_, err = svc.Create(context.Background(), "C", "c")

	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	require.Len(t, store.created, 2)
	assert.Equal(t, "u1", store.created[0].OwnerID)
	assert.Equal(t, "u2", store.created[1].OwnerID)
}

func TestDelete(t *testing.T) {
	store := &recordingStore{}
	svc := NewProjectService(store, auth.StaticOwner("u1"))

	require.NoError(t, svc.Delete(context.Background(), "p1"))

	assert.Equal(t, []string{"u1/p1"}, store.deleted)
}

func TestDelete_MissingRecordIsSuccess(t *testing.T) {
	svc := NewProjectService(&recordingStore{deleteErr: domain.ErrNotFound}, auth.StaticOwner("u1"))

	assert.NoError(t, svc.Delete(context.Background(), "nope"))
}

func TestDelete_Errors(t *testing.T) {
	cause := errors.New("unavailable")

	tests := []struct {
		name    string
		owner   auth.StaticOwner
		id      string
		store   *recordingStore
		wantErr error
	}{
		{name: "empty id", owner: "u1", id: "", store: &recordingStore{}, wantErr: domain.ErrValidation},
		{name: "signed out", owner: "", id: "p1", store: &recordingStore{}, wantErr: domain.ErrUnauthenticated},
		{name: "store failure", owner: "u1", id: "p1", store: &recordingStore{deleteErr: cause}, wantErr: domain.ErrStoreWriteFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewProjectService(tt.store, tt.owner)

			err := svc.Delete(context.Background(), tt.id)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, tt.store.deleted)
		})
	}
}

func TestCreate_AgainstMemoryStore(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewProjectService(store, auth.StaticOwner("u1"))

	id, err := svc.Create(context.Background(), "Demo", "First")

	require.NoError(t, err)
	assert.Regexp(t, `^proj-\d{5}-\d{4}$`, id)
}
