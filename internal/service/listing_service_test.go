package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listing-relay/internal/dispatch"
	"github.com/listing-relay/internal/queue"
	"github.com/listing-relay/internal/repository"
)

type fakeConfigs struct {
	configs map[uint64]*repository.RequestConfig
}

func (f *fakeConfigs) GetByIDAndOwner(_ context.Context, id, userID uint64) (*repository.RequestConfig, error) {
	c, ok := f.configs[id]
	if !ok || c.UserID != userID {
		return nil, repository.ErrConfigNotFound
	}
	return c, nil
}

type fakeListings struct {
	nextID uint64
	rows   map[uint64]*repository.ProductListing
}

func newFakeListings() *fakeListings {
	return &fakeListings{nextID: 1, rows: map[uint64]*repository.ProductListing{}}
}

func (f *fakeListings) insert(l *repository.ProductListing) {
	if l.Status == "" {
		l.Status = repository.StatusPending
	}
	l.ID = f.nextID
	f.nextID++
	cp := *l
	f.rows[l.ID] = &cp
}

func (f *fakeListings) Create(_ context.Context, l *repository.ProductListing) error {
	f.insert(l)
	return nil
}

func (f *fakeListings) CreateBatch(_ context.Context, listings []*repository.ProductListing) error {
	for _, l := range listings {
		f.insert(l)
	}
	return nil
}

func (f *fakeListings) GetByID(_ context.Context, id uint64) (*repository.ProductListing, error) {
	l, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeListings) UpdateStatus(_ context.Context, id uint64, status string) error {
	l, ok := f.rows[id]
	if !ok {
		return repository.ErrListingNotFound
	}
	l.Status = status
	return nil
}

func (f *fakeListings) UpdateStatusAll(_ context.Context, ids []uint64, status string) error {
	for _, id := range ids {
		if l, ok := f.rows[id]; ok {
			l.Status = status
		}
	}
	return nil
}

func (f *fakeListings) ApplyCallback(_ context.Context, id uint64, status string, respCode *int, respContent *string) error {
	l, ok := f.rows[id]
	if !ok {
		return repository.ErrListingNotFound
	}
	l.Status = status
	if respCode != nil {
		l.ResponseCode = respCode
	}
	if respContent != nil {
		l.ResponseContent = respContent
	}
	return nil
}

type stubScheduler struct {
	accept      bool
	singleCalls int
	batchCalls  int
	lastBatch   []dispatch.Task
}

func (s *stubScheduler) SendTask(_ context.Context, _ *repository.ProductListing, _ *repository.RequestConfig) bool {
	s.singleCalls++
	return s.accept
}

func (s *stubScheduler) SendBatch(_ context.Context, tasks []dispatch.Task) bool {
	s.batchCalls++
	s.lastBatch = tasks
	return s.accept
}

func newService(accept bool) (*ListingService, *fakeListings, *stubScheduler, *[]queue.ListingDispatchedEvent) {
	configs := &fakeConfigs{configs: map[uint64]*repository.RequestConfig{
		10: {ID: 10, UserID: 1, Name: "cfg", Method: "POST", RequestURL: "http://target"},
	}}
	listings := newFakeListings()
	sched := &stubScheduler{accept: accept}
	events := &[]queue.ListingDispatchedEvent{}
	svc := NewListingService(configs, listings, sched, func(_ context.Context, ev queue.ListingDispatchedEvent) error {
		*events = append(*events, ev)
		return nil
	})
	return svc, listings, sched, events
}

func TestCreateAndDispatchSuccessFlipsStatus(t *testing.T) {
	svc, listings, sched, events := newService(true)

	l, err := svc.CreateAndDispatch(context.Background(), 1, 10, ListingInput{})
	require.NoError(t, err)

	assert.Equal(t, repository.StatusDispatched, l.Status)
	stored, _ := listings.GetByID(context.Background(), l.ID)
	assert.Equal(t, repository.StatusDispatched, stored.Status)
	assert.Equal(t, 1, sched.singleCalls)
	require.Len(t, *events, 1)
	assert.Equal(t, l.ID, (*events)[0].ListingID)
	assert.False(t, (*events)[0].Batch)
}

func TestCreateAndDispatchFailureLeavesPending(t *testing.T) {
	svc, listings, sched, events := newService(false)

	l, err := svc.CreateAndDispatch(context.Background(), 1, 10, ListingInput{})
	require.NoError(t, err)

	assert.Equal(t, repository.StatusPending, l.Status)
	stored, _ := listings.GetByID(context.Background(), l.ID)
	assert.Equal(t, repository.StatusPending, stored.Status)
	assert.Equal(t, 1, sched.singleCalls)
	assert.Empty(t, *events)
}

func TestCreateAndDispatchForeignConfigPersistsNothing(t *testing.T) {
	svc, listings, sched, _ := newService(true)

	_, err := svc.CreateAndDispatch(context.Background(), 2, 10, ListingInput{})
	assert.ErrorIs(t, err, repository.ErrConfigNotFound)
	assert.Empty(t, listings.rows)
	assert.Zero(t, sched.singleCalls)
}

func TestCreateAndDispatchUnknownConfig(t *testing.T) {
	svc, listings, _, _ := newService(true)

	_, err := svc.CreateAndDispatch(context.Background(), 1, 999, ListingInput{})
	assert.ErrorIs(t, err, repository.ErrConfigNotFound)
	assert.Empty(t, listings.rows)
}

func TestImportAndDispatchAllOrNothingSuccess(t *testing.T) {
	svc, listings, sched, events := newService(true)

	inputs := []ListingInput{{}, {}, {}}
	rows, err := svc.ImportAndDispatch(context.Background(), 1, 10, inputs)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 1, sched.batchCalls)
	assert.Len(t, sched.lastBatch, 3)
	for _, l := range rows {
		assert.Equal(t, repository.StatusDispatched, l.Status)
		stored, _ := listings.GetByID(context.Background(), l.ID)
		assert.Equal(t, repository.StatusDispatched, stored.Status)
	}
	require.Len(t, *events, 3)
	assert.True(t, (*events)[0].Batch)
}

func TestImportAndDispatchAllOrNothingFailure(t *testing.T) {
	svc, listings, sched, events := newService(false)

	rows, err := svc.ImportAndDispatch(context.Background(), 1, 10, []ListingInput{{}, {}})
	require.NoError(t, err)

	assert.Equal(t, 1, sched.batchCalls)
	for _, l := range rows {
		stored, _ := listings.GetByID(context.Background(), l.ID)
		assert.Equal(t, repository.StatusPending, stored.Status)
	}
	assert.Empty(t, *events)
}

func TestImportAndDispatchForeignConfig(t *testing.T) {
	svc, listings, sched, _ := newService(true)

	_, err := svc.ImportAndDispatch(context.Background(), 2, 10, []ListingInput{{}})
	assert.ErrorIs(t, err, repository.ErrConfigNotFound)
	assert.Empty(t, listings.rows)
	assert.Zero(t, sched.batchCalls)
}

func TestApplyCallbackPartialUpdate(t *testing.T) {
	svc, _, _, _ := newService(false)

	l, err := svc.CreateAndDispatch(context.Background(), 1, 10, ListingInput{})
	require.NoError(t, err)
	require.Equal(t, repository.StatusPending, l.Status)

	// Callback carries only a status: response_code must stay untouched.
	updated, err := svc.ApplyCallback(context.Background(), l.ID, "failed", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "failed", updated.Status)
	assert.Nil(t, updated.ResponseCode)
	assert.Nil(t, updated.ResponseContent)

	code := 200
	content := "ok"
	updated, err = svc.ApplyCallback(context.Background(), l.ID, "completed", &code, &content)
	require.NoError(t, err)
	assert.Equal(t, "completed", updated.Status)
	require.NotNil(t, updated.ResponseCode)
	assert.Equal(t, 200, *updated.ResponseCode)
	require.NotNil(t, updated.ResponseContent)
	assert.Equal(t, "ok", *updated.ResponseContent)
}

func TestApplyCallbackUnknownListing(t *testing.T) {
	svc, listings, _, _ := newService(true)

	_, err := svc.ApplyCallback(context.Background(), 404, "completed", nil, nil)
	assert.ErrorIs(t, err, repository.ErrListingNotFound)
	assert.Empty(t, listings.rows)
}
