// Package service orchestrates the listing lifecycle: persist a listing,
// build its payload, hand it to the scheduler, and advance its status based
// on the outcome. It also applies the reverse direction, reconciling
// scheduler callbacks against stored state.
package service

import (
	"context"
	"log"
	"time"

	"github.com/listing-relay/internal/dispatch"
	"github.com/listing-relay/internal/queue"
	"github.com/listing-relay/internal/repository"
)

// ConfigStore is the slice of the config repository the lifecycle needs.
type ConfigStore interface {
	GetByIDAndOwner(ctx context.Context, id, userID uint64) (*repository.RequestConfig, error)
}

// ListingStore is the slice of the listing repository the lifecycle needs.
type ListingStore interface {
	Create(ctx context.Context, l *repository.ProductListing) error
	CreateBatch(ctx context.Context, listings []*repository.ProductListing) error
	GetByID(ctx context.Context, id uint64) (*repository.ProductListing, error)
	UpdateStatus(ctx context.Context, id uint64, status string) error
	UpdateStatusAll(ctx context.Context, ids []uint64, status string) error
	ApplyCallback(ctx context.Context, id uint64, status string, respCode *int, respContent *string) error
}

// Scheduler abstracts the dispatch client so the lifecycle can be tested
// against a stub. Both methods report acceptance as a boolean and never
// fail with an error.
type Scheduler interface {
	SendTask(ctx context.Context, l *repository.ProductListing, cfg *repository.RequestConfig) bool
	SendBatch(ctx context.Context, tasks []dispatch.Task) bool
}

// EventPublisher pushes a dispatch event to the broker. May be nil to
// disable publishing; failures are ignored either way.
type EventPublisher func(ctx context.Context, ev queue.ListingDispatchedEvent) error

// ListingService drives a listing from creation through dispatch and
// callback reconciliation.
type ListingService struct {
	Configs   ConfigStore
	Listings  ListingStore
	Scheduler Scheduler
	Publish   EventPublisher
}

func NewListingService(configs ConfigStore, listings ListingStore, sched Scheduler, publish EventPublisher) *ListingService {
	if configs == nil || listings == nil || sched == nil {
		panic("nil dependency passed to NewListingService")
	}
	return &ListingService{Configs: configs, Listings: listings, Scheduler: sched, Publish: publish}
}

// ListingInput carries the caller-supplied fields of a new listing.
// Nil pointers stay NULL in storage.
type ListingInput struct {
	Status      string
	ProductID   *string
	ProductLink *string
	Title       *string
	Stock       *int64
	ListingCode *string
	APITokenID  *uint64
}

func (in ListingInput) toRow(userID, configID uint64) *repository.ProductListing {
	return &repository.ProductListing{
		UserID:          userID,
		RequestConfigID: configID,
		APITokenID:      in.APITokenID,
		Status:          in.Status,
		ProductID:       in.ProductID,
		ProductLink:     in.ProductLink,
		Title:           in.Title,
		Stock:           in.Stock,
		ListingCode:     in.ListingCode,
	}
}

// CreateAndDispatch persists one listing and synchronously attempts a single
// dispatch. The config reference is validated against the caller before
// anything is persisted; a config owned by someone else reads as not found.
// On dispatch success the status flips to dispatched; on failure the row
// stays at its initial status and the caller may retry by re-creating.
// Exactly one dispatch is attempted per call.
func (s *ListingService) CreateAndDispatch(ctx context.Context, userID, configID uint64, in ListingInput) (*repository.ProductListing, error) {
	cfg, err := s.Configs.GetByIDAndOwner(ctx, configID, userID)
	if err != nil {
		return nil, err
	}
	l := in.toRow(userID, configID)
	if err := s.Listings.Create(ctx, l); err != nil {
		return nil, err
	}
	if s.Scheduler.SendTask(ctx, l, cfg) {
		if err := s.Listings.UpdateStatus(ctx, l.ID, repository.StatusDispatched); err != nil {
			log.Printf("service: listing %d dispatched but status update failed: %v", l.ID, err)
		} else {
			l.Status = repository.StatusDispatched
			s.publishDispatched(ctx, l, cfg, false)
		}
	}
	return l, nil
}

// ImportAndDispatch persists a batch of listings in one transaction and
// attempts exactly one batch dispatch for all of them. The whole batch
// shares one request config, validated up front. Status transition is
// all-or-nothing: every row flips to dispatched together, or none does.
func (s *ListingService) ImportAndDispatch(ctx context.Context, userID, configID uint64, inputs []ListingInput) ([]*repository.ProductListing, error) {
	cfg, err := s.Configs.GetByIDAndOwner(ctx, configID, userID)
	if err != nil {
		return nil, err
	}
	rows := make([]*repository.ProductListing, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, in.toRow(userID, configID))
	}
	if err := s.Listings.CreateBatch(ctx, rows); err != nil {
		return nil, err
	}

	tasks := make([]dispatch.Task, 0, len(rows))
	for _, l := range rows {
		tasks = append(tasks, dispatch.Task{Listing: l, Config: cfg})
	}
	if s.Scheduler.SendBatch(ctx, tasks) {
		ids := make([]uint64, 0, len(rows))
		for _, l := range rows {
			ids = append(ids, l.ID)
		}
		if err := s.Listings.UpdateStatusAll(ctx, ids, repository.StatusDispatched); err != nil {
			log.Printf("service: batch dispatched but status update failed: %v", err)
		} else {
			for _, l := range rows {
				l.Status = repository.StatusDispatched
				s.publishDispatched(ctx, l, cfg, true)
			}
		}
	}
	return rows, nil
}

// ApplyCallback reconciles a scheduler callback with the stored listing.
// The status is overwritten unconditionally; response code and content are
// updated only when present in the callback. Returns the fresh row.
func (s *ListingService) ApplyCallback(ctx context.Context, id uint64, status string, respCode *int, respContent *string) (*repository.ProductListing, error) {
	if _, err := s.Listings.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.Listings.ApplyCallback(ctx, id, status, respCode, respContent); err != nil {
		return nil, err
	}
	return s.Listings.GetByID(ctx, id)
}

// publishDispatched emits an audit event. Publishing is best-effort: the
// request has already succeeded by the time this runs.
func (s *ListingService) publishDispatched(ctx context.Context, l *repository.ProductListing, cfg *repository.RequestConfig, batch bool) {
	if s.Publish == nil {
		return
	}
	_ = s.Publish(ctx, queue.ListingDispatchedEvent{
		ListingID:    l.ID,
		UserID:       l.UserID,
		ConfigID:     cfg.ID,
		ConfigName:   cfg.Name,
		TaskName:     dispatch.TaskName(l),
		Method:       cfg.Method,
		TargetURL:    cfg.RequestURL,
		Batch:        batch,
		DispatchedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
