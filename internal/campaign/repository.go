package campaign

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmercier/leadpilot/internal/store"
)

// Repository persists campaigns. The orchestration core only sees this
// contract; the flat-file store and Postgres are interchangeable behind it.
type Repository interface {
	Save(ctx context.Context, c *Campaign) error
	Get(ctx context.Context, id string) (*Campaign, bool, error)
	List(ctx context.Context) ([]*Campaign, error)
	SetStatus(ctx context.Context, id, status string) error
}

// StoreRepository keeps campaigns as JSON documents in the document store,
// one file per campaign under campaigns/.
type StoreRepository struct {
	store *store.Store
}

// NewStoreRepository builds a Repository over the document store.
func NewStoreRepository(s *store.Store) *StoreRepository {
	return &StoreRepository{store: s}
}

func campaignKey(id string) string {
	return fmt.Sprintf("campaigns/%s.json", id)
}

// Save writes the campaign document, bumping UpdatedAt.
func (r *StoreRepository) Save(_ context.Context, c *Campaign) error {
	c.UpdatedAt = time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.UpdatedAt
	}
	if err := r.store.Save(campaignKey(c.ID), c); err != nil {
		return fmt.Errorf("saving campaign %s: %w", c.ID, err)
	}
	return nil
}

// Get loads one campaign; ok is false when it does not exist.
func (r *StoreRepository) Get(_ context.Context, id string) (*Campaign, bool, error) {
	var c Campaign
	ok, err := r.store.Load(campaignKey(id), &c)
	if err != nil {
		return nil, false, fmt.Errorf("loading campaign %s: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &c, true, nil
}

// List returns all campaigns, newest first.
func (r *StoreRepository) List(_ context.Context) ([]*Campaign, error) {
	keys, err := r.store.List("campaigns")
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	var campaigns []*Campaign
	for _, key := range keys {
		var c Campaign
		ok, err := r.store.Load(key, &c)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", key, err)
		}
		if ok {
			campaigns = append(campaigns, &c)
		}
	}
	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.After(campaigns[j].CreatedAt)
	})
	return campaigns, nil
}

// SetStatus updates just the status field of a stored campaign.
func (r *StoreRepository) SetStatus(ctx context.Context, id, status string) error {
	c, ok, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("campaign %s not found", id)
	}
	c.Status = status
	return r.Save(ctx, c)
}
