package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/community-directory/internal/collection/dedup"
	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/models"
	"github.com/magabrotheeeer/community-directory/internal/storage/storagetest"
)

func TestGroupService_CreateAndList(t *testing.T) {
	store, _, _ := storagetest.NewStore(t)
	svc := NewGroupService(store, storagetest.NoopLogger())
	ctx := context.Background()

	g, err := svc.Create(ctx, GroupInput{
		Title:      " Go Meetup ",
		Link:       "https://t.me/gomeetup",
		Links:      []string{"https://t.me/gomeetup", "https://gomeetup.example"},
		CategoryID: "tech",
		LocationID: "berlin",
	})
	require.NoError(t, err)
	assert.Equal(t, "Go Meetup", g.Title)
	assert.Equal(t, models.StatusPending, g.Status)
	assert.Equal(t, []string{"https://t.me/gomeetup", "https://gomeetup.example"}, g.Links)
	assert.NotEmpty(t, g.ID)

	_, err = svc.Create(ctx, GroupInput{Title: "Other", Link: "https://other.example", CategoryID: "food"})
	require.NoError(t, err)

	all, err := svc.List(ctx, GroupFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	tech, err := svc.List(ctx, GroupFilter{CategoryID: "tech", Status: models.StatusPending})
	require.NoError(t, err)
	require.Len(t, tech, 1)
	assert.Equal(t, g.ID, tech[0].ID)

	approved, err := svc.List(ctx, GroupFilter{Status: models.StatusApproved})
	require.NoError(t, err)
	assert.Empty(t, approved)

	got, err := svc.Read(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Title, got.Title)
}

func TestGroupService_CreateRejects(t *testing.T) {
	store, _, _ := storagetest.NewStore(t)
	svc := NewGroupService(store, storagetest.NoopLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, GroupInput{Title: "First", Link: "https://t.me/a"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      GroupInput
		wantErr error
	}{
		{"no links", GroupInput{Title: "x", Link: "  "}, apperr.ErrInvalidInput},
		{"no title", GroupInput{Link: "https://t.me/b"}, apperr.ErrInvalidInput},
		{"duplicate link", GroupInput{Title: "Second", Links: []string{"https://t.me/c", "https://t.me/a"}}, apperr.ErrDuplicateIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	all, err := svc.List(ctx, GroupFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGroupService_DuplicateRace(t *testing.T) {
	store, _, _ := storagetest.NewStore(t)
	svc := NewGroupService(store, storagetest.NoopLogger())
	ctx := context.Background()

	const n = 20
	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, GroupInput{Title: fmt.Sprintf("g%d", i), Link: "https://t.me/same"})
			var dupErr *dedup.DuplicateIdentifierError
			switch {
			case err == nil:
				ok.Add(1)
			case errors.As(err, &dupErr):
				dup.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, n-1, dup.Load())
}

func TestGroupService_ClickStatusRemove(t *testing.T) {
	store, _, _ := storagetest.NewStore(t)
	svc := NewGroupService(store, storagetest.NoopLogger())
	ctx := context.Background()

	g, err := svc.Create(ctx, GroupInput{Title: "g", Link: "https://t.me/g"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Click(ctx, g.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	clicks, err := svc.Click(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 11, clicks)

	require.NoError(t, svc.SetStatus(ctx, g.ID, models.StatusApproved))
	require.ErrorIs(t, svc.SetStatus(ctx, g.ID, "archived"), apperr.ErrInvalidInput)
	require.ErrorIs(t, svc.SetStatus(ctx, "missing", models.StatusApproved), apperr.ErrNotFound)

	got, err := svc.Read(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	_, err = svc.Click(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, svc.Remove(ctx, g.ID))
	require.ErrorIs(t, svc.Remove(ctx, g.ID), apperr.ErrNotFound)
	_, err = svc.Read(ctx, g.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCampaignService(t *testing.T) {
	store, _, _ := storagetest.NewStore(t)
	svc := NewCampaignService(store, storagetest.NoopLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, CampaignInput{Title: " "})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	c, err := svc.Create(ctx, CampaignInput{Title: "Food bank", GoalAmount: 1000})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ToggleLike(ctx, c.ID, fmt.Sprintf("user%d@example.com", i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.ToggleLike(ctx, c.ID, "USER0@example.com")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Likes)
	assert.Len(t, got.LikedBy, got.Likes)
	assert.NotContains(t, got.LikedBy, "user0@example.com")

	_, err = svc.ToggleLike(ctx, "missing", "a@example.com")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 9, all[0].Likes)
}

func TestSubscriberService(t *testing.T) {
	store, _, _ := storagetest.NewStore(t)
	svc := NewSubscriberService(store, storagetest.NoopLogger())
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, " Reader@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", sub.Email)

	_, err = svc.Subscribe(ctx, "reader@example.com")
	require.ErrorIs(t, err, apperr.ErrDuplicateIdentifier)

	// имя отправителя отбрасывается, хранится только адрес
	_, err = svc.Subscribe(ctx, "Reader <READER@example.com>")
	require.ErrorIs(t, err, apperr.ErrDuplicateIdentifier)

	named, err := svc.Subscribe(ctx, "Other Reader <Other@Example.com>")
	require.NoError(t, err)
	assert.Equal(t, "other@example.com", named.Email)

	_, err = svc.Subscribe(ctx, "not-an-email")
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReportService(t *testing.T) {
	store, _, _ := storagetest.NewStore(t)
	svc := NewReportService(store, storagetest.NoopLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, ReportInput{TargetType: "planet", TargetID: "1", Reason: "spam"})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = svc.Create(ctx, ReportInput{TargetType: "group", TargetID: "1"})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	r1, err := svc.Create(ctx, ReportInput{TargetType: "group", TargetID: "g1", Reason: "spam"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ReportInput{TargetType: "listing", TargetID: "l1", Reason: "closed"})
	require.NoError(t, err)

	require.NoError(t, svc.Resolve(ctx, r1.ID))
	require.NoError(t, svc.Resolve(ctx, r1.ID))
	require.ErrorIs(t, svc.Resolve(ctx, "missing"), apperr.ErrNotFound)

	open, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "l1", open[0].TargetID)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Resolved)
	assert.NotNil(t, all[0].ResolvedAt)
}

func TestListingService(t *testing.T) {
	store, _, _ := storagetest.NewStore(t)
	svc := NewListingService(store, storagetest.NoopLogger())
	ctx := context.Background()

	l, err := svc.Create(ctx, ListingInput{Name: "Bakery", Website: "https://bakery.example", Owner: "Owner@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, l.Status)
	assert.Equal(t, "owner@example.com", l.Owner)

	_, err = svc.Create(ctx, ListingInput{Name: "Copy", Website: "https://bakery.example"})
	require.ErrorIs(t, err, apperr.ErrDuplicateIdentifier)

	_, err = svc.Create(ctx, ListingInput{Name: "Bad", Website: "bakery"})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	public, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, public)

	require.NoError(t, svc.SetStatus(ctx, l.ID, models.StatusApproved))

	public, err = svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Bakery", public[0].Name)
}
