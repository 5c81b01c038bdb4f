// Package sync keeps the local notification store in step with the remote
// feed and runs the background loops that pace it.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/notification-triage/internal/filter"
	"github.com/nhle/notification-triage/internal/model"
	"github.com/nhle/notification-triage/internal/score"
	"github.com/nhle/notification-triage/internal/source"
	"github.com/nhle/notification-triage/internal/source/github"
	"github.com/nhle/notification-triage/internal/store"
)

// Gateway is the remote API the Service drives.
type Gateway interface {
	ListNotifications(ctx context.Context, since *time.Time) ([]github.Notification, error)
	FetchDetails(ctx context.Context, notifications []github.Notification) (*github.Details, error)
	DetailKey(n github.Notification) string
	CheckUpdateAndLimit(ctx context.Context, lastUpdate *time.Time) (source.UpdateStatus, error)
	MarkDone(ctx context.Context, id string) error
	MarkDoneBulk(ctx context.Context, ids []string) error
	MarkRead(ctx context.Context, id string) error
}

// Result summarizes one sync cycle.
type Result struct {
	Fetched int
	Stored  int
	Skipped int
}

// Service orchestrates the gateway, the scorer and the store.
type Service struct {
	gateway   Gateway
	store     store.Store
	rulesPath string
	logger    *slog.Logger
}

// NewService creates a Service. The rule file at rulesPath is read again on
// every Sync and Explain so edits apply without a restart.
func NewService(
	gw Gateway,
	s store.Store,
	rulesPath string,
	logger *slog.Logger,
) *Service {
	return &Service{
		gateway:   gw,
		store:     s,
		rulesPath: rulesPath,
		logger:    logger,
	}
}

// Sync runs one cycle: fetch since the watermark, enrich, score and upsert.
// Any failure before the first write aborts the cycle without touching the
// store. A row that fails to upsert is logged and skipped.
func (s *Service) Sync(ctx context.Context) (Result, error) {
	logger := s.logger.With("sync_id", uuid.NewString())

	scorer, err := score.Load(s.rulesPath, logger)
	if err != nil {
		return Result{}, fmt.Errorf("loading rules: %w", err)
	}

	since, err := s.store.LatestUpdate(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("reading watermark: %w", err)
	}
	logger.Info("sync started", "since", since)

	threads, err := s.gateway.ListNotifications(ctx, since)
	if err != nil {
		return Result{}, err
	}

	details, err := s.gateway.FetchDetails(ctx, threads)
	if err != nil {
		return Result{}, fmt.Errorf("enriching notifications: %w", err)
	}

	records := make([]model.Notification, 0, len(threads))
	for _, t := range threads {
		n, err := assemble(t, s.gateway.DetailKey(t), details)
		if err != nil {
			return Result{}, fmt.Errorf("enriching notifications: %w", err)
		}
		n.Score = scorer.Score(n)
		records = append(records, n)
	}

	res := Result{Fetched: len(threads)}
	for _, n := range records {
		if err := s.store.UpsertNotification(ctx, n); err != nil {
			logger.Error("upsert failed, skipping",
				"id", n.ID,
				"repo", n.Repo,
				"title", n.Title,
				"error", err,
			)
			res.Skipped++
			continue
		}
		res.Stored++
	}

	logger.Info("sync done",
		"fetched", res.Fetched,
		"stored", res.Stored,
		"skipped", res.Skipped,
	)
	return res, nil
}

// CheckUpdateAndLimit probes the remote feed against the current watermark.
func (s *Service) CheckUpdateAndLimit(ctx context.Context) (source.UpdateStatus, error) {
	since, err := s.store.LatestUpdate(ctx)
	if err != nil {
		return source.UpdateStatus{}, fmt.Errorf("reading watermark: %w", err)
	}
	return s.gateway.CheckUpdateAndLimit(ctx, since)
}

// Notifications returns the visible notifications matching the search
// query, best ranked first.
func (s *Service) Notifications(ctx context.Context, query string) ([]model.Notification, error) {
	return s.store.GetNotifications(ctx, filter.Parse(query))
}

// UpdateScore adds delta to the manual boost of n.
func (s *Service) UpdateScore(ctx context.Context, n model.Notification, delta int) error {
	if err := s.store.UpdateBoost(ctx, n.ID, delta); err != nil {
		return fmt.Errorf("boosting %s: %w", n.ID, err)
	}
	s.logger.Debug("score boosted", "id", n.ID, "delta", delta)
	return nil
}

// MarkDone marks n done remotely, then hides it locally.
func (s *Service) MarkDone(ctx context.Context, n model.Notification) error {
	if err := s.gateway.MarkDone(ctx, n.ID); err != nil {
		return err
	}
	return s.store.SetDone(ctx, n.ID, true)
}

// MarkDoneBulk marks every notification in ns done remotely, then hides
// them locally. Nothing is hidden if a remote call fails.
func (s *Service) MarkDoneBulk(ctx context.Context, ns []model.Notification) error {
	ids := make([]string, len(ns))
	for i, n := range ns {
		ids[i] = n.ID
	}

	if err := s.gateway.MarkDoneBulk(ctx, ids); err != nil {
		return fmt.Errorf("marking %d threads done: %w", len(ids), err)
	}
	return s.store.SetDoneBulk(ctx, ids)
}

// MarkRead marks n read remotely, then locally.
func (s *Service) MarkRead(ctx context.Context, n model.Notification) error {
	if err := s.gateway.MarkRead(ctx, n.ID); err != nil {
		return err
	}
	return s.store.SetUnread(ctx, n.ID, false)
}

// Explain reloads the rules and lists the ones that contribute to n.
func (s *Service) Explain(_ context.Context, n model.Notification) ([]score.Match, error) {
	scorer, err := score.Load(s.rulesPath, s.logger)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	return scorer.Explain(n), nil
}
