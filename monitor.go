package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStore is the part of the store the monitor needs.
type SubscriptionStore interface {
	ListAll() ([]Subscription, error)
	GetMeta(key string) (string, error)
	SetMeta(key, value string) error
	UpdateFingerprint(id int64, fp string) error
}

type RouteQuerier interface {
	QueryRoutes(ctx context.Context, q RouteQuery) (RouteResponse, error)
}

type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type MonitorConfig struct {
	CheckEvery   time.Duration
	ReportEvery  time.Duration
	ScreenWidth  int
	ScreenHeight int
}

// Monitor polls every subscription once per tick, one after another.
// Subscriptions are never checked in parallel: they share one AuthSession.
type Monitor struct {
	store    SubscriptionStore
	querier  RouteQuerier
	notifier Notifier
	cfg      MonitorConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewMonitor(store SubscriptionStore, querier RouteQuerier, notifier Notifier, cfg MonitorConfig, logger *slog.Logger) *Monitor {
	return &Monitor{
		store:    store,
		querier:  querier,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run ticks until ctx is done. Cancellation is only observed between ticks.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("monitoring started", "check_every", m.cfg.CheckEvery, "report_every", m.cfg.ReportEvery)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitoring stopped")
			return
		case <-timer.C:
			m.runTick(context.WithoutCancel(ctx))
			timer.Reset(m.cfg.CheckEvery)
		}
	}
}

// runTick never lets a failure escape, the loop must survive any single tick.
func (m *Monitor) runTick(ctx context.Context) {
	logger := m.logger.With("tick_id", uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tick panicked", "panic", r)
		}
	}()

	if err := m.Tick(ctx, logger); err != nil {
		logger.Error("tick failed", "error", err)
	}
}

// Tick checks every subscription once and records the global counters.
func (m *Monitor) Tick(ctx context.Context, logger *slog.Logger) error {
	subs, err := m.store.ListAll()
	if err != nil {
		return err
	}

	checks, err := m.metaInt(metaChecksCount)
	if err != nil {
		return err
	}

	notified := 0
	for _, s := range subs {
		sent, err := m.checkSubscription(ctx, s)
		if err != nil {
			logger.Warn("subscription check failed", "sub_id", s.ID, "user_id", s.UserID, "error", err)
			continue
		}
		if sent {
			notified++
		}
	}

	if err := m.store.SetMeta(metaLastCheckTS, strconv.FormatInt(m.now().Unix(), 10)); err != nil {
		return err
	}
	if err := m.store.SetMeta(metaChecksCount, strconv.FormatInt(checks+1, 10)); err != nil {
		return err
	}

	logger.Debug("tick done", "subscriptions", len(subs), "notified", notified)
	return nil
}

type decision struct {
	Notify bool
	Change bool
}

// decide: notify when there is something to show and either the matching set
// changed or the periodic report is due.
func decide(fp, stored string, hasMatches bool, now, lastReport int64, reportEvery time.Duration) decision {
	isChange := hasChanged(fp, stored)
	mustPeriodicReport := hasMatches && now-lastReport >= int64(reportEvery/time.Second)
	return decision{
		Notify: (isChange || mustPeriodicReport) && hasMatches,
		Change: isChange,
	}
}

func (m *Monitor) checkSubscription(ctx context.Context, s Subscription) (bool, error) {
	resp, err := m.querier.QueryRoutes(ctx, RouteQuery{
		CityFromID:   s.CityFromID,
		CityToID:     s.CityToID,
		FromName:     s.FromName,
		ToName:       s.ToName,
		Date:         s.DateStr,
		ScreenWidth:  m.cfg.ScreenWidth,
		ScreenHeight: m.cfg.ScreenHeight,
	})
	if err != nil {
		return false, fmt.Errorf("query routes: %w", err)
	}

	matches := matchingOffers(resp.Offers, s.DepFromHHMM, s.DepToHHMM)
	fp := fingerprint(resp.Offers, s.DepFromHHMM, s.DepToHHMM)

	lastReport, err := m.metaInt(lastReportKey(s.ID))
	if err != nil {
		return false, err
	}

	now := m.now().Unix()
	d := decide(fp, s.LastHash, len(matches) > 0, now, lastReport, m.cfg.ReportEvery)
	if !d.Notify {
		return false, nil
	}

	for _, chunk := range splitMessage(formatNotification(s, matches, d.Change), maxMessageLen) {
		if err := m.notifier.Send(ctx, s.UserID, chunk); err != nil {
			return false, fmt.Errorf("send notification: %w", err)
		}
	}

	if fp != "" {
		if err := m.store.UpdateFingerprint(s.ID, fp); err != nil {
			return true, err
		}
	}
	if err := m.store.SetMeta(lastReportKey(s.ID), strconv.FormatInt(now, 10)); err != nil {
		return true, err
	}

	return true, nil
}

// metaInt reads a numeric meta value; missing or garbled values count as 0.
func (m *Monitor) metaInt(key string) (int64, error) {
	raw, err := m.store.GetMeta(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return v, nil
}
