package alert

import (
	"time"

	"github.com/siteeye/internal/config"
	"github.com/siteeye/internal/models"
	"github.com/siteeye/internal/notify"
	"github.com/siteeye/internal/repository"
	"go.uber.org/zap"
)

const (
	escalationRetentionDays = 30
	alertRetentionDays      = 7
	maxEscalationLevel      = 2
)

// RecipientResolver maps an alert and escalation tier to the target
// recipient. Production deployments back this with a directory
// service; the default is static config tiers.
type RecipientResolver interface {
	Recipient(alert *models.Alert, level int) string
}

// StaticRecipients resolves tiers from fixed config values.
type StaticRecipients struct {
	FirstTier  string
	SecondTier string
}

func (s StaticRecipients) Recipient(_ *models.Alert, level int) string {
	if level >= 2 {
		return s.SecondTier
	}
	return s.FirstTier
}

// Scheduler promotes unacknowledged critical alerts through escalation
// tiers on timeout and runs the periodic cleanup.
type Scheduler struct {
	cfg         config.EngineConfig
	alerts      *repository.AlertRepository
	escalations *repository.EscalationRepository
	notifiers   []notify.Notifier
	resolver    RecipientResolver
	logger      *zap.Logger

	now func() time.Time
}

func NewScheduler(
	cfg config.EngineConfig,
	alerts *repository.AlertRepository,
	escalations *repository.EscalationRepository,
	notifiers []notify.Notifier,
	resolver RecipientResolver,
	logger *zap.Logger,
) *Scheduler {
	if resolver == nil {
		resolver = StaticRecipients{
			FirstTier:  cfg.FirstTierRecipient,
			SecondTier: cfg.SecondTierRecipient,
		}
	}
	return &Scheduler{
		cfg:         cfg,
		alerts:      alerts,
		escalations: escalations,
		notifiers:   notifiers,
		resolver:    resolver,
		logger:      logger,
		now:         time.Now,
	}
}

// RunEscalationTick sweeps each tier once. Returns the number of
// alerts escalated. A failure on one alert never aborts the batch; the
// next tick retries anything left unchanged.
func (s *Scheduler) RunEscalationTick() int {
	escalated := 0
	for level := 0; level < maxEscalationLevel; level++ {
		escalated += s.sweepLevel(level)
	}
	return escalated
}

func (s *Scheduler) sweepLevel(level int) int {
	cutoff := s.now().Add(-s.cfg.EscalationTimeout)
	stale, err := s.alerts.FindStaleCritical(level, cutoff)
	if err != nil {
		s.logger.Error("escalation sweep failed", zap.Int("level", level), zap.Error(err))
		return 0
	}

	escalated := 0
	for i := range stale {
		if err := s.escalate(&stale[i], level+1); err != nil {
			s.logger.Error("failed to escalate alert",
				zap.Uint("alert_id", stale[i].ID),
				zap.Int("to_level", level+1),
				zap.Error(err),
			)
			continue
		}
		escalated++
	}
	return escalated
}

func (s *Scheduler) escalate(alert *models.Alert, level int) error {
	event := &models.EscalationEvent{
		AlertID:         alert.ID,
		EscalationLevel: level,
		EscalatedTo:     s.resolver.Recipient(alert, level),
		EscalatedAt:     s.now(),
		Reason:          models.EscalationReasonTimeout,
		Resolution:      models.ResolutionPending,
	}
	if err := s.escalations.Create(event); err != nil {
		return err
	}

	if _, err := s.alerts.BumpEscalation(alert.ID, s.now()); err != nil {
		return err
	}

	s.notifyEscalation(alert, event)

	s.logger.Info("alert escalated",
		zap.Uint("alert_id", alert.ID),
		zap.Int("level", level),
		zap.String("escalated_to", event.EscalatedTo),
	)
	return nil
}

// notifyEscalation fans out to the configured transports and appends
// every attempt, failed or not, to the event's delivery log.
func (s *Scheduler) notifyEscalation(alert *models.Alert, event *models.EscalationEvent) {
	for _, notifier := range s.notifiers {
		record, err := notifier.Notify(alert, event)
		if err != nil {
			s.logger.Warn("escalation notification failed",
				zap.Uint("alert_id", alert.ID),
				zap.String("method", notifier.Method()),
				zap.Error(err),
			)
		}
		if err := s.escalations.AppendNotification(event.ID, record); err != nil {
			s.logger.Error("failed to record notification attempt",
				zap.Uint("escalation_id", event.ID),
				zap.Error(err),
			)
		}
	}
}

// RunCleanup prunes old records. The steps are independent; a failure
// in one never blocks the others.
func (s *Scheduler) RunCleanup() {
	now := s.now()

	if count, err := s.escalations.DeleteResolvedOlderThan(now.AddDate(0, 0, -escalationRetentionDays)); err != nil {
		s.logger.Error("cleanup: escalation retention failed", zap.Error(err))
	} else if count > 0 {
		s.logger.Info("cleanup: removed old escalations", zap.Int64("count", count))
	}

	if count, err := s.alerts.DeleteReadOlderThan(now.AddDate(0, 0, -alertRetentionDays)); err != nil {
		s.logger.Error("cleanup: alert retention failed", zap.Error(err))
	} else if count > 0 {
		s.logger.Info("cleanup: removed old read alerts", zap.Int64("count", count))
	}

	if count, err := s.alerts.DeleteExpired(now); err != nil {
		s.logger.Error("cleanup: expired alerts failed", zap.Error(err))
	} else if count > 0 {
		s.logger.Info("cleanup: removed expired alerts", zap.Int64("count", count))
	}

	if count, err := s.alerts.DeleteDuplicateUnread(); err != nil {
		s.logger.Error("cleanup: duplicate sweep failed", zap.Error(err))
	} else if count > 0 {
		s.logger.Info("cleanup: removed duplicate alerts", zap.Int64("count", count))
	}
}
