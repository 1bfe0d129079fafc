package registrar

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/Cimminelli1982/CRM/internal/config"
)

// Service runs the provider registrations eagerly at startup and again on
// their configured cron schedules.
type Service struct {
	crm          *CRMClient
	watch        *WatchClient
	crmPattern   string
	watchPattern string
	cron         *cron.Cron
	logger       *slog.Logger
}

type renewal struct {
	name    string
	pattern string
	run     func(context.Context) error
}

// NewService creates the registrar scheduler. Either client may be nil when
// its provider section is not configured.
func NewService(log *slog.Logger, crm *CRMClient, watch *WatchClient, cfg config.RegistrarConfig) *Service {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Service{
		crm:          crm,
		watch:        watch,
		crmPattern:   cfg.CRM.Cron,
		watchPattern: cfg.Calendar.Cron,
		cron:         cron.New(cron.WithParser(parser)),
		logger:       log.With(slog.String("service", "registrar")),
	}
}

func (s *Service) renewals() []renewal {
	var items []renewal
	if s.crm != nil {
		items = append(items, renewal{"crm_subscriptions", s.crmPattern, s.crm.RegisterSubscriptions})
	}
	if s.watch != nil {
		items = append(items, renewal{"calendar_watch", s.watchPattern, s.watch.RenewWatch})
	}
	return items
}

// Bootstrap runs each registration once and schedules its renewals. A
// failed eager run is logged and left to the schedule; the provider may be
// briefly unreachable at startup. A bad cron pattern is an error.
func (s *Service) Bootstrap(ctx context.Context) error {
	for _, item := range s.renewals() {
		if err := item.run(ctx); err != nil {
			s.logger.Warn("initial registration failed",
				slog.String("job", item.name), slog.Any("error", err))
		}
		if item.pattern == "" {
			continue
		}
		if _, err := s.cron.AddFunc(item.pattern, func() {
			if err := item.run(context.Background()); err != nil {
				s.logger.Error("scheduled registration failed",
					slog.String("job", item.name), slog.Any("error", err))
			}
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", item.name, err)
		}
		s.logger.Info("registration scheduled",
			slog.String("job", item.name), slog.String("pattern", item.pattern))
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}
