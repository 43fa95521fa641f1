package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hollowaylabs/gatehouse/internal/logger"
	"github.com/hollowaylabs/gatehouse/internal/metrics"
	"github.com/hollowaylabs/gatehouse/internal/models"
)

const eventQueueSize = 256

// EventService is the append-only security event log. Writes go through a
// buffered queue drained by a single goroutine, so recording an event never
// blocks an admission decision, and per-address write order is preserved
// (one consumer) for the threat-intel merge to be meaningful.
type EventService struct {
	db       *gorm.DB
	intel    *ThreatIntelService
	notifier *NotifierService
	notable  int

	queue     chan models.SecurityEvent
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewEventService starts the write loop. intel and notifier may be nil.
// notable is the score at or above which an event also updates the
// threat-intel store.
func NewEventService(db *gorm.DB, intel *ThreatIntelService, notifier *NotifierService, notable int) *EventService {
	s := &EventService{
		db:       db,
		intel:    intel,
		notifier: notifier,
		notable:  notable,
		queue:    make(chan models.SecurityEvent, eventQueueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// Record enqueues an event for persistence. Never blocks: when the queue is
// full the event is dropped and counted, because losing a log row is better
// than stalling the request path.
func (s *EventService) Record(event models.SecurityEvent) {
	select {
	case <-s.stop:
		// Shutting down; a straggling handler must not block or panic.
		metrics.IncEventDropped()
		return
	default:
	}

	if event.UUID == "" {
		event.UUID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	select {
	case s.queue <- event:
	default:
		metrics.IncEventDropped()
		logger.WithFields(map[string]interface{}{
			"address":    event.Address,
			"event_type": event.EventType,
		}).Warn("security event queue full, dropping event")
	}
}

func (s *EventService) writeLoop() {
	defer close(s.done)
	for {
		select {
		case event := <-s.queue:
			s.persist(event)
		case <-s.stop:
			// Drain whatever was enqueued before shutdown.
			for {
				select {
				case event := <-s.queue:
					s.persist(event)
				default:
					return
				}
			}
		}
	}
}

func (s *EventService) persist(event models.SecurityEvent) {
	if err := s.db.Create(&event).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"address":    event.Address,
			"event_type": event.EventType,
		}).WithError(err).Error("failed to persist security event")
	}

	if s.intel != nil && event.RiskScore >= s.notable {
		if err := s.intel.RecordScore(event.Address, event.RiskScore); err != nil {
			logger.WithFields(map[string]interface{}{"address": event.Address}).
				WithError(err).Error("failed to update threat intel")
		}
	}

	if s.notifier != nil && event.EventType == models.EventAttack {
		s.notifier.NotifyAttack(event)
	}
}

// Close stops accepting events and drains the queue. The queue channel is
// never closed, so a Record racing with shutdown can only be dropped, never
// panic. Safe to call more than once.
func (s *EventService) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

// Recent returns the newest events, up to limit.
func (s *EventService) Recent(limit int) ([]models.SecurityEvent, error) {
	var events []models.SecurityEvent
	q := s.db.Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// CountSince returns how many events were recorded at or after the cutoff.
func (s *EventService) CountSince(cutoff time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.SecurityEvent{}).Where("created_at >= ?", cutoff).Count(&count).Error
	return count, err
}
