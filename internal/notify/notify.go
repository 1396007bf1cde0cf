// Package notify is the scheduling core's notify(...) capability. It records
// what should be delivered; actual email/push delivery lives elsewhere in the
// portal. Sends are best-effort and never fail the caller.
package notify

import (
	"encoding/json"
	"log"

	"gorm.io/gorm"

	"github.com/BruksfildServices01/portal-scheduler/internal/models"
)

type Event struct {
	UserID   *uint
	Email    string
	Template string
	Payload  map[string]any
}

type Sender interface {
	Send(ev Event)
}

type Dispatcher struct {
	db    *gorm.DB
	queue chan Event
}

func NewDispatcher(db *gorm.DB) *Dispatcher {
	d := &Dispatcher{
		db:    db,
		queue: make(chan Event, 100),
	}

	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	for ev := range d.queue {
		var payload string
		if ev.Payload != nil {
			if b, err := json.Marshal(ev.Payload); err == nil {
				payload = string(b)
			}
		}

		n := models.Notification{
			UserID:   ev.UserID,
			Email:    ev.Email,
			Template: ev.Template,
			Payload:  payload,
		}

		if err := d.db.Create(&n).Error; err != nil {
			log.Println("notify error:", err)
		}
	}
}

func (d *Dispatcher) Send(ev Event) {
	select {
	case d.queue <- ev:
	default:
		log.Println("notify queue full, dropping event")
	}
}

var _ Sender = (*Dispatcher)(nil)
