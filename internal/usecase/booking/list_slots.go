package booking

import (
	"context"
	"time"

	domain "github.com/BruksfildServices01/portal-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
)

type ListSlots struct {
	repo domain.Repository
}

func NewListSlots(repo domain.Repository) *ListSlots {
	return &ListSlots{repo: repo}
}

// Execute returns the full slot grid of one date, available and not, in
// chronological order.
func (uc *ListSlots) Execute(
	ctx context.Context,
	eventTypeID uint,
	date string,
) ([]domain.Slot, error) {

	et, err := uc.repo.GetEventTypeByID(ctx, eventTypeID)
	if err != nil {
		return nil, httperr.ErrBusiness("event_type_not_found")
	}

	host, err := uc.repo.GetHostByID(ctx, et.HostID)
	if err != nil {
		return nil, err
	}

	loc := hostLocation(et, host)

	day, err := time.ParseInLocation(domain.DateLayout, date, loc)
	if err != nil {
		return nil, httperr.ErrBusiness("invalid_date")
	}

	rules, err := uc.repo.ListWeeklyRules(ctx, et)
	if err != nil {
		return nil, err
	}

	override, err := uc.repo.GetDateOverride(ctx, et.ID, date)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd := dayBounds(day)
	busy, err := uc.repo.ListBusyIntervals(ctx, et.HostID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	windows := domain.ResolveDayWindows(rules, override, day)

	return domain.GenerateSlots(et, windows, busy, time.Now().In(loc)), nil
}
