package booking

import (
	"context"
	"time"

	domain "github.com/BruksfildServices01/portal-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
)

type ListDates struct {
	repo domain.Repository
}

func NewListDates(repo domain.Repository) *ListDates {
	return &ListDates{repo: repo}
}

// Execute flags every day of the month for calendar-grid rendering, without
// slot-level granularity.
func (uc *ListDates) Execute(
	ctx context.Context,
	eventTypeID uint,
	year int,
	month int,
) ([]domain.DateAvailability, error) {

	if year < 2000 || year > 2100 || month < 1 || month > 12 {
		return nil, httperr.ErrBusiness("invalid_year_or_month")
	}

	et, err := uc.repo.GetEventTypeByID(ctx, eventTypeID)
	if err != nil {
		return nil, httperr.ErrBusiness("event_type_not_found")
	}

	host, err := uc.repo.GetHostByID(ctx, et.HostID)
	if err != nil {
		return nil, err
	}

	loc := hostLocation(et, host)

	rules, err := uc.repo.ListWeeklyRules(ctx, et)
	if err != nil {
		return nil, err
	}

	overrideRows, err := uc.repo.ListDateOverrides(ctx, et.ID)
	if err != nil {
		return nil, err
	}

	overrides := make(map[string]*models.DateOverride, len(overrideRows))
	for i := range overrideRows {
		overrides[overrideRows[i].Date] = &overrideRows[i]
	}

	return domain.AvailableDates(
		et,
		rules,
		overrides,
		year,
		time.Month(month),
		loc,
		time.Now().In(loc),
	), nil
}
