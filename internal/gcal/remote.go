package gcal

import (
	"context"
	"errors"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/BruksfildServices01/portal-scheduler/internal/models"
)

// RemoteEvent is the provider-neutral shape of one remote calendar event.
type RemoteEvent struct {
	ID          string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	IsAllDay    bool
	Cancelled   bool
	MeetLink    string
}

type ListQuery struct {
	// When set, an incremental listing; TimeMin/TimeMax are ignored.
	SyncToken string
	TimeMin   time.Time
	TimeMax   time.Time
}

type ListResult struct {
	Events        []RemoteEvent
	NextSyncToken string
}

// Remote is the outbound port to the host's external calendar.
type Remote interface {
	ListEvents(ctx context.Context, q ListQuery) (*ListResult, error)
	CreateEvent(ctx context.Context, ev RemoteEvent, withMeet bool) (*RemoteEvent, error)
	UpdateEvent(ctx context.Context, id string, ev RemoteEvent) error
	DeleteEvent(ctx context.Context, id string) error
}

// RemoteFactory hands out a Remote bound to one connection with a fresh
// access token. A factory error is a hard failure for the whole sync run.
type RemoteFactory interface {
	ForConnection(ctx context.Context, conn *models.CalendarConnection) (Remote, error)
}

// isSyncTokenExpired: the API signals an invalidated sync cursor with 410
// Gone; the caller drops the token and falls back to a full range pull.
func isSyncTokenExpired(err error) bool {
	var ge *googleapi.Error
	return errors.As(err, &ge) && ge.Code == http.StatusGone
}

func isNotFound(err error) bool {
	var ge *googleapi.Error
	return errors.As(err, &ge) && ge.Code == http.StatusNotFound
}
