package gcal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/portal-scheduler/internal/models"
)

// Refresh ahead of expiry so a token never dies mid-run.
const refreshWindow = 5 * time.Minute

// GoogleFactory builds calendar/v3 clients per connection, refreshing and
// persisting tokens as needed.
type GoogleFactory struct {
	db    *gorm.DB
	oauth *oauth2.Config
}

func NewGoogleFactory(db *gorm.DB, oauth *oauth2.Config) *GoogleFactory {
	return &GoogleFactory{db: db, oauth: oauth}
}

func (f *GoogleFactory) ForConnection(
	ctx context.Context,
	conn *models.CalendarConnection,
) (Remote, error) {

	if err := f.ensureFreshToken(ctx, conn); err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken: conn.AccessToken,
		Expiry:      conn.TokenExpiresAt,
	}

	svc, err := calendar.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}

	calendarID := conn.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	return &googleRemote{svc: svc, calendarID: calendarID}, nil
}

// ensureFreshToken refreshes when the access token is within the refresh
// window and persists the rotated credentials. A refresh failure is a hard
// error for this sync attempt; the connection row stays.
func (f *GoogleFactory) ensureFreshToken(
	ctx context.Context,
	conn *models.CalendarConnection,
) error {

	if time.Until(conn.TokenExpiresAt) >= refreshWindow {
		return nil
	}

	src := f.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}

	conn.AccessToken = token.AccessToken
	conn.TokenExpiresAt = token.Expiry
	if token.RefreshToken != "" {
		conn.RefreshToken = token.RefreshToken
	}

	return f.db.WithContext(ctx).
		Model(&models.CalendarConnection{}).
		Where("id = ?", conn.ID).
		Updates(map[string]any{
			"access_token":     conn.AccessToken,
			"refresh_token":    conn.RefreshToken,
			"token_expires_at": conn.TokenExpiresAt,
		}).Error
}

var _ RemoteFactory = (*GoogleFactory)(nil)

// --------------------------------------------------
// calendar/v3 remote
// --------------------------------------------------

type googleRemote struct {
	svc        *calendar.Service
	calendarID string
}

func (g *googleRemote) ListEvents(ctx context.Context, q ListQuery) (*ListResult, error) {
	result := &ListResult{}
	pageToken := ""

	for {
		call := g.svc.Events.List(g.calendarID).
			Context(ctx).
			SingleEvents(true).
			MaxResults(250)

		if q.SyncToken != "" {
			call = call.SyncToken(q.SyncToken)
		} else {
			// orderBy is not allowed together with a sync token
			call = call.OrderBy("startTime")
			if !q.TimeMin.IsZero() {
				call = call.TimeMin(q.TimeMin.Format(time.RFC3339))
			}
			if !q.TimeMax.IsZero() {
				call = call.TimeMax(q.TimeMax.Format(time.RFC3339))
			}
		}

		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			result.Events = append(result.Events, fromGoogleEvent(item))
		}

		if page.NextPageToken == "" {
			result.NextSyncToken = page.NextSyncToken
			return result, nil
		}
		pageToken = page.NextPageToken
	}
}

func (g *googleRemote) CreateEvent(ctx context.Context, ev RemoteEvent, withMeet bool) (*RemoteEvent, error) {
	gev := toGoogleEvent(ev)

	if withMeet {
		gev.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		}
	}

	call := g.svc.Events.Insert(g.calendarID, gev).Context(ctx)
	if withMeet {
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Do()
	if err != nil {
		return nil, err
	}

	out := fromGoogleEvent(created)
	return &out, nil
}

func (g *googleRemote) UpdateEvent(ctx context.Context, id string, ev RemoteEvent) error {
	_, err := g.svc.Events.Update(g.calendarID, id, toGoogleEvent(ev)).Context(ctx).Do()
	return err
}

func (g *googleRemote) DeleteEvent(ctx context.Context, id string) error {
	err := g.svc.Events.Delete(g.calendarID, id).Context(ctx).Do()
	if isNotFound(err) {
		return nil
	}
	return err
}

// --------------------------------------------------
// event mapping
// --------------------------------------------------

func toGoogleEvent(ev RemoteEvent) *calendar.Event {
	gev := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
	}

	if ev.IsAllDay {
		gev.Start = &calendar.EventDateTime{Date: ev.Start.Format("2006-01-02")}
		// local End is the last covered day; Google wants the exclusive end
		gev.End = &calendar.EventDateTime{Date: ev.End.AddDate(0, 0, 1).Format("2006-01-02")}
	} else {
		gev.Start = &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)}
		gev.End = &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339)}
	}

	return gev
}

func fromGoogleEvent(item *calendar.Event) RemoteEvent {
	ev := RemoteEvent{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Cancelled:   item.Status == "cancelled",
	}
	if ev.Title == "" {
		ev.Title = "Untitled Event"
	}

	if item.Start != nil {
		if item.Start.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
				ev.Start = t
			}
		} else if item.Start.Date != "" {
			ev.IsAllDay = true
			if t, err := time.Parse("2006-01-02", item.Start.Date); err == nil {
				ev.Start = t
			}
		}
	}

	if item.End != nil {
		if item.End.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
				ev.End = t
			}
		} else if item.End.Date != "" {
			if t, err := time.Parse("2006-01-02", item.End.Date); err == nil {
				// Google's all-day end date is exclusive
				ev.End = t.AddDate(0, 0, -1)
			}
		}
	}

	if item.ConferenceData != nil {
		for _, ep := range item.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				ev.MeetLink = ep.Uri
				break
			}
		}
	}

	return ev
}
