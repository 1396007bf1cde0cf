package gcal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/oauth2"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/portal-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
	"github.com/BruksfildServices01/portal-scheduler/internal/synclock"
)

// Rolling sync window around now.
const (
	syncWindowPast   = -3 // months
	syncWindowFuture = 12 // months

	syncLockTTL       = 2 * time.Minute
	remoteCallTimeout = 30 * time.Second
)

type SyncStats struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

type SyncResult struct {
	Pull SyncStats `json:"pull"`
	Push SyncStats `json:"push"`
}

// Service owns the host<->Google synchronization: token lifecycle through
// the factory, outbound push, inbound pull and the mapping table between.
type Service struct {
	db     *gorm.DB
	oauth  *oauth2.Config
	remote RemoteFactory
	locker synclock.Locker
}

func NewService(db *gorm.DB, oauth *oauth2.Config, remote RemoteFactory, locker synclock.Locker) *Service {
	return &Service{
		db:     db,
		oauth:  oauth,
		remote: remote,
		locker: locker,
	}
}

// --------------------------------------------------
// Connection lifecycle
// --------------------------------------------------

func (s *Service) GetConnection(ctx context.Context, hostID uint) (*models.CalendarConnection, error) {
	var conn models.CalendarConnection
	err := s.db.WithContext(ctx).Where("host_id = ?", hostID).First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, httperr.ErrBusiness("integration_not_configured")
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// Connect exchanges the authorization code and upserts the host's
// connection row.
func (s *Service) Connect(ctx context.Context, hostID uint, code string) (*models.CalendarConnection, error) {
	if s.oauth == nil {
		return nil, httperr.ErrBusiness("integration_not_configured")
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, httperr.ErrBusiness("oauth_exchange_failed")
	}

	email := ""
	if osvc, err := goauth2.NewService(ctx,
		option.WithTokenSource(s.oauth.TokenSource(ctx, token))); err == nil {
		if ui, err := osvc.Userinfo.Get().Context(ctx).Do(); err == nil {
			email = ui.Email
		}
	}

	conn, err := s.GetConnection(ctx, hostID)
	if err != nil {
		conn = &models.CalendarConnection{
			HostID:      hostID,
			CalendarID:  "primary",
			SyncEnabled: true,
		}
	}

	conn.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		conn.RefreshToken = token.RefreshToken
	}
	conn.TokenExpiresAt = token.Expiry
	if email != "" {
		conn.GoogleEmail = email
	}

	if err := s.db.WithContext(ctx).Save(conn).Error; err != nil {
		return nil, err
	}
	return conn, nil
}

// Disconnect drops the connection and every mapping hanging off it.
func (s *Service) Disconnect(ctx context.Context, hostID uint) error {
	conn, err := s.GetConnection(ctx, hostID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("connection_id = ?", conn.ID).
			Delete(&models.SyncMapping{}).Error; err != nil {
			return err
		}
		return tx.Delete(conn).Error
	})
}

// --------------------------------------------------
// Two-way sync
// --------------------------------------------------

// FullSync is pull-then-push, serialized per host: pull first so freshly
// imported events are visible before the push pass decides what still needs
// exporting. The overall call only fails hard when the token refresh or the
// initial list call does.
func (s *Service) FullSync(ctx context.Context, hostID uint) (*SyncResult, error) {
	conn, err := s.GetConnection(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if !conn.SyncEnabled {
		return nil, httperr.ErrBusiness("sync_disabled")
	}

	release, err := s.locker.Acquire(ctx, fmt.Sprintf("gcal:%d", hostID), syncLockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	remote, err := s.remote.ForConnection(ctx, conn)
	if err != nil {
		s.finishSync(conn, err)
		return nil, httperr.ErrBusiness("external_auth_error")
	}

	result := &SyncResult{}

	pull, err := s.syncRemoteToLocal(ctx, conn, remote)
	result.Pull = pull
	if err != nil {
		s.finishSync(conn, err)
		return result, err
	}

	result.Push = s.syncLocalToRemote(ctx, conn, remote)

	s.finishSync(conn, nil)
	return result, nil
}

func (s *Service) finishSync(conn *models.CalendarConnection, hardErr error) {
	now := time.Now()
	conn.LastSyncAt = &now

	if hardErr != nil {
		conn.LastSyncStatus = "error"
		conn.LastSyncError = hardErr.Error()
	} else {
		conn.LastSyncStatus = "success"
		conn.LastSyncError = ""
	}

	if err := s.db.Save(conn).Error; err != nil {
		log.Printf("[gcal] persist sync status for connection %d: %v", conn.ID, err)
	}
}

// syncRemoteToLocal pulls remote events through the sync cursor when one is
// stored, or a full time range otherwise. Remote wins on conflict; no
// field-level merge. Returns a hard error only when listing fails outright.
func (s *Service) syncRemoteToLocal(
	ctx context.Context,
	conn *models.CalendarConnection,
	remote Remote,
) (SyncStats, error) {

	stats := SyncStats{Errors: []string{}}
	now := time.Now()

	query := ListQuery{
		SyncToken: conn.SyncToken,
		TimeMin:   now.AddDate(0, syncWindowPast, 0),
		TimeMax:   now.AddDate(0, syncWindowFuture, 0),
	}

	res, err := remote.ListEvents(ctx, query)
	if err != nil && isSyncTokenExpired(err) && query.SyncToken != "" {
		// cursor invalidated: drop it and pull the full range instead
		conn.SyncToken = ""
		query.SyncToken = ""
		res, err = remote.ListEvents(ctx, query)
	}
	if err != nil {
		return stats, fmt.Errorf("list remote events: %w", err)
	}

	for _, ev := range res.Events {
		if ctx.Err() != nil {
			// cancelled mid-run: keep what already committed
			return stats, nil
		}

		if err := s.applyRemoteEvent(ctx, conn, ev, &stats); err != nil {
			stats.Errors = append(stats.Errors,
				fmt.Sprintf("import %q: %v", ev.Title, err))
		}
	}

	if res.NextSyncToken != "" {
		conn.SyncToken = res.NextSyncToken
	}
	if err := s.db.WithContext(ctx).Model(conn).
		Update("sync_token", conn.SyncToken).Error; err != nil {
		log.Printf("[gcal] persist sync token for connection %d: %v", conn.ID, err)
	}

	return stats, nil
}

func (s *Service) applyRemoteEvent(
	ctx context.Context,
	conn *models.CalendarConnection,
	ev RemoteEvent,
	stats *SyncStats,
) error {

	var mapping models.SyncMapping
	err := s.db.WithContext(ctx).
		Where("connection_id = ? AND google_event_id = ?", conn.ID, ev.ID).
		First(&mapping).Error
	mapped := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if ev.Cancelled {
		if !mapped {
			stats.Skipped++
			return nil
		}
		// remote side deleted: drop the mapping, and the imported mirror too
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if mapping.LocalKind == models.LocalKindEvent {
				if err := tx.Delete(&models.CalendarEvent{}, mapping.LocalID).Error; err != nil {
					return err
				}
			}
			if err := tx.Delete(&mapping).Error; err != nil {
				return err
			}
			stats.Updated++
			return nil
		})
	}

	if mapped {
		if mapping.LocalKind == models.LocalKindBooking {
			// bookings are canonical here; only the export pass touches them
			stats.Skipped++
			return nil
		}

		updates := map[string]any{
			"title":       ev.Title,
			"description": ev.Description,
			"location":    ev.Location,
			"start_time":  ev.Start,
			"end_time":    ev.End,
			"is_all_day":  ev.IsAllDay,
		}
		if err := s.db.WithContext(ctx).Model(&models.CalendarEvent{}).
			Where("id = ?", mapping.LocalID).
			Updates(updates).Error; err != nil {
			return err
		}

		mapping.LastSyncedAt = time.Now()
		if err := s.db.WithContext(ctx).Save(&mapping).Error; err != nil {
			return err
		}
		stats.Updated++
		return nil
	}

	local := models.CalendarEvent{
		HostID:      conn.HostID,
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		StartTime:   ev.Start,
		EndTime:     ev.End,
		IsAllDay:    ev.IsAllDay,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&local).Error; err != nil {
			return err
		}
		mapping = models.SyncMapping{
			ConnectionID:  conn.ID,
			LocalKind:     models.LocalKindEvent,
			LocalID:       local.ID,
			GoogleEventID: ev.ID,
			Direction:     models.SyncDirectionImport,
			LastSyncedAt:  time.Now(),
		}
		if err := tx.Create(&mapping).Error; err != nil {
			return err
		}
		stats.Created++
		return nil
	})
}

// syncLocalToRemote walks local bookings and events in the rolling window.
// Per-event failures land in the error list; one bad event never blocks the
// rest.
func (s *Service) syncLocalToRemote(
	ctx context.Context,
	conn *models.CalendarConnection,
	remote Remote,
) SyncStats {

	stats := SyncStats{Errors: []string{}}
	now := time.Now()
	from := now.AddDate(0, syncWindowPast, 0)
	to := now.AddDate(0, syncWindowFuture, 0)

	var bookings []models.Booking
	if err := s.db.WithContext(ctx).
		Preload("EventType").
		Where("host_id = ? AND start_time >= ? AND start_time < ?", conn.HostID, from, to).
		Order("start_time ASC").
		Find(&bookings).Error; err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("list bookings: %v", err))
		return stats
	}

	for i := range bookings {
		if ctx.Err() != nil {
			return stats
		}
		if err := s.pushBooking(ctx, conn, remote, &bookings[i], &stats); err != nil {
			stats.Errors = append(stats.Errors,
				fmt.Sprintf("export booking %d: %v", bookings[i].ID, err))
		}
	}

	var events []models.CalendarEvent
	if err := s.db.WithContext(ctx).
		Where("host_id = ? AND start_time >= ? AND start_time < ?", conn.HostID, from, to).
		Order("start_time ASC").
		Find(&events).Error; err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("list events: %v", err))
		return stats
	}

	for i := range events {
		if ctx.Err() != nil {
			return stats
		}
		if err := s.pushEvent(ctx, conn, remote, &events[i], &stats); err != nil {
			stats.Errors = append(stats.Errors,
				fmt.Sprintf("export event %d: %v", events[i].ID, err))
		}
	}

	return stats
}

func (s *Service) pushBooking(
	ctx context.Context,
	conn *models.CalendarConnection,
	remote Remote,
	b *models.Booking,
	stats *SyncStats,
) error {

	mapping, err := s.findMapping(ctx, conn.ID, models.LocalKindBooking, b.ID)
	if err != nil {
		return err
	}

	if b.Status == string(domain.StatusCancelled) {
		if mapping == nil {
			return nil
		}
		// local side cancelled: remove the remote copy and the mapping
		if err := remote.DeleteEvent(ctx, mapping.GoogleEventID); err != nil {
			return err
		}
		if err := s.db.WithContext(ctx).Delete(mapping).Error; err != nil {
			return err
		}
		stats.Updated++
		return nil
	}

	ev := bookingToRemote(b)

	if mapping != nil {
		if err := remote.UpdateEvent(ctx, mapping.GoogleEventID, ev); err != nil {
			return err
		}
		mapping.LastSyncedAt = time.Now()
		if err := s.db.WithContext(ctx).Save(mapping).Error; err != nil {
			return err
		}
		stats.Updated++
		return nil
	}

	created, err := remote.CreateEvent(ctx, ev, false)
	if err != nil {
		return err
	}

	if err := s.recordExport(ctx, conn.ID, models.LocalKindBooking, b.ID, created.ID); err != nil {
		return err
	}
	stats.Created++
	return nil
}

func (s *Service) pushEvent(
	ctx context.Context,
	conn *models.CalendarConnection,
	remote Remote,
	e *models.CalendarEvent,
	stats *SyncStats,
) error {

	mapping, err := s.findMapping(ctx, conn.ID, models.LocalKindEvent, e.ID)
	if err != nil {
		return err
	}

	if mapping != nil && mapping.Direction == models.SyncDirectionImport {
		// came from the remote side; the pull pass owns it
		stats.Skipped++
		return nil
	}

	ev := RemoteEvent{
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Start:       e.StartTime,
		End:         e.EndTime,
		IsAllDay:    e.IsAllDay,
	}

	if mapping != nil {
		if err := remote.UpdateEvent(ctx, mapping.GoogleEventID, ev); err != nil {
			return err
		}
		mapping.LastSyncedAt = time.Now()
		if err := s.db.WithContext(ctx).Save(mapping).Error; err != nil {
			return err
		}
		stats.Updated++
		return nil
	}

	created, err := remote.CreateEvent(ctx, ev, false)
	if err != nil {
		return err
	}

	if err := s.recordExport(ctx, conn.ID, models.LocalKindEvent, e.ID, created.ID); err != nil {
		return err
	}
	stats.Created++
	return nil
}

// --------------------------------------------------
// Meeting links
// --------------------------------------------------

// ExportBooking pushes one booking right after creation and returns the
// generated meeting link. Callers treat failures as non-fatal.
func (s *Service) ExportBooking(ctx context.Context, b *models.Booking) (string, error) {
	conn, err := s.GetConnection(ctx, b.HostID)
	if err != nil {
		return "", err
	}
	if !conn.SyncEnabled {
		return "", httperr.ErrBusiness("sync_disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
	defer cancel()

	remote, err := s.remote.ForConnection(ctx, conn)
	if err != nil {
		return "", err
	}

	withMeet := b.EventType.LocationKind == models.LocationGoogleMeet

	created, err := remote.CreateEvent(ctx, bookingToRemote(b), withMeet)
	if err != nil {
		return "", err
	}

	if err := s.recordExport(ctx, conn.ID, models.LocalKindBooking, b.ID, created.ID); err != nil {
		return "", err
	}

	return created.MeetLink, nil
}

// --------------------------------------------------
// Mapping helpers
// --------------------------------------------------

func (s *Service) findMapping(
	ctx context.Context,
	connectionID uint,
	kind string,
	localID uint,
) (*models.SyncMapping, error) {

	var mapping models.SyncMapping
	err := s.db.WithContext(ctx).
		Where("connection_id = ? AND local_kind = ? AND local_id = ?", connectionID, kind, localID).
		First(&mapping).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (s *Service) recordExport(
	ctx context.Context,
	connectionID uint,
	kind string,
	localID uint,
	googleEventID string,
) error {
	return s.db.WithContext(ctx).Create(&models.SyncMapping{
		ConnectionID:  connectionID,
		LocalKind:     kind,
		LocalID:       localID,
		GoogleEventID: googleEventID,
		Direction:     models.SyncDirectionExport,
		LastSyncedAt:  time.Now(),
	}).Error
}

func bookingToRemote(b *models.Booking) RemoteEvent {
	title := b.EventType.Title
	if title == "" {
		title = "Booking"
	}

	return RemoteEvent{
		Title:       fmt.Sprintf("%s: %s", title, b.GuestName),
		Description: b.Notes,
		Start:       b.StartTime,
		End:         b.EndTime,
	}
}
