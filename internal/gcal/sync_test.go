package gcal

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	dbpkg "github.com/BruksfildServices01/portal-scheduler/internal/db"
	"github.com/BruksfildServices01/portal-scheduler/internal/httperr"
	"github.com/BruksfildServices01/portal-scheduler/internal/models"
	"github.com/BruksfildServices01/portal-scheduler/internal/synclock"
)

// --------------------------------------------------
// Fakes
// --------------------------------------------------

type fakeRemote struct {
	mu     sync.Mutex
	events map[string]RemoteEvent
	nextID int

	listErrs  []error // popped one per ListEvents call
	syncToken string
	queries   []ListQuery

	created int
	updated int
	deleted int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{events: map[string]RemoteEvent{}, syncToken: "cursor-1"}
}

func (r *fakeRemote) addEvent(ev RemoteEvent) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ev.ID = fmt.Sprintf("gid-%d", r.nextID)
	r.events[ev.ID] = ev
	return ev.ID
}

func (r *fakeRemote) ListEvents(_ context.Context, q ListQuery) (*ListResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queries = append(r.queries, q)

	if len(r.listErrs) > 0 {
		err := r.listErrs[0]
		r.listErrs = r.listErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	res := &ListResult{NextSyncToken: r.syncToken}
	for _, ev := range r.events {
		res.Events = append(res.Events, ev)
	}
	return res, nil
}

func (r *fakeRemote) CreateEvent(_ context.Context, ev RemoteEvent, withMeet bool) (*RemoteEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.created++
	ev.ID = fmt.Sprintf("gid-%d", r.nextID)
	if withMeet {
		ev.MeetLink = "https://meet.example.com/" + ev.ID
	}
	r.events[ev.ID] = ev
	return &ev, nil
}

func (r *fakeRemote) UpdateEvent(_ context.Context, id string, ev RemoteEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return &googleapi.Error{Code: http.StatusNotFound}
	}
	ev.ID = id
	r.events[id] = ev
	r.updated++
	return nil
}

func (r *fakeRemote) DeleteEvent(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.events, id)
	r.deleted++
	return nil
}

type fakeFactory struct {
	remote Remote
	err    error
}

func (f *fakeFactory) ForConnection(context.Context, *models.CalendarConnection) (Remote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.remote, nil
}

// --------------------------------------------------
// Fixture
// --------------------------------------------------

var dbSeq int

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbSeq++
	dsn := fmt.Sprintf("file:gcal_%d?mode=memory&cache=shared", dbSeq)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, dbpkg.Migrate(db))
	return db
}

type fixture struct {
	db      *gorm.DB
	remote  *fakeRemote
	service *Service
	host    models.User
	conn    models.CalendarConnection
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testDB(t)
	remote := newFakeRemote()

	f := &fixture{
		db:      db,
		remote:  remote,
		service: NewService(db, nil, &fakeFactory{remote: remote}, synclock.NewMemoryLocker()),
	}

	f.host = models.User{Name: "Host", Email: "host@example.com", Role: "host"}
	require.NoError(t, db.Create(&f.host).Error)

	f.conn = models.CalendarConnection{
		HostID:         f.host.ID,
		AccessToken:    "at",
		RefreshToken:   "rt",
		TokenExpiresAt: time.Now().Add(time.Hour),
		CalendarID:     "primary",
		SyncEnabled:    true,
	}
	require.NoError(t, db.Create(&f.conn).Error)

	return f
}

func (f *fixture) seedBooking(t *testing.T, status string) *models.Booking {
	t.Helper()

	et := models.EventType{
		HostID:       f.host.ID,
		Title:        "Standup",
		Slug:         fmt.Sprintf("standup-%d", dbSeq),
		DurationMin:  30,
		LocationKind: models.LocationGoogleMeet,
	}
	require.NoError(t, f.db.Create(&et).Error)

	start := time.Now().Add(48 * time.Hour).Truncate(time.Minute)
	b := models.Booking{
		EventTypeID: et.ID,
		EventType:   et,
		HostID:      f.host.ID,
		GuestName:   "Guest",
		GuestEmail:  "guest@example.com",
		StartTime:   start,
		EndTime:     start.Add(30 * time.Minute),
		Status:      status,
		CancelToken: fmt.Sprintf("token-%d-%s", dbSeq, status),
	}
	require.NoError(t, f.db.Create(&b).Error)
	return &b
}

func (f *fixture) mappingCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.SyncMapping{}).Count(&n).Error)
	return n
}

// --------------------------------------------------
// Pull
// --------------------------------------------------

func TestFullSync_ImportsRemoteEvents(t *testing.T) {
	f := newFixture(t)

	start := time.Now().Add(24 * time.Hour)
	f.remote.addEvent(RemoteEvent{
		Title: "Team Offsite",
		Start: start,
		End:   start.Add(2 * time.Hour),
	})

	res, err := f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pull.Created)

	var events []models.CalendarEvent
	require.NoError(t, f.db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, "Team Offsite", events[0].Title)
	assert.Equal(t, f.host.ID, events[0].HostID)

	// a second run sees the mapping and only updates
	res, err = f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Pull.Created)
	assert.Equal(t, 1, res.Pull.Updated)

	require.NoError(t, f.db.Find(&events).Error)
	assert.Len(t, events, 1)
}

func TestFullSync_PersistsSyncToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)

	var conn models.CalendarConnection
	require.NoError(t, f.db.First(&conn, f.conn.ID).Error)
	assert.Equal(t, "cursor-1", conn.SyncToken)
	assert.Equal(t, "success", conn.LastSyncStatus)
	require.NotNil(t, conn.LastSyncAt)

	// the cursor drives the next pull
	_, err = f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(f.remote.queries), 2)
	assert.Equal(t, "cursor-1", f.remote.queries[1].SyncToken)
}

func TestFullSync_ExpiredSyncTokenFallsBackToFullRange(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Model(&f.conn).Update("sync_token", "stale-cursor").Error)
	f.remote.listErrs = []error{&googleapi.Error{Code: http.StatusGone}}

	_, err := f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)

	require.Len(t, f.remote.queries, 2)
	assert.Equal(t, "stale-cursor", f.remote.queries[0].SyncToken)
	assert.Empty(t, f.remote.queries[1].SyncToken)
	assert.False(t, f.remote.queries[1].TimeMin.IsZero())
}

func TestFullSync_RemoteCancellationRemovesImportedEvent(t *testing.T) {
	f := newFixture(t)

	start := time.Now().Add(24 * time.Hour)
	id := f.remote.addEvent(RemoteEvent{Title: "Offsite", Start: start, End: start.Add(time.Hour)})

	_, err := f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), f.mappingCount(t))

	f.remote.mu.Lock()
	ev := f.remote.events[id]
	ev.Cancelled = true
	f.remote.events[id] = ev
	f.remote.mu.Unlock()

	_, err = f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)

	var events []models.CalendarEvent
	require.NoError(t, f.db.Find(&events).Error)
	assert.Empty(t, events)
	assert.Equal(t, int64(0), f.mappingCount(t))
}

// --------------------------------------------------
// Push
// --------------------------------------------------

func TestFullSync_ExportsBookings(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, "confirmed")

	res, err := f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Push.Created)
	assert.Equal(t, 1, f.remote.created)

	// the exported event coming back on the next pull must not duplicate
	res, err = f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Pull.Created)
	assert.Equal(t, 1, res.Pull.Skipped)
	assert.Equal(t, 0, res.Push.Created)
	assert.Equal(t, 1, res.Push.Updated)

	var events []models.CalendarEvent
	require.NoError(t, f.db.Find(&events).Error)
	assert.Empty(t, events)
}

func TestFullSync_CancelledBookingDeletesRemoteCopy(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, "confirmed")

	_, err := f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), f.mappingCount(t))

	require.NoError(t, f.db.Model(b).Update("status", "cancelled").Error)

	res, err := f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Push.Updated)
	assert.Equal(t, 1, f.remote.deleted)
	assert.Equal(t, int64(0), f.mappingCount(t))
}

func TestFullSync_PerEventErrorDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, "confirmed")

	// a mapping pointing at a remote event that no longer exists makes the
	// update fail for this one booking
	require.NoError(t, f.db.Create(&models.SyncMapping{
		ConnectionID:  f.conn.ID,
		LocalKind:     models.LocalKindBooking,
		LocalID:       b.ID,
		GoogleEventID: "gone",
		Direction:     models.SyncDirectionExport,
		LastSyncedAt:  time.Now(),
	}).Error)

	res, err := f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)
	assert.Len(t, res.Push.Errors, 1)

	var conn models.CalendarConnection
	require.NoError(t, f.db.First(&conn, f.conn.ID).Error)
	assert.Equal(t, "success", conn.LastSyncStatus)
}

// --------------------------------------------------
// Lifecycle
// --------------------------------------------------

func TestFullSync_Locked(t *testing.T) {
	f := newFixture(t)

	locker := synclock.NewMemoryLocker()
	f.service = NewService(f.db, nil, &fakeFactory{remote: f.remote}, locker)

	release, err := locker.Acquire(context.Background(), fmt.Sprintf("gcal:%d", f.host.ID), time.Minute)
	require.NoError(t, err)
	defer release()

	_, err = f.service.FullSync(context.Background(), f.host.ID)
	assert.True(t, httperr.IsBusiness(err, "sync_in_progress"))
}

func TestFullSync_FactoryErrorMarksConnection(t *testing.T) {
	f := newFixture(t)
	f.service = NewService(f.db, nil, &fakeFactory{err: fmt.Errorf("refresh token: boom")}, synclock.NewMemoryLocker())

	_, err := f.service.FullSync(context.Background(), f.host.ID)
	assert.True(t, httperr.IsBusiness(err, "external_auth_error"))

	var conn models.CalendarConnection
	require.NoError(t, f.db.First(&conn, f.conn.ID).Error)
	assert.Equal(t, "error", conn.LastSyncStatus)
	assert.Contains(t, conn.LastSyncError, "boom")
}

func TestFullSync_SyncDisabled(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&f.conn).Update("sync_enabled", false).Error)

	_, err := f.service.FullSync(context.Background(), f.host.ID)
	assert.True(t, httperr.IsBusiness(err, "sync_disabled"))
}

func TestGetConnection_NotConfigured(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetConnection(context.Background(), f.host.ID+1)
	assert.True(t, httperr.IsBusiness(err, "integration_not_configured"))
}

func TestDisconnect_RemovesConnectionAndMappings(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, "confirmed")

	_, err := f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), f.mappingCount(t))

	require.NoError(t, f.service.Disconnect(context.Background(), f.host.ID))

	assert.Equal(t, int64(0), f.mappingCount(t))
	_, err = f.service.GetConnection(context.Background(), f.host.ID)
	assert.True(t, httperr.IsBusiness(err, "integration_not_configured"))
}

// --------------------------------------------------
// Meeting links
// --------------------------------------------------

func TestExportBooking_ReturnsMeetLink(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, "confirmed")

	link, err := f.service.ExportBooking(context.Background(), b)
	require.NoError(t, err)
	assert.Contains(t, link, "https://meet.example.com/")

	require.Equal(t, int64(1), f.mappingCount(t))

	// the full sync afterwards updates instead of re-creating
	res, err := f.service.FullSync(context.Background(), f.host.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Push.Created)
	assert.Equal(t, 1, res.Push.Updated)
}
