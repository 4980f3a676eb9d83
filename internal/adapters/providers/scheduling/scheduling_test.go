package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/smartscheduler/backend/internal/domain/entities"
)

func window(h1, h2 int) entities.Interval {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	return entities.Interval{Start: day.Add(time.Duration(h1) * time.Hour), End: day.Add(time.Duration(h2) * time.Hour)}
}

func newTestGoogleAdapter(t *testing.T, handler http.HandlerFunc) *GoogleCalendarAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	adapter, err := NewGoogleCalendarAdapter(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return adapter
}

func TestGoogleCalendarAdapter_CreateEvent(t *testing.T) {
	var got calendar.Event
	adapter := newTestGoogleAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/calendars/dr.alice@example.com/events"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt-1","htmlLink":"https://calendar.google.com/event?eid=evt-1"}`))
	})

	iv := window(10, 11)
	ev, err := adapter.CreateEvent(context.Background(), "dr.alice@example.com", &entities.Appointment{
		Interval: iv,
		Patient:  entities.PatientProfile{Name: "Jane Doe"},
		Notes:    "first visit",
	})
	require.NoError(t, err)

	assert.Equal(t, "evt-1", ev.ExternalReference)
	assert.Equal(t, "https://calendar.google.com/event?eid=evt-1", ev.DisplayLink)
	assert.Equal(t, "Appointment with Jane Doe", got.Summary)
	assert.Equal(t, "first visit", got.Description)
	assert.Equal(t, "2025-06-02T10:00:00Z", got.Start.DateTime)
}

func TestGoogleCalendarAdapter_CreateEventFailure(t *testing.T) {
	adapter := newTestGoogleAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"forbidden"}}`))
	})

	_, err := adapter.CreateEvent(context.Background(), "P1", &entities.Appointment{Interval: window(10, 11)})
	assert.Error(t, err)
}

func TestGoogleCalendarAdapter_ListEvents(t *testing.T) {
	adapter := newTestGoogleAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "startTime", q.Get("orderBy"))
		assert.Equal(t, "2025-06-02T09:00:00Z", q.Get("timeMin"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"id":"a","start":{"dateTime":"2025-06-02T19:00:00+10:00"},"end":{"dateTime":"2025-06-02T19:30:00+10:00"}},
			{"id":"b","start":{"date":"2025-06-02"},"end":{"date":"2025-06-03"}}
		]}`))
	})

	got, err := adapter.ListEvents(context.Background(), "P1", window(9, 17))
	require.NoError(t, err)
	require.Len(t, got, 1)
	want := window(9, 10)
	want.End = want.Start.Add(30 * time.Minute)
	assert.True(t, got[0].Equal(want))
}

func TestMockAdapter_ListEventsSynthesizesHalfHours(t *testing.T) {
	m := NewMockAdapter()
	iv := entities.Interval{Start: window(9, 12).Start.Add(10 * time.Minute), End: window(9, 12).End}

	got, err := m.ListEvents(context.Background(), "P1", iv)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, 9, got[0].Start.Hour())
	assert.Equal(t, 30, got[0].Start.Minute())
	for _, ev := range got {
		assert.True(t, iv.Contains(ev))
	}
}

func TestMockAdapter_CreatedEventsAreListed(t *testing.T) {
	m := NewMockAdapter()
	iv := window(10, 11)

	ev, err := m.CreateEvent(context.Background(), "P1", &entities.Appointment{Interval: iv})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ev.ExternalReference, "mock-"))

	got, err := m.ListEvents(context.Background(), "P1", window(9, 17))
	require.NoError(t, err)
	assert.Equal(t, []entities.Interval{iv}, got)
}

type failingCalendar struct{}

func (failingCalendar) CreateEvent(ctx context.Context, providerID string, appointment *entities.Appointment) (*entities.CalendarEvent, error) {
	return nil, errors.New("quota exceeded")
}

func (failingCalendar) ListEvents(ctx context.Context, providerID string, window entities.Interval) ([]entities.Interval, error) {
	return nil, errors.New("quota exceeded")
}

func TestFallbackCalendar(t *testing.T) {
	cal := NewFallbackCalendar(failingCalendar{}, NewMockAdapter())

	events, err := cal.ListEvents(context.Background(), "P1", window(9, 12))
	require.NoError(t, err)
	assert.NotEmpty(t, events)

	_, err = cal.CreateEvent(context.Background(), "P1", &entities.Appointment{Interval: window(10, 11)})
	assert.Error(t, err, "writes must not fall back")
}

func TestNewCalendarProvider(t *testing.T) {
	p, err := NewCalendarProvider(context.Background(), CalendarProviderConfig{Driver: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &MockAdapter{}, p)

	_, err = NewCalendarProvider(context.Background(), CalendarProviderConfig{Driver: "outlook"})
	assert.Error(t, err)
}
