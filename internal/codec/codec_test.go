package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"github.com/NeoPrint3D/caldav-mcp/internal/domain"
)

var stamp = time.Date(2025, time.July, 1, 10, 0, 0, 0, time.UTC)

func TestEventRoundTrip(t *testing.T) {
	original := &domain.Item{
		Kind:        domain.KindEvent,
		UID:         "abc-123@caldav-mcp",
		Summary:     "Team Sync",
		Description: "Weekly sync",
		Location:    "Room 4",
		Start:       time.Date(2025, time.July, 16, 20, 0, 0, 0, time.UTC),
		End:         time.Date(2025, time.July, 16, 20, 30, 0, 0, time.UTC),
	}

	cal, err := Encode(original, stamp)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(cal)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.UID != original.UID {
		t.Errorf("UID = %q, want %q", decoded.UID, original.UID)
	}
	if decoded.Summary != original.Summary {
		t.Errorf("Summary = %q, want %q", decoded.Summary, original.Summary)
	}
	if decoded.Description != original.Description {
		t.Errorf("Description = %q, want %q", decoded.Description, original.Description)
	}
	if decoded.Location != original.Location {
		t.Errorf("Location = %q, want %q", decoded.Location, original.Location)
	}
	if !decoded.Start.Equal(original.Start) {
		t.Errorf("Start = %v, want %v", decoded.Start, original.Start)
	}
	if !decoded.End.Equal(original.End) {
		t.Errorf("End = %v, want %v", decoded.End, original.End)
	}
	if decoded.AllDay {
		t.Error("timed event decoded as all-day")
	}
}

// The wire form survives a full serialize/parse cycle, not just an
// in-memory one.
func TestEventWireRoundTrip(t *testing.T) {
	original := &domain.Item{
		Kind:    domain.KindEvent,
		UID:     "wire-1@caldav-mcp",
		Summary: "Dentist",
		Start:   time.Date(2025, time.August, 2, 15, 0, 0, 0, time.UTC),
		End:     time.Date(2025, time.August, 2, 16, 0, 0, 0, time.UTC),
	}

	cal, err := Encode(original, stamp)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	text := buf.String()
	if !strings.Contains(text, "DTSTART:20250802T150000Z") {
		t.Errorf("wire form lacks UTC-marked DTSTART:\n%s", text)
	}

	parsed, err := ical.NewDecoder(strings.NewReader(text)).Decode()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	decoded, err := Decode(parsed)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.UID != original.UID || !decoded.Start.Equal(original.Start) {
		t.Errorf("wire round trip mismatch: %+v", decoded)
	}
}

func TestAllDayEvent(t *testing.T) {
	original := &domain.Item{
		Kind:    domain.KindEvent,
		UID:     "allday-1@caldav-mcp",
		Summary: "Anniversary",
		Start:   time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC),
		AllDay:  true,
	}

	cal, err := Encode(original, stamp)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(cal)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !decoded.AllDay {
		t.Error("all-day flag lost")
	}
	if h, m, s := decoded.Start.Clock(); h != 0 || m != 0 || s != 0 {
		t.Errorf("all-day event acquired a time-of-day: %v", decoded.Start)
	}
}

func TestTodoRoundTrip(t *testing.T) {
	due := time.Date(2025, time.July, 20, 17, 0, 0, 0, time.UTC)
	original := &domain.Item{
		Kind:     domain.KindTodo,
		UID:      "todo-1@caldav-mcp",
		Summary:  "Review report",
		Status:   domain.StatusInProgress,
		Percent:  40,
		Priority: 2,
		Due:      &due,
	}

	cal, err := Encode(original, stamp)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(cal)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.Status != domain.StatusInProgress {
		t.Errorf("Status = %v, want in-progress", decoded.Status)
	}
	if decoded.Percent != 40 {
		t.Errorf("Percent = %d, want 40", decoded.Percent)
	}
	if decoded.Priority != 2 {
		t.Errorf("Priority = %d, want 2", decoded.Priority)
	}
	if decoded.Due == nil || !decoded.Due.Equal(due) {
		t.Errorf("Due = %v, want %v", decoded.Due, due)
	}
}

func TestTodoDefaults(t *testing.T) {
	// A todo with status omitted decodes as not-started at 0 percent.
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	comp := ical.NewComponent(ical.CompToDo)
	comp.Props.SetText(ical.PropUID, "todo-2@example.com")
	comp.Props.SetText(ical.PropSummary, "Review report")
	cal.Children = append(cal.Children, comp)

	decoded, err := Decode(cal)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Status != domain.StatusNotStarted {
		t.Errorf("Status = %v, want not-started", decoded.Status)
	}
	if decoded.Percent != 0 {
		t.Errorf("Percent = %d, want 0", decoded.Percent)
	}
	if decoded.Due != nil {
		t.Errorf("Due = %v, want nil", decoded.Due)
	}
}

func TestUnknownStatusVocabulary(t *testing.T) {
	cal := ical.NewCalendar()
	comp := ical.NewComponent(ical.CompToDo)
	comp.Props.SetText(ical.PropUID, "todo-3@example.com")
	comp.Props.SetText(ical.PropStatus, "X-PROVIDER-WAITING")
	cal.Children = append(cal.Children, comp)

	decoded, err := Decode(cal)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Status != domain.StatusNotStarted {
		t.Errorf("unknown status mapped to %v, want not-started", decoded.Status)
	}
}

func TestPercentImpliesCompleted(t *testing.T) {
	cal := ical.NewCalendar()
	comp := ical.NewComponent(ical.CompToDo)
	comp.Props.SetText(ical.PropUID, "todo-4@example.com")
	prop := ical.NewProp(ical.PropPercentComplete)
	prop.Value = "100"
	comp.Props.Set(prop)
	cal.Children = append(cal.Children, comp)

	decoded, err := Decode(cal)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Status != domain.StatusCompleted {
		t.Errorf("Status = %v, want completed at 100 percent", decoded.Status)
	}
}

func TestDecodeLocalZoneNormalizedToUTC(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	cal := ical.NewCalendar()
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, "tz-1@example.com")
	event.Props.SetDateTime(ical.PropDateTimeStart, time.Date(2025, time.July, 16, 22, 0, 0, 0, loc))
	cal.Children = append(cal.Children, event.Component)

	decoded, err := Decode(cal)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := time.Date(2025, time.July, 16, 20, 0, 0, 0, time.UTC)
	if !decoded.Start.Equal(want) {
		t.Errorf("Start = %v, want %v (normalized to UTC)", decoded.Start, want)
	}
	if decoded.Start.Location() != time.UTC {
		t.Errorf("Start not in UTC: %v", decoded.Start.Location())
	}
}

func TestDecodeMalformed(t *testing.T) {
	// No component at all.
	if _, err := Decode(ical.NewCalendar()); !domain.IsKind(err, domain.ErrMalformedObject) {
		t.Errorf("empty calendar: error = %v, want malformed_calendar_object", err)
	}

	// Event without a UID.
	cal := ical.NewCalendar()
	event := ical.NewEvent()
	event.Props.SetDateTime(ical.PropDateTimeStart, stamp)
	cal.Children = append(cal.Children, event.Component)
	if _, err := Decode(cal); !domain.IsKind(err, domain.ErrMalformedObject) {
		t.Errorf("missing UID: error = %v, want malformed_calendar_object", err)
	}

	// Event without a start.
	cal = ical.NewCalendar()
	event = ical.NewEvent()
	event.Props.SetText(ical.PropUID, "no-start@example.com")
	cal.Children = append(cal.Children, event.Component)
	if _, err := Decode(cal); !domain.IsKind(err, domain.ErrMalformedObject) {
		t.Errorf("missing DTSTART: error = %v, want malformed_calendar_object", err)
	}
}

func TestEncodeRejectsBadRRule(t *testing.T) {
	item := &domain.Item{
		Kind:    domain.KindEvent,
		UID:     "rrule-1@caldav-mcp",
		Summary: "Standup",
		Start:   stamp,
		RRule:   "FREQ=NONSENSE",
	}
	if _, err := Encode(item, stamp); !domain.IsKind(err, domain.ErrMalformedObject) {
		t.Errorf("bad RRULE: error = %v, want malformed_calendar_object", err)
	}

	item.RRule = "FREQ=WEEKLY;BYDAY=MO"
	if _, err := Encode(item, stamp); err != nil {
		t.Errorf("valid RRULE rejected: %v", err)
	}
}
