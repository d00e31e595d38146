// Package codec translates between domain calendar items and their
// iCalendar wire representation.
package codec

import (
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/NeoPrint3D/caldav-mcp/internal/domain"
)

const prodID = "-//caldav-mcp//CalDAV MCP//EN"

// Encode builds an iCalendar object for the item. The item must already
// carry a UID; now stamps DTSTAMP and LAST-MODIFIED. Encoding always emits
// UTC date-times with explicit UTC marking (Z suffix); all-day items emit
// DATE values without time-of-day.
func Encode(item *domain.Item, now time.Time) (*ical.Calendar, error) {
	if item.UID == "" {
		return nil, domain.Errorf(domain.ErrMalformedObject, "item has no UID")
	}
	if item.RRule != "" {
		if _, err := rrule.StrToRRule(strings.TrimPrefix(item.RRule, "RRULE:")); err != nil {
			return nil, domain.WrapError(domain.ErrMalformedObject, err,
				"invalid recurrence rule %q", item.RRule)
		}
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)

	var comp *ical.Component
	switch item.Kind {
	case domain.KindTodo:
		comp = encodeTodo(item, now)
	default:
		comp = encodeEvent(item)
	}

	comp.Props.SetText(ical.PropUID, item.UID)
	comp.Props.SetText(ical.PropSummary, item.Summary)
	if item.Description != "" {
		comp.Props.SetText(ical.PropDescription, item.Description)
	}
	if item.RRule != "" {
		comp.Props.SetText(ical.PropRecurrenceRule, strings.TrimPrefix(item.RRule, "RRULE:"))
	}

	comp.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	if !item.CreatedAt.IsZero() {
		comp.Props.SetDateTime(ical.PropCreated, item.CreatedAt.UTC())
	} else {
		comp.Props.SetDateTime(ical.PropCreated, now.UTC())
	}
	comp.Props.SetDateTime(ical.PropLastModified, now.UTC())

	cal.Children = append(cal.Children, comp)
	return cal, nil
}

func encodeEvent(item *domain.Item) *ical.Component {
	event := ical.NewEvent()
	comp := event.Component

	if item.Location != "" {
		comp.Props.SetText(ical.PropLocation, item.Location)
	}

	if item.AllDay {
		comp.Props.SetDate(ical.PropDateTimeStart, item.Start)
		if !item.End.IsZero() {
			comp.Props.SetDate(ical.PropDateTimeEnd, item.End)
		}
	} else {
		comp.Props.SetDateTime(ical.PropDateTimeStart, item.Start.UTC())
		if !item.End.IsZero() {
			comp.Props.SetDateTime(ical.PropDateTimeEnd, item.End.UTC())
		}
	}

	return comp
}

func encodeTodo(item *domain.Item, now time.Time) *ical.Component {
	comp := ical.NewComponent(ical.CompToDo)

	status := item.Status
	if status == "" {
		status = domain.StatusNotStarted
	}
	if item.Percent == 100 {
		status = domain.StatusCompleted
	}
	comp.Props.SetText(ical.PropStatus, status.WireStatus())

	if item.Percent > 0 {
		prop := ical.NewProp(ical.PropPercentComplete)
		prop.Value = strconv.Itoa(item.Percent)
		comp.Props.Set(prop)
	}
	if item.Priority > 0 {
		prop := ical.NewProp(ical.PropPriority)
		prop.Value = strconv.Itoa(item.Priority)
		comp.Props.Set(prop)
	}
	if item.Due != nil {
		comp.Props.SetDateTime(ical.PropDue, item.Due.UTC())
	}
	if status == domain.StatusCompleted {
		comp.Props.SetDateTime(ical.PropCompleted, now.UTC())
	}

	return comp
}

// Decode parses a wire calendar object back into an item. Decoding is
// tolerant of provider dialects: optional fields may be absent, embedded
// zones are normalized to UTC and unknown status vocabularies default to
// not-started. It fails with MalformedCalendarObject only when a required
// field (UID, or DTSTART for events) is absent or unparsable.
func Decode(cal *ical.Calendar) (*domain.Item, error) {
	if cal == nil {
		return nil, domain.Errorf(domain.ErrMalformedObject, "empty calendar object")
	}

	for _, comp := range cal.Children {
		switch comp.Name {
		case ical.CompEvent:
			return decodeEvent(comp)
		case ical.CompToDo:
			return decodeTodo(comp)
		}
	}
	return nil, domain.Errorf(domain.ErrMalformedObject,
		"calendar object has no VEVENT or VTODO component")
}

func decodeEvent(comp *ical.Component) (*domain.Item, error) {
	item := &domain.Item{Kind: domain.KindEvent}
	decodeCommon(comp, item)

	if item.UID == "" {
		return nil, domain.Errorf(domain.ErrMalformedObject, "event has no UID")
	}

	prop := comp.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return nil, domain.Errorf(domain.ErrMalformedObject, "event %s has no DTSTART", item.UID)
	}
	start, err := prop.DateTime(time.UTC)
	if err != nil {
		return nil, domain.WrapError(domain.ErrMalformedObject, err,
			"event %s has unparsable DTSTART", item.UID)
	}
	item.Start = start.UTC()
	if prop.Params.Get(ical.ParamValue) == string(ical.ValueDate) {
		item.AllDay = true
	}

	if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
		if end, err := prop.DateTime(time.UTC); err == nil {
			item.End = end.UTC()
		}
	}
	if prop := comp.Props.Get(ical.PropLocation); prop != nil {
		item.Location = prop.Value
	}

	return item, nil
}

func decodeTodo(comp *ical.Component) (*domain.Item, error) {
	item := &domain.Item{Kind: domain.KindTodo, Status: domain.StatusNotStarted}
	decodeCommon(comp, item)

	if item.UID == "" {
		return nil, domain.Errorf(domain.ErrMalformedObject, "todo has no UID")
	}

	if prop := comp.Props.Get(ical.PropStatus); prop != nil {
		item.Status = domain.ParseTodoStatus(prop.Value)
	}
	if prop := comp.Props.Get(ical.PropPercentComplete); prop != nil {
		if pct, err := strconv.Atoi(strings.TrimSpace(prop.Value)); err == nil && pct >= 0 && pct <= 100 {
			item.Percent = pct
		}
	}
	if prop := comp.Props.Get(ical.PropPriority); prop != nil {
		if prio, err := strconv.Atoi(strings.TrimSpace(prop.Value)); err == nil {
			item.Priority = prio
		}
	}
	if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
		if start, err := prop.DateTime(time.UTC); err == nil {
			item.Start = start.UTC()
		}
	}
	if prop := comp.Props.Get(ical.PropDue); prop != nil {
		if due, err := prop.DateTime(time.UTC); err == nil {
			utc := due.UTC()
			item.Due = &utc
		}
	}

	item.NormalizeStatus()
	return item, nil
}

func decodeCommon(comp *ical.Component, item *domain.Item) {
	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		item.UID = prop.Value
	}
	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		item.Summary = prop.Value
	}
	if prop := comp.Props.Get(ical.PropDescription); prop != nil {
		item.Description = prop.Value
	}
	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
		item.RRule = prop.Value
	}
	if prop := comp.Props.Get(ical.PropCreated); prop != nil {
		if t, err := prop.DateTime(time.UTC); err == nil {
			item.CreatedAt = t.UTC()
		}
	}
	if prop := comp.Props.Get(ical.PropLastModified); prop != nil {
		if t, err := prop.DateTime(time.UTC); err == nil {
			item.ModifiedAt = t.UTC()
		}
	}
}
