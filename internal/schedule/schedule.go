package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"

	// BufferWindow is the minimum lead time a same-day slot needs to stay bookable.
	BufferWindow = 30 * time.Minute

	firstHour = 10
	lastHour  = 20
)

var (
	ErrInvalidDate  = errors.New("invalid date format")
	ErrInvalidTime  = errors.New("invalid time format")
	ErrUnknownLabel = errors.New("time label is not offered")
)

type Reason string

const (
	ReasonBooked Reason = "Booked"
	ReasonPast   Reason = "Past"
)

type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Reason    Reason `json:"reason,omitempty"`
}

var timeLabels = buildLabels()

func buildLabels() []string {
	labels := make([]string, 0, lastHour-firstHour+1)
	for h := firstHour; h <= lastHour; h++ {
		labels = append(labels, MinutesToLabel(h*60))
	}
	return labels
}

// TimeLabels returns the bookable time-of-day labels in display order.
func TimeLabels() []string {
	out := make([]string, len(timeLabels))
	copy(out, timeLabels)
	return out
}

func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(dateStr), loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

// DateKey formats the calendar day of t as seen in loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// StartOfDay returns local midnight of the calendar day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func IsToday(date time.Time, loc *time.Location, now time.Time) bool {
	return DateKey(date, loc) == DateKey(now, loc)
}

func IsDatePast(dateStr string, loc *time.Location, now time.Time) (bool, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return false, err
	}
	return date.Before(StartOfDay(now, loc)), nil
}

// ParseLabelMinutes converts an "hh:mm AM/PM" label into minutes after midnight.
// One-digit hours and any letter case are accepted.
func ParseLabelMinutes(label string) (int, error) {
	fields := strings.Fields(strings.ToUpper(strings.TrimSpace(label)))
	if len(fields) != 2 {
		return 0, ErrInvalidTime
	}
	clock, meridiem := fields[0], fields[1]
	if meridiem != "AM" && meridiem != "PM" {
		return 0, ErrInvalidTime
	}

	hh, mm, ok := strings.Cut(clock, ":")
	if !ok || len(mm) != 2 {
		return 0, ErrInvalidTime
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 1 || hour > 12 {
		return 0, ErrInvalidTime
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, ErrInvalidTime
	}

	switch {
	case meridiem == "AM" && hour == 12:
		hour = 0
	case meridiem == "PM" && hour != 12:
		hour += 12
	}
	return hour*60 + minute, nil
}

func MinutesToLabel(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	meridiem := "AM"
	if h >= 12 {
		meridiem = "PM"
	}
	h = h % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h, m, meridiem)
}

// LabelKey is the comparison key for a time label: its minute of day when it
// parses, otherwise the trimmed lower-cased text.
func LabelKey(label string) string {
	if minutes, err := ParseLabelMinutes(label); err == nil {
		return strconv.Itoa(minutes)
	}
	return strings.ToLower(strings.TrimSpace(label))
}

// CanonicalLabel maps any accepted spelling of an offered label to its catalog form.
func CanonicalLabel(label string) (string, error) {
	key := LabelKey(label)
	for _, l := range timeLabels {
		if LabelKey(l) == key {
			return l, nil
		}
	}
	return "", ErrUnknownLabel
}

// SlotTime returns the absolute instant of label on the calendar day of date.
func SlotTime(date time.Time, label string, loc *time.Location) (time.Time, error) {
	minutes, err := ParseLabelMinutes(label)
	if err != nil {
		return time.Time{}, err
	}
	day := StartOfDay(date, loc)
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc), nil
}

type Resolver struct {
	Labels   []string
	Buffer   time.Duration
	Location *time.Location
}

func NewResolver(loc *time.Location) *Resolver {
	return &Resolver{
		Labels:   TimeLabels(),
		Buffer:   BufferWindow,
		Location: loc,
	}
}

// Resolve annotates every catalog label for date. Booked wins over Past.
func (r *Resolver) Resolve(date time.Time, booked []string, now time.Time) []Slot {
	bookedKeys := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		bookedKeys[LabelKey(b)] = struct{}{}
	}

	today := IsToday(date, r.Location, now)
	cutoff := now.Add(r.Buffer)

	slots := make([]Slot, 0, len(r.Labels))
	for _, label := range r.Labels {
		slot := Slot{Time: label, Available: true}
		if _, ok := bookedKeys[LabelKey(label)]; ok {
			slot.Available = false
			slot.Reason = ReasonBooked
		} else if today {
			at, err := SlotTime(date, label, r.Location)
			if err != nil || !at.After(cutoff) {
				slot.Available = false
				slot.Reason = ReasonPast
			}
		}
		slots = append(slots, slot)
	}
	return slots
}

// Find returns the resolved slot for label, matched by LabelKey.
func Find(slots []Slot, label string) (Slot, bool) {
	key := LabelKey(label)
	for _, s := range slots {
		if LabelKey(s.Time) == key {
			return s, true
		}
	}
	return Slot{}, false
}
