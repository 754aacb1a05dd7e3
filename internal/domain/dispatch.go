package domain

import "time"

type DispatchMode string

const (
	DispatchPublishNow DispatchMode = "publish_now"
	DispatchScheduleAt DispatchMode = "schedule_at"
)

// DispatchRequest is a finalized payload ready for delivery. MediaURLs must
// contain only durable URLs; callers run the media normalizer first. A
// request is consumed once and never retried automatically.
type DispatchRequest struct {
	Platform  Platform
	BrandName string
	Text      string
	MediaURLs []string
	Mode      DispatchMode
	At        time.Time
}

// ScheduleTime is the delivery instant decomposed into calendar fields, the
// addressing scheme the calendar collaborator uses.
type ScheduleTime struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func ScheduleTimeOf(at time.Time) ScheduleTime {
	utc := at.UTC()
	return ScheduleTime{
		Year:   utc.Year(),
		Month:  int(utc.Month()),
		Day:    utc.Day(),
		Hour:   utc.Hour(),
		Minute: utc.Minute(),
	}
}

func (s ScheduleTime) Time() time.Time {
	return time.Date(s.Year, time.Month(s.Month), s.Day, s.Hour, s.Minute, 0, 0, time.UTC)
}

type ScheduledPostStatus string

const (
	ScheduledPostPending  ScheduledPostStatus = "scheduled"
	ScheduledPostQueued   ScheduledPostStatus = "queued"
	ScheduledPostPosted   ScheduledPostStatus = "posted"
	ScheduledPostFailed   ScheduledPostStatus = "failed"
	ScheduledPostCanceled ScheduledPostStatus = "canceled"
)

// ScheduledPost is the source-of-truth scheduling record. The calendar entry
// mirroring it is a display cache and may lag or be missing.
type ScheduledPost struct {
	ID           string
	Platform     Platform
	BrandName    string
	Text         string
	MediaURLs    []string
	DeliverAt    ScheduleTime
	Status       ScheduledPostStatus
	ErrorMessage string
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CalendarEntry is the display-side mirror of a scheduled post.
type CalendarEntry struct {
	ID        string
	PostID    string
	Platform  Platform
	BrandName string
	Title     string
	DeliverAt ScheduleTime
	CreatedAt time.Time
}

// DeliveryMessage is the transport format sent to queue backends when a
// scheduled post becomes due.
type DeliveryMessage struct {
	PostID      string    `json:"post_id"`
	Platform    Platform  `json:"platform"`
	BrandName   string    `json:"brand_name"`
	Text        string    `json:"text"`
	MediaURLs   []string  `json:"media_urls,omitempty"`
	Attempt     int       `json:"attempt"`
	RequestedAt time.Time `json:"requested_at"`
}
