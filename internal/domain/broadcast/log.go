// Package broadcast contains delivery records for outbound SMS and WhatsApp
// notifications sent by the parcel automation. The dashboard reads these to
// monitor provider health; entries are written per attempted message.
package broadcast

import (
	"fmt"
	"time"

	"parceldesk/internal/shared/biztime"
	"parceldesk/internal/shared/sanitize"
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

func (c Channel) IsValid() bool {
	return c == ChannelSMS || c == ChannelWhatsApp
}

func (c Channel) String() string {
	return string(c)
}

func NewChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid broadcast channel: %s", s)
	}
	return c, nil
}

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

var validStatuses = map[Status]bool{
	StatusPending: true,
	StatusSuccess: true,
	StatusFailed:  true,
}

func (s Status) IsValid() bool {
	return validStatuses[s]
}

func (s Status) String() string {
	return string(s)
}

func NewStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid broadcast status: %s", s)
	}
	return st, nil
}

// Log records one outbound message attempt. ProviderMeta carries the raw
// provider response (message SID, error codes) for troubleshooting.
type Log struct {
	id           uint
	channel      Channel
	recipient    string
	trackingRef  string
	message      string
	status       Status
	errorDetail  string
	providerMeta map[string]any
	sentAt       time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

func NewLog(channel Channel, recipient, trackingRef, message string) (*Log, error) {
	if !channel.IsValid() {
		return nil, fmt.Errorf("invalid broadcast channel: %s", channel)
	}

	recipient = sanitize.Text(recipient)
	if recipient == "" {
		return nil, fmt.Errorf("recipient is required")
	}

	now := biztime.NowUTC()
	return &Log{
		channel:     channel,
		recipient:   recipient,
		trackingRef: sanitize.Text(trackingRef),
		message:     sanitize.Text(message),
		status:      StatusPending,
		sentAt:      now,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructLog rebuilds a broadcast log from persistence without validation.
func ReconstructLog(
	id uint,
	channel Channel,
	recipient string,
	trackingRef string,
	message string,
	status Status,
	errorDetail string,
	providerMeta map[string]any,
	sentAt time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) *Log {
	return &Log{
		id:           id,
		channel:      channel,
		recipient:    recipient,
		trackingRef:  trackingRef,
		message:      message,
		status:       status,
		errorDetail:  errorDetail,
		providerMeta: providerMeta,
		sentAt:       sentAt,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (l *Log) ID() uint { return l.id }
func (l *Log) Channel() Channel { return l.channel }
func (l *Log) Recipient() string { return l.recipient }
func (l *Log) TrackingRef() string { return l.trackingRef }
func (l *Log) Message() string { return l.message }
func (l *Log) Status() Status { return l.status }
func (l *Log) ErrorDetail() string { return l.errorDetail }
func (l *Log) ProviderMeta() map[string]any { return l.providerMeta }
func (l *Log) SentAt() time.Time { return l.sentAt }
func (l *Log) CreatedAt() time.Time { return l.createdAt }
func (l *Log) UpdatedAt() time.Time { return l.updatedAt }

// SetID assigns the persistence-generated ID once.
func (l *Log) SetID(id uint) error {
	if l.id != 0 {
		return fmt.Errorf("broadcast log ID already set")
	}
	l.id = id
	return nil
}

// MarkSuccess records a confirmed provider delivery.
func (l *Log) MarkSuccess(providerMeta map[string]any) {
	l.status = StatusSuccess
	l.errorDetail = ""
	l.providerMeta = providerMeta
	l.updatedAt = biztime.NowUTC()
}

// MarkFailed records a provider rejection or timeout.
func (l *Log) MarkFailed(detail string, providerMeta map[string]any) {
	l.status = StatusFailed
	l.errorDetail = sanitize.Text(detail)
	l.providerMeta = providerMeta
	l.updatedAt = biztime.NowUTC()
}
