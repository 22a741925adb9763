package event

// Type identifies the type of domain event
type Type string

const (
	TypeRecordCreated      Type = "record.created"
	TypeRecordTransitioned Type = "record.transitioned"
	TypeAttendanceCreated  Type = "attendance.created"
	TypeApplicationCreated Type = "application.created"
	TypeNotificationQueued Type = "notification.queued"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRecordCreated,
		TypeRecordTransitioned,
		TypeAttendanceCreated,
		TypeApplicationCreated,
		TypeNotificationQueued:
		return true
	default:
		return false
	}
}
