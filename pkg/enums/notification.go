package enums

import "fmt"

// NotificationStatus is the delivery state recorded for a sent notification.
type NotificationStatus string

const (
	NotificationStatusSent      NotificationStatus = "sent"
	NotificationStatusDelivered NotificationStatus = "delivered"
	NotificationStatusFailed    NotificationStatus = "failed"
	NotificationStatusPending   NotificationStatus = "pending"
)

var validNotificationStatuses = []NotificationStatus{
	NotificationStatusSent,
	NotificationStatusDelivered,
	NotificationStatusFailed,
	NotificationStatusPending,
}

// IsValid checks whether the given status matches the canonical enum.
func (n NotificationStatus) IsValid() bool {
	for _, candidate := range validNotificationStatuses {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationStatus converts raw strings into NotificationStatus.
func ParseNotificationStatus(value string) (NotificationStatus, error) {
	for _, candidate := range validNotificationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification status %q", value)
}

// TargetKind names the selector used to address a send.
type TargetKind string

const (
	TargetUser     TargetKind = "user"
	TargetTokens   TargetKind = "tokens"
	TargetTopic    TargetKind = "topic"
	TargetPlatform TargetKind = "platform"
	TargetAll      TargetKind = "all"
)

var validTargetKinds = []TargetKind{
	TargetUser,
	TargetTokens,
	TargetTopic,
	TargetPlatform,
	TargetAll,
}

func (k TargetKind) IsValid() bool {
	for _, candidate := range validTargetKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

func ParseTargetKind(value string) (TargetKind, error) {
	for _, candidate := range validTargetKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid target type %q", value)
}
