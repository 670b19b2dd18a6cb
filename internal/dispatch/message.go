package dispatch

import (
	"firebase.google.com/go/v4/messaging"
)

const defaultSound = "default"

// Decorations are the per-platform hints attached to every message.
type Decorations struct {
	WebIcon  string
	WebBadge string
}

// DefaultDecorations returns the stock web icon and badge paths.
func DefaultDecorations() Decorations {
	return Decorations{WebIcon: "/icon-192x192.png", WebBadge: "/badge-72x72.png"}
}

func notification(p Payload) *messaging.Notification {
	return &messaging.Notification{
		Title:    p.Title,
		Body:     p.Body,
		ImageURL: p.ImageURL,
	}
}

func android(p Payload) *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Notification: &messaging.AndroidNotification{
			ClickAction: p.ClickAction,
			Sound:       defaultSound,
		},
	}
}

func (d Decorations) apns() *messaging.APNSConfig {
	badge := 1
	return &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{
				Sound: defaultSound,
				Badge: &badge,
			},
		},
	}
}

func (d Decorations) webpush() *messaging.WebpushConfig {
	return &messaging.WebpushConfig{
		Notification: &messaging.WebpushNotification{
			Icon:  d.WebIcon,
			Badge: d.WebBadge,
		},
	}
}

func data(p Payload) map[string]string {
	if p.Data == nil {
		return map[string]string{}
	}
	return p.Data
}

// Multicast renders the payload for a batch of tokens.
func (d Decorations) Multicast(tokens []string, p Payload) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: notification(p),
		Data:         data(p),
		Android:      android(p),
		APNS:         d.apns(),
		Webpush:      d.webpush(),
	}
}

// Topic renders the payload addressed to a topic.
func (d Decorations) Topic(topic string, p Payload) *messaging.Message {
	return &messaging.Message{
		Topic:        topic,
		Notification: notification(p),
		Data:         data(p),
		Android:      android(p),
		APNS:         d.apns(),
		Webpush:      d.webpush(),
	}
}
