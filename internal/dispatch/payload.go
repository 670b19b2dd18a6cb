package dispatch

import (
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
)

// Payload is the notification content shared by every target of a send.
type Payload struct {
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	ClickAction string            `json:"clickAction,omitempty"`
}

// Validate enforces the required fields before any resolution or dispatch work.
func (p Payload) Validate() error {
	details := map[string]string{}
	if strings.TrimSpace(p.Title) == "" {
		details["title"] = "title is required"
	}
	if strings.TrimSpace(p.Body) == "" {
		details["body"] = "body is required"
	}
	if p.ImageURL != "" {
		if u, err := url.ParseRequestURI(p.ImageURL); err != nil || u.Host == "" {
			details["imageUrl"] = "imageUrl must be an absolute URL"
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification payload").WithDetails(details)
	}
	return nil
}

// DataSnapshot copies the data map into the form stored on audit rows.
func (p Payload) DataSnapshot() map[string]any {
	out := make(map[string]any, len(p.Data))
	for k, v := range p.Data {
		out[k] = v
	}
	return out
}
