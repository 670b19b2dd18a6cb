package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
)

// DeviceLister reads active device tokens. devices.Repository satisfies it.
type DeviceLister interface {
	ListActiveByUser(ctx context.Context, userID string) ([]models.DeviceToken, error)
	ListActiveByPlatform(ctx context.Context, platform enums.Platform) ([]models.DeviceToken, error)
	ListActive(ctx context.Context) ([]models.DeviceToken, error)
}

// Selector names the recipients of one send. Exactly one kind applies per call.
type Selector struct {
	Kind     enums.TargetKind
	UserID   string
	Tokens   []string
	Platform enums.Platform
	Topic    string
}

// Validate checks that the field required by Kind is set.
func (s Selector) Validate() error {
	switch s.Kind {
	case enums.TargetUser:
		if strings.TrimSpace(s.UserID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "userId is required for user type")
		}
	case enums.TargetTokens:
		if len(s.Tokens) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "tokens are required for tokens type")
		}
	case enums.TargetPlatform:
		if !s.Platform.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "platform must be one of android, ios, web")
		}
	case enums.TargetTopic:
		if strings.TrimSpace(s.Topic) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "topic is required for topic type")
		}
	case enums.TargetAll:
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid target type %q", s.Kind))
	}
	return nil
}

// Target is one resolved token. DeviceID is nil for explicit tokens.
type Target struct {
	Token    string
	DeviceID *uuid.UUID
}

// Tokens returns the tokens of targets in order.
func Tokens(targets []Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.Token
	}
	return out
}

// Resolver turns a Selector into concrete targets.
type Resolver struct {
	devices DeviceLister
}

func NewResolver(devices DeviceLister) (*Resolver, error) {
	if devices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "device lister required")
	}
	return &Resolver{devices: devices}, nil
}

// Resolve reads active tokens for user, platform and all selectors; an empty
// match is NotFound. Explicit tokens pass through unchecked, duplicates kept.
// Topic selectors are not resolvable here.
func (r *Resolver) Resolve(ctx context.Context, sel Selector) ([]Target, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	var (
		rows     []models.DeviceToken
		err      error
		notFound string
	)
	switch sel.Kind {
	case enums.TargetTokens:
		targets := make([]Target, len(sel.Tokens))
		for i, token := range sel.Tokens {
			targets[i] = Target{Token: token}
		}
		return targets, nil
	case enums.TargetUser:
		rows, err = r.devices.ListActiveByUser(ctx, strings.TrimSpace(sel.UserID))
		notFound = "no active device tokens found for user"
	case enums.TargetPlatform:
		rows, err = r.devices.ListActiveByPlatform(ctx, sel.Platform)
		notFound = fmt.Sprintf("no active device tokens found for platform: %s", sel.Platform)
	case enums.TargetAll:
		rows, err = r.devices.ListActive(ctx)
		notFound = "no active device tokens found"
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "topic sends are not resolved to tokens")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list device tokens")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}

	targets := make([]Target, 0, len(rows))
	for i := range rows {
		id := rows[i].ID
		targets = append(targets, Target{Token: rows[i].Token, DeviceID: &id})
	}
	return targets, nil
}
