package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pushrelay-backend/api/responses"
	"github.com/angelmondragon/pushrelay-backend/api/validators"
	"github.com/angelmondragon/pushrelay-backend/internal/topics"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
)

type topicMembershipRequest struct {
	Token     string `json:"fcmToken" validate:"required"`
	TopicName string `json:"topicName" validate:"required"`
}

// SubscribeTopic links a device to a topic, creating the topic on first use.
func SubscribeTopic(svc topics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topic service unavailable"))
			return
		}

		var body topicMembershipRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Subscribe(r.Context(), strings.TrimSpace(body.Token), strings.TrimSpace(body.TopicName))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSubscriptionFromResult(sub))
	}
}

func UnsubscribeTopic(svc topics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topic service unavailable"))
			return
		}

		var body topicMembershipRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		affected, err := svc.Unsubscribe(r.Context(), strings.TrimSpace(body.Token), strings.TrimSpace(body.TopicName))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"unsubscribed": affected})
	}
}

// ListTopics returns the active topics.
func ListTopics(svc topics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topic service unavailable"))
			return
		}

		rows, err := svc.ListTopics(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]topicView, 0, len(rows))
		for i := range rows {
			out = append(out, newTopicView(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// ListDeviceSubscriptions returns the active subscriptions of the token in the path.
func ListDeviceSubscriptions(svc topics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topic service unavailable"))
			return
		}

		token := strings.TrimSpace(chi.URLParam(r, "token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "token is required"))
			return
		}

		rows, err := svc.ListDeviceSubscriptions(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]subscriptionView, 0, len(rows))
		for i := range rows {
			out = append(out, newSubscriptionView(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
