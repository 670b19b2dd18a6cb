package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/pushrelay-backend/api/middleware"
	"github.com/angelmondragon/pushrelay-backend/api/responses"
	"github.com/angelmondragon/pushrelay-backend/api/validators"
	"github.com/angelmondragon/pushrelay-backend/internal/devices"
	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
	"github.com/angelmondragon/pushrelay-backend/pkg/pagination"
)

type registerDeviceRequest struct {
	Token       string  `json:"fcmToken" validate:"required"`
	Platform    string  `json:"platform" validate:"required,oneof=android ios web"`
	UserID      *string `json:"userId"`
	DeviceID    *string `json:"deviceId"`
	AppVersion  *string `json:"appVersion"`
	OSVersion   *string `json:"osVersion"`
	DeviceModel *string `json:"deviceModel"`
}

type deactivateDeviceRequest struct {
	Token string `json:"fcmToken" validate:"required"`
}

type registerDeviceResponse struct {
	Device  deviceView `json:"device"`
	Created bool       `json:"created"`
}

// RegisterDevice upserts a device token from an anonymous client.
func RegisterDevice(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	return registerDevice(svc, logg, false)
}

// RegisterMyDevice upserts a device token owned by the authenticated caller.
func RegisterMyDevice(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	return registerDevice(svc, logg, true)
}

func registerDevice(svc devices.Service, logg *logger.Logger, ownedByCaller bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "device service unavailable"))
			return
		}

		var body registerDeviceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		platform, err := enums.ParsePlatform(body.Platform)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform"))
			return
		}

		input := devices.RegisterInput{
			Token:       strings.TrimSpace(body.Token),
			Platform:    platform,
			UserID:      body.UserID,
			DeviceID:    body.DeviceID,
			AppVersion:  body.AppVersion,
			OSVersion:   body.OSVersion,
			DeviceModel: body.DeviceModel,
		}
		if ownedByCaller {
			userID := middleware.UserIDFromContext(r.Context())
			if userID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}
			input.UserID = &userID
		}

		result, err := svc.Register(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, registerDeviceResponse{
			Device:  newDeviceView(result.Device),
			Created: result.Created,
		})
	}
}

// DeactivateDevice clears the active flag on a token and its subscriptions.
func DeactivateDevice(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "device service unavailable"))
			return
		}

		var body deactivateDeviceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		device, err := svc.Deactivate(r.Context(), strings.TrimSpace(body.Token))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDeviceView(device))
	}
}

// ListMyDevices returns the caller's active device tokens.
func ListMyDevices(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "device service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		rows, err := svc.ListUserTokens(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDeviceViews(rows))
	}
}

// ListActiveDevices returns every active device token.
// ListActiveDevices pages through every active device, oldest first.
func ListActiveDevices(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "device service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListActivePage(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"devices":    newDeviceViews(page.Devices),
			"nextCursor": page.NextCursor,
		})
	}
}
