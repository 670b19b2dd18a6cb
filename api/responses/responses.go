package responses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
	"github.com/angelmondragon/pushrelay-backend/pkg/types"
)

// passthroughCodes surface the service message to the caller instead of the generic public one.
var passthroughCodes = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:     true,
	pkgerrors.CodeForbidden:      true,
	pkgerrors.CodeUnauthorized:   true,
	pkgerrors.CodeNotFound:       true,
	pkgerrors.CodeConflict:       true,
	pkgerrors.CodeIdempotency:    true,
	pkgerrors.CodeRateLimit:      true,
	pkgerrors.CodeChannelFailure: true,
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps err onto its code metadata. Client errors log at warn, server errors at error
// with the unwrapped chain and any database error fields.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if m := typed.Message(); m != "" && passthroughCodes[typed.Code()] {
		msg = m
	}

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:      string(typed.Code()),
			Message:   msg,
			Retryable: meta.Retryable,
		},
	}
	if meta.DetailsAllowed {
		payload.Error.Details = typed.Details()
	}

	if logg != nil {
		logError(ctx, logg, err, meta.HTTPStatus)
	}
	writeJSON(w, meta.HTTPStatus, payload)
}

func logError(ctx context.Context, logg *logger.Logger, err error, status int) {
	dump := pkgerrors.Dump(err)
	fields := map[string]any{
		"status":     status,
		"error_code": dump.Code,
	}
	if status < http.StatusInternalServerError {
		ctx = logg.WithFields(ctx, fields)
		logg.Warn(ctx, "request.rejected: "+dump.TopMessage)
		return
	}

	fields["error_chain"] = dump.Chain
	if dump.DBCode != "" {
		fields["db_code"] = dump.DBCode
		fields["db_message"] = dump.DBMessage
		fields["db_detail"] = dump.DBDetail
		fields["db_table"] = dump.DBTable
		fields["db_constraint"] = dump.DBConstraint
	}
	ctx = logg.WithFields(ctx, fields)
	logg.Error(ctx, "request.error", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fmt.Fprintf(os.Stderr, `{"level":"error","message":"failed to encode response","error":%q}`+"\n", err.Error())
	}
}
