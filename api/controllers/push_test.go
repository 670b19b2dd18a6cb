package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/pushrelay-backend/internal/dispatch"
	"github.com/angelmondragon/pushrelay-backend/internal/notifications"
	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
)

type testPushService struct {
	sendFn     func(ctx context.Context, req notifications.SendRequest) (*notifications.SendResponse, error)
	userFn     func(ctx context.Context, userID string, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error)
	tokensFn   func(ctx context.Context, tokens []string, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error)
	topicFn    func(ctx context.Context, topic string, payload dispatch.Payload, dryRun bool) (*dispatch.TopicResult, error)
	platformFn func(ctx context.Context, platform enums.Platform, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error)
	allFn      func(ctx context.Context, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error)
	statsFn    func(ctx context.Context, rng notifications.StatsRange) (*notifications.Stats, error)
}

func (s *testPushService) Send(ctx context.Context, req notifications.SendRequest) (*notifications.SendResponse, error) {
	return s.sendFn(ctx, req)
}

func (s *testPushService) SendToUser(ctx context.Context, userID string, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error) {
	return s.userFn(ctx, userID, payload, dryRun)
}

func (s *testPushService) SendToTokens(ctx context.Context, tokens []string, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error) {
	return s.tokensFn(ctx, tokens, payload, dryRun)
}

func (s *testPushService) SendToTopic(ctx context.Context, topic string, payload dispatch.Payload, dryRun bool) (*dispatch.TopicResult, error) {
	return s.topicFn(ctx, topic, payload, dryRun)
}

func (s *testPushService) SendToPlatform(ctx context.Context, platform enums.Platform, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error) {
	return s.platformFn(ctx, platform, payload, dryRun)
}

func (s *testPushService) SendToAll(ctx context.Context, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error) {
	return s.allFn(ctx, payload, dryRun)
}

func (s *testPushService) Stats(ctx context.Context, rng notifications.StatsRange) (*notifications.Stats, error) {
	return s.statsFn(ctx, rng)
}

func TestSendPushUnified(t *testing.T) {
	svc := &testPushService{
		sendFn: func(ctx context.Context, req notifications.SendRequest) (*notifications.SendResponse, error) {
			if req.Type != enums.TargetPlatform || req.Platform != enums.PlatformIOS {
				t.Fatalf("unexpected request %+v", req)
			}
			if req.Payload.Title != "Hi" || req.Payload.Data["k"] != "v" {
				t.Fatalf("unexpected payload %+v", req.Payload)
			}
			return &notifications.SendResponse{
				Type:      req.Type,
				Success:   true,
				TotalSent: 2,
				Results: []dispatch.Result{
					{Token: "a", Success: true, MessageID: "m1"},
					{Token: "b", Success: true, MessageID: "m2"},
				},
			}, nil
		},
	}

	req := jsonRequest(http.MethodPost, "/api/v1/push/send", `{"type":"platform","platform":"ios","payload":{"title":"Hi","body":"There","data":{"k":"v"}}}`)
	resp := httptest.NewRecorder()
	SendPush(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var body struct {
		Success     bool              `json:"success"`
		TotalSent   int               `json:"totalSent"`
		TotalFailed int               `json:"totalFailed"`
		Results     []dispatch.Result `json:"results"`
	}
	decodeData(t, resp, &body)
	if !body.Success || body.TotalSent != 2 || body.TotalFailed != 0 || len(body.Results) != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestSendPushToUserNotFound(t *testing.T) {
	svc := &testPushService{
		userFn: func(ctx context.Context, userID string, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error) {
			if userID != "user-1" || !dryRun {
				t.Fatalf("unexpected args %s %v", userID, dryRun)
			}
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active device tokens for user")
		},
	}

	req := jsonRequest(http.MethodPost, "/api/v1/push/users/user-1", `{"payload":{"title":"t","body":"b"},"dryRun":true}`)
	req = withURLParams(req, map[string]string{"userId": "user-1"})
	resp := httptest.NewRecorder()
	SendPushToUser(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestSendPushToTokensRequiresTokens(t *testing.T) {
	svc := &testPushService{
		tokensFn: func(ctx context.Context, tokens []string, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	req := jsonRequest(http.MethodPost, "/api/v1/push/tokens", `{"fcmTokens":[],"payload":{"title":"t","body":"b"}}`)
	resp := httptest.NewRecorder()
	SendPushToTokens(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSendPushToTokensReportsPartialFailure(t *testing.T) {
	svc := &testPushService{
		tokensFn: func(ctx context.Context, tokens []string, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error) {
			res := dispatch.Summarize([]dispatch.Result{
				{Token: tokens[0], Success: true, MessageID: "m1"},
				{Token: tokens[1], Error: "registration-token-not-registered"},
			})
			return &res, nil
		},
	}

	req := jsonRequest(http.MethodPost, "/api/v1/push/tokens", `{"fcmTokens":["a","b"],"payload":{"title":"t","body":"b"}}`)
	resp := httptest.NewRecorder()
	SendPushToTokens(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var body dispatch.SendResult
	decodeData(t, resp, &body)
	if !body.Success || body.TotalSent != 1 || body.TotalFailed != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestSendPushToTopicFailureIsReportedInBody(t *testing.T) {
	svc := &testPushService{
		topicFn: func(ctx context.Context, topic string, payload dispatch.Payload, dryRun bool) (*dispatch.TopicResult, error) {
			if topic != "news" {
				t.Fatalf("unexpected topic %s", topic)
			}
			return &dispatch.TopicResult{Error: "quota exceeded"}, nil
		},
	}

	req := jsonRequest(http.MethodPost, "/api/v1/push/topics/news", `{"payload":{"title":"t","body":"b"}}`)
	req = withURLParams(req, map[string]string{"topic": "news"})
	resp := httptest.NewRecorder()
	SendPushToTopic(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var body dispatch.TopicResult
	decodeData(t, resp, &body)
	if body.Success || body.Error != "quota exceeded" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestSendPushToPlatformRejectsUnknownPlatform(t *testing.T) {
	req := jsonRequest(http.MethodPost, "/api/v1/push/platforms/desktop", `{"payload":{"title":"t","body":"b"}}`)
	req = withURLParams(req, map[string]string{"platform": "desktop"})
	resp := httptest.NewRecorder()
	SendPushToPlatform(&testPushService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSendPushToAllChannelFailure(t *testing.T) {
	svc := &testPushService{
		allFn: func(ctx context.Context, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeChannelFailure, errors.New("unavailable"), "push channel rejected batch")
		},
	}

	req := jsonRequest(http.MethodPost, "/api/v1/push/all", `{"payload":{"title":"t","body":"b"}}`)
	resp := httptest.NewRecorder()
	SendPushToAll(svc, testLogger())(resp, req)

	if resp.Code != pkgerrors.MetadataFor(pkgerrors.CodeChannelFailure).HTTPStatus {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp); code != string(pkgerrors.CodeChannelFailure) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestPushStatsParsesRange(t *testing.T) {
	svc := &testPushService{
		statsFn: func(ctx context.Context, rng notifications.StatsRange) (*notifications.Stats, error) {
			if rng.Start == nil || !rng.Start.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
				t.Fatalf("unexpected start %v", rng.Start)
			}
			if rng.End != nil {
				t.Fatalf("expected open end, got %v", rng.End)
			}
			return &notifications.Stats{Total: 3, Sent: 2, Failed: 1}, nil
		},
	}

	resp := httptest.NewRecorder()
	PushStats(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/push/stats?start=2026-03-01", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var body notifications.Stats
	decodeData(t, resp, &body)
	if body.Total != 3 || body.Sent != 2 || body.Failed != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestPushStatsRejectsBadTimestamp(t *testing.T) {
	resp := httptest.NewRecorder()
	PushStats(&testPushService{}, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/push/stats?end=tomorrow", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
