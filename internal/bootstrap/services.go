package bootstrap

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pushrelay-backend/internal/devices"
	"github.com/angelmondragon/pushrelay-backend/internal/dispatch"
	"github.com/angelmondragon/pushrelay-backend/internal/notifications"
	"github.com/angelmondragon/pushrelay-backend/internal/preferences"
	"github.com/angelmondragon/pushrelay-backend/internal/topics"
	"github.com/angelmondragon/pushrelay-backend/pkg/config"
	"github.com/angelmondragon/pushrelay-backend/pkg/db"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
	"github.com/angelmondragon/pushrelay-backend/pkg/metrics"
)

// ServiceParams carries the shared clients every binary wires into the domain services.
type ServiceParams struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	// Channel delivers multicast and topic sends; Syncer mirrors topic membership.
	Channel    dispatch.Channel
	Syncer     topics.MembershipSyncer
	Registerer prometheus.Registerer
}

// Services is the assembled domain layer.
type Services struct {
	Devices       devices.Service
	Topics        topics.Service
	Notifications notifications.Service
	Preferences   preferences.Service
}

// NewServices builds repositories and services on top of the shared database client.
func NewServices(params ServiceParams) (*Services, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Channel == nil {
		return nil, errors.New("delivery channel is required")
	}

	gdb := params.DB.DB()
	deviceRepo := devices.NewRepository(gdb)
	topicRepo := topics.NewRepository(gdb)
	notificationRepo := notifications.NewRepository(gdb)

	deviceService, err := devices.NewService(devices.ServiceParams{
		Repository: deviceRepo,
		Tx:         params.DB,
		Logger:     params.Logger,
	})
	if err != nil {
		return nil, err
	}

	topicService, err := topics.NewService(topics.ServiceParams{
		Repository: topicRepo,
		Devices:    deviceRepo,
		Syncer:     params.Syncer,
		Logger:     params.Logger,
	})
	if err != nil {
		return nil, err
	}

	preferenceService, err := preferences.NewService(preferences.ServiceParams{
		Repository: preferences.NewRepository(gdb),
		Logger:     params.Logger,
	})
	if err != nil {
		return nil, err
	}

	dispatchMetrics := metrics.NewDispatchMetrics(params.Registerer)
	resolver, err := dispatch.NewResolver(deviceRepo)
	if err != nil {
		return nil, err
	}
	engine, err := dispatch.NewEngine(dispatch.EngineParams{
		Channel: params.Channel,
		Decorations: dispatch.Decorations{
			WebIcon:  params.Config.Dispatch.WebIcon,
			WebBadge: params.Config.Dispatch.WebBadge,
		},
		MaxBatchSize: params.Config.Dispatch.MaxBatchSize,
		Metrics:      dispatchMetrics,
		Logger:       params.Logger,
	})
	if err != nil {
		return nil, err
	}

	notificationService, err := notifications.NewService(notifications.ServiceParams{
		Resolver:    resolver,
		Engine:      engine,
		Recorder:    notifications.NewRecorder(notificationRepo, params.Logger, dispatchMetrics),
		Aggregator:  notifications.NewAggregator(notificationRepo),
		Topics:      topicService,
		Metrics:     dispatchMetrics,
		Logger:      params.Logger,
		ForceDryRun: params.Config.FeatureFlags.DryRunOnly,
	})
	if err != nil {
		return nil, err
	}

	return &Services{
		Devices:       deviceService,
		Topics:        topicService,
		Notifications: notificationService,
		Preferences:   preferenceService,
	}, nil
}
