package cmd

import (
	"io"
	"net/http"

	"github.com/futurehomeno/cliffhanger/backoff"
	"github.com/futurehomeno/fimpgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/futurehomeno/edge-vwarmup/internal/app"
	"github.com/futurehomeno/edge-vwarmup/internal/config"
	"github.com/futurehomeno/edge-vwarmup/internal/dispatch"
	"github.com/futurehomeno/edge-vwarmup/internal/easee"
	"github.com/futurehomeno/edge-vwarmup/internal/logging"
	"github.com/futurehomeno/edge-vwarmup/internal/metrics"
	"github.com/futurehomeno/edge-vwarmup/internal/poll"
	"github.com/futurehomeno/edge-vwarmup/internal/reconcile"
	"github.com/futurehomeno/edge-vwarmup/internal/report"
	"github.com/futurehomeno/edge-vwarmup/internal/weconnect"
)

const reportSource = "vwarmup"

// services is a container for services that are common dependencies.
var services = &serviceContainer{}

// serviceContainer is a type representing a dependency injection container to be used during bootstrap of the application.
type serviceContainer struct {
	configService *config.Service
	logCloser     io.Closer
	httpClient    *http.Client

	easeeHTTPClient   easee.HTTPClient
	easeeConnector    easee.Connector
	vehicleHTTPClient weconnect.HTTPClient
	vehicleClient     weconnect.Client

	registry        *prometheus.Registry
	metricsRecorder *metrics.Recorder
	mqtt            *fimpgo.MqttTransport
	mqttFailed      bool
	publisher       *report.Publisher

	reconciler  reconcile.Reconciler
	dispatcher  *dispatch.Dispatcher
	pollLoop    *poll.Loop
	application app.Application
}

func resetContainer() {
	services = &serviceContainer{}
}

// closeServices releases the resources held by the container.
func closeServices() {
	if services.mqtt != nil {
		services.mqtt.Stop()
	}

	if services.httpClient != nil {
		services.httpClient.CloseIdleConnections()
	}

	if services.logCloser != nil {
		if err := services.logCloser.Close(); err != nil {
			log.WithError(err).Warn("failed to close the log file")
		}
	}

	resetContainer()
}

// getConfigService returns the configuration service, loading the default configuration when none was set up.
func getConfigService() *config.Service {
	if services.configService == nil {
		cfg, err := config.Load(defaultConfigPath)
		if err != nil {
			log.WithError(err).Fatal("failed to load configuration")
		}

		services.configService = config.NewService(cfg)
	}

	return services.configService
}

// getHTTPClient creates or returns existing HTTP client.
func getHTTPClient() *http.Client {
	if services.httpClient == nil {
		services.httpClient = &http.Client{Timeout: getConfigService().GetHTTPTimeout()}
	}

	return services.httpClient
}

// getEaseeHTTPClient creates or returns existing charger service HTTP client.
func getEaseeHTTPClient() easee.HTTPClient {
	if services.easeeHTTPClient == nil {
		services.easeeHTTPClient = easee.NewHTTPClient(getHTTPClient(), getConfigService().GetEaseeBaseURL())
	}

	return services.easeeHTTPClient
}

// getEaseeConnector creates or returns existing charger session connector.
func getEaseeConnector() easee.Connector {
	if services.easeeConnector == nil {
		cfg := getConfigService().GetAuthBackoffCfg()

		services.easeeConnector = easee.NewConnector(
			getEaseeHTTPClient(),
			backoff.NewStateful(
				cfg.InitialBackoff,
				cfg.RepeatedBackoff,
				cfg.FinalBackoff,
				cfg.InitialFailureCount,
				cfg.RepeatedFailureCount,
			),
		)
	}

	return services.easeeConnector
}

// getVehicleHTTPClient creates or returns existing vehicle service HTTP client.
func getVehicleHTTPClient() weconnect.HTTPClient {
	if services.vehicleHTTPClient == nil {
		services.vehicleHTTPClient = weconnect.NewHTTPClient(getHTTPClient(), getConfigService().GetVehicleBaseURL())
	}

	return services.vehicleHTTPClient
}

// getVehicleClient creates or returns existing vehicle client.
func getVehicleClient() weconnect.Client {
	if services.vehicleClient == nil {
		quiet := logging.NewQuietLogger(log.StandardLogger(), getConfigService().GetSuppressTimerLogs())

		services.vehicleClient = weconnect.NewClient(
			getVehicleHTTPClient(),
			getConfigService(),
			log.NewEntry(log.StandardLogger()),
			log.NewEntry(quiet),
		)
	}

	return services.vehicleClient
}

// getRegistry creates or returns existing metrics registry.
func getRegistry() *prometheus.Registry {
	if services.registry == nil {
		services.registry = prometheus.NewRegistry()
		services.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return services.registry
}

// getMetricsRecorder creates or returns existing metrics recorder.
func getMetricsRecorder() *metrics.Recorder {
	if services.metricsRecorder == nil {
		var err error

		services.metricsRecorder, err = metrics.NewRecorder(getRegistry())
		if err != nil {
			log.WithError(err).Fatal("failed to register metrics")
		}
	}

	return services.metricsRecorder
}

// getMQTT creates, starts or returns existing MQTT transport. Returns nil when reports are disabled.
func getMQTT() *fimpgo.MqttTransport {
	cfg := getConfigService().GetMQTT()

	if cfg.ServerURI == "" || services.mqttFailed {
		return nil
	}

	if services.mqtt == nil {
		transport := fimpgo.NewMqttTransport(
			cfg.ServerURI,
			cfg.ClientIDPrefix,
			cfg.Username,
			cfg.Password,
			true,
			1,
			1,
		)

		if err := transport.Start(); err != nil {
			log.WithError(err).Error("failed to connect to the MQTT broker, outcome reports are disabled")

			services.mqttFailed = true

			return nil
		}

		transport.SetDefaultSource(reportSource)
		services.mqtt = transport
	}

	return services.mqtt
}

// getPublisher creates or returns existing outcome report publisher. Returns nil when reports are disabled.
func getPublisher() *report.Publisher {
	if services.publisher == nil {
		transport := getMQTT()
		if transport == nil {
			return nil
		}

		services.publisher = report.NewPublisher(transport, getConfigService().GetMQTT().Topic)
	}

	return services.publisher
}

// getReconciler creates or returns existing reconciler.
func getReconciler() reconcile.Reconciler {
	if services.reconciler == nil {
		handlers := []reconcile.OutcomeHandler{getMetricsRecorder()}

		if publisher := getPublisher(); publisher != nil {
			handlers = append(handlers, publisher)
		}

		services.reconciler = reconcile.NewReconciler(
			getEaseeConnector(),
			getConfigService(),
			log.NewEntry(log.StandardLogger()),
			handlers...,
		)
	}

	return services.reconciler
}

// getDispatcher creates or returns existing dispatcher.
func getDispatcher() *dispatch.Dispatcher {
	if services.dispatcher == nil {
		services.dispatcher = dispatch.NewDispatcher(
			getReconciler(),
			getConfigService().GetQueueSize(),
			log.NewEntry(log.StandardLogger()),
			getMetricsRecorder(),
		)
	}

	return services.dispatcher
}

// getPollLoop creates or returns existing poll loop.
func getPollLoop() *poll.Loop {
	if services.pollLoop == nil {
		cfg := getConfigService().GetPollBackoffCfg()

		services.pollLoop = poll.NewLoop(
			getVehicleClient(),
			getConfigService().GetPollingInterval(),
			backoff.NewStateful(
				cfg.InitialBackoff,
				cfg.RepeatedBackoff,
				cfg.FinalBackoff,
				cfg.InitialFailureCount,
				cfg.RepeatedFailureCount,
			),
			log.NewEntry(log.StandardLogger()),
			getMetricsRecorder(),
		)
	}

	return services.pollLoop
}

// getApplication creates or returns existing application.
func getApplication() app.Application {
	if services.application == nil {
		services.application = app.New(
			getConfigService(),
			getVehicleClient(),
			getDispatcher(),
			getPollLoop(),
			getRegistry(),
		)
	}

	return services.application
}
