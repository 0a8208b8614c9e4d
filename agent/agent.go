package agent

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/taskweave/taskweave/analytics"
	"github.com/taskweave/taskweave/config"
	"github.com/taskweave/taskweave/engine"
	"github.com/taskweave/taskweave/engine/handler"
	"github.com/taskweave/taskweave/engine/sandbox"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/metadata"
	"github.com/taskweave/taskweave/persistence"
	"github.com/taskweave/taskweave/persistence/inmem"
	"github.com/taskweave/taskweave/persistence/redis"
	"github.com/taskweave/taskweave/rest"
	"github.com/taskweave/taskweave/transport"
)

// Agent assembles the engine from config and owns the lifecycle of every
// long-running part: the http server and, on the queue transport, the
// process consumer.
type Agent struct {
	Config            config.Config
	runtimeStorage    persistence.RuntimeStorage
	definitionStorage persistence.DefinitionStorage
	queue             persistence.Queue
	definitionService metadata.DefinitionService
	executionService  *engine.ExecutionService
	processor         *engine.Processor
	consumer          *transport.Consumer
	httpServer        *rest.Server
	shutdown          bool
	shutdownLock      sync.Mutex
	wg                sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config: config,
	}
	setup := []func() error{
		a.setupAnalytics,
		a.setupStorage,
		a.setupServices,
		a.setupTransport,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupAnalytics() error {
	return analytics.InitDataCollector(analytics.DataCollectorConfig{
		Enabled:  a.Config.AnalyticsConfig.Enabled,
		FileName: a.Config.AnalyticsConfig.FileName,
	})
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		rdConf := redis.Config{
			Addrs:          a.Config.RedisConfig.Addrs,
			Namespace:      a.Config.RedisConfig.Namespace,
			PartitionCount: a.Config.RedisConfig.PartitionCount,
		}
		a.runtimeStorage = redis.NewRedisRuntimeDao(rdConf)
		a.definitionStorage = redis.NewRedisDefinitionDao(rdConf)
		a.queue = redis.NewRedisQueue(rdConf)
	case config.STORAGE_TYPE_INMEM:
		a.runtimeStorage = inmem.NewInMemRuntimeStorage()
		a.definitionStorage = inmem.NewInMemDefinitionStorage()
		a.queue = inmem.NewInMemQueue()
	default:
		return fmt.Errorf("unknown storage type %s", a.Config.StorageType)
	}
	return nil
}

func (a *Agent) setupServices() error {
	a.definitionService = metadata.NewDefinitionService(a.definitionStorage)
	return nil
}

func (a *Agent) setupTransport() error {
	sb := sandbox.New(time.Duration(a.Config.SandboxTimeoutSeconds) * time.Second)
	handlers := handler.NewContainer(sb)

	dispatcher, err := transport.NewDispatcher(a.Config, a.queue)
	if err != nil {
		return err
	}
	a.processor = engine.NewProcessor(a.runtimeStorage, handlers, dispatcher)
	a.executionService = engine.NewExecutionService(a.definitionService, a.runtimeStorage, a.processor)

	if a.Config.TransportType == config.TRANSPORT_TYPE_QUEUE {
		a.consumer = transport.NewConsumer(a.queue, a.processor, a.Config.ApiKey,
			a.Config.BatchSize, a.Config.PollIntervalSeconds, a.Config.ConsumerCapacity, &a.wg)
	}
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.Config.ApiKey, a.definitionService, a.executionService)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	if a.consumer != nil {
		a.consumer.Start()
	}
	go func() {
		if err := a.httpServer.Start(); err != nil && err != http.ErrServerClosed {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{
		a.httpServer.Stop,
	}
	if a.consumer != nil {
		shutdown = append(shutdown, func() error {
			a.consumer.Stop()
			return nil
		})
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}
