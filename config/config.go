package config

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type TransportType string

const TRANSPORT_TYPE_HTTP TransportType = "http"
const TRANSPORT_TYPE_QUEUE TransportType = "queue"

// Config is built once in main and passed by reference to every component.
// There is no ambient global lookup inside engine logic.
type Config struct {
	HttpPort              int
	DeployedUrl           string
	ApiKey                string
	StorageType           StorageType
	TransportType         TransportType
	RedisConfig           RedisConfig
	BatchSize             int
	ConsumerCapacity      int
	PollIntervalSeconds   int
	SandboxTimeoutSeconds int
	AnalyticsConfig       AnalyticsConfig
}

type RedisConfig struct {
	Addrs          []string
	Namespace      string
	PartitionCount int
}

type AnalyticsConfig struct {
	Enabled  bool
	FileName string
}
