package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/taskweave/taskweave/agent"
	"github.com/taskweave/taskweave/config"
	"github.com/taskweave/taskweave/logger"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "taskweave", "namespace used in storage")
	cmd.Flags().Int("partitions", 16, "number of queue partitions")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("deployed-url", "http://localhost:8080", "externally reachable base url of this deployment")
	cmd.Flags().String("api-key", "", "shared api key for the process transport")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().String("transport-impl", "http", "transport used for task continuations")
	cmd.Flags().Int("batch-size", 32, "number of messages popped per poll")
	cmd.Flags().Int("consumer-capacity", 512, "process consumer capacity")
	cmd.Flags().Int("poll-interval", 1, "queue poll interval in seconds")
	cmd.Flags().Int("sandbox-timeout", 10, "script execution timeout in seconds")
	cmd.Flags().String("log-level", "info", "minimum log level")
	cmd.Flags().Bool("analytics-enabled", false, "record per task analytics")
	cmd.Flags().String("analytics-file", "taskweave-analytics.log", "file analytics records are written to")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.RedisConfig.PartitionCount = viper.GetInt("partitions")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.DeployedUrl = viper.GetString("deployed-url")
	c.cfg.ApiKey = viper.GetString("api-key")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.TransportType = config.TransportType(viper.GetString("transport-impl"))
	c.cfg.BatchSize = viper.GetInt("batch-size")
	c.cfg.ConsumerCapacity = viper.GetInt("consumer-capacity")
	c.cfg.PollIntervalSeconds = viper.GetInt("poll-interval")
	c.cfg.SandboxTimeoutSeconds = viper.GetInt("sandbox-timeout")
	c.cfg.AnalyticsConfig.Enabled = viper.GetBool("analytics-enabled")
	c.cfg.AnalyticsConfig.FileName = viper.GetString("analytics-file")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	var err error
	if err = logger.InitLogger(viper.GetString("log-level")); err != nil {
		return err
	}
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "taskweave",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
