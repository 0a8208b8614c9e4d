package redis

import (
	"fmt"
	"strings"

	rd "github.com/go-redis/redis/v9"
	"github.com/spaolacci/murmur3"
)

type Config struct {
	Addrs          []string
	Namespace      string
	PartitionCount int
}

type baseDao struct {
	redisClient    rd.UniversalClient
	namespace      string
	partitionCount int
}

func newBaseDao(conf Config) *baseDao {
	redisClient := rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs: conf.Addrs,
	})
	partitions := conf.PartitionCount
	if partitions <= 0 {
		partitions = 1
	}
	return &baseDao{
		redisClient:    redisClient,
		namespace:      conf.Namespace,
		partitionCount: partitions,
	}
}

func (bs *baseDao) getNamespaceKey(args ...string) string {
	return fmt.Sprintf("%s:%s", bs.namespace, strings.Join(args, ":"))
}

func (bs *baseDao) getPartition(key string) int {
	return int(murmur3.Sum32([]byte(key)) % uint32(bs.partitionCount))
}
