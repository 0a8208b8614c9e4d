package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/model"
	"github.com/taskweave/taskweave/persistence"
	"github.com/taskweave/taskweave/util"
	"go.uber.org/zap"
)

const DEFINITION_KEY string = "DEF"

var _ persistence.DefinitionStorage = new(redisDefinitionDao)

type redisDefinitionDao struct {
	baseDao
	encoderDecoder util.EncoderDecoder[model.Definition]
}

func NewRedisDefinitionDao(conf Config) *redisDefinitionDao {
	return &redisDefinitionDao{
		baseDao:        *newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.Definition](),
	}
}

func (rdd *redisDefinitionDao) Save(def model.Definition) (*model.Definition, error) {
	key := rdd.getNamespaceKey(DEFINITION_KEY)
	ctx := context.Background()
	data, err := rdd.encoderDecoder.Encode(def)
	if err != nil {
		return nil, err
	}
	if err := rdd.redisClient.HSet(ctx, key, []string{def.Id, string(data)}).Err(); err != nil {
		logger.Error("error in saving definition", zap.String("definitionId", def.Id), zap.Error(err))
		return nil, persistence.StorageLayerError{}
	}
	return &def, nil
}

func (rdd *redisDefinitionDao) Update(def model.Definition) error {
	if _, err := rdd.Get(def.Id); err != nil {
		return err
	}
	_, err := rdd.Save(def)
	return err
}

func (rdd *redisDefinitionDao) Get(id string) (*model.Definition, error) {
	key := rdd.getNamespaceKey(DEFINITION_KEY)
	ctx := context.Background()
	defStr, err := rdd.redisClient.HGet(ctx, key, id).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "definition", Id: id}
		}
		logger.Error("error in getting definition", zap.String("definitionId", id), zap.Error(err))
		return nil, persistence.StorageLayerError{}
	}
	return rdd.encoderDecoder.Decode([]byte(defStr))
}

func (rdd *redisDefinitionDao) List() ([]model.Definition, error) {
	key := rdd.getNamespaceKey(DEFINITION_KEY)
	ctx := context.Background()
	defMap, err := rdd.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		logger.Error("error in listing definitions", zap.Error(err))
		return nil, persistence.StorageLayerError{}
	}
	defs := make([]model.Definition, 0, len(defMap))
	for _, data := range defMap {
		def, err := rdd.encoderDecoder.Decode([]byte(data))
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	return defs, nil
}
