package main

import (
	"github.com/qZheng/CavityProof/pkg/logger"
	"github.com/qZheng/CavityProof/pkg/rabbitmq"
)

type OracleConfigJson struct {
	Logger   logger.LoggerConfigJson    `json:"logger"`
	Rabbitmq rabbitmq.RabbimqConfigJson `json:"rabbitmq"`
	RestPort uint16                     `json:"rest_port"`
}

type OracleConfig struct {
	LoggerConf   logger.LoggerConfig
	RabbitmqConf rabbitmq.RabbitmqConfig
	RestPort     uint16
}

func (ocj OracleConfigJson) ConvertToDomain() OracleConfig {
	return OracleConfig{
		LoggerConf:   ocj.Logger.ConvertToDomain(),
		RabbitmqConf: ocj.Rabbitmq.ConvertToDomain(),
		RestPort:     ocj.RestPort,
	}
}

func (oc OracleConfig) GetLoggerConfig() logger.LoggerConfig       { return oc.LoggerConf }
func (oc OracleConfig) GetRabbitmqConfig() rabbitmq.RabbitmqConfig { return oc.RabbitmqConf }
func (oc OracleConfig) GetRestApiPort() uint16                     { return oc.RestPort }
