package main

import (
	"github.com/qZheng/CavityProof/pkg/logger"
	"github.com/qZheng/CavityProof/pkg/rabbitmq"
)

type LedgerConfigJson struct {
	Logger   logger.LoggerConfigJson    `json:"logger"`
	Rabbitmq rabbitmq.RabbimqConfigJson `json:"rabbitmq"`
	RestPort uint16                     `json:"rest_port"`
}

type LedgerConfig struct {
	LoggerConf   logger.LoggerConfig
	RabbitmqConf rabbitmq.RabbitmqConfig
	RestPort     uint16
}

func (lcj LedgerConfigJson) ConvertToDomain() LedgerConfig {
	return LedgerConfig{
		LoggerConf:   lcj.Logger.ConvertToDomain(),
		RabbitmqConf: lcj.Rabbitmq.ConvertToDomain(),
		RestPort:     lcj.RestPort,
	}
}

func (lc LedgerConfig) GetLoggerConfig() logger.LoggerConfig       { return lc.LoggerConf }
func (lc LedgerConfig) GetRabbitmqConfig() rabbitmq.RabbitmqConfig { return lc.RabbitmqConf }
func (lc LedgerConfig) GetRestApiPort() uint16                     { return lc.RestPort }
