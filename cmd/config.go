package main

import "time"

type Config struct {
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	SessionTTL           time.Duration `env:"SESSION_TTL,default=24h"`
	GCInterval           time.Duration `env:"GC_INTERVAL,default=5m"`
	TelemetryInterval    time.Duration `env:"TELEMETRY_INTERVAL,default=30s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	NatsURL              string        `env:"NATS_URL"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
}
