package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/transitlens/internal/config"
	"github.com/sanspareilsmyn/transitlens/internal/sink"
)

// openSinks builds one sink per configured output.
func openSinks(ctx context.Context, cfg config.OutputConfig, runID string, logger *zap.Logger) (*sink.Multi, error) {
	var sinks []sink.Sink
	closeAll := func() {
		_ = sink.NewMulti(sinks...).Close()
	}

	if cfg.SQL.DSN != "" {
		s, err := sink.OpenSQL(ctx, cfg.SQL.Driver, cfg.SQL.DSN, runID, cfg.NullSentinel, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
		logger.Info("SQL output enabled", zap.String("driver", cfg.SQL.Driver))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		w := sink.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.BatchTimeout, logger)
		sinks = append(sinks, sink.NewKafka(w, runID, cfg.NullSentinel, logger))
		logger.Info("Kafka output enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	if cfg.GeoJSONDir != "" {
		g, err := sink.NewGeoJSON(cfg.GeoJSONDir, runID, cfg.NullSentinel, logger)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, g)
		logger.Info("GeoJSON output enabled", zap.String("dir", cfg.GeoJSONDir))
	}
	if len(sinks) == 0 {
		return nil, sink.ErrNoSinks
	}
	return sink.NewMulti(sinks...), nil
}
