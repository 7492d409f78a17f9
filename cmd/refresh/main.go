// refresh отправляет операторскую команду дашборду через kafka
// пример: go run ./cmd/refresh -command invalidate_all -by ops
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/asquebay/order-stats-service/internal/config"
	"github.com/asquebay/order-stats-service/internal/lib/logger"
	"github.com/asquebay/order-stats-service/internal/model"

	"github.com/segmentio/kafka-go"
)

func main() {
	var (
		configPath = flag.String("config", config.PathFromEnv(), "path to config.yaml")
		brokers    = flag.String("brokers", "", "comma-separated broker list, overrides config")
		topic      = flag.String("topic", "", "command topic, overrides config")
		command    = flag.String("command", model.CommandInvalidateAll, "invalidate_all or refresh")
		by         = flag.String("by", os.Getenv("USER"), "who requested the command")
	)
	flag.Parse()

	log := logger.New("info", "text")

	// конфиг необязателен: адреса можно передать флагами
	kafkaCfg := config.Kafka{Brokers: []string{"localhost:9092"}, Topic: "dashboard-commands"}
	if cfg, err := config.Load(*configPath); err == nil {
		if len(cfg.Kafka.Brokers) > 0 {
			kafkaCfg.Brokers = cfg.Kafka.Brokers
		}
		kafkaCfg.Topic = cfg.Kafka.Topic
	} else {
		log.Warn("config not loaded, using flags and defaults", slog.String("error", err.Error()))
	}
	if *brokers != "" {
		kafkaCfg.Brokers = strings.Split(*brokers, ",")
	}
	if *topic != "" {
		kafkaCfg.Topic = *topic
	}

	cmd := model.Command{
		Command:     *command,
		RequestedBy: *by,
		RequestedAt: time.Now().UTC(),
	}
	if err := cmd.Validate(); err != nil {
		log.Error("invalid command", slog.String("error", err.Error()))
		os.Exit(2)
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		log.Error("failed to marshal command", slog.String("error", err.Error()))
		os.Exit(1)
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(kafkaCfg.Brokers...),
		Topic:    kafkaCfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("sending command",
		slog.String("command", cmd.Command),
		slog.String("topic", kafkaCfg.Topic),
		slog.Any("brokers", kafkaCfg.Brokers),
	)
	if err := writer.WriteMessages(ctx, kafka.Message{Key: []byte(cmd.Command), Value: payload}); err != nil {
		log.Error("failed to write message", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("command sent")
}
