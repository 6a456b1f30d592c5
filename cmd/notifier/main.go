package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/sepatuku/internal/config"
	kafkax "github.com/ariefcatur/sepatuku/internal/kafka"
	"github.com/ariefcatur/sepatuku/internal/logging"
	"github.com/ariefcatur/sepatuku/internal/notify"
	"github.com/ariefcatur/sepatuku/internal/orders"
	"github.com/ariefcatur/sepatuku/internal/redisx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required for the notifier")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := &notify.Service{Sender: notify.LogSender{}, QRRenderer: cfg.QRISRendererURL}

	// Redis dedup (opsional; tanpa Redis event bisa terkirim dobel)
	if cfg.RedisAddr != "" {
		rdb, err := redisx.New(ctx, cfg.RedisAddr)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, dedup disabled")
		} else {
			defer rdb.Close()
			svc.Dedup = redisx.NewDeduper(rdb, "notifier")
		}
	}

	consumers := []struct {
		topic   string
		handler kafkax.Handler
	}{
		{orders.TopicOrderCreated, svc.HandleOrderCreated},
		{orders.TopicStockShortfall, svc.HandleStockShortfall},
	}

	var wg sync.WaitGroup
	for _, c := range consumers {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, c.topic, cfg.NotifierWorkers)
		wg.Add(1)
		go func(topic string, h kafkax.Handler) {
			defer wg.Done()
			log.WithFields(log.Fields{
				"group":   cfg.NotifierGroup,
				"topic":   topic,
				"workers": cfg.NotifierWorkers,
			}).Info("notifier consumer started")
			if err := cons.Start(ctx, h); err != nil {
				log.WithError(err).WithField("topic", topic).Error("consumer exit")
				stop()
			}
		}(c.topic, c.handler)
	}

	<-ctx.Done()
	log.Info("shutting down consumers...")
	wg.Wait()
}
