package main

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"ledger-core/internal/event"
	"ledger-core/internal/handler"
	"ledger-core/internal/model"
	"ledger-core/internal/server"
	"ledger-core/internal/service"
	"ledger-core/internal/service/mq"
	"ledger-core/internal/service/settlement"
	"ledger-core/internal/tax"
	"ledger-core/internal/worker"
	"ledger-core/internal/worker/tasks"
	"ledger-core/pkg/config"
	"ledger-core/pkg/database"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/money"
	"ledger-core/pkg/monitor"
	"ledger-core/pkg/utils/lock"
	"ledger-core/pkg/validator"
)

// @title Ledger Core API
// @version 1.0
// @description Escrow, distribution and payout ledger for the marketplace

// @host localhost:8080
// @BasePath /api/v1
func main() {
	config.Init()
	cfg := config.Global

	logger.Init(cfg.App.Env)
	defer logger.Sync()

	validator.Init()
	monitor.Init()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Kolkata",
		cfg.DB.Host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Port)

	db, err := database.ConnectPostgres(dsn)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	rdb, err := database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}

	// Schema in development comes from AutoMigrate; production uses the
	// migrate CLI against migrations/.
	if cfg.App.Env == "development" {
		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			logger.Fatal("auto migration failed", zap.Error(err))
		}
		logger.Info("schema auto-migrated (dev mode)")
	}

	taxRates := tax.RateTable{
		tax.TDS: money.MustFromString(cfg.Tax.TDSRate),
		tax.GST: money.MustFromString(cfg.Tax.GSTRate),
	}
	commissionRate := money.MustFromString(cfg.Distribution.CommissionRate)
	retentionRate := money.MustFromString(cfg.Distribution.RetentionRate)

	walletSvc := service.NewWalletService(db)
	taxRecordSvc := service.NewTaxRecordService(db)
	escrowSvc := service.NewEscrowService(db, walletSvc, commissionRate, taxRates, cfg.Escrow.SweepBatchSize)
	distributionSvc := service.NewDistributionService(db, walletSvc, taxRecordSvc,
		commissionRate, retentionRate,
		service.CalcPolicy{
			BonusPolicy: service.BonusPolicy(cfg.Distribution.BonusPolicy),
			BonusSource: service.BonusSource(cfg.Distribution.BonusSource),
		},
		cfg.Distribution.RequiresApproval, taxRates)
	templateSvc := service.NewTemplateService(db)

	rail := settlement.NewHTTPRail(cfg.Settlement.BaseURL, cfg.Settlement.APIKey, cfg.Settlement.MerchantID)
	payoutSvc := service.NewPayoutService(db, walletSvc, taxRecordSvc, rail, taxRates,
		money.MustFromString(cfg.Payout.MinAmount), cfg.Payout.SettlementTimeout)

	var producer mq.Producer
	var consumer mq.Consumer
	if cfg.Redis.MQType == "kafka" {
		logger.Info("using kafka message queue")
		producer = mq.NewKafkaProducer(cfg.Kafka.Brokers)
		consumer = mq.NewKafkaConsumer(cfg.Kafka.Brokers, "ledger_core_group")
	} else {
		logger.Info("using redis streams message queue")
		producer = mq.NewRedisProducer(rdb)
		consumer = mq.NewRedisConsumer(rdb, "ledger_core", "ledger-0")
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())

	relay := service.NewRelayService(db, producer)
	go relay.Start(bgCtx)

	notifyClient := worker.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	subscribe(bgCtx, consumer, distributionSvc, notifyClient)

	workerSrv := worker.NewServer(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Worker.Concurrency)
	workerSrv.Start()

	cronSvc := service.NewCronService(lock.NewRedisLock(rdb), escrowSvc, cfg.Escrow.SweepSchedule)
	if err := cronSvc.Start(); err != nil {
		logger.Fatal("cron startup failed", zap.Error(err))
	}

	router := server.NewHTTPRouter(server.Handlers{
		Escrow:       handler.NewEscrowHandler(escrowSvc, cfg.Escrow.AutoReleaseAfter),
		Distribution: handler.NewDistributionHandler(distributionSvc, templateSvc),
		Wallet:       handler.NewWalletHandler(walletSvc, taxRecordSvc),
		Payout:       handler.NewPayoutHandler(payoutSvc),
	})

	app := server.NewApp(cfg.App.HttpPort, router)
	app.OnShutdown(func() {
		bgCancel()
		cronSvc.Stop()
		workerSrv.Stop()
		consumer.Close()
		producer.Close()
		notifyClient.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		rdb.Close()
	})
	app.Run()
}

// subscribe wires the MQ topics: completed service requests seed
// distributions, and our own ledger events fan out as notifications.
func subscribe(ctx context.Context, consumer mq.Consumer, distributionSvc *service.DistributionService, notify *worker.Client) {
	err := consumer.Subscribe(ctx, event.TopicServiceRequestCompleted, func(msg *mq.Message) error {
		var evt event.ServiceRequestCompletedEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			logger.Error("malformed service_request_completed event, dropping",
				zap.String("msg_id", msg.ID), zap.Error(err))
			return nil
		}
		_, err := distributionSvc.CreateFromCompletion(ctx, evt)
		return err
	})
	if err != nil {
		logger.Fatal("subscription failed", zap.Error(err))
	}

	err = consumer.Subscribe(ctx, event.TopicEscrowReleased, func(msg *mq.Message) error {
		var evt event.EscrowReleasedEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return nil
		}
		task, err := tasks.NewEscrowReleasedTask(tasks.EscrowReleasedPayload{
			PaymentID:        evt.PaymentID,
			ServiceRequestID: evt.ServiceRequestID,
			FirmID:           evt.FirmID,
			ProfessionalID:   evt.ProfessionalID,
			Amount:           evt.Amount,
		})
		if err != nil {
			return err
		}
		_, err = notify.Enqueue(task)
		return err
	})
	if err != nil {
		logger.Fatal("subscription failed", zap.Error(err))
	}

	for _, topic := range []string{event.TopicPayoutCompleted, event.TopicPayoutFailed} {
		status := model.PayoutCompleted
		if topic == event.TopicPayoutFailed {
			status = model.PayoutFailed
		}
		err = consumer.Subscribe(ctx, topic, payoutNotifier(notify, status))
		if err != nil {
			logger.Fatal("subscription failed", zap.Error(err))
		}
	}
}

func payoutNotifier(notify *worker.Client, status string) func(msg *mq.Message) error {
	return func(msg *mq.Message) error {
		var evt event.PayoutFailedEvent // superset field-wise of the completed event
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return nil
		}
		task, err := tasks.NewPayoutStatusTask(tasks.PayoutStatusPayload{
			PayoutID:  evt.PayoutID,
			OwnerType: evt.OwnerType,
			OwnerID:   evt.OwnerID,
			Status:    status,
			NetAmount: evt.NetAmount,
			Reason:    evt.Reason,
		})
		if err != nil {
			return err
		}
		_, err = notify.Enqueue(task)
		return err
	}
}
