package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"footyreserve/config"
	"footyreserve/services/reservation"

	"github.com/hibiken/asynq"
)

const TypeReservationSweep = "reservation:sweep"

// InitSweepWorker starts the background sweeper: a scheduler enqueues a
// sweep task on a fixed interval and a worker consumes it, releasing
// spots held by abandoned pending payments. The on-demand sweep at
// payment initiation covers hot matches; this covers the rest.
func InitSweepWorker(reservationSvc reservation.ReservationService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSweeperDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReservationSweep, handleSweepTask(reservationSvc))

	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{})
	interval := config.AppConfig.SweepIntervalMin
	if interval <= 0 {
		interval = 5
	}
	spec := fmt.Sprintf("@every %dm", interval)
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeReservationSweep, nil)); err != nil {
		log.Fatalf("[SweepWorker] failed to register sweep schedule: %v", err)
	}

	go func() {
		log.Println("[SweepWorker] starting sweep scheduler...")
		if err := scheduler.Run(); err != nil {
			log.Fatalf("[SweepWorker] scheduler stopped: %v", err)
		}
	}()

	go func() {
		log.Println("[SweepWorker] starting sweep worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[SweepWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[SweepWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleSweepTask(reservationSvc reservation.ReservationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		if err := reservationSvc.SweepAll(ctx); err != nil {
			log.Printf("[SweepHandler] sweep failed: %v", err)
			return err
		}
		return nil
	}
}
