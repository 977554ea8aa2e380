package boot

import (
	"log"

	"taquilla/src/db"
	"taquilla/src/fulfillment"
	"taquilla/src/lib"
	"taquilla/src/models"
	"taquilla/src/notify"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.SetupJoinTable(&models.Movement{}, "Tickets", &models.MovementTicket{})
	if err != nil {
		log.Fatalf("error join table setup: %s", err.Error())
	}
	err = db.AutoMigrate(
		&models.Event{},
		&models.Ticket{},
		&models.Movement{},
		&models.VenueLayout{},
		&models.FulfillmentJob{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	sched.Start()
	log.Println("Jobs in queue:", len(sched.Jobs()))
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
	}
}

// InitWorkers requeues jobs interrupted by a previous shutdown and starts
// the delivery pool. Must run after InitScheduler so the poll job lands on
// a live scheduler.
func InitWorkers(queue *fulfillment.JobQueue, pool *fulfillment.Pool) {
	if err := queue.Recover(); err != nil {
		log.Printf("Error recovering interrupted jobs: %s\n", err.Error())
	}
	if err := pool.Start(); err != nil {
		log.Printf("Error starting fulfillment pool: %s\n", err.Error())
	}
}

func InitBroker() {
	go notify.StartConsumer()
}
