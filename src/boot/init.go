package boot

import (
	"cwms/src/config"
	"cwms/src/db"
	"cwms/src/lib"
	"cwms/src/lib/mailer"
	"cwms/src/models"
	"cwms/src/services"
	"log"
	"time"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Member{},
		&models.Plan{},
		&models.Subscription{},
		&models.SubscriptionHistory{},
		&models.SpaceResource{},
		&models.Booking{},
		&models.BookingCredit{},
		&models.Cohort{},
		&models.Application{},
		&models.ApplicationStatusHistory{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.InvoiceSequence{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitScheduler registers the recurring sweeps: elapsed bookings complete,
// subscriptions roll through expiring, expired and grace period, sent
// invoices past due flip to overdue.
func InitScheduler(cfg *config.AppConfig) {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	gdb := db.GetDb()
	bookings := services.NewBookingService(gdb, cfg)
	subscriptions := services.NewSubscriptionService(gdb, cfg)
	invoices := services.NewInvoiceService(gdb, cfg)

	publish := func(events []services.DomainEvent) {
		pub, err := lib.GetEventPublisher()
		if err != nil {
			log.Printf("[events] Publisher unavailable: %s\n", err.Error())
			return
		}
		services.PublishAll(pub, events)
	}

	jobs := []struct {
		name     string
		interval time.Duration
		task     func()
	}{
		{"complete-elapsed-bookings", 5 * time.Minute, func() {
			n := bookings.CompleteElapsedBookings()
			if n > 0 {
				log.Printf("[bookings] Completed %d elapsed bookings\n", n)
			}
		}},
		{"mark-expiring-subscriptions", 1 * time.Hour, func() {
			events := subscriptions.ProcessExpiringSubscriptions(cfg.ExpiringWindowDays)
			publish(events)
			if !cfg.NotificationsEnabled {
				return
			}
			for _, ev := range events {
				subID, ok := ev.Payload["subscription_id"].(uint)
				if !ok {
					continue
				}
				days, _ := ev.Payload["days_remaining"].(int)
				var sub models.Subscription
				if err := gdb.Where(&models.Subscription{ID: subID}).Preload("Member").Preload("Plan").First(&sub).Error; err != nil {
					continue
				}
				mailer.SendSubscriptionExpiring(sub.Member.Email, sub.Plan.Name, days)
			}
		}},
		{"mark-expired-subscriptions", 1 * time.Hour, func() {
			publish(subscriptions.ProcessExpiredSubscriptions())
		}},
		{"finalize-grace-periods", 1 * time.Hour, func() {
			publish(subscriptions.ProcessGracePeriodExpiration())
		}},
		{"mark-overdue-invoices", 1 * time.Hour, func() {
			publish(invoices.MarkOverdueInvoices())
		}},
	}
	for _, job := range jobs {
		id, err := lib.CreateCronJob(job.name, job.interval, job.task)
		if err != nil {
			log.Printf("Error registering job %s: %s\n", job.name, err.Error())
			continue
		}
		log.Printf("Job ID: %s %s\n", job.name, *id)
	}
	jobsWaitingInQueue := len(sched.Jobs())
	log.Println("Jobs in queue:", jobsWaitingInQueue)
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while shutting stopping Scheduler. Check logs for info")
		return
	}
}

// SeedDefaults inserts the starter plans and a demo resource set when the
// tables are empty. Safe to run on every boot.
func SeedDefaults(cfg *config.AppConfig) {
	gdb := db.GetDb()
	var planCount int64
	if err := gdb.Model(&models.Plan{}).Count(&planCount).Error; err != nil {
		log.Printf("[seed] Error counting plans: %s\n", err.Error())
		return
	}
	if planCount > 0 {
		return
	}
	err := gdb.Transaction(func(tx *gorm.DB) error {
		plans := []models.Plan{
			{Name: "Starter", Slug: "starter", Price: 99, Currency: cfg.DefaultCurrency, DurationDays: 30, GraceDays: 3, Active: true},
			{Name: "Growth", Slug: "growth", Price: 249, Currency: cfg.DefaultCurrency, DurationDays: 30, GraceDays: 5, Active: true},
			{Name: "Resident", Slug: "resident", Price: 599, Currency: cfg.DefaultCurrency, DurationDays: 30, GraceDays: 7, Active: true},
		}
		if err := tx.Create(&plans).Error; err != nil {
			return err
		}
		opens := uint(8 * 60)
		closes := uint(20 * 60)
		hourly := 25.0
		deskDaily := 18.0
		officeMonthly := 1200.0
		officeDaily := 65.0
		resources := []models.SpaceResource{
			{
				Name: "Boardroom A", Slug: "boardroom-a", Type: "meeting_room", Capacity: 12,
				OpensAt: &opens, ClosesAt: &closes, MinDuration: 30, BufferDuration: 15,
				HourlyRate: &hourly, Currency: cfg.DefaultCurrency, Active: true,
			},
			{
				Name: "Hot Desk Row 1", Slug: "hot-desk-row-1", Type: "hot_desk", Capacity: 1,
				OpensAt: &opens, ClosesAt: &closes,
				DailyRate: &deskDaily, Currency: cfg.DefaultCurrency, Active: true,
			},
			{
				Name: "Office 204", Slug: "office-204", Type: "private_office", Capacity: 6,
				DailyRate: &officeDaily, MonthlyRate: &officeMonthly,
				Currency: cfg.DefaultCurrency, Active: true, RequiresApproval: true,
			},
		}
		return tx.Create(&resources).Error
	})
	if err != nil {
		log.Printf("[seed] Error seeding defaults: %s\n", err.Error())
		return
	}
	log.Println("[seed] Seeded default plans and resources")
}
