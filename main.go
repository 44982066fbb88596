package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"crewboard/api"
	"crewboard/board"
	"crewboard/domain"
	"crewboard/notify"
	"crewboard/scheduler"
	"crewboard/storage"
	"crewboard/store"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tasksTable := os.Getenv("TASKS_TABLE")
	remindersTable := os.Getenv("REMINDERS_TABLE")
	categoriesTable := os.Getenv("CATEGORIES_TABLE")
	contactsTable := os.Getenv("CONTACTS_TABLE")
	if connStr == "" || tasksTable == "" || remindersTable == "" || categoriesTable == "" || contactsTable == "" {
		log.Fatal("missing storage config")
	}
	tables, err := storage.New(connStr, tasksTable, remindersTable, categoriesTable, contactsTable)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	columns := domain.DefaultColumns()
	if v := os.Getenv("BOARD_COLUMNS"); v != "" {
		columns = columns[:0]
		for _, col := range strings.Split(v, ",") {
			col = strings.TrimSpace(col)
			if col != "" {
				columns = append(columns, domain.Status(col))
			}
		}
		if len(columns) == 0 {
			log.Fatal("invalid BOARD_COLUMNS")
		}
	}

	interval := scheduler.DefaultInterval
	if v := os.Getenv("REMINDER_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid REMINDER_INTERVAL: %v", err)
		}
		interval = d
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)

	ttl := 24 * time.Hour
	if v := os.Getenv("DEDUPER_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid DEDUPER_TTL: %v", err)
		}
		ttl = d
	}
	deduper := api.NewRedisDeduper(rc, ttl)

	var auth *api.Auth
	if os.Getenv("AUTH_TEST_MODE") == "1" {
		secret := os.Getenv("TEST_JWT_SECRET")
		if secret == "" {
			log.Fatal("TEST_JWT_SECRET must be set when AUTH_TEST_MODE=1")
		}
		auth = api.NewTestAuth([]byte(secret))
	} else {
		jwtAudience := os.Getenv("AUTH0_AUDIENCE")
		domainName := os.Getenv("AUTH0_DOMAIN")
		if jwtAudience == "" || domainName == "" {
			log.Fatal("missing Auth0 config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domainName)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, jwtAudience, "https://"+domainName+"/")
	}

	// Boot-time load of the entity collections into the in-memory stores.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 2*time.Minute)
	seedTasks, err := tables.LoadTasks(loadCtx)
	if err != nil {
		log.Fatalf("load tasks: %v", err)
	}
	seedReminders, err := tables.LoadReminders(loadCtx)
	if err != nil {
		log.Fatalf("load reminders: %v", err)
	}
	seedCategories, err := tables.LoadCategories(loadCtx)
	if err != nil {
		log.Fatalf("load categories: %v", err)
	}
	seedContacts, err := tables.LoadContacts(loadCtx)
	if err != nil {
		log.Fatalf("load contacts: %v", err)
	}
	cancelLoad()

	tasks := store.NewTaskStore(tables)
	tasks.Load(seedTasks)
	reminders := store.NewReminderStore(tables)
	reminders.Load(seedReminders)
	dir := store.NewDirectory()
	dir.LoadCategories(seedCategories)
	dir.LoadContacts(seedContacts)
	logger.Infof("loaded %d tasks, %d reminders, %d categories, %d contacts",
		len(seedTasks), len(seedReminders), len(seedCategories), len(seedContacts))

	updatesChannel := os.Getenv("UPDATES_CHANNEL")
	if updatesChannel == "" {
		updatesChannel = "board-updates"
	}
	broadcaster := store.NewBroadcaster(rc, updatesChannel, logger)
	detach := broadcaster.Attach(tasks, reminders)
	defer detach()

	var queueClient *azqueue.QueueClient
	if queueName := os.Getenv("NOTIFY_QUEUE"); queueName != "" {
		queueClient, err = azqueue.NewQueueClientFromConnectionString(connStr, queueName, nil)
		if err != nil {
			log.Fatalf("notify queue: %v", err)
		}
	} else {
		logger.Warn("NOTIFY_QUEUE not set, reminder notifications disabled")
	}
	notifier := notify.NewQueueNotifier(queueClient, logger)

	kanban := board.New(columns, tasks, logger)

	sched := scheduler.New(tasks, reminders, notifier, interval, nil, logger)
	sched.Start()
	defer sched.Stop()

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	api.Register(e, kanban, tasks, reminders, dir, auth, deduper, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
