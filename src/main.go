package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"
	"strconv"

	"taquilla/src/boot"
	"taquilla/src/config"
	"taquilla/src/db"
	"taquilla/src/fulfillment"
	"taquilla/src/inventory"
	"taquilla/src/lib"
	"taquilla/src/middlewares"
	"taquilla/src/notify"
	"taquilla/src/sales"
	"taquilla/src/types"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

var apiPrefix = os.Getenv("API_PREFIX")

var (
	salesStore *sales.Store
	seatStore  *inventory.Store
	artifacts  *fulfillment.Publisher
	jobQueue   *fulfillment.JobQueue
	orch       *fulfillment.Orchestrator
	pool       *fulfillment.Pool
)

var movementStatusValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	// "pending" is the creation default, never a transition target.
	switch types.MovementStatus(value) {
	case types.MOVEMENT_PAID, types.MOVEMENT_CANCELLED:
		return true
	}
	return false
}

var seatStatusValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(types.SeatStatus)
	if !ok {
		return false
	}
	switch value {
	case types.SEAT_AVAILABLE, types.SEAT_RESERVED, types.SEAT_OCCUPIED, types.SEAT_SOLD:
		return true
	}
	return false
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		atoi, err := strconv.ParseBool(mm)
		if err == nil && atoi {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, err.Error())
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func publicRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1 = paymentHandlers(apiv1)
	apiv1 = fulfillmentHandlers(apiv1)
	apiv1 = seatmapHandlers(apiv1)
	return apiv1
}

func internalRoutes(g *gin.Engine) *gin.RouterGroup {
	internal := apiv1Group(g)
	internal.Use(middlewares.VerifySecret)
	internal = jobHandlers(internal)
	return internal
}

// wireServices builds the domain components over a single DB handle so
// tests can hand in a mock instead of a live connection.
func wireServices(conn *gorm.DB) {
	salesStore = sales.NewStore(conn)
	seatStore = inventory.NewStore(conn)
	jobQueue = fulfillment.NewJobQueue(conn)

	bucket := os.Getenv("ARTIFACTS_BUCKET")
	artifacts = fulfillment.NewPublisher(lib.AWSGetS3Client(), lib.GetRedisClient(), bucket)

	mailer := notify.NewMailer()
	orch = fulfillment.NewOrchestrator(salesStore, seatStore, artifacts, mailer, jobQueue, lib.GetRedisClient())

	var sched lib.Scheduler
	if os.Getenv("API_ENV") == "local" {
		sched = lib.NewLocalScheduler(func(ctx context.Context, p *types.JSONB) {
			pool.Drain()
		})
	} else {
		sched = lib.NewAwsScheduler()
	}
	pool = fulfillment.NewPool(jobQueue, orch, sched)
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}
	initLogger()
	log.Printf("Parsing times as %s\n", config.TIME_PARSE_FORMAT)

	conn := boot.InitDb()
	wireServices(conn)
	boot.InitScheduler()
	boot.InitWorkers(jobQueue, pool)
	boot.InitBroker()

	router := setupRouter()

	appHost := os.Getenv("APP_HOST")
	if apiEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization", "x-secret")
		cc.AllowOriginFunc = func(origin string) bool {
			match, _ := regexp.MatchString(appHost, origin)
			if match {
				return true
			}
			match, _ = regexp.MatchString("app:mobile", origin)
			return match
		}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		router.Use(cors.New(cc))
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("movementstatus", movementStatusValidatorFunc)
		v.RegisterValidation("seatstatus", seatStatusValidatorFunc)
	}

	router = maintenanceModeMiddleware(router)

	publicRoutes(router)

	internalRoutes(router)

	stripeWebhookRoute(router)

	defer boot.StopScheduler()
	defer func() {
		d, _ := db.GetDb().DB()
		d.Close()
	}()
	if err := router.Run(":9090"); err != nil {
		log.Fatalf("error starting server: %s", err.Error())
	}
}
