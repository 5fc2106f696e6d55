package main

import (
	"fmt"

	"ekokampus/bounty"
	"ekokampus/config"
	"ekokampus/database"
	"ekokampus/detective"
	"ekokampus/events"
	"ekokampus/fillmodel"
	"ekokampus/handlers"
	"ekokampus/metrics"
	"ekokampus/rabbitmq"
	"ekokampus/rewards"
	"ekokampus/settings"
	"ekokampus/verifier"
	"ekokampus/vetting"

	"github.com/apex/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	EndPointHealth           = "/health"
	EndPointMetrics          = "/metrics"
	EndPointReport           = "/report"
	EndPointVote             = "/vote"
	EndPointEmptyBin         = "/empty_bin"
	EndPointGetBin           = "/bin/:id"
	EndPointBinBounties      = "/bin/:id/bounties"
	EndPointGetUser          = "/user/:id"
	EndPointAdminSetting     = "/admin/setting"
	EndPointClaimBounty      = "/claim_bounty"
	EndPointDetectiveReport  = "/detective_report"
	EndPointConfirmDetective = "/confirm_detective"
)

func main() {
	cfg := config.Load()

	log.Info("Starting the consensus engine...")

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	metrics.Register()

	// Stores and shared services.
	reportStore := database.NewReportStore(db)
	voteStore := database.NewVoteStore(db)
	userStore := database.NewUserStore(db)
	binStore := database.NewBinStore(db)
	bountyStore := database.NewBountyStore(db)
	detectiveStore := database.NewDetectiveStore(db)
	ledger := database.NewLedger(db)
	settingsService := settings.NewService(db)

	fill := fillmodel.New(binStore, ledger, settingsService)
	rewardsService := rewards.New(ledger, settingsService)

	// Resolution side effects run inside the resolving transaction.
	dispatcher := events.NewDispatcher()
	dispatcher.Subscribe("rewards", rewardsService.OnReportResolved)

	var notifier vetting.Notifier
	if cfg.AMQPURL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.ExchangeName, cfg.RoutingKey)
		if err != nil {
			log.Warnf("RabbitMQ unavailable, resolved-report notifications disabled: %v", err)
		} else {
			defer publisher.Close()
			notifier = publisher
		}
	}

	var verifierClient verifier.Client
	if cfg.GeminiAPIKey != "" {
		verifierClient = verifier.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.VerifyTimeout)
	} else {
		log.Warn("GEMINI_API_KEY not set, using stub photo verifier")
		verifierClient = verifier.NewStub()
	}

	coordinator := vetting.NewCoordinator(db, reportStore, voteStore, userStore, binStore,
		fill, settingsService, dispatcher, notifier)
	bountyService := bounty.New(db, bountyStore, ledger, rewardsService)
	detectiveService := detective.New(db, detectiveStore, ledger, rewardsService, settingsService)

	sweep := vetting.NewSweep(coordinator, reportStore, settingsService, cfg.SweepInterval)
	sweep.Start()
	defer sweep.Stop()

	decaySweep := fillmodel.NewDecaySweep(db, binStore, fill, cfg.DecayInterval)
	decaySweep.Start()
	defer decaySweep.Stop()

	h := handlers.New(db, reportStore, binStore, userStore, fill, settingsService,
		verifierClient, coordinator, bountyService, detectiveService, cfg.VerifyTimeout)

	router := gin.Default()
	router.Use(cors.Default())

	router.GET(EndPointHealth, h.HealthCheck)
	router.GET(EndPointMetrics, gin.WrapH(promhttp.Handler()))

	apiV3 := router.Group("/api/v3")
	{
		apiV3.POST(EndPointReport, h.SubmitReport)
		apiV3.POST(EndPointVote, h.CastVote)
		apiV3.POST(EndPointEmptyBin, h.EmptyBin)
		apiV3.GET(EndPointGetBin, h.GetBin)
		apiV3.GET(EndPointBinBounties, h.ListBinBounties)
		apiV3.GET(EndPointGetUser, h.GetUser)
		apiV3.POST(EndPointAdminSetting, h.UpdateSetting)
		apiV3.POST(EndPointClaimBounty, h.ClaimBounty)
		apiV3.POST(EndPointDetectiveReport, h.SubmitDetective)
		apiV3.POST(EndPointConfirmDetective, h.ConfirmDetective)
	}

	log.Infof("Consensus engine listening on port %s", cfg.Port)
	if err := router.Run(fmt.Sprintf(":%s", cfg.Port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
