package bootstrap

import (
	"askdocs-be/internal/config"
	"askdocs-be/internal/controller"
	"askdocs-be/internal/pkg/logger"
	"askdocs-be/internal/repository/memory"
	"askdocs-be/internal/repository/unitofwork"
	"askdocs-be/internal/service"
	"askdocs-be/pkg/answer"
	"askdocs-be/pkg/index/master"
	"askdocs-be/pkg/index/openaiprovider"
	"askdocs-be/pkg/index/readiness"
	"askdocs-be/pkg/index/routing"
	"askdocs-be/pkg/index/scoped"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatbotController  controller.IChatbotController
	DocumentController controller.IDocumentController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Search Provider + Index Components
	providerClient := openaiprovider.NewClient(cfg.Keys.OpenAI, cfg.Ai.Model)

	waiter := readiness.NewWaiter(providerClient, sysLogger)
	masterManager := master.NewManager(providerClient, sysLogger)
	scopedCache := scoped.NewCache(providerClient, waiter, sysLogger)
	queryRouter := routing.NewRouter(providerClient, masterManager, scopedCache, waiter, sysLogger)

	// 4. Answer Generation
	instructionCache := memory.NewInstructionCache(uowFactory, sysLogger)
	generator := answer.NewGenerator(providerClient, instructionCache, sysLogger)

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Keys.MasterSyncTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.MasterSyncTopic,
		uowFactory,
		masterManager,
		sysLogger,
	)

	chatbotService := service.NewChatbotService(uowFactory, queryRouter, generator, sysLogger)
	documentService := service.NewDocumentService(
		uowFactory,
		masterManager,
		providerClient,
		publisherService,
		sysLogger,
	)

	// 6. Controllers
	return &Container{
		ChatbotController:  controller.NewChatbotController(chatbotService),
		DocumentController: controller.NewDocumentController(documentService),

		ConsumerService: consumerService,
	}
}
