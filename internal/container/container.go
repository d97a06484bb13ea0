package container

import (
	"fmt"

	"pricematcher/database"
	"pricematcher/internal/config"
	"pricematcher/matching/imaging"
	"pricematcher/server/handlers"
	"pricematcher/server/services"
)

// Container контейнер зависимостей приложения.
// Собирает хранилище, сервисы и обработчики в правильном порядке
// и владеет их временем жизни.
type Container struct {
	Config *config.Config
	DB     *database.DB

	MatchingService     *services.MatchingService
	GroupService        *services.GroupService
	ListingService      *services.ListingService
	PriceHistoryService *services.PriceHistoryService
	ImportService       *services.ImportService

	MatchingHandler *handlers.MatchingHandler
	GroupsHandler   *handlers.GroupsHandler
	ImportHandler   *handlers.ImportHandler
	ListingsHandler *handlers.ListingsHandler
	SystemHandler   *handlers.SystemHandler
}

// NewContainer собирает контейнер по конфигурации
func NewContainer(cfg *config.Config, version string) (*Container, error) {
	db, err := database.NewDBWithConfig(cfg.DatabasePath, database.DBConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть базу данных: %w", err)
	}

	fetcher := imaging.NewFetcher(cfg.Images.Timeout, cfg.Images.RequestsPerSecond)

	matchingService := services.NewMatchingService(db, fetcher, services.MatchingDefaults{
		Threshold:     cfg.Matching.Threshold,
		Workers:       cfg.Matching.Workers,
		TextWeights:   cfg.TextWeights(),
		HybridWeights: cfg.HybridWeights(),
	})
	groupService := services.NewGroupService(db)
	listingService := services.NewListingService(db)
	priceService := services.NewPriceHistoryService(db)
	importService := services.NewImportService(db, priceService, matchingService)

	return &Container{
		Config: cfg,
		DB:     db,

		MatchingService:     matchingService,
		GroupService:        groupService,
		ListingService:      listingService,
		PriceHistoryService: priceService,
		ImportService:       importService,

		MatchingHandler: handlers.NewMatchingHandler(matchingService),
		GroupsHandler:   handlers.NewGroupsHandler(groupService),
		ImportHandler:   handlers.NewImportHandler(importService),
		ListingsHandler: handlers.NewListingsHandler(listingService, priceService),
		SystemHandler:   handlers.NewSystemHandler(db, version),
	}, nil
}

// Close освобождает ресурсы контейнера
func (c *Container) Close() error {
	return c.DB.Close()
}
