package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pricematcher/internal/api/routes"
	"pricematcher/internal/config"
	"pricematcher/internal/container"
)

// version версия сервиса, проставляется при сборке через -ldflags
var version = "dev"

func main() {
	log.Println("═══════════════════════════════════════════════════════")
	log.Println("🚀 Запуск сервера сопоставления товаров...")

	configPath := flag.String("config", "", "путь к JSON-файлу конфигурации")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("✗ Ошибка загрузки конфигурации: %v", err)
	}

	c, err := container.NewContainer(cfg, version)
	if err != nil {
		log.Fatalf("✗ Ошибка инициализации приложения: %v", err)
	}
	defer c.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(c),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Сервер слушает на порту %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("✗ КРИТИЧЕСКАЯ ОШИБКА: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Получен сигнал завершения, останавливаем сервер...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Сервер остановлен с ошибкой: %v", err)
	} else {
		log.Println("✅ Сервер остановлен")
	}
}
