package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/skalibog/spothook/internal/analysis/aggregator"
	"github.com/skalibog/spothook/internal/config"
	"github.com/skalibog/spothook/internal/exchange"
	"github.com/skalibog/spothook/internal/journal"
	"github.com/skalibog/spothook/internal/metrics"
	"github.com/skalibog/spothook/internal/notify"
	"github.com/skalibog/spothook/internal/storage"
	"github.com/skalibog/spothook/internal/symbols"
	"github.com/skalibog/spothook/internal/trading"
	"github.com/skalibog/spothook/internal/ui"
	"github.com/skalibog/spothook/pkg/logger"
	"go.uber.org/zap"
)

// Сколько записей журнала держать для UI
const journalKeep = 100

func main() {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	symbolsPath := flag.String("symbols", "", "путь к JSON-конфигурации символов (по умолчанию trading.symbols_file)")
	useTelegram := flag.Bool("telegram", false, "отправлять сделки в Telegram")
	useDiscord := flag.Bool("discord", false, "отправлять сделки в Discord")
	noUI := flag.Bool("no-ui", false, "без терминального интерфейса, логи в консоль")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}
	if *symbolsPath != "" {
		cfg.Trading.SymbolsFile = *symbolsPath
	}
	withUI := cfg.UI.Enabled && !*noUI

	if err := logger.Init(logger.Config{
		File:     cfg.Log.File,
		JSONFile: cfg.Log.JSONFile,
		Level:    cfg.Log.Level,
		Console:  cfg.Log.Console || !withUI,
		Truncate: withUI,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Завершение по SIGINT/SIGTERM или выходу из UI
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := symbols.Open(cfg.Trading.SymbolsFile)
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации символов", zap.String("path", cfg.Trading.SymbolsFile), zap.Error(err))
	}

	// Инициализируем клиент биржи
	client := exchange.NewBinanceClient(cfg.Binance)

	configs, changed, err := trading.Prepare(ctx, client, store.Configs(), time.Now())
	if err != nil {
		logger.Fatal("Ошибка подготовки символов", zap.Error(err))
	}
	// Файл перезаписывается при каждом старте: так в нем появляются все ключи
	if err := store.SaveAll(configs); err != nil {
		logger.Fatal("Ошибка сохранения конфигурации символов", zap.Error(err))
	}
	if changed {
		logger.Info("Начальные значения символов записаны", zap.String("path", cfg.Trading.SymbolsFile))
	}

	events, err := journal.Open(cfg.Journal.File, journalKeep)
	if err != nil {
		logger.Fatal("Ошибка открытия журнала", zap.Error(err))
	}
	defer events.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	if cfg.Metrics.Enabled {
		server := metrics.NewServer(cfg.Metrics.Address, registry)
		server.Start()
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			server.Stop(stopCtx)
		}()
	}

	dispatcher := notify.NewDispatcher(cfg.Notify.Timeout(), notifiers(cfg, *useTelegram, *useDiscord, !withUI)...)
	dispatcher.OnFailure(m.NotifyFailed)
	defer dispatcher.Wait()

	var recorder storage.Recorder = storage.Nop{}
	if cfg.Storage.Enabled {
		influx, err := storage.NewInfluxDBStorage(ctx, cfg.Storage)
		if err != nil {
			logger.Fatal("Ошибка инициализации хранилища", zap.Error(err))
		}
		recorder = influx
	}
	defer recorder.Close()

	deps := &trading.Deps{
		Exchange:        client,
		Store:           store,
		Journal:         events,
		Notifier:        dispatcher,
		Recorder:        recorder,
		Metrics:         m,
		AverageInterval: cfg.Trading.AverageInterval,
		CallTimeout:     cfg.Trading.StepTimeout(),
	}

	// Создаем агрегатор сигналов для indicator_signal
	signals := aggregator.NewAnalyzer(cfg.Signal)
	sessions, err := trading.NewSessions(configs, deps, func(name string) (trading.Strategy, error) {
		return trading.NewStrategy(name, signals)
	})
	if err != nil {
		logger.Fatal("Ошибка создания торговых сессий", zap.Error(err))
	}
	if len(sessions) == 0 {
		logger.Fatal("Нет включенных символов", zap.String("path", cfg.Trading.SymbolsFile))
	}

	scheduler := trading.NewScheduler(sessions, deps, cfg.Trading.Workers, cfg.Trading.PollInterval())

	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	if withUI {
		userInterface := ui.NewTermUI(cfg.UI, cfg.Log.JSONFile, events)
		scheduler.OnCycle(userInterface.Update)
		if err := userInterface.Run(ctx, cancel); err != nil {
			logger.Error("Ошибка пользовательского интерфейса", zap.Error(err))
			cancel()
		}
	}

	if err := <-done; err != nil {
		logger.Error("Ошибка сохранения конфигурации при остановке", zap.Error(err))
	}
	logger.Info("Бот остановлен")
}

// notifiers каналы уведомлений из флагов и конфигурации
func notifiers(cfg *config.Config, telegram, discord, console bool) []notify.Notifier {
	var out []notify.Notifier
	if console {
		out = append(out, notify.Log{})
	}

	if telegram {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID, "", cfg.Notify.Timeout())
		if err != nil {
			logger.Fatal("Ошибка инициализации Telegram", zap.Error(err))
		}
		out = append(out, tg)
	}

	if discord {
		if cfg.Notify.Discord.Token == "" || cfg.Notify.Discord.ChannelID == "" {
			logger.Fatal("Для Discord нужны notify.discord.token и channel_id")
		}
		out = append(out, notify.NewDiscord(cfg.Notify.Discord.Token, cfg.Notify.Discord.ChannelID, ""))
	}

	return out
}
