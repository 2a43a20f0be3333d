package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sgostarter/i/l"

	"github.com/ivlev/keyframer/internal/config"
	"github.com/ivlev/keyframer/internal/engine"
)

var buildVersion = "dev"

func main() {
	defaults := config.Default()

	configPtr := flag.String("config", "", "YAML-файл настроек (флаги имеют приоритет)")
	projectPtr := flag.String("project", "", "Путь к проекту (по умолчанию: самый свежий *.yaml в -project-dir)")
	projectDirPtr := flag.String("project-dir", defaults.ProjectDir, "Папка с проектами")
	outputPtr := flag.String("output", "", "Путь к PNG-превью (если пусто, генерируется автоматически в output/)")
	widthPtr := flag.Int("width", defaults.Width, "Ширина превью")
	heightPtr := flag.Int("height", defaults.Height, "Высота превью")
	stepPtr := flag.Int("step", defaults.Step, "Шаг выборки траектории в кадрах")
	modePtr := flag.String("mode", defaults.Mode, "Интерполяция: linear, hermite, monotone")
	worldPtr := flag.Bool("world", false, "Рисовать траектории в мировых координатах глобуса")
	workersPtr := flag.Int("workers", defaults.Workers, "Потоки")
	watchPtr := flag.Bool("watch", false, "Следить за файлом проекта и перерисовывать превью")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности")
	exportPtr := flag.String("export-expr", "", "Вывести FFmpeg-выражения для пути (имя пути или zoompan)")
	generatePtr := flag.Bool("generate", false, "Сгенерировать демонстрационный проект облета")
	durationPtr := flag.Float64("duration", defaults.Duration, "Длительность облета для -generate (сек)")
	fpsPtr := flag.Float64("fps", defaults.FPS, "FPS для -generate и zoompan")
	verbosePtr := flag.Bool("v", false, "Подробный лог")

	flag.Parse()

	cfg := defaults
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка конфигурации: %v", err)
		}
		cfg = loaded
		fmt.Printf("[*] Используется конфигурация: %s\n", *configPtr)
	}

	// Явно заданные флаги перекрывают файл настроек
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "project":
			cfg.ProjectPath = *projectPtr
		case "project-dir":
			cfg.ProjectDir = *projectDirPtr
		case "output":
			cfg.OutputImage = *outputPtr
		case "width":
			cfg.Width = *widthPtr
		case "height":
			cfg.Height = *heightPtr
		case "step":
			cfg.Step = *stepPtr
		case "mode":
			cfg.Mode = *modePtr
		case "world":
			cfg.World = *worldPtr
		case "workers":
			cfg.Workers = *workersPtr
		case "watch":
			cfg.Watch = *watchPtr
		case "stats":
			cfg.ShowStats = *statsPtr
		case "export-expr":
			cfg.ExportExpr = *exportPtr
		case "generate":
			cfg.Generate = *generatePtr
		case "duration":
			cfg.Duration = *durationPtr
		case "fps":
			cfg.FPS = *fpsPtr
		}
	})
	cfg.BuildVersion = buildVersion

	logger := l.NewNopLoggerWrapper()
	if *verbosePtr {
		logger = l.NewConsoleLoggerWrapper()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := engine.NewSession(cfg, logger)
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	if err := session.Run(ctx); err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}
}
