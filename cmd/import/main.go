package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/database"
	"github.com/stemsi/exstem-practice/internal/event"
	"github.com/stemsi/exstem-practice/internal/logger"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/queue"
	"github.com/stemsi/exstem-practice/internal/repository"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/session"
	"github.com/stemsi/exstem-practice/internal/storage"
	"golang.org/x/term"
)

// Parses a question paper from a file or stdin and prints the parse report.
// With -create the questions are saved as a test in the configured store.
func main() {
	var (
		file      string
		create    bool
		title     string
		mode      string
		timeLimit int
	)
	flag.StringVar(&file, "file", "", "Text file to import (default: stdin)")
	flag.BoolVar(&create, "create", false, "Save the parsed questions as a test")
	flag.StringVar(&title, "title", model.DefaultTestTitle, "Test title, with -create")
	flag.StringVar(&mode, "mode", "", "Test mode mcq or normal, with -create (default DEFAULT_MODE)")
	flag.IntVar(&timeLimit, "time-limit", 0, "Time limit in seconds, with -create (default DEFAULT_TIME_LIMIT_SEC)")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	// ─── Read Document ─────────────────────────────────────────────────
	raw, err := readDocument(file)
	if errors.Is(err, service.ErrExtractionUnsupported) {
		fmt.Fprintln(os.Stderr, service.PasteGuidance)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read document")
	}

	// ─── Parse ─────────────────────────────────────────────────────────
	report, err := service.NewImportService(cfg).Parse(raw)
	if errors.Is(err, service.ErrNoQuestionsDetected) {
		fmt.Fprintln(os.Stderr, "No questions detected. "+service.NoQuestionsHint)
		os.Exit(1)
	}

	if !create {
		printJSON(report)
		return
	}

	// ─── Persist Test ──────────────────────────────────────────────────
	if mode == "" {
		mode = cfg.DefaultMode
	}
	if mode != string(model.TestModeMCQ) && mode != string(model.TestModeNormal) {
		log.Fatal().Str("mode", mode).Msg("Mode must be mcq or normal")
	}
	if timeLimit == 0 {
		timeLimit = cfg.DefaultTimeLimitSec
	}
	if timeLimit < 0 {
		log.Fatal().Int("time_limit", timeLimit).Msg("Time limit must be positive")
	}

	ctx := context.Background()
	backends, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open record store")
	}
	defer backends.Close()

	// Imports share the server's save path; nothing is exported, so the
	// export queue stays in memory.
	blobs, err := storage.NewFSStore(cfg.ExportDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open export storage")
	}
	publisher, err := event.NewAMQPPublisher(cfg.AMQPURL, config.WorkerKey.EventsExchange, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer publisher.Close()

	practiceService := service.NewPracticeService(
		cfg, repository.NewPracticeRepository(backends.KV), queue.NewMemory(), blobs, publisher, session.Options{}, log,
	)
	defer practiceService.Close()

	test, err := practiceService.ImportTest(ctx, session.TestSpec{
		Title:        title,
		Mode:         model.TestMode(mode),
		TimeLimitSec: timeLimit,
		Questions:    report.Questions,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to save test")
		practiceService.Close()
		publisher.Close()
		backends.Close()
		os.Exit(1)
	}

	log.Info().Str("test_id", test.ID).Int("questions", report.Total).Msg("Test created")
	printJSON(test)
}

// readDocument returns the text of path, or of stdin when path is empty.
// An interactive terminal gets a paste prompt.
func readDocument(path string) (string, error) {
	if path != "" {
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			return "", service.ErrExtractionUnsupported
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "Paste the questions, then press Ctrl-D on an empty line:")
	}
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
