package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joshsymonds/mailsearch/internal/config"
	"github.com/joshsymonds/mailsearch/internal/rate"
	"github.com/joshsymonds/mailsearch/internal/runtime"
	"github.com/joshsymonds/mailsearch/internal/search"
	"github.com/joshsymonds/mailsearch/internal/tool"
)

type searchConfig struct {
	cfgPath        string
	folder         string
	count          int
	query          string
	from           string
	to             string
	subject        string
	hasAttachments bool
	unreadOnly     bool
	inputPath      string
	jsonOut        bool
	verbose        bool
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailsearch failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() searchConfig {
	cfgPath := flag.String("config", config.DefaultPath(), "path to config.yaml")
	folder := flag.String("folder", "inbox", "folder to search")
	count := flag.Int("count", 10, "number of emails to return")
	query := flag.String("query", "", "free-text search term")
	from := flag.String("from", "", "sender to match")
	to := flag.String("to", "", "recipient to match")
	subject := flag.String("subject", "", "subject to match")
	hasAttachments := flag.Bool("has-attachments", false, "only emails with attachments")
	unreadOnly := flag.Bool("unread", false, "only unread emails")
	inputPath := flag.String("input", "", "read the request as JSON from this file ('-' for stdin)")
	jsonOut := flag.Bool("json", false, "print the response envelope as JSON")
	verbose := flag.Bool("verbose", false, "log each strategy attempt")
	flag.Parse()

	return searchConfig{
		cfgPath:        *cfgPath,
		folder:         *folder,
		count:          *count,
		query:          *query,
		from:           *from,
		to:             *to,
		subject:        *subject,
		hasAttachments: *hasAttachments,
		unreadOnly:     *unreadOnly,
		inputPath:      *inputPath,
		jsonOut:        *jsonOut,
		verbose:        *verbose,
	}
}

func run(cfg searchConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.NewLogger(os.Stderr, cfg.verbose)
	appCfg, err := config.Load(cfg.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	loc, err := appCfg.Location()
	if err != nil {
		return err
	}

	input, err := buildInput(cfg)
	if err != nil {
		return err
	}

	limiter, stop := rate.New(appCfg.Rate.RPS)
	defer stop()

	backend, err := runtime.NewBackend(appCfg, limiter, logger)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	creds, err := runtime.NewCredentials(appCfg, backend, logger)
	if err != nil {
		return fmt.Errorf("open credentials: %w", err)
	}

	searcher := search.NewSearcher(backend.Fetcher, appCfg.SearchSettings(), logger)
	handler := tool.NewHandler(creds, backend.Folders, searcher, loc, logger)
	resp := handler.Handle(ctx, input)

	return writeResponse(os.Stdout, resp, cfg.jsonOut)
}

func buildInput(cfg searchConfig) (tool.Input, error) {
	if cfg.inputPath != "" {
		return readInput(cfg.inputPath)
	}
	in := tool.Input{
		Folder:  cfg.folder,
		Count:   cfg.count,
		Query:   cfg.query,
		From:    cfg.from,
		To:      cfg.to,
		Subject: cfg.subject,
	}
	if cfg.hasAttachments {
		in.HasAttachments = &cfg.hasAttachments
	}
	if cfg.unreadOnly {
		in.UnreadOnly = &cfg.unreadOnly
	}
	return in, nil
}

func readInput(path string) (tool.Input, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path) // #nosec G304 - path supplied by the operator
		if err != nil {
			return tool.Input{}, fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	var in tool.Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return tool.Input{}, fmt.Errorf("decode input: %w", err)
	}
	return in, nil
}

func writeResponse(w io.Writer, resp tool.Response, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		return nil
	}
	if _, err := io.WriteString(w, strings.TrimRight(resp.Text(), "\n")+"\n"); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
