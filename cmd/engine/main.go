package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"leadhunt-engine/internal/browser"
	"leadhunt-engine/internal/config"
	"leadhunt-engine/internal/harvest"
	"leadhunt-engine/internal/pipeline"
	"leadhunt-engine/internal/scheduler"
	"leadhunt-engine/internal/secrets"
	"leadhunt-engine/internal/sms"
	"leadhunt-engine/internal/store"
)

func main() {
	sendSMS := flag.Bool("send-sms", false, "message new leads after harvesting")
	smsOnly := flag.Bool("sms-only", false, "skip harvesting, only message stored leads")
	autopilot := flag.Bool("autopilot", false, "keep running on the configured interval")
	dataDirFlag := flag.String("data-dir", "", "override the data directory")
	flag.Parse()

	// .env is optional; real env vars win over it.
	_ = godotenv.Load()

	// Engine data dir: flag, then env, else local folder.
	dataDir := *dataDirFlag
	if dataDir == "" {
		dataDir = os.Getenv("LEADHUNT_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir; two browsers fighting over one sqlite file
	// ends badly.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("instance lock failed: %v", err)
	}
	if !locked {
		log.Fatalf("another engine instance is already running in %s", dataDir)
	}
	defer lock.Unlock()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	cfg, err := config.Load(userCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	config.OverlayEnv(&cfg)

	cfg, res := config.NormalizeAndValidate(cfg)
	for _, w := range res.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !res.OK() {
		for _, e := range res.Errors {
			log.Printf("[config] error: %s", e)
		}
		log.Fatalf("config invalid (%s)", userCfgPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(filepath.Join(dataDir, "leadhunt.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if *smsOnly {
		if err := dispatchSMS(ctx, db, cfg); err != nil {
			log.Fatal(err)
		}
		return
	}

	runOnce := func(ctx context.Context) error {
		chrome, err := browser.New(ctx, browser.Options{
			Headless:   cfg.Browser.Headless,
			ChromePath: cfg.Browser.ChromePath,
		})
		if err != nil {
			return err
		}
		defer chrome.Close()

		p := &pipeline.Pipeline{
			Drv:  chrome,
			Gate: harvest.NewChallengeGate(harvest.ConsoleResume(os.Stdin, os.Stderr)),
			DB:   db.Pool,
			Cfg:  cfg,
			Pacer: pipeline.NewPacer(2,
				time.Duration(cfg.Delay.MinMillis)*time.Millisecond,
				time.Duration(cfg.Delay.MaxMillis)*time.Millisecond),
		}
		if _, err := p.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		if *sendSMS {
			return dispatchSMS(ctx, db, cfg)
		}
		return nil
	}

	if *autopilot && cfg.Autopilot.IntervalHours > 0 {
		interval := time.Duration(cfg.Autopilot.IntervalHours) * time.Hour
		log.Printf("[engine] autopilot: running every %s", interval)
		scheduler.Every(ctx, interval, 30*time.Minute, "autopilot", runOnce)
		return
	}

	if err := runOnce(ctx); err != nil {
		log.Fatal(err)
	}

	total, unsent, err := store.CountLeads(context.Background(), db.Pool)
	if err == nil {
		log.Printf("[engine] database now holds %d leads (%d awaiting outreach)", total, unsent)
	}
}

func dispatchSMS(ctx context.Context, db *store.DB, cfg config.Config) error {
	if !cfg.SMS.Enabled {
		log.Printf("[sms] disabled in config, skipping dispatch")
		return nil
	}

	token, err := secrets.GetTwilioAuthToken(cfg.SMS.AccountSID)
	if err != nil {
		return err
	}

	pending, err := store.LeadsWithoutSMS(ctx, db.Pool)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		log.Printf("[sms] nothing to send")
		return nil
	}
	log.Printf("[sms] dispatching to %d leads", len(pending))

	sender := sms.NewSender(cfg.SMS.AccountSID, token, cfg.SMS.FromNumber)
	sender.Workers = cfg.SMS.Workers
	sender.Delay = time.Duration(cfg.SMS.DelaySeconds) * time.Second

	targets := make([]sms.Target, 0, len(pending))
	for _, r := range pending {
		targets = append(targets, sms.Target{LeadID: r.ID, Name: r.Name, Phone: r.Phone})
	}

	sent, failed := sender.SendBulk(ctx, targets, cfg.SMS.MessageTemplate, func(tgt sms.Target) {
		// Record on a fresh context so a mid-batch cancel still lands.
		mctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.MarkSMSSent(mctx, db.Pool, tgt.LeadID); err != nil {
			log.Printf("[sms] %v", err)
		}
	})
	log.Printf("[sms] sent %d, failed %d", sent, failed)
	return nil
}
