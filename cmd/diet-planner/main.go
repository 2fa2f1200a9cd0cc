package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ai-diet-planner/internal/app"
	"ai-diet-planner/internal/config"
	"ai-diet-planner/internal/diet"
	"ai-diet-planner/internal/session"
	"ai-diet-planner/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	app.SetupLogging(cfg.LogLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		addr := serveCmd.String("addr", ":"+cfg.Port, "Listen address")
		secure := serveCmd.Bool("secure-cookie", false, "Mark the client cookie Secure")
		serveCmd.Parse(os.Args[2:])

		if err := serve(cfg, *addr, *secure); err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case "generate":
		genCmd := flag.NewFlagSet("generate", flag.ExitOnError)
		profilePath := genCmd.String("profile", "profile.yaml", "YAML profile to generate a plan for")
		xlsxPath := genCmd.String("xlsx", "", "Also save the plan as a workbook at this path")
		genCmd.Parse(os.Args[2:])

		if err := generate(cfg, *profilePath, *xlsxPath); err != nil {
			log.Fatal().Err(err).Msg("Generation failed")
		}
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		application, err := app.Open(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open application")
		}
		defer application.Close()

		affected, err := application.Metrics().Cleanup(context.Background(), *days)
		if err != nil {
			log.Fatal().Err(err).Msg("Cleanup failed")
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func serve(cfg *config.Config, addr string, secure bool) error {
	if err := cfg.RequireServer(); err != nil {
		return err
	}

	application, err := app.Open(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	sessions := session.NewManager()
	srv := web.NewServer(application, sessions, session.NewCookies(cfg.SessionSecret, cfg.SessionTTL, secure))
	httpSrv := srv.HTTPServer(addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("transport", cfg.GeminiTransport).Msg("Diet planner listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sessions.Run(gCtx, cfg.SessionIdle, time.Minute)
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exiting")
	return nil
}

func generate(cfg *config.Config, profilePath, xlsxPath string) error {
	profile, err := diet.LoadProfile(profilePath)
	if err != nil {
		return err
	}

	application, err := app.Open(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	plan, err := application.GeneratePlan(context.Background(), app.SurfaceCLI, profile, cfg.GeminiAPIKey)
	if err != nil {
		return err
	}
	app.PrintPlan(os.Stdout, plan)

	if xlsxPath != "" {
		if err := application.Exporter().Save(xlsxPath, plan); err != nil {
			return err
		}
		log.Info().Str("path", xlsxPath).Msg("Plan saved")
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: diet-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  serve              Run the web diet planner")
	fmt.Println("  generate           Generate a plan for a YAML profile using GEMINI_API_KEY")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}
