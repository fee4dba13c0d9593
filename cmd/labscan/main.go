package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lab-tracker-backend/config"
	"lab-tracker-backend/internal/logging"
	"lab-tracker-backend/internal/scan"
)

const usage = `Commands:
  start        start the camera
  stop         stop the camera
  <person id>  record an entry or exit by badge number
  quit         exit`

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	// stdout belongs to the kiosk display.
	logger, err := logging.NewWithOutput(cfg.Log.Level, cfg.Log.Format, "labscan", "stderr")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	sc := cfg.Scanner
	source, err := frameSource(sc)
	if err != nil {
		logger.Fatal("no frame source", zap.Error(err))
	}

	feedback := scan.NewFeedback(
		scan.NewTerminalDisplay(os.Stdout),
		scan.CommandChime{Args: sc.ChimeCommand},
		sc.FeedbackDuration,
		logger,
	)
	client := scan.NewClient(sc.ServerURL, time.Duration(sc.RequestTimeoutSeconds)*time.Second)
	session := scan.NewSession(scan.SessionConfig{
		LabName:      sc.LabName,
		PollInterval: sc.PollInterval,
		Resolution:   scan.Resolution{Width: sc.Width, Height: sc.Height},
	}, source, scan.NewQRDecoder(), client, feedback, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println(usage)
	if err := session.Start(ctx); err == nil {
		feedback.Ready(sc.LabName)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			session.Stop()
			return
		case line, ok := <-lines:
			if !ok {
				session.Stop()
				return
			}
			switch cmd := strings.ToLower(strings.TrimSpace(line)); cmd {
			case "quit", "exit":
				session.Stop()
				return
			case "start":
				if err := session.Start(ctx); err == nil {
					feedback.Ready(sc.LabName)
				}
			case "stop":
				session.Stop()
				fmt.Println("Camera stopped")
			default:
				// Outcome is shown by the feedback channel.
				_, _ = session.SubmitManual(ctx, line)
			}
		}
	}
}

func frameSource(sc config.ScannerConfig) (scan.Source, error) {
	switch {
	case sc.CameraURL != "":
		return scan.NewMJPEGSource(sc.CameraURL), nil
	case sc.FrameDir != "":
		return scan.DirSource{Dir: sc.FrameDir}, nil
	default:
		return nil, fmt.Errorf("set scanner.camera_url or scanner.frame_dir")
	}
}
