package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quizpin/clients/internal/api"
	"github.com/quizpin/clients/internal/channel"
	"github.com/quizpin/clients/internal/client"
	"github.com/quizpin/clients/internal/config"
	"github.com/quizpin/clients/internal/engine"
	"github.com/quizpin/clients/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "quizhost",
		Short: "Host a live quiz session",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "quizpin.yaml", "path to YAML config")

	cmd.AddCommand(newQuizzesCmd(&configPath))
	cmd.AddCommand(newCreateSessionCmd(&configPath))
	cmd.AddCommand(newRunCmd(&configPath))
	return cmd
}

func setup(configPath string) (config.Config, *zap.Logger, error) {
	_ = godotenv.Load()
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func newQuizzesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "quizzes",
		Short: "List quizzes available to this host",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			cli := api.New(cfg.APIBaseURL, api.Credentials{Token: cfg.Token}, log)
			quizzes, err := cli.ListQuizzes(cmd.Context())
			if err != nil {
				return err
			}
			for _, q := range quizzes {
				fmt.Printf("%s\t%s\n", q.ID, q.Title)
			}
			return nil
		},
	}
}

func newCreateSessionCmd(configPath *string) *cobra.Command {
	var quizID string

	cmd := &cobra.Command{
		Use:   "create-session",
		Short: "Create a live session for a quiz and print its pin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			cli := api.New(cfg.APIBaseURL, api.Credentials{Token: cfg.Token}, log)
			session, err := cli.CreateSession(cmd.Context(), quizID)
			if err != nil {
				return err
			}
			fmt.Printf("session pin: %s\n", session.Pin)
			return nil
		},
	}
	cmd.Flags().StringVar(&quizID, "quiz", "", "quiz id")
	cmd.MarkFlagRequired("quiz")
	return cmd
}

func newRunCmd(configPath *string) *cobra.Command {
	var pin, quizID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Join a session as its host and drive it interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			return runHost(cmd.Context(), cfg, log, pin, quizID)
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "session pin")
	cmd.Flags().StringVar(&quizID, "quiz", "", "quiz id the session was created for")
	cmd.MarkFlagRequired("pin")
	cmd.MarkFlagRequired("quiz")
	return cmd
}

func runHost(parent context.Context, cfg config.Config, log *zap.Logger, pin, quizID string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds := api.Credentials{Token: cfg.Token}
	cli := api.New(cfg.APIBaseURL, creds, log)
	questions, err := cli.ListQuestions(ctx, quizID)
	if err != nil {
		return fmt.Errorf("loading questions: %w", err)
	}
	if len(questions) == 0 {
		return fmt.Errorf("quiz %s has no questions", quizID)
	}

	ch := channel.New(log)
	host := client.NewHost(ctx, client.HostConfig{
		Pin:         pin,
		Credentials: creds,
		Channel:     ch,
		Clock:       clockwork.NewRealClock(),
		Logger:      log,
	})
	defer host.Shutdown()

	if cfg.Reconnect.Enabled {
		rec := channel.NewReconnector(ch, cfg.SessionWSURL(pin), clockwork.NewRealClock(), log)
		rec.SetInterval(cfg.ReconnectInterval(channel.DefaultReconnectInterval))
		go rec.Run(ctx)
	} else {
		if err := ch.Dial(ctx, cfg.SessionWSURL(pin)); err != nil {
			return err
		}
		defer ch.Close()
	}

	snapshots := make(chan client.Snapshot, 16)
	host.Subscribe("cli", snapshots)
	go renderHost(snapshots)

	fmt.Println("commands: list | push <n> | board | end | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "list":
			for i, q := range questions {
				fmt.Printf("%d: %s (%ds)\n", i+1, q.Text, q.TimeLimit)
			}
		case "push":
			if len(fields) != 2 {
				fmt.Println("usage: push <n>")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 1 || n > len(questions) {
				fmt.Println("no such question")
				continue
			}
			host.PushQuestion(toEngineQuestion(questions[n-1]))
		case "board":
			printBoard(host.View().State)
		case "end":
			host.EndSession()
		case "quit":
			return nil
		default:
			fmt.Println("commands: list | push <n> | board | end | quit")
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}

func renderHost(snapshots <-chan client.Snapshot) {
	var lastPhase engine.Phase
	var lastError string
	for snap := range snapshots {
		s := snap.State
		if s.Phase != lastPhase {
			lastPhase = s.Phase
			fmt.Printf("-- phase: %s\n", s.Phase)
		}
		if s.LastError != "" && s.LastError != lastError {
			lastError = s.LastError
			fmt.Printf("-- server error: %s\n", s.LastError)
		}
		if s.Phase == engine.PhaseQuestionActive && s.Active != nil {
			fmt.Printf("\r%s  %2ds remaining", s.Active.Text, s.Remaining)
			if s.Remaining == 0 {
				fmt.Println("\n-- time's up")
			}
		}
	}
}

func printBoard(s engine.State) {
	entries := s.Ranked()
	if len(entries) == 0 {
		fmt.Println("no participants yet")
		return
	}
	for _, e := range entries {
		fmt.Printf("%2d. %-20s %d\n", e.Rank, e.Name, e.Score)
	}
}

func toEngineQuestion(q api.Question) engine.Question {
	choices := make([]engine.Choice, 0, len(q.Choices))
	for _, c := range q.Choices {
		choices = append(choices, engine.Choice{
			ID:      c.ID.String(),
			Text:    c.Text,
			Correct: c.IsCorrect,
		})
	}
	return engine.Question{
		ID:           q.ID.String(),
		Text:         q.Text,
		Choices:      choices,
		TimeLimitSec: q.TimeLimit,
	}
}
