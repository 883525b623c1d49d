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
	"github.com/quizpin/clients/internal/identity"
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
	var pin, name string

	cmd := &cobra.Command{
		Use:   "quizplay",
		Short: "Join a live quiz session as a participant",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer log.Sync()
			return runParticipant(cmd.Context(), cfg, log, pin, name)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "quizpin.yaml", "path to YAML config")
	cmd.Flags().StringVar(&pin, "pin", "", "session pin")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.MarkFlagRequired("pin")
	cmd.MarkFlagRequired("name")
	return cmd
}

func runParticipant(parent context.Context, cfg config.Config, log *zap.Logger, pin, name string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	self, store, err := resolveIdentity(ctx, cfg, log, pin, name)
	if err != nil {
		return err
	}
	fmt.Printf("joined session %s as %s\n", self.SessionPin, self.ParticipantName)

	ch := channel.New(log)
	p := client.NewParticipant(ctx, client.ParticipantConfig{
		Pin:           self.SessionPin,
		ParticipantID: self.ParticipantID,
		Channel:       ch,
		Clock:         clockwork.NewRealClock(),
		Logger:        log,
	})
	defer p.Shutdown()

	if cfg.Reconnect.Enabled {
		rec := channel.NewReconnector(ch, cfg.SessionWSURL(self.SessionPin), clockwork.NewRealClock(), log)
		rec.SetInterval(cfg.ReconnectInterval(channel.DefaultReconnectInterval))
		go rec.Run(ctx)
	} else {
		if err := ch.Dial(ctx, cfg.SessionWSURL(self.SessionPin)); err != nil {
			return err
		}
		defer ch.Close()
	}

	snapshots := make(chan client.Snapshot, 16)
	p.Subscribe("cli", snapshots)
	go renderParticipant(snapshots, self.ParticipantID)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" {
			break
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Println("type the number of your answer, or quit")
			continue
		}
		view := p.View()
		if view.State.Active == nil || n < 1 || n > len(view.State.Active.Choices) {
			fmt.Println("no such choice")
			continue
		}
		p.SubmitAnswer(view.State.Active.Choices[n-1].ID)
		if ctx.Err() != nil {
			break
		}
	}
	_ = store.Save(self)
	return scanner.Err()
}

// resolveIdentity resumes a previously stored identity for the same pin, or
// joins fresh through the API and stores the result.
func resolveIdentity(ctx context.Context, cfg config.Config, log *zap.Logger, pin, name string) (identity.Identity, *identity.Store, error) {
	path, err := identity.DefaultPath()
	if err != nil {
		return identity.Identity{}, nil, err
	}
	store := identity.NewStore(path)

	if self, ok, err := store.Resume(pin); err == nil && ok {
		log.Info("resuming stored identity",
			zap.String("participant_id", self.ParticipantID),
			zap.String("pin", pin))
		return self, store, nil
	}

	cli := api.New(cfg.APIBaseURL, api.Credentials{}, log)
	joined, err := cli.JoinByPin(ctx, name, pin)
	if err != nil {
		return identity.Identity{}, nil, fmt.Errorf("join failed: %w", err)
	}

	self := identity.Identity{
		ParticipantID:   joined.Participant.ID.String(),
		SessionPin:      joined.Session.Pin,
		ParticipantName: joined.Participant.Name,
	}
	if err := store.Save(self); err != nil {
		log.Warn("could not persist identity", zap.Error(err))
	}
	return self, store, nil
}

func renderParticipant(snapshots <-chan client.Snapshot, selfID string) {
	var lastQuestion string
	var lastPhase engine.Phase
	var lastError string
	answeredShown := false

	for snap := range snapshots {
		s := snap.State
		if s.Phase != lastPhase {
			lastPhase = s.Phase
			switch s.Phase {
			case engine.PhaseWaiting:
				fmt.Println("-- waiting for the next question")
			case engine.PhaseEnded:
				fmt.Println("-- quiz ended, thanks for playing")
				printLeaderboard(s, selfID)
			}
		}
		if s.LastError != "" && s.LastError != lastError {
			lastError = s.LastError
			fmt.Printf("-- error: %s\n", s.LastError)
		}

		if s.Active != nil && s.Active.ID != lastQuestion {
			lastQuestion = s.Active.ID
			answeredShown = false
			fmt.Printf("\n%s\n", s.Active.Text)
			for i, c := range s.Active.Choices {
				fmt.Printf("  %d) %s\n", i+1, c.Text)
			}
		}
		if s.Active != nil && s.Phase == engine.PhaseQuestionActive {
			fmt.Printf("\r%2ds remaining ", s.Remaining)
			if s.HasAnswered && !answeredShown {
				answeredShown = true
				if s.Remaining > 0 {
					fmt.Println("\n-- answer submitted, waiting for results")
				} else {
					fmt.Println("\n-- time's up")
				}
			}
		}
	}
}

func printLeaderboard(s engine.State, selfID string) {
	for _, e := range s.Ranked() {
		marker := "  "
		if e.ParticipantID == selfID {
			marker = "> "
		}
		fmt.Printf("%s%2d. %-20s %d\n", marker, e.Rank, e.Name, e.Score)
	}
}
