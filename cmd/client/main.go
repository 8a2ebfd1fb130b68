// Package main is the terminal watch party client. It joins or creates a
// party, runs a simulated media player kept in sync with the host, and
// offers a small command line for chat, host playback control, reactions,
// and the soundboard.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/couchparty/backend/internal/apiclient"
	"github.com/couchparty/backend/internal/models"
	"github.com/couchparty/backend/internal/party"
	"github.com/couchparty/backend/internal/player"
)

func main() {
	var (
		server   = flag.String("server", "http://localhost:8080", "API base URL")
		email    = flag.String("email", "", "account email")
		password = flag.String("password", "", "account password")
		name     = flag.String("name", "", "display name (registers a new account when set)")
		create   = flag.String("create", "", "create a party with this media source")
		join     = flag.String("join", "", "join an existing party by id")
	)
	flag.Parse()

	logger := newLogger()
	defer logger.Sync()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: client -email ... -password ... [-name ...] (-create SOURCE | -join PARTY_ID)")
		os.Exit(1)
	}
	if (*create == "") == (*join == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -create or -join is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := apiclient.New(*server)
	var auth *apiclient.AuthResult
	var err error
	if *name != "" {
		auth, err = api.Register(ctx, *email, *password, *name)
	} else {
		auth, err = api.Login(ctx, *email, *password)
	}
	if err != nil {
		logger.Fatal("auth", zap.Error(err))
	}
	selfID := auth.User.ID

	var p *models.Party
	if *create != "" {
		p, err = api.CreateParty(ctx, *create)
	} else {
		var partyID uuid.UUID
		partyID, err = uuid.Parse(*join)
		if err == nil {
			p, err = api.JoinParty(ctx, partyID)
		}
	}
	if err != nil {
		logger.Fatal("party", zap.Error(err))
	}
	fmt.Printf("party %s (host: %v)\n", p.ID, p.HostID == selfID)

	// Local player seeded from the party document.
	local := player.NewSimulated(p.MediaSource)
	rt := party.NewRuntime(selfID, p.ID, local, api, logger)
	defer rt.Close()
	rt.HandleState(*p)

	// Chat backlog before the live feed, then incremental appends.
	backlog, err := api.Backlog(ctx, p.ID)
	if err != nil {
		logger.Warn("chat backlog", zap.Error(err))
	}
	for _, m := range backlog {
		printChat(m)
	}

	feed := apiclient.NewFeed(*server, p.ID, api.Token(), logger)
	feed.OnState = rt.HandleState
	feed.OnChat = printChat
	feed.OnEvent = func(ev models.PartyEvent) {
		fmt.Printf("*** %s %s\n", ev.Type, string(ev.Payload))
	}
	feed.OnCount = func(n int) { fmt.Printf("--- %d connected\n", n) }
	feed.OnPresence = func(event, who string) {
		if event == "member_joined" {
			fmt.Printf("--- %s connected\n", who)
		} else {
			fmt.Printf("--- %s disconnected\n", who)
		}
	}
	feed.OnEnded = func() {
		fmt.Println("--- the party has ended")
		cancel()
	}
	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("feed stopped", zap.Error(err))
		}
	}()

	go commandLoop(ctx, cancel, api, rt, local, p.ID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	cancel()
}

// commandLoop reads stdin: plain lines are chat, /commands control playback.
func commandLoop(ctx context.Context, cancel context.CancelFunc, api *apiclient.Client, rt *party.Runtime, local *player.Simulated, partyID uuid.UUID) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if _, err := api.SendChat(ctx, partyID, line); err != nil {
				fmt.Println("!", err)
			}
			continue
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "/play":
			requireHost(rt, func() { local.Play() })
		case "/pause":
			requireHost(rt, func() { local.Pause() })
		case "/seek":
			if len(args) != 1 {
				fmt.Println("! usage: /seek SECONDS")
				continue
			}
			secs, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				fmt.Println("! usage: /seek SECONDS")
				continue
			}
			requireHost(rt, func() { local.Seek(secs) })
		case "/media":
			if len(args) != 1 {
				fmt.Println("! usage: /media SOURCE")
				continue
			}
			requireHost(rt, func() {
				if _, err := api.ChangeMedia(ctx, partyID, args[0]); err != nil {
					fmt.Println("!", err)
				}
			})
		case "/react":
			if len(args) != 1 {
				fmt.Println("! usage: /react EMOJI")
				continue
			}
			if _, err := api.TriggerEvent(ctx, partyID, "reaction", map[string]string{"emoji": args[0]}); err != nil {
				fmt.Println("!", err)
			}
		case "/sounds":
			clips, err := api.ListSounds(ctx, partyID)
			if err != nil {
				fmt.Println("!", err)
				continue
			}
			for _, clip := range clips {
				fmt.Printf("  %s  %s\n", clip.ID, clip.Name)
			}
		case "/sound":
			if len(args) != 1 {
				fmt.Println("! usage: /sound CLIP_ID")
				continue
			}
			if _, err := api.TriggerEvent(ctx, partyID, "play_sound", map[string]string{"clip_id": args[0]}); err != nil {
				fmt.Println("!", err)
			}
		case "/status":
			fmt.Printf("--- %s | %s | pos %.1fs | paused %v\n",
				rt.Role(), local.Source(), local.CurrentTime(), local.Paused())
		case "/end":
			requireHost(rt, func() {
				if _, err := api.EndParty(ctx, partyID); err != nil {
					fmt.Println("!", err)
				}
			})
		case "/quit":
			cancel()
			return
		default:
			fmt.Println("! commands: /play /pause /seek /media /react /sounds /sound /status /end /quit")
		}
	}
}

func requireHost(rt *party.Runtime, fn func()) {
	if rt.Role() != party.RoleHost {
		fmt.Println("! host only")
		return
	}
	fn()
}

func printChat(m models.ChatMessage) {
	if m.Kind == models.MessageKindSystem {
		fmt.Printf("--- %s\n", m.Content)
		return
	}
	fmt.Printf("[%s] %s: %s\n", m.SentAt.Format("15:04:05"), m.SenderName, m.Content)
}

func newLogger() *zap.Logger {
	// Development encoder, but quiet: the terminal belongs to the party UI.
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, _ := cfg.Build()
	return logger
}
