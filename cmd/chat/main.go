package main

import (
	"arstate-chat/ai"
	"arstate-chat/auth"
	"arstate-chat/contract"
	"arstate-chat/domain"
	"arstate-chat/internal"
	"arstate-chat/moderation"
	"arstate-chat/observability"
	"arstate-chat/projection"
	"arstate-chat/repositories"
	"arstate-chat/runtime"
	"arstate-chat/runtime/workers"
	"arstate-chat/search"
	"arstate-chat/services"
	"arstate-chat/storage"
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, drives the interactive client, and
// centralizes error reporting so every defer (database close, index
// close) executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB) & search index
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := search.Open(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		_ = index.Close()
	}()

	// 3. Repositories & collaborators
	messages := repositories.NewMessageRepository(db, log).WithIndexer(index.IndexMessage)
	users := repositories.NewUserRepository(db, log)

	var uploads contract.ObjectStore
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if config.S3Bucket != "" {
		uploads, err = storage.NewS3Store(ctx, config.S3Bucket, config.S3PublicBaseURL, log)
		if err != nil {
			return fmt.Errorf("s3 store: %w", err)
		}
	} else {
		uploads = storage.NewDiskStore(config.UploadDir, log)
	}

	assistant, err := ai.NewClient(log, config.AssistantModel, config.AssistantBaseURL, config.AssistantAPIKey)
	if err != nil {
		return err
	}

	// 4. Engine
	bus := runtime.NewStreamBus(log)
	composer := services.NewComposer(log, messages, uploads, assistant, bus)
	if config.CensoredWords != "" {
		replacement, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return err
		}
		moderator, err := moderation.NewModerator(strings.Split(config.CensoredWords, ","), replacement, log)
		if err != nil {
			return fmt.Errorf("building moderator: %w", err)
		}
		composer.WithModerator(moderator)
	}
	receipts := runtime.NewReadReceiptTracker(messages, log)
	tokens := auth.NewTokenService(config.JWTSecret, config.AuthTokenDuration)
	profiles := services.NewProfileService(users, tokens, log)

	// 5. Supervision & stats
	stats := observability.NewEngineStats(log, config.StatsInterval)
	bus.Subscribe(func(e domain.StreamEvent) {
		if e.Phase == domain.PhaseStart {
			stats.IncrStreamSessions()
		}
	})
	sup := workers.NewSupervisor(log, config.RestartInterval).Add(stats)
	go sup.Run(ctx)
	defer sup.Stop()

	// 6. Interactive client
	client := &client{
		log:      log,
		store:    messages,
		composer: composer,
		profiles: profiles,
		receipts: receipts,
		bus:      bus,
		index:    index,
		stats:    stats,
	}
	return client.repl(ctx)
}

// client is the terminal front end: one logged-in participant, at most
// one open conversation at a time.
type client struct {
	log      *slog.Logger
	store    *repositories.MessageRepository
	composer *services.Composer
	profiles *services.ProfileService
	receipts *runtime.ReadReceiptTracker
	bus      *runtime.StreamBus
	index    *search.Index
	stats    *observability.EngineStats

	me       domain.Participant
	peer     domain.Participant
	feed     *runtime.ConversationFeed
	timeline *projection.Timeline
	unsub    func()
}

func (c *client) repl(ctx context.Context) error {
	session, err := c.profiles.CreateGuest(ctx)
	if err != nil {
		return fmt.Errorf("creating guest account: %w", err)
	}
	c.me = session.Participant
	fmt.Printf("Logged in as %s (%s)\n", c.me.Name, c.me.ID)
	fmt.Println("Commands: /users /open <id> /name <name> /image <path> [caption] /find <terms> /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}
		if err := c.handle(ctx, line); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
	c.closeConversation()
	return scanner.Err()
}

func (c *client) handle(ctx context.Context, line string) error {
	switch {
	case line == "/users":
		participants, err := c.profiles.List(ctx)
		if err != nil {
			return err
		}
		for _, p := range participants {
			fmt.Printf("  %s  %s\n", p.ID, p.Name)
		}
		return nil

	case strings.HasPrefix(line, "/open "):
		return c.openConversation(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/open ")))

	case strings.HasPrefix(line, "/name "):
		return c.profiles.Rename(ctx, c.me.ID, strings.TrimSpace(strings.TrimPrefix(line, "/name ")))

	case strings.HasPrefix(line, "/find"):
		hits, err := c.index.Search(ctx, search.ParseQuery(line))
		if err != nil {
			return err
		}
		for _, h := range hits {
			fmt.Printf("  [%s] %s: %s\n", h.Conversation, h.SenderID, h.Text)
		}
		return nil

	case strings.HasPrefix(line, "/image "):
		return c.sendImage(ctx, strings.TrimPrefix(line, "/image "))

	default:
		return c.sendText(ctx, line)
	}
}

func (c *client) openConversation(ctx context.Context, peerID string) error {
	peer, err := c.profiles.FindByID(ctx, peerID)
	if err != nil {
		return err
	}
	// Close the previous feed first so snapshots never cross-deliver
	// into the wrong view.
	c.closeConversation()

	timeline := projection.NewTimeline(c.me.ID)
	feed, err := runtime.OpenFeed(ctx, c.log, c.store, c.me.ID, peer.ID, func(messages []domain.Message) {
		c.stats.IncrSnapshots()
		timeline.ApplySnapshot(messages)
		c.render(timeline)
	}, c.receipts)
	if err != nil {
		return err
	}
	c.peer = peer
	c.feed = feed
	c.timeline = timeline
	c.unsub = c.bus.Subscribe(func(e domain.StreamEvent) {
		timeline.ApplyStream(e)
		c.render(timeline)
	})
	fmt.Printf("Opened conversation with %s\n", peer.Name)
	return nil
}

func (c *client) closeConversation() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	if c.feed != nil {
		c.feed.Close()
		c.feed = nil
	}
	c.timeline = nil
}

func (c *client) sendText(ctx context.Context, text string) error {
	if c.feed == nil {
		return fmt.Errorf("no open conversation, use /open <id>")
	}
	err := c.composer.Send(ctx, c.feed.Key(), c.me, domain.Draft{Text: text})
	if err == nil {
		c.stats.IncrAppends()
	}
	return err
}

func (c *client) sendImage(ctx context.Context, args string) error {
	if c.feed == nil {
		return fmt.Errorf("no open conversation, use /open <id>")
	}
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	data, err := os.ReadFile(parts[0])
	if err != nil {
		return err
	}
	draft := domain.Draft{Image: &domain.ImageFile{Name: parts[0], Data: data}}
	if len(parts) == 2 {
		draft.Text = parts[1]
	}
	err = c.composer.Send(ctx, c.feed.Key(), c.me, draft)
	if err == nil {
		c.stats.IncrAppends()
	}
	return err
}

func (c *client) render(timeline *projection.Timeline) {
	fmt.Println("----")
	for _, entry := range timeline.Entries() {
		name := entry.Message.Sender.Name
		if entry.Message.Sender.ID == c.me.ID {
			name = "me"
		}
		marker := ""
		if entry.Message.Status == domain.StatusRead && entry.Message.Sender.ID == c.me.ID {
			marker = " ✓✓"
		}
		body := entry.Message.Text
		if entry.Message.ImageRef != "" {
			body = strings.TrimSpace(body + " [image: " + entry.Message.ImageRef + "]")
		}
		fmt.Printf("%s: %s%s\n", name, body, marker)
	}
}
