package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"chatlink/internal/api"
	"chatlink/internal/auth"
	"chatlink/internal/chat"
	"chatlink/internal/config"
	"chatlink/internal/notify"
	"chatlink/internal/queue"
	"chatlink/internal/session"
	"chatlink/internal/store"
	"chatlink/internal/unread"
)

func main() {
	cfg := config.Load()

	db, err := store.Open(cfg.StatePath)
	if err != nil {
		log.Fatalf("Failed to open local state database: %v", err)
	}
	defer db.Close()

	prefs := store.NewPrefsRepo(db)

	// A token handed in via the environment is persisted for next time.
	if envToken := os.Getenv("CHAT_TOKEN"); envToken != "" {
		if err := prefs.SaveToken(context.Background(), envToken); err != nil {
			log.Fatalf("Failed to persist access token: %v", err)
		}
	}
	tokens := auth.NewStoreTokenSource(prefs)

	token, err := tokens.Token()
	if err != nil {
		log.Fatalf("No access token available (set CHAT_TOKEN): %v", err)
	}
	ident, err := auth.IdentityFromToken(token)
	if err != nil {
		log.Fatalf("Could not read identity from token: %v", err)
	}

	toasts := notify.LogToaster{}
	notifier := notify.New(notify.TerminalDesktop{}, prefs, toasts)
	client := api.New(cfg, tokens)

	q := queue.New(store.NewQueueRepo(db), toasts, cfg.RetrySweepSpec)
	registry := chat.NewRegistry(cfg.MaxReconnectAttempts)
	reconnect := chat.NewReconnectManager(registry, toasts)
	transport := chat.NewTransport(cfg, registry, reconnect, q, client, notifier, toasts, tokens)

	tracker := unread.NewTracker(client, notifier)

	roomID := resolveRoomID()
	typing := session.NewTypingTracker(session.DefaultTypingIdle, func(isTyping bool) {
		transport.SendTyping(roomID, isTyping)
	})
	room := session.NewRoom(roomID, typing)

	unsubscribe := registry.AddStateListener(roomID, func(state chat.ConnectionState) {
		log.Printf("[CHAT] Connection state: %s (attempt %d/%d)",
			state.Status, state.ReconnectAttempts, state.MaxReconnectAttempts)
	})
	defer unsubscribe()

	fmt.Printf("🚀 Joining room %d as user %d (%s)...\n", roomID, ident.UserID, ident.Role)

	err = transport.Connect(roomID, func(event chat.Event) {
		room.Apply(event)
		printEvent(event)
	})
	if err != nil {
		log.Printf("Initial connect failed (reconnect scheduled): %v", err)
	}

	if _, err := tracker.Refresh(context.Background()); err != nil {
		log.Printf("[CHAT] Unread refresh failed: %v", err)
	}

	go readInput(transport, typing, roomID)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	fmt.Println("\nShutdown signal received. Cleaning up...")
	typing.Stop()
	transport.Cleanup(roomID)

	time.Sleep(500 * time.Millisecond)
	fmt.Println("Graceful shutdown complete. Goodnight!")
}

func resolveRoomID() int64 {
	raw := os.Getenv("ROOM_ID")
	if len(os.Args) > 1 {
		raw = os.Args[1]
	}
	roomID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || roomID <= 0 {
		log.Fatalf("ROOM_ID must be a positive integer, got %q", raw)
	}
	return roomID
}

func readInput(transport *chat.Transport, typing *session.TypingTracker, roomID int64) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		typing.Touch()

		outcome, err := transport.SendMessage(context.Background(), line, roomID, nil)
		if err != nil {
			log.Printf("[CHAT] Send rejected: %v", err)
			continue
		}
		log.Printf("[CHAT] Message sent via %s", outcome)
	}
}

func printEvent(event chat.Event) {
	switch e := event.(type) {
	case chat.NewMessage:
		fmt.Printf("[%s] %s: %s\n",
			e.Message.CreatedAt.Format("15:04:05"), e.Message.SenderName, e.Message.Content)
	case chat.MessageDeleted:
		fmt.Printf("(message %s deleted)\n", e.MessageID)
	case chat.MessageUpdated:
		fmt.Printf("(message %s edited: %s)\n", e.MessageID, e.Content)
	case chat.Typing:
		if e.IsTyping {
			fmt.Printf("(%s is typing...)\n", e.UserID)
		}
	}
}
