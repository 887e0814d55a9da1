// chatcli - command line participant for the chat server
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

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/client"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/configuration"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/event"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := configuration.LoadClient()
	identity := model.Identity{
		UserID:      cfg.UserID,
		DisplayName: cfg.Username,
		ShopSlug:    cfg.ShopSlug,
	}
	if identity.UserID == "" {
		fmt.Fprintln(os.Stderr, "CHAT_USER_ID is required")
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := client.NewManager(cfg.SocketURL, identity, cfg.Token,
		client.NewHTTPShopLookup(cfg.AppURL),
		client.Config{
			ReconnectDelay: cfg.ReconnectDelay(),
			KeepAlive:      cfg.KeepAlive(),
			Logger:         logger,
		},
		printEvent)
	defer m.Close()

	switch cmd := os.Args[1]; cmd {
	case "chat":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatcli chat <room_id>")
			os.Exit(1)
		}
		chat(ctx, m, os.Args[2])

	case "dm":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatcli dm <peer_user_id>")
			os.Exit(1)
		}
		roomID, _, err := m.OpenDirect(ctx, os.Args[2])
		exitOnError(err)
		chat(ctx, m, roomID)

	case "online":
		m.ConnectPresence()
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
		for _, u := range m.Online() {
			fmt.Printf("  %s  %s\n", u.UserID, u.Username)
		}

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// chat prints the room and posts every stdin line until EOF or a signal.
func chat(ctx context.Context, m *client.Manager, roomID string) {
	timeline, err := m.Open(roomID)
	exitOnError(err)
	m.ConnectPresence()

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = m.WaitOpen(waitCtx, roomID)
	cancel()
	exitOnError(err)

	go printTimeline(ctx, timeline)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := m.Send(roomID, line, model.KindText, nil); err != nil {
				fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			}
		}
	}
}

func printTimeline(ctx context.Context, t *client.Timeline) {
	printed := 0
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		msgs := t.Messages()
		for _, msg := range msgs[min(printed, len(msgs)):] {
			ts := time.UnixMilli(msg.Timestamp).Format("2006-01-02 15:04:05")
			fmt.Printf("[%s] %s: %s\n", ts, msg.SenderName, msg.Preview())
		}
		printed = len(msgs)
	}
}

func printEvent(roomID string, env event.Envelope) {
	switch env.Type {
	case event.TypeGuestNotification:
		fmt.Printf("* %s (guest) in %s: %s\n", env.GuestName, env.RoomID, env.LastMessage)
	case event.TypeDMNotification:
		fmt.Printf("* %s in %s: %s\n", env.SenderName, env.RoomID, env.LastMessage)
	case event.TypePresence:
		fmt.Printf("* %s is %s\n", env.Username, strings.ToLower(string(env.Status)))
	case event.TypeError:
		fmt.Fprintf(os.Stderr, "! %s %s\n", env.Code, env.ErrorText())
	}
}

func usage() {
	fmt.Println(`chatcli - marketplace chat client

Usage: chatcli <command> [options]

Commands:
  chat <room_id>          Join a room and post stdin lines
  dm <peer_user_id>       Open the direct room with a peer's shop
  online                  List online users

Environment:
  CHAT_USER_ID, CHAT_USERNAME, CHAT_SHOP, CHAT_TOKEN
  CHAT_SOCKET_URL (default ws://localhost:8081)
  CHAT_APP_URL (default http://localhost:8080)
  CHAT_RECONNECT_SECONDS (default 3), CHAT_KEEP_ALIVE_SECONDS (default 30)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
