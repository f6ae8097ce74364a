// Command chat is a terminal client for the relay. Replies are printed as
// they stream; Ctrl-C stops the current reply, and Ctrl-C at the prompt exits.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"

	"chat-relay/pkg/chat"
	"chat-relay/pkg/client"

	"github.com/google/uuid"
)

func main() {
	server := flag.String("server", envOr("CHAT_SERVER", "http://localhost:3002"), "relay base URL")
	username := flag.String("user", os.Getenv("CHAT_USER"), "username")
	password := flag.String("password", os.Getenv("CHAT_PASSWORD"), "password")
	model := flag.String("model", "", "model id (server default when empty)")
	system := flag.String("system", "", "system prompt")
	syncConvs := flag.Bool("sync", false, "save the conversation to the server after every reply")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "username and password are required (-user, -password or CHAT_USER, CHAT_PASSWORD)")
		os.Exit(2)
	}

	ctx := context.Background()
	c := client.New(*server)
	info, err := c.Login(ctx, *username, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Logged in as %s (%s). Commands: /new, /share, /models, /quit\n", info.Username, info.Role)

	s := &session{client: c, model: *model, system: *system, sync: *syncConvs}
	s.reset()
	s.loop(ctx)
}

type session struct {
	client *client.Client
	model  string
	system string
	sync   bool
	conv   *chat.Conversation

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (s *session) reset() {
	s.conv = &chat.Conversation{
		ID:           uuid.NewString(),
		Model:        s.model,
		SystemPrompt: s.system,
		CreatedAt:    chat.NowMillis(),
	}
}

func (s *session) loop(ctx context.Context) {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		fmt.Print("> ")
		select {
		case <-interrupts:
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !s.handle(ctx, strings.TrimSpace(line), interrupts) {
				return
			}
		}
	}
}

// handle runs one input line; false means quit
func (s *session) handle(ctx context.Context, line string, interrupts <-chan os.Signal) bool {
	switch line {
	case "":
		return true
	case "/quit", "/exit":
		return false
	case "/new":
		s.reset()
		fmt.Println("Started a new conversation.")
		return true
	case "/models":
		s.printModels(ctx)
		return true
	case "/share":
		s.share(ctx)
		return true
	}

	genCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		select {
		case <-interrupts:
			s.stop()
		case <-done:
		}
	}()

	printed := 0
	res, err := s.client.SendMessage(genCtx, s.conv, line, func(conv *chat.Conversation) {
		reply := conv.Messages[len(conv.Messages)-1].Content
		fmt.Print(reply[printed:])
		printed = len(reply)
	})
	close(done)
	s.stop()

	final := s.conv.Messages[len(s.conv.Messages)-1]
	switch {
	case err != nil:
		fmt.Printf("\n%s\n", final.Content)
	case res.Aborted:
		fmt.Println("\n[stopped]")
	default:
		if final.Role == chat.RoleAssistant && len(final.Content) > printed {
			fmt.Print(final.Content[printed:])
		}
		fmt.Println()
		if res.Usage != nil {
			fmt.Printf("[tokens in %d, out %d]\n", res.Usage.Input, res.Usage.Output)
		}
	}

	if s.sync {
		s.save(ctx)
	}
	return true
}

func (s *session) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// save merges the current conversation into the server-side list
func (s *session) save(ctx context.Context) {
	convs, err := s.client.Conversations(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sync failed: %v\n", err)
		return
	}
	replaced := false
	for i := range convs {
		if convs[i].ID == s.conv.ID {
			convs[i] = *s.conv
			replaced = true
		}
	}
	if !replaced {
		convs = append([]chat.Conversation{*s.conv}, convs...)
	}
	if err := s.client.SaveConversations(ctx, convs); err != nil {
		fmt.Fprintf(os.Stderr, "sync failed: %v\n", err)
	}
}

func (s *session) share(ctx context.Context) {
	if len(s.conv.Messages) == 0 {
		fmt.Println("Nothing to share yet.")
		return
	}
	link, err := s.client.CreateShare(ctx, s.conv.Title, s.conv.Messages, s.conv.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "share failed: %v\n", err)
		return
	}
	fmt.Printf("Shared: %s\n", link.URL)
}

func (s *session) printModels(ctx context.Context) {
	catalog, err := s.client.Models(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listing models failed: %v\n", err)
		return
	}
	for _, m := range catalog.Models {
		marker := " "
		if m.ID == catalog.DefaultModel {
			marker = "*"
		}
		fmt.Printf("%s %-32s %s\n", marker, m.ID, m.Name)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
