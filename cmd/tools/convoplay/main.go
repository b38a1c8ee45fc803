package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	model "github.com/parleylab/parley/internal/model/convo"
	"github.com/parleylab/parley/internal/session"
)

func main() {
	log.SetFlags(log.LstdFlags)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] no .env file, using system environment: %v", err)
	}

	server := flag.String("server", "http://localhost:8080", "base URL of the conversation API")
	user := flag.String("user", "", "user name to act as (required)")
	kind := flag.String("kind", "level", "conversation kind: level or playground")
	level := flag.Int("level", 0, "tutoring level for kind=level")
	resume := flag.String("resume", "", "resume an existing conversation by id")
	list := flag.Bool("list", false, "list conversations for the given kind/level and exit")

	flag.Parse()

	if *user == "" {
		flag.Usage()
		log.Fatal("provide a user name with -user")
	}

	client := session.NewHTTPClient(*server, *user)
	ctx := context.Background()

	if *list {
		listConversations(ctx, client, model.Kind(*kind), *level)
		return
	}

	s := session.NewSession(client, *user)
	req := session.StartRequest{
		ConversationID: *resume,
		Kind:           model.Kind(*kind),
		Level:          *level,
	}
	if err := s.Start(ctx, req); err != nil {
		log.Fatalf("failed to start conversation: %v", err)
	}

	fmt.Printf("--- conversation %s with %s ---\n", s.ID(), s.Agent())
	run(ctx, s)
}

func listConversations(ctx context.Context, client *session.HTTPClient, kind model.Kind, level int) {
	summaries, err := client.List(ctx, kind, level)
	if err != nil {
		log.Fatalf("failed to list conversations: %v", err)
	}
	if len(summaries) == 0 {
		fmt.Println("no conversations yet")
		return
	}
	for _, summary := range summaries {
		fmt.Printf("%s  agent=%s", summary.ID, summary.Agent)
		if summary.Topic != "" {
			fmt.Printf("  topic=%s", summary.Topic)
		}
		fmt.Println()
	}
}

func run(ctx context.Context, s *session.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	printed := 0

	for {
		printed = render(s, printed)

		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())

		switch {
		case input == "quit" || input == "exit":
			return
		case input == "":
			// Keep the pre-filled draft (feedback follow-up) as-is.
			if s.Draft() == "" {
				continue
			}
		case isOptionPick(s, input):
			s.OnOptionClick(input)
		default:
			s.OnDraftChange(input)
		}

		if err := s.Send(ctx); err != nil {
			log.Printf("[convoplay] send failed: %v", err)
		}
	}
}

// render prints the timeline units added since the last call and the current
// options, returning the new high-water mark.
func render(s *session.Session, printed int) int {
	units := s.Timeline()
	for _, unit := range units[printed:] {
		switch unit.Type {
		case session.UnitText:
			speaker := s.Agent()
			if unit.Text.SentByUser {
				speaker = "you"
			}
			fmt.Printf("[%s] %s\n", speaker, unit.Text.Content)
		case session.UnitFeedback:
			fmt.Printf("** %s **\n%s\n(suggested: %s)\n", unit.Feedback.Title, unit.Feedback.Body, unit.Feedback.Choice)
		}
	}

	if live := s.Options().Live(); len(live) > 0 {
		fmt.Println("options:")
		for _, opt := range live {
			fmt.Printf("  %s) %s\n", opt.Key, opt.Label)
		}
		if s.AllowCustom() {
			fmt.Println("  (or type your own reply)")
		}
	}
	if draft := s.Draft(); draft != "" {
		fmt.Printf("draft: %s\n", draft)
	}

	return len(units)
}

func isOptionPick(s *session.Session, input string) bool {
	for _, opt := range s.Options().Live() {
		if opt.Key == input {
			return true
		}
	}
	if parked := s.Options().Parked(); parked != nil && parked.Key == input {
		return true
	}
	return false
}
