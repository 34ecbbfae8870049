// Viewer dumps a conversation timeline (or search results) from an
// on-disk store, read-only, without touching the live client.
package main

import (
	"arstate-chat/domain"
	"arstate-chat/repositories"
	"arstate-chat/runtime"
	"arstate-chat/search"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "badger-data", "Path to badger DB")
	blugePath := flag.String("bluge", "", "Path to search index (enables -find)")
	conversation := flag.String("conversation", "", "Conversation key to dump (idA--idB)")
	find := flag.String("find", "", "Search query, e.g. '/find invoice --limit 5'")
	flag.Parse()

	if *conversation == "" && *find == "" {
		log.Fatal("Provide -conversation or -find")
	}

	if *find != "" {
		if *blugePath == "" {
			log.Fatal("-find requires -bluge")
		}
		dumpSearch(*blugePath, *find)
		return
	}

	// Read-only with BypassLockGuard so the viewer can peek while the
	// chat client holds the lock.
	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := repositories.NewMessageRepository(db, slog.Default())
	messages, err := repo.Snapshot(domain.ConversationKey(*conversation))
	if err != nil {
		log.Fatalf("Snapshot failed: %v", err)
	}
	runtime.SortMessages(messages)

	color.Cyan.Printf("Conversation %s: %d message(s)\n", *conversation, len(messages))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "Sender", "Status", "Text", "Image"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, m := range messages {
		status := string(m.Status)
		if m.Status == domain.StatusRead {
			status = color.Green.Sprint(status)
		}
		table.Append([]string{
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			m.Sender.Name,
			status,
			m.Text,
			m.ImageRef,
		})
	}
	table.Render()
}

func dumpSearch(blugePath, raw string) {
	index, err := search.Open(blugePath, slog.Default())
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	defer index.Close()

	hits, err := index.Search(context.Background(), search.ParseQuery(raw))
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	color.Cyan.Printf("%d hit(s)\n", len(hits))
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Conversation", "Sender", "Text"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for _, h := range hits {
		table.Append([]string{h.Conversation, h.SenderID, h.Text})
	}
	table.Render()
	fmt.Println()
}
