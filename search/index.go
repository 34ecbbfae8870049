package search

import (
	"arstate-chat/domain"
	"context"
	"fmt"
	"log/slog"

	"github.com/blugelabs/bluge"
)

// Hit is one search result, rebuilt from stored fields.
type Hit struct {
	MessageID    string
	Conversation string
	SenderID     string
	Text         string
}

// Index wraps a Bluge writer holding the message index. One index
// covers all conversations; the conversation key is a keyword field so
// queries can scope down to a single log.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func Open(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("opening search index: %w", err)
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// IndexMessage upserts one message. Image-only messages are skipped;
// there is no text to match on.
func (i *Index) IndexMessage(key domain.ConversationKey, m domain.Message) error {
	if m.Text == "" {
		return nil
	}
	doc := bluge.NewDocument(m.ID).
		AddField(bluge.NewTextField("text", m.Text).StoreValue()).
		AddField(bluge.NewKeywordField("conversation", string(key)).StoreValue()).
		AddField(bluge.NewKeywordField("sender", m.Sender.ID).StoreValue()).
		AddField(bluge.NewDateTimeField("created_at", m.CreatedAt))
	return i.writer.Update(doc.ID(), doc)
}

// Search runs a parsed query and returns up to q.Limit hits.
func (i *Index) Search(ctx context.Context, q *Query) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening index reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("closing index reader", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery()
	if q.Terms != "" {
		query.AddMust(bluge.NewMatchQuery(q.Terms).SetField("text"))
	} else {
		query.AddMust(bluge.NewMatchAllQuery())
	}
	if q.Conversation != "" {
		query.AddMust(bluge.NewTermQuery(q.Conversation).SetField("conversation"))
	}
	if q.Sender != "" {
		query.AddMust(bluge.NewTermQuery(q.Sender).SetField("sender"))
	}

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(q.Limit, query))
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	var hits []Hit
	for {
		match, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		hit := Hit{}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "text":
				hit.Text = string(value)
			case "conversation":
				hit.Conversation = string(value)
			case "sender":
				hit.SenderID = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
