// Package search maintains a full-text index over chat messages. The
// index is fed by tapping the hub's broadcast stream and queried by the
// REST layer; losing it loses nothing durable, it can be rebuilt from the
// store.
package search

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"

	"notifyhub/domain/event"
)

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// Hit is one search result.
type Hit struct {
	MessageID string `json:"messageId"`
	ProjectID string `json:"projectId"`
	AuthorID  string `json:"authorId"`
	Content   string `json:"content"`
}

func Open(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

// OpenInMemory builds an index that lives only as long as the process.
func OpenInMemory(log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// Consume implements contract.EventSink so the hub can tap broadcast
// events into the index. Only new messages are indexed.
func (i *Index) Consume(_ context.Context, e event.Outbound) error {
	msg, ok := e.(event.NewMessage)
	if !ok {
		return nil
	}
	doc := bluge.NewDocument(msg.Message.ID).
		AddField(bluge.NewTextField("content", msg.Message.Content).StoreValue()).
		AddField(bluge.NewKeywordField("project_id", msg.ProjectID).StoreValue()).
		AddField(bluge.NewKeywordField("author_id", msg.Message.AuthorID).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// Search runs a match query on message content, scoped to one project,
// best-scoring first.
func (i *Index) Search(ctx context.Context, projectID, query string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("content")).
		AddMust(bluge.NewTermQuery(projectID).SetField("project_id"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "content":
				hit.Content = string(value)
			case "project_id":
				hit.ProjectID = string(value)
			case "author_id":
				hit.AuthorID = string(value)
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
