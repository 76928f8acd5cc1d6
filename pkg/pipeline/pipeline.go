// Package pipeline wires the whole run together: read the export, flatten it
// into a corpus, embed and cluster the corpus, and persist the resulting
// topic groups. One linear batch job; the full corpus (text, vectors, labels)
// stays resident for the duration of the run.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/topiary-kb/topiary/internal/store"
	"github.com/topiary-kb/topiary/pkg/cluster"
	"github.com/topiary-kb/topiary/pkg/embed"
	"github.com/topiary-kb/topiary/pkg/export"
	"github.com/topiary-kb/topiary/pkg/topics"
)

// Writer is the slice of the store the pipeline needs.
type Writer interface {
	Persist(batches []store.TopicBatch, reset bool) error
}

// Config holds the per-run pipeline settings.
type Config struct {
	ExportPath     string
	MinClusterSize int
	TitleLen       int
	Reset          bool
}

// Summary reports what a run produced.
type Summary struct {
	Records int
	Topics  int
	Noise   int
}

// Pipeline owns the stage collaborators for one run.
type Pipeline struct {
	cfg       Config
	embedder  embed.Embedder
	clusterer cluster.Clusterer
	writer    Writer
	log       *slog.Logger
}

// New creates a pipeline. A nil logger falls back to slog.Default();
// tests pass a discard handler instead.
func New(cfg Config, embedder embed.Embedder, clusterer cluster.Clusterer, writer Writer, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		cfg:       cfg,
		embedder:  embedder,
		clusterer: clusterer,
		writer:    writer,
		log:       log,
	}
}

// Run executes the whole pipeline once. Input and store-write failures abort
// the run; an empty or tiny corpus does not (it persists zero or noise-only
// topics, which is a valid outcome).
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	conversations, err := export.Read(p.cfg.ExportPath)
	if err != nil {
		return nil, errors.Wrap(err, "read export")
	}
	p.log.Info("export loaded", "conversations", len(conversations))

	records, err := export.Assemble(conversations)
	if err != nil {
		return nil, errors.Wrap(err, "linearize export")
	}
	p.log.Info("corpus assembled", "records", len(records))

	if len(records) == 0 {
		if p.cfg.Reset {
			if err := p.writer.Persist(nil, true); err != nil {
				return nil, errors.Wrap(err, "reset store")
			}
		}
		p.log.Info("no qualifying records; nothing to persist")
		return &Summary{}, nil
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, errors.Wrap(err, "embed corpus")
	}
	if len(vectors) != len(records) {
		return nil, errors.Errorf("embedder returned %d vectors for %d records", len(vectors), len(records))
	}
	p.log.Info("corpus embedded", "vectors", len(vectors), "dimensions", len(vectors[0]))

	labels, err := p.clusterer.Cluster(vectors, p.cfg.MinClusterSize)
	if err != nil {
		return nil, errors.Wrap(err, "cluster corpus")
	}
	if len(labels) != len(records) {
		return nil, errors.Errorf("clusterer returned %d labels for %d records", len(labels), len(records))
	}

	groups, err := topics.ByLabel(records, vectors, labels)
	if err != nil {
		return nil, errors.Wrap(err, "group records")
	}

	summary := &Summary{Records: len(records), Topics: len(groups)}
	batches := make([]store.TopicBatch, 0, len(groups))
	for _, g := range groups {
		if g.Label == cluster.Noise {
			summary.Noise = len(g.Records)
		}
		batches = append(batches, p.batchOf(g))
	}
	p.log.Info("corpus clustered", "topics", len(groups), "noise_records", summary.Noise)

	if err := p.writer.Persist(batches, p.cfg.Reset); err != nil {
		return nil, errors.Wrap(err, "persist knowledge base")
	}
	p.log.Info("knowledge base written", "topics", summary.Topics, "messages", summary.Records, "took", time.Since(start))

	return summary, nil
}

// batchOf converts one topic group into store rows: title from the group's
// first record, keyword summary from all its texts, RFC 3339 timestamps.
func (p *Pipeline) batchOf(g topics.Group) store.TopicBatch {
	texts := make([]string, len(g.Records))
	messages := make([]store.Message, len(g.Records))
	for i, r := range g.Records {
		texts[i] = r.Text

		ts := ""
		if !r.Timestamp.IsZero() {
			ts = r.Timestamp.UTC().Format(time.RFC3339)
		}
		messages[i] = store.Message{
			Conv:      r.ConversationTitle,
			Role:      r.Role,
			Timestamp: ts,
			Text:      r.Text,
		}
	}

	return store.TopicBatch{
		Title:    topics.Title(g.Records[0].Text, p.cfg.TitleLen),
		Summary:  topics.Summary(texts),
		Messages: messages,
		Vectors:  g.Vectors,
	}
}
