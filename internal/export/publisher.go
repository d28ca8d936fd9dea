package export

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"crisprcatalog/internal/blob"
	"crisprcatalog/pkg/domain"
)

// KeyPrefix is where snapshots are written in the blob store.
const KeyPrefix = "exports/"

// Lister supplies the pathogens to snapshot.
type Lister interface {
	ListPathogens(ctx context.Context) ([]domain.Pathogen, error)
}

// Publisher writes catalog snapshots to a blob store.
type Publisher struct {
	catalog Lister
	store   blob.Store
	now     func() time.Time
}

// PublisherOption customises a Publisher.
type PublisherOption func(*Publisher)

// WithClock overrides the clock used to name snapshots.
func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPublisher constructs a publisher.
func NewPublisher(catalog Lister, store blob.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{catalog: catalog, store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Key returns the blob key of a snapshot taken at ts.
func Key(ts time.Time, f Format) string {
	return fmt.Sprintf("%spathogens-%s.%s", KeyPrefix, ts.UTC().Format("20060102T150405Z"), f.Extension())
}

// Publish lists the catalog, encodes it and stores it under a timestamped key.
func (p *Publisher) Publish(ctx context.Context, f Format) (blob.Info, error) {
	pathogens, err := p.catalog.ListPathogens(ctx)
	if err != nil {
		return blob.Info{}, err
	}
	var buf bytes.Buffer
	if err := Write(&buf, f, pathogens); err != nil {
		return blob.Info{}, fmt.Errorf("encode %s snapshot: %w", f, err)
	}
	targets := 0
	for _, pathogen := range pathogens {
		targets += len(pathogen.Targets)
	}
	info, err := p.store.Put(ctx, Key(p.now(), f), bytes.NewReader(buf.Bytes()), blob.PutOptions{
		ContentType: f.ContentType(),
		Metadata: map[string]string{
			"pathogens": strconv.Itoa(len(pathogens)),
			"targets":   strconv.Itoa(targets),
		},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("store snapshot: %w", err)
	}
	return info, nil
}

// Snapshots lists previously published snapshots, oldest first.
func (p *Publisher) Snapshots(ctx context.Context) ([]blob.Info, error) {
	return p.store.List(ctx, KeyPrefix)
}
