// Package aspects loads eBay category aspect definitions and checks
// inventory data against them.
package aspects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	repo "github.com/dmitrijs2005/cardkeeper/internal/client/repositories/aspects"
	"github.com/dmitrijs2005/cardkeeper/internal/common"
	"github.com/dmitrijs2005/cardkeeper/internal/logging"
)

var (
	ErrNoCategory    = errors.New("no category given")
	ErrInvalidFormat = errors.New("invalid aspects data format")
	ErrFetch         = errors.New("failed to fetch aspects")
)

// Document is a category's aspects file as served by the CDN.
type Document struct {
	CategoryID string   `json:"categoryId,omitempty"`
	Aspects    []Aspect `json:"aspects"`
}

type Aspect struct {
	LocalizedAspectName string        `json:"localizedAspectName"`
	AspectConstraint    *Constraint   `json:"aspectConstraint,omitempty"`
	AspectValues        []AspectValue `json:"aspectValues,omitempty"`
}

type Constraint struct {
	AspectDataType             string   `json:"aspectDataType,omitempty"`
	ItemToAspectCardinality    string   `json:"itemToAspectCardinality,omitempty"`
	AspectMode                 string   `json:"aspectMode,omitempty"`
	AspectRequired             bool     `json:"aspectRequired,omitempty"`
	AspectUsage                string   `json:"aspectUsage,omitempty"`
	AspectEnabledForVariations bool     `json:"aspectEnabledForVariations,omitempty"`
	AspectApplicableTo         []string `json:"aspectApplicableTo,omitempty"`
	AspectFormat               string   `json:"aspectFormat,omitempty"`
}

type AspectValue struct {
	LocalizedValue   string            `json:"localizedValue"`
	ValueConstraints []ValueConstraint `json:"valueConstraints,omitempty"`
}

type ValueConstraint struct {
	ApplicableForLocalizedAspectName   string   `json:"applicableForLocalizedAspectName"`
	ApplicableForLocalizedAspectValues []string `json:"applicableForLocalizedAspectValues"`
}

// Service resolves aspects through an in-memory cache, then the local
// database (entries older than TTL are dropped), then the CDN.
type Service struct {
	baseURL string
	ttl     time.Duration
	http    *http.Client
	cache   repo.Repository
	log     logging.Logger
	now     func() time.Time

	mu  sync.Mutex
	mem map[string]*Document
}

func NewService(baseURL string, ttl time.Duration, hc *http.Client, cache repo.Repository, log logging.Logger) *Service {
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		http:    hc,
		cache:   cache,
		log:     log,
		now:     time.Now,
		mem:     map[string]*Document{},
	}
}

func (s *Service) Get(ctx context.Context, categoryID string) (*Document, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return nil, ErrNoCategory
	}

	s.mu.Lock()
	doc, ok := s.mem[categoryID]
	s.mu.Unlock()
	if ok {
		return doc, nil
	}

	if doc := s.fromStore(ctx, categoryID); doc != nil {
		s.remember(categoryID, doc)
		return doc, nil
	}

	payload, doc, err := s.fetch(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		e := &repo.Entry{CategoryID: categoryID, Payload: payload, FetchedAt: s.now()}
		if err := s.cache.Put(ctx, e); err != nil {
			s.log.Warn(ctx, "aspects cache write failed", "category", categoryID, "error", err)
		}
	}
	s.remember(categoryID, doc)
	return doc, nil
}

func (s *Service) remember(categoryID string, doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem[categoryID] = doc
}

// fromStore returns a fresh cached document or nil. Cache problems are
// logged and treated as a miss.
func (s *Service) fromStore(ctx context.Context, categoryID string) *Document {
	if s.cache == nil {
		return nil
	}

	e, err := s.cache.Get(ctx, categoryID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.log.Warn(ctx, "aspects cache read failed", "category", categoryID, "error", err)
		}
		return nil
	}

	if s.now().Sub(e.FetchedAt) >= s.ttl {
		if err := s.cache.Delete(ctx, categoryID); err != nil {
			s.log.Warn(ctx, "aspects cache cleanup failed", "category", categoryID, "error", err)
		}
		return nil
	}

	doc, err := decode(e.Payload)
	if err != nil {
		s.log.Warn(ctx, "aspects cache entry unreadable", "category", categoryID, "error", err)
		return nil
	}
	return doc
}

func (s *Service) fetch(ctx context.Context, categoryID string) ([]byte, *Document, error) {
	u := fmt.Sprintf("%s/%s.json", s.baseURL, url.PathEscape(categoryID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: %s", ErrFetch, resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	doc, err := decode(payload)
	if err != nil {
		return nil, nil, err
	}
	return payload, doc, nil
}

// decode requires an "aspects" array; an object without one, or with a
// non-array value, is ErrInvalidFormat.
func decode(payload []byte) (*Document, error) {
	var envelope struct {
		Aspects json.RawMessage `json:"aspects"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if len(envelope.Aspects) == 0 || envelope.Aspects[0] != '[' {
		return nil, ErrInvalidFormat
	}

	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	return &doc, nil
}
