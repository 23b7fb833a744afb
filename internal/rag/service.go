package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	emaildomain "github.com/Photon3009/cisoinbox/internal/email/domain"
	"github.com/Photon3009/cisoinbox/pkg/ai"
)

const (
	defaultNeighbors  = 3
	replyMaxTokens    = 300
	replyTemperature  = 0.7
	documentsFileName = "data.json"
)

// ExampleDocument is one email/reply training pair.
type ExampleDocument struct {
	ID      string `json:"id"`
	Context string `json:"context"`
	Email   string `json:"email"`
	Reply   string `json:"reply"`
}

// VectorIndex stores example embeddings addressed by ordinal.
type VectorIndex interface {
	Add(ctx context.Context, ordinal int, text string) error
	Search(ctx context.Context, text string, k int) ([]int, []float64, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

// Suggestion is a generated reply with the supporting examples.
type Suggestion struct {
	Reply      string            `json:"suggestedReply"`
	Confidence int               `json:"confidence"`
	Examples   []ExampleDocument `json:"relevantExamples"`
}

// Service generates reply suggestions for incoming emails using a
// vector index of example pairs as grounding context. The document
// list and the index grow in lockstep: ordinal i in the index always
// refers to documents[i].
type Service struct {
	completer ai.Completer
	index     VectorIndex

	dataPath           string
	meetingLink        string
	productDescription string

	mu        sync.RWMutex
	documents []ExampleDocument
}

func NewService(completer ai.Completer, index VectorIndex, dataPath, meetingLink, productDescription string) *Service {
	return &Service{
		completer:          completer,
		index:              index,
		dataPath:           dataPath,
		meetingLink:        meetingLink,
		productDescription: productDescription,
	}
}

// Initialize loads the persisted document list and verifies it matches
// the index. On any mismatch the whole store is rebuilt from the seed
// examples.
func (s *Service) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(s.dataPath, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	docs, err := s.loadDocuments()
	if err != nil {
		log.Printf("[RAG] document list unreadable, rebuilding: %v", err)
		return s.rebuild(ctx, seedExamples(s.meetingLink))
	}
	if len(docs) == 0 {
		log.Printf("[RAG] no stored documents, seeding index")
		return s.rebuild(ctx, seedExamples(s.meetingLink))
	}

	count, err := s.index.Count(ctx)
	if err != nil {
		return fmt.Errorf("count index: %w", err)
	}
	if count != len(docs) {
		log.Printf("[RAG] index has %d entries but %d documents stored, rebuilding", count, len(docs))
		return s.rebuild(ctx, docs)
	}

	s.mu.Lock()
	s.documents = docs
	s.mu.Unlock()
	log.Printf("[RAG] loaded %d documents", len(docs))
	return nil
}

// SuggestReply returns a generated reply for the email, grounded in
// the nearest stored examples.
func (s *Service) SuggestReply(ctx context.Context, from, subject, body string) (*Suggestion, error) {
	query := strings.TrimSpace(subject + " " + body)
	if query == "" {
		return nil, fmt.Errorf("%w: no email content provided", emaildomain.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ordinals, distances, err := s.index.Search(ctx, query, defaultNeighbors)
	if err != nil {
		return nil, fmt.Errorf("search examples: %w", err)
	}

	examples := make([]ExampleDocument, 0, len(ordinals))
	for _, n := range ordinals {
		if n < 0 || n >= len(s.documents) {
			return nil, fmt.Errorf("index returned ordinal %d outside document list of %d", n, len(s.documents))
		}
		examples = append(examples, s.documents[n])
	}

	reply, err := s.generateReply(ctx, from, subject, body, examples)
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}

	return &Suggestion{
		Reply:      reply,
		Confidence: confidence(distances),
		Examples:   examples,
	}, nil
}

// AddExample appends a new training pair to the index and document
// list, keeping both in lockstep.
func (s *Service) AddExample(ctx context.Context, exampleContext, email, reply string) (*ExampleDocument, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(reply) == "" {
		return nil, fmt.Errorf("%w: email and reply are required", emaildomain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := ExampleDocument{
		ID:      fmt.Sprintf("custom_%d", len(s.documents)+1),
		Context: exampleContext,
		Email:   email,
		Reply:   reply,
	}

	ordinal := len(s.documents)
	if err := s.index.Add(ctx, ordinal, embedText(doc)); err != nil {
		return nil, fmt.Errorf("index example: %w", err)
	}

	previous := s.documents
	s.documents = append(s.documents, doc)
	if err := s.saveDocuments(); err != nil {
		// The index took the new point but the list did not. Rebuild
		// from the previous list to restore lockstep.
		log.Printf("[RAG] save failed after index append, rebuilding: %v", err)
		s.documents = previous
		if rerr := s.rebuildLocked(ctx, previous); rerr != nil {
			return nil, fmt.Errorf("save example: %w (rebuild also failed: %v)", err, rerr)
		}
		return nil, fmt.Errorf("save example: %w", err)
	}

	if count, err := s.index.Count(ctx); err == nil && count != len(s.documents) {
		log.Printf("[RAG] lockstep drift after append (%d vs %d), rebuilding", count, len(s.documents))
		if err := s.rebuildLocked(ctx, s.documents); err != nil {
			return nil, err
		}
	}

	return &doc, nil
}

// Documents returns a copy of the stored example list.
func (s *Service) Documents() []ExampleDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExampleDocument, len(s.documents))
	copy(out, s.documents)
	return out
}

func (s *Service) generateReply(ctx context.Context, from, subject, body string, examples []ExampleDocument) (string, error) {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant that helps generate professional email replies based on similar examples.\n\n")
	sb.WriteString("Your role:\n")
	sb.WriteString("- Generate professional, concise replies for interested emails\n")
	sb.WriteString(fmt.Sprintf("- Always include the meeting booking link when appropriate: %s\n", s.meetingLink))
	sb.WriteString("- Match the tone and style of the provided examples\n")
	sb.WriteString("- Keep replies short and actionable\n\n")
	sb.WriteString(fmt.Sprintf("Product/Service Context: %s\n\n", s.productDescription))
	sb.WriteString("Here are some similar examples for reference:\n")
	for _, doc := range examples {
		sb.WriteString(fmt.Sprintf("Example Context: %s\nOriginal Email: %q\nReply: %q\n\n", doc.Context, doc.Email, doc.Reply))
	}
	sb.WriteString("Please generate a professional reply for this email:\n\n")
	sb.WriteString(fmt.Sprintf("From: %s\nSubject: %s\nBody: %s\n\n", orDefault(from, "Unknown"), orDefault(subject, "No Subject"), orDefault(body, "No content")))
	sb.WriteString("Generate a positive, professional response that includes the meeting booking link when appropriate.")

	reply, err := s.completer.Complete(ctx, sb.String(), replyMaxTokens, replyTemperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// rebuild re-embeds the given documents from scratch.
func (s *Service) rebuild(ctx context.Context, docs []ExampleDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked(ctx, docs)
}

func (s *Service) rebuildLocked(ctx context.Context, docs []ExampleDocument) error {
	if err := s.index.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	for i, doc := range docs {
		if err := s.index.Add(ctx, i, embedText(doc)); err != nil {
			return fmt.Errorf("index document %d: %w", i, err)
		}
	}

	s.documents = docs
	if err := s.saveDocuments(); err != nil {
		return fmt.Errorf("save documents: %w", err)
	}

	count, err := s.index.Count(ctx)
	if err != nil {
		return fmt.Errorf("verify index: %w", err)
	}
	if count != len(docs) {
		return fmt.Errorf("index has %d entries after rebuild, want %d", count, len(docs))
	}
	log.Printf("[RAG] rebuilt index with %d documents", len(docs))
	return nil
}

func (s *Service) loadDocuments() ([]ExampleDocument, error) {
	data, err := os.ReadFile(s.documentsFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var docs []ExampleDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// saveDocuments writes the list atomically via a temp file rename.
func (s *Service) saveDocuments() error {
	data, err := json.MarshalIndent(s.documents, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.documentsFile() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.documentsFile())
}

func (s *Service) documentsFile() string {
	return filepath.Join(s.dataPath, documentsFileName)
}

func embedText(doc ExampleDocument) string {
	return fmt.Sprintf("%s: %s", doc.Context, doc.Email)
}

// confidence maps cosine distances to a 0-100 score via the mean
// similarity of the retrieved neighbors.
func confidence(distances []float64) int {
	if len(distances) == 0 {
		return 0
	}
	var sum float64
	for _, d := range distances {
		sum += 1 - d
	}
	score := int(sum / float64(len(distances)) * 100)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
