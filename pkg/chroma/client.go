package chroma

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/Photon3009/cisoinbox/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

// Index is a vector index over reply example documents. Documents are
// addressed by their ordinal position; embedding happens server side
// through the collection's Gemini embedding function.
type Index struct {
	client     chroma.Client
	embedFunc  *gemini.GeminiEmbeddingFunction
	name       string
	collection chroma.Collection
}

func NewIndex(cfg *config.Config) (*Index, error) {
	// Set environment variable for Gemini API key if needed
	if cfg.GeminiApiKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiApiKey)
	}

	// Create Gemini embedding function
	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	var client chroma.Client
	if cfg.ChromaAPIKey != "" {
		// Chroma Cloud - https://api.trychroma.com:8000/api/v2
		if cfg.ChromaDatabase != "" && cfg.ChromaTenant != "" {
			client, err = chroma.NewHTTPClient(
				chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
				chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
				chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
			)
		} else if cfg.ChromaTenant != "" {
			client, err = chroma.NewHTTPClient(
				chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
				chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
				chroma.WithTenant(cfg.ChromaTenant),
			)
		} else {
			client, err = chroma.NewHTTPClient(
				chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
				chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			)
		}
	} else if cfg.ChromaURL != "" {
		client, err = chroma.NewHTTPClient(chroma.WithBaseURL(cfg.ChromaURL))
	} else {
		return nil, fmt.Errorf("CHROMA_URL or CHROMA_API_KEY is required")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	ctx := context.Background()
	collection, err := client.GetOrCreateCollection(
		ctx,
		cfg.ChromaCollection,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("[Chroma] Initialized collection: %s", cfg.ChromaCollection)

	return &Index{
		client:     client,
		embedFunc:  embedFunc,
		name:       cfg.ChromaCollection,
		collection: collection,
	}, nil
}

// Add embeds text and stores it under the given ordinal.
func (x *Index) Add(ctx context.Context, ordinal int, text string) error {
	err := x.collection.Add(
		ctx,
		chroma.WithIDs(chroma.DocumentID(strconv.Itoa(ordinal))),
		chroma.WithTexts(text),
	)
	if err != nil {
		return fmt.Errorf("failed to add document %d: %w", ordinal, err)
	}
	return nil
}

// Search returns the ordinals and distances of the k nearest documents.
func (x *Index) Search(ctx context.Context, text string, k int) ([]int, []float64, error) {
	results, err := x.collection.Query(
		ctx,
		chroma.WithQueryTexts(text),
		chroma.WithNResults(k),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query collection: %w", err)
	}

	if results == nil || results.CountGroups() == 0 {
		return []int{}, []float64{}, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return []int{}, []float64{}, nil
	}

	ordinals := make([]int, 0, len(idGroups[0]))
	for _, id := range idGroups[0] {
		n, err := strconv.Atoi(string(id))
		if err != nil {
			return nil, nil, fmt.Errorf("unexpected document id %q", string(id))
		}
		ordinals = append(ordinals, n)
	}

	distances := make([]float64, 0, len(ordinals))
	if len(distanceGroups) > 0 {
		for _, d := range distanceGroups[0] {
			distances = append(distances, float64(d))
		}
	}

	return ordinals, distances, nil
}

// Count returns the number of documents in the collection.
func (x *Index) Count(ctx context.Context) (int, error) {
	n, err := x.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection: %w", err)
	}
	return n, nil
}

// Reset drops and recreates the collection.
func (x *Index) Reset(ctx context.Context) error {
	if err := x.client.DeleteCollection(ctx, x.name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	collection, err := x.client.GetOrCreateCollection(
		ctx,
		x.name,
		chroma.WithEmbeddingFunctionCreate(x.embedFunc),
	)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}
	x.collection = collection
	return nil
}
