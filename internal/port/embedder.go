package port

import "context"

// Embedder is the external encoder collaborator producing fixed-dimension
// vectors. It may be slow (remote inference); callers must not hold locks
// across it.
type Embedder interface {
	// Embed returns one vector per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
