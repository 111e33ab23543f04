package extraction

import "context"

// Input carries one document to an engine. Data holds the raw object bytes
// already fetched from storage; engines never touch the bucket themselves.
type Input struct {
	DocumentID  string
	ContentType string
	Languages   []string
	Data        []byte
}

// Output carries what an engine recognized.
type Output struct {
	Text      string
	Language  string
	PageCount int
}

// Engine recognizes document text in a single synchronous call. The fast
// tier runs entirely on this contract.
type Engine interface {
	Recognize(ctx context.Context, input Input) (Output, error)
}

// BatchEngine runs long OCR jobs asynchronously. Submit hands the document
// to the engine and returns its job id. Await polls until the job reaches a
// terminal state or ctx ends.
type BatchEngine interface {
	Submit(ctx context.Context, input Input) (string, error)
	Await(ctx context.Context, jobID string) (Output, error)
}

// Refiner repairs recognized text: rejoining hyphenated words, mending
// broken lines, and normalizing punctuation the OCR pass mangled.
type Refiner interface {
	Refine(ctx context.Context, documentID, text, language string) (string, error)
}
