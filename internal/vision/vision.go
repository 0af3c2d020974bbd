package vision

import (
	"context"
	"io"
)

// AnalysisPrompt is the shared prompt used by all vision adapters.
const AnalysisPrompt = `List every grocery or household item you can see in this pantry/fridge/cupboard photo.
For each item provide: name, a numeric count, the unit it is counted in
(e.g. count, lb, oz, gallon, box, can, bottle), and a category
(e.g. Groceries, Produce, Dairy, Meat, Frozen, Household, Personal Care).
Respond in plain text, one item per line,
format: name | quantity | unit | category`

type VisionAnalyzer interface {
	Analyze(ctx context.Context, r io.Reader, mimeType string) (*AnalysisResult, error)
}

type AnalysisResult struct {
	Items       []DetectedItem
	RawResponse string
}

// DetectedItem is one line of model output. Quantity is kept as text; the
// model sometimes answers "2-3" or "half".
type DetectedItem struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
}
