package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// ToxicityScorer returns a toxicity probability in [0,1] for a text.
type ToxicityScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// Toxicity buckets. Low toxicity is read as a positive comment, high
// toxicity as negative, the middle band as neutral.
const (
	toxicityPositiveMax = 0.2
	toxicityNegativeMin = 0.6
)

// Classifier derives sentiment by inverting a toxicity classifier's output.
// The scorer is initialized lazily on first use.
type Classifier struct {
	newScorer func() (ToxicityScorer, error)

	once    sync.Once
	scorer  ToxicityScorer
	initErr error
}

func NewClassifier(newScorer func() (ToxicityScorer, error)) *Classifier {
	return &Classifier{newScorer: newScorer}
}

func (c *Classifier) Analyze(ctx context.Context, comment string) (Result, error) {
	text := strings.TrimSpace(comment)
	if text == "" {
		return Result{Sentiment: Neutral}, nil
	}

	c.once.Do(func() {
		c.scorer, c.initErr = c.newScorer()
	})
	if c.initErr != nil {
		return Result{}, fmt.Errorf("init toxicity scorer: %w", c.initErr)
	}

	toxicity, err := c.scorer.Score(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("score toxicity: %w", err)
	}

	polarity, confidence := invertToxicity(toxicity)

	return Result{
		Sentiment:  polarity,
		Score:      bonusScore(polarity, confidence),
		Confidence: confidence,
		Keywords:   extractKeywords(text),
	}, nil
}

// invertToxicity maps a toxicity probability onto a polarity bucket.
// Confidence is the normalized distance from the bucket boundary.
func invertToxicity(toxicity float64) (Polarity, float64) {
	switch {
	case toxicity < toxicityPositiveMax:
		return Positive, clamp01((toxicityPositiveMax - toxicity) / toxicityPositiveMax)
	case toxicity > toxicityNegativeMin:
		return Negative, clamp01((toxicity - toxicityNegativeMin) / (1 - toxicityNegativeMin))
	default:
		mid := (toxicityPositiveMax + toxicityNegativeMin) / 2
		halfWidth := (toxicityNegativeMin - toxicityPositiveMax) / 2
		return Neutral, clamp01(1 - (absFloat(toxicity-mid) / halfWidth))
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

const maxKeywords = 15

// extractKeywords keeps the first 15 stopword-filtered tokens longer than
// three characters.
func extractKeywords(text string) []string {
	var keywords []string
	for _, tok := range tokenize(strings.ToLower(text)) {
		if len([]rune(tok)) <= 3 || stopwords[tok] {
			continue
		}
		keywords = append(keywords, tok)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

var stopwords = map[string]bool{
	// French
	"avec": true, "cette": true, "cela": true, "dans": true, "elle": true,
	"être": true, "etre": true, "faire": true, "fait": true, "ils": true,
	"elles": true, "leur": true, "leurs": true, "mais": true, "même": true,
	"meme": true, "nous": true, "pour": true, "quand": true, "sont": true,
	"tout": true, "tous": true, "toute": true, "toutes": true, "vous": true,
	"votre": true, "notre": true, "était": true, "etait": true, "plus": true,
	"très": true, "tres": true, "bien": true, "comme": true, "aussi": true,
	// English
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"then": true, "they": true, "them": true, "their": true, "what": true,
	"when": true, "will": true, "would": true, "your": true, "were": true,
	"been": true, "some": true, "very": true, "also": true, "just": true,
	"there": true, "about": true, "which": true,
}

// HTTPToxicityScorer calls an external toxicity-inference endpoint.
type HTTPToxicityScorer struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPToxicityScorer(baseURL string, httpClient *http.Client) *HTTPToxicityScorer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPToxicityScorer{baseURL: baseURL, httpClient: httpClient}
}

type toxicityRequest struct {
	Text string `json:"text"`
}

type toxicityResponse struct {
	Toxicity float64 `json:"toxicity"`
}

func (s *HTTPToxicityScorer) Score(ctx context.Context, text string) (float64, error) {
	body, err := json.Marshal(toxicityRequest{Text: text})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("classifier API error: status %d", resp.StatusCode)
	}

	var out toxicityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if out.Toxicity < 0 || out.Toxicity > 1 {
		return 0, fmt.Errorf("toxicity %f out of range", out.Toxicity)
	}
	return out.Toxicity, nil
}
