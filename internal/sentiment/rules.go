package sentiment

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"
)

// RuleBased classifies comments with keyword lexicons, multi-word patterns
// and a short backward negation window. It is pure and never fails.
type RuleBased struct{}

func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

const (
	keywordWeight = 1.0
	patternWeight = 1.5

	// negationWindow is how many tokens before a matched keyword are
	// scanned for a negator that flips its contribution.
	negationWindow = 3
)

func (a *RuleBased) Analyze(_ context.Context, comment string) (Result, error) {
	text := strings.TrimSpace(comment)
	if text == "" {
		return Result{Sentiment: Neutral}, nil
	}

	lower := strings.ToLower(text)
	tokens := tokenize(lower)

	var posScore, negScore float64
	var keywords []string

	for i, tok := range tokens {
		negated := hasNegatorBefore(tokens, i)

		if positiveWords[tok] {
			if negated {
				negScore += keywordWeight
			} else {
				posScore += keywordWeight
			}
			keywords = append(keywords, tok)
			continue
		}
		if negativeWords[tok] {
			if negated {
				posScore += keywordWeight
			} else {
				negScore += keywordWeight
			}
			keywords = append(keywords, tok)
		}
	}

	for _, p := range positivePatterns {
		if m := p.FindString(lower); m != "" {
			posScore += patternWeight
			keywords = append(keywords, m)
		}
	}
	for _, p := range negativePatterns {
		if m := p.FindString(lower); m != "" {
			negScore += patternWeight
			keywords = append(keywords, m)
		}
	}

	for _, r := range text {
		if positiveEmoji[r] {
			posScore += keywordWeight
		}
		if negativeEmoji[r] {
			negScore += keywordWeight
		}
	}

	// Longer comments signal effort; treat length as weak positive
	// evidence. Counted in runes so accented text is not inflated.
	switch chars := utf8.RuneCountInString(text); {
	case chars >= 200:
		posScore += 1.0
	case chars >= 100:
		posScore += 0.5
	}

	// Exclamation marks amplify enthusiasm, capped so "!!!!!!" stays sane.
	bangs := strings.Count(text, "!")
	if bangs > 4 {
		bangs = 4
	}
	posScore += 0.25 * float64(bangs)

	net := posScore - negScore
	polarity, confidence := classify(net)

	return Result{
		Sentiment:  polarity,
		Score:      bonusScore(polarity, confidence),
		Confidence: confidence,
		Keywords:   keywords,
	}, nil
}

// classify maps the net keyword score onto a polarity bucket with a
// confidence derived from how deep into the bucket the score lands.
func classify(net float64) (Polarity, float64) {
	switch {
	case net > 2:
		return Positive, clamp01(0.7 + (net-2)/10)
	case net >= 0.5:
		return Positive, clamp01(0.5 + (net-0.5)/7.5)
	case net < -2:
		return Negative, clamp01(0.7 + (-net-2)/10)
	case net <= -0.5:
		return Negative, clamp01(0.5 + (-net-0.5)/7.5)
	default:
		return Neutral, 0.5
	}
}

func hasNegatorBefore(tokens []string, i int) bool {
	start := i - negationWindow
	if start < 0 {
		start = 0
	}
	for _, tok := range tokens[start:i] {
		if negators[tok] {
			return true
		}
	}
	return false
}

// tokenize splits on whitespace, trims punctuation from token edges, and
// strips French elision prefixes so "j'adore" matches "adore".
func tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.TrimFunc(f, isPunct)
		for _, prefix := range elisionPrefixes {
			if strings.HasPrefix(tok, prefix) {
				tok = tok[len(prefix):]
				break
			}
		}
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func isPunct(r rune) bool {
	return strings.ContainsRune(".,;:!?\"'()[]«»…-", r)
}

var elisionPrefixes = []string{"j'", "l'", "d'", "c'", "n'", "m'", "t'", "s'", "qu'", "j’", "l’", "d’", "c’", "n’", "m’", "t’", "s’", "qu’"}

var negators = map[string]bool{
	"pas": true, "ne": true, "jamais": true, "aucun": true, "aucune": true,
	"non": true, "rien": true, "sans": true,
	"not": true, "no": true, "never": true, "don't": true, "dont": true,
	"isn't": true, "won't": true, "can't": true, "cannot": true,
}

var positiveWords = map[string]bool{
	// French
	"adore": true, "aime": true, "bravo": true, "excellent": true,
	"excellente": true, "magnifique": true, "merveilleux": true,
	"merveilleuse": true, "superbe": true, "super": true, "génial": true,
	"géniale": true, "genial": true, "formidable": true, "parfait": true,
	"parfaite": true, "splendide": true, "soutien": true, "soutiens": true,
	"félicitations": true, "felicitations": true, "merci": true,
	"important": true, "importante": true, "essentiel": true,
	"essentielle": true, "utile": true, "beau": true, "belle": true,
	"espoir": true, "fier": true, "fière": true, "heureux": true,
	"heureuse": true, "enthousiaste": true, "favorable": true,
	"encourageant": true, "inspirant": true, "inspirante": true,
	// English
	"love": true, "great": true, "wonderful": true, "amazing": true,
	"beautiful": true, "fantastic": true, "support": true, "hope": true,
	"good": true, "best": true, "awesome": true, "brilliant": true,
	"inspiring": true, "proud": true, "happy": true, "thanks": true,
	"grateful": true,
}

var negativeWords = map[string]bool{
	// French
	"déteste": true, "deteste": true, "horrible": true, "terrible": true,
	"affreux": true, "affreuse": true, "nul": true, "nulle": true,
	"mauvais": true, "mauvaise": true, "scandale": true, "scandaleux": true,
	"scandaleuse": true, "honte": true, "honteux": true, "honteuse": true,
	"inutile": true, "gâchis": true, "gachis": true, "catastrophe": true,
	"catastrophique": true, "déçu": true, "décue": true, "déçue": true,
	"triste": true, "laid": true, "laide": true, "absurde": true,
	"ridicule": true, "inacceptable": true, "opposé": true, "opposée": true,
	"contre": true, "refuse": true, "dommage": true,
	// English
	"hate": true, "awful": true, "bad": true, "worst": true, "ugly": true,
	"useless": true, "waste": true, "shame": true, "disgrace": true,
	"stupid": true, "wrong": true, "disappointed": true, "oppose": true,
	"against": true, "sad": true,
}

var positivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`très (belle?|bonne?|beau|utile)`),
	regexp.MustCompile(`bonne (idée|initiative)`),
	regexp.MustCompile(`belle (idée|initiative)`),
	regexp.MustCompile(`coup de c(œ|oe)ur`),
	regexp.MustCompile(`je (soutiens|signe avec plaisir)`),
	regexp.MustCompile(`great (idea|initiative|project)`),
	regexp.MustCompile(`fully support`),
	regexp.MustCompile(`can'?t wait`),
}

var negativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`n'importe quoi`),
	regexp.MustCompile(`mauvaise (idée|initiative)`),
	regexp.MustCompile(`perte de temps`),
	regexp.MustCompile(`gaspillage d'argent`),
	regexp.MustCompile(`waste of (time|money)`),
	regexp.MustCompile(`bad (idea|project)`),
	regexp.MustCompile(`makes no sense`),
}

var positiveEmoji = map[rune]bool{
	'❤': true, '💚': true, '👍': true, '🙏': true, '😍': true,
	'😊': true, '✨': true, '🎉': true, '💪': true,
}

var negativeEmoji = map[rune]bool{
	'👎': true, '😡': true, '😠': true, '💔': true, '😢': true,
}
