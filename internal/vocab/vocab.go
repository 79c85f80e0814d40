package vocab

// #region imports
import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// #endregion

// #region control-tokens

// Control token strings and their fixed ids. The four control ids are
// reserved before any style class is admitted, so pad is always 0 and
// the decoder can rely on start/end having stable indices.
const (
	PadToken     = "<PAD>"
	StartToken   = "<SOS>"
	EndToken     = "<EOS>"
	UnknownToken = "<UNK>"

	PadID     = 0
	StartID   = 1
	EndID     = 2
	UnknownID = 3

	// FirstClassID is the lowest id a style-class token can hold; every
	// id below it is a control token.
	FirstClassID = 4
)

// #endregion

// #region token-grammar

// tokenPattern accepts style-class shaped tokens: utility names, negative
// prefixes, variant colons and bracketed arbitrary values.
var tokenPattern = regexp.MustCompile(`^-?[\w\-\[\].:%]+$`)

// arbitraryValuePattern accepts bracketed numeric values with a recognized
// CSS unit, e.g. text-[0.9rem] or max-w-[320px].
var arbitraryValuePattern = regexp.MustCompile(`^[a-z][\w-]*-\[\d+(\.\d+)?(rem|em|px|vh|vw|%)\]$`)

// IsArbitraryValue reports whether tok matches the constrained bracketed
// value grammar. Tokens with brackets that fail this grammar are invalid.
func IsArbitraryValue(tok string) bool {
	return arbitraryValuePattern.MatchString(tok)
}

// #endregion

// #region vocabulary

// Vocabulary is a closed bidirectional mapping between style-class tokens
// and integer ids. It grows only through Build; lookups at inference time
// map unseen tokens to UnknownID.
type Vocabulary struct {
	tokenToID map[string]int
	idToToken map[int]string
	nextID    int
}

// New returns a vocabulary containing only the four control tokens.
func New() *Vocabulary {
	v := &Vocabulary{
		tokenToID: map[string]int{
			PadToken:     PadID,
			StartToken:   StartID,
			EndToken:     EndID,
			UnknownToken: UnknownID,
		},
		idToToken: make(map[int]string, 4),
		nextID:    FirstClassID,
	}
	for tok, id := range v.tokenToID {
		v.idToToken[id] = tok
	}
	return v
}

// Size returns the total number of tokens including control tokens.
func (v *Vocabulary) Size() int {
	return len(v.tokenToID)
}

// ID returns the id for tok, or UnknownID if the token is not known.
func (v *Vocabulary) ID(tok string) int {
	if id, ok := v.tokenToID[tok]; ok {
		return id
	}
	return UnknownID
}

// Token returns the token string for id, or UnknownToken for unknown ids.
func (v *Vocabulary) Token(id int) string {
	if tok, ok := v.idToToken[id]; ok {
		return tok
	}
	return UnknownToken
}

// Contains reports whether tok is a known non-control token.
func (v *Vocabulary) Contains(tok string) bool {
	id, ok := v.tokenToID[tok]
	return ok && id >= FirstClassID
}

// Tokens returns all non-control tokens in id order.
func (v *Vocabulary) Tokens() []string {
	out := make([]string, 0, len(v.tokenToID)-FirstClassID)
	for id := FirstClassID; id < v.nextID; id++ {
		if tok, ok := v.idToToken[id]; ok {
			out = append(out, tok)
		}
	}
	return out
}

// #endregion

// #region split

// Split normalizes a raw style-class string into individual tokens.
// Tokens that do not match the class grammar are dropped.
func Split(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Fields(s) {
		if tokenPattern.MatchString(f) {
			out = append(out, f)
		}
	}
	return out
}

// #endregion

// #region build

// Build admits tokens from the given style-class strings. Tokens must occur
// at least minFreq times across the corpus to be admitted; more frequent
// tokens receive lower ids. Build is the only way the vocabulary grows.
func (v *Vocabulary) Build(sequences []string, minFreq int) int {
	if minFreq < 1 {
		minFreq = 1
	}
	freq := make(map[string]int)
	for _, seq := range sequences {
		for _, tok := range Split(seq) {
			freq[tok]++
		}
	}

	toks := make([]string, 0, len(freq))
	for tok, n := range freq {
		if n >= minFreq {
			toks = append(toks, tok)
		}
	}
	sort.Slice(toks, func(i, j int) bool {
		if freq[toks[i]] != freq[toks[j]] {
			return freq[toks[i]] > freq[toks[j]]
		}
		return toks[i] < toks[j]
	})

	added := 0
	for _, tok := range toks {
		if _, ok := v.tokenToID[tok]; ok {
			continue
		}
		v.tokenToID[tok] = v.nextID
		v.idToToken[v.nextID] = tok
		v.nextID++
		added++
	}
	return added
}

// #endregion

// #region encode-decode

// Encode converts a style-class string into an id sequence. When special is
// true the sequence is wrapped in start/end ids. Unknown tokens map to
// UnknownID.
func (v *Vocabulary) Encode(s string, special bool) []int {
	toks := Split(s)
	ids := make([]int, 0, len(toks)+2)
	if special {
		ids = append(ids, StartID)
	}
	for _, tok := range toks {
		ids = append(ids, v.ID(tok))
	}
	if special {
		ids = append(ids, EndID)
	}
	return ids
}

// Decode converts an id sequence back into a style-class string, dropping
// pad/start/end control ids. Unknown ids decode to UnknownToken so callers
// can see that something was off rather than silently losing a position.
func (v *Vocabulary) Decode(ids []int) string {
	toks := make([]string, 0, len(ids))
	for _, id := range ids {
		switch id {
		case PadID, StartID, EndID:
			continue
		}
		toks = append(toks, v.Token(id))
	}
	return strings.Join(toks, " ")
}

// #endregion

// #region persistence

type vocabFile struct {
	TokenToID map[string]int `json:"token_to_id"`
	VocabSize int            `json:"vocab_size"`
}

// Save writes the vocabulary as JSON.
func (v *Vocabulary) Save(path string) error {
	data, err := json.MarshalIndent(vocabFile{
		TokenToID: v.tokenToID,
		VocabSize: len(v.tokenToID),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal vocabulary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write vocabulary: %w", err)
	}
	return nil
}

// Load reads a vocabulary saved by Save. The four control tokens must be
// present with their reserved ids.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	var f vocabFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}

	for tok, id := range map[string]int{
		PadToken: PadID, StartToken: StartID, EndToken: EndID, UnknownToken: UnknownID,
	} {
		if got, ok := f.TokenToID[tok]; !ok || got != id {
			return nil, fmt.Errorf("vocabulary %s: control token %s has id %d, want %d", path, tok, got, id)
		}
	}

	v := &Vocabulary{
		tokenToID: f.TokenToID,
		idToToken: make(map[int]string, len(f.TokenToID)),
	}
	maxID := 0
	for tok, id := range f.TokenToID {
		if prev, ok := v.idToToken[id]; ok && prev != tok {
			return nil, fmt.Errorf("vocabulary %s: id %d assigned to both %q and %q", path, id, prev, tok)
		}
		v.idToToken[id] = tok
		if id > maxID {
			maxID = id
		}
	}
	v.nextID = maxID + 1
	return v, nil
}

// #endregion
