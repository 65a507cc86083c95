package diagnosis

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TokenizerMode bestimmt, wie Rezepturtext zerlegt wird.
type TokenizerMode string

const (
	// TokenizeAuto zerlegt an Trennzeichen, falls vorhanden, sonst per Segmentierung.
	TokenizeAuto TokenizerMode = "auto"
	// TokenizeDelimited zerlegt ausschließlich an Trennzeichen.
	TokenizeDelimited TokenizerMode = "delimited"
	// TokenizeSegment segmentiert unsegmentierten Text gegen das Vokabular.
	TokenizeSegment TokenizerMode = "segment"
)

// ParseTokenizerMode wandelt den Konfigurationswert in einen TokenizerMode um.
func ParseTokenizerMode(s string) (TokenizerMode, error) {
	switch TokenizerMode(s) {
	case TokenizeAuto, TokenizeDelimited, TokenizeSegment:
		return TokenizerMode(s), nil
	}
	return "", fmt.Errorf("unknown tokenizer mode %q", s)
}

// Nach NFKC sind Vollbreiten-Komma und -Semikolon bereits ASCII.
func isDelimiter(r rune) bool {
	switch r {
	case ',', ';', '、', '\n', '\r', '\t':
		return true
	}
	return false
}

// Vocabulary ist die Menge bekannter Herb-Namen, normalisiert für den Vergleich.
type Vocabulary struct {
	forms    map[string]string // NFKC-Form -> Originalname
	maxRunes int
	maxWords int
}

// NewVocabulary baut ein Vokabular aus den Herb-Namen.
func NewVocabulary(names []string) *Vocabulary {
	v := &Vocabulary{forms: make(map[string]string, len(names))}
	for _, n := range names {
		form := normalizeToken(n)
		if form == "" {
			continue
		}
		if _, ok := v.forms[form]; !ok {
			v.forms[form] = n
		}
		if l := len([]rune(form)); l > v.maxRunes {
			v.maxRunes = l
		}
		if w := len(strings.Fields(form)); w > v.maxWords {
			v.maxWords = w
		}
	}
	return v
}

// Lookup liefert den Originalnamen für ein Token.
func (v *Vocabulary) Lookup(token string) (string, bool) {
	name, ok := v.forms[normalizeToken(token)]
	return name, ok
}

func (v *Vocabulary) Len() int { return len(v.forms) }

func normalizeToken(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// matchWords sucht die längste Wortfolge am Anfang von words, die exakt einem
// Herb entspricht, und liefert den Namen und die Anzahl verbrauchter Wörter.
func (v *Vocabulary) matchWords(words []string) (string, int) {
	n := v.maxWords
	if len(words) < n {
		n = len(words)
	}
	for ; n > 0; n-- {
		if name, ok := v.forms[strings.Join(words[:n], " ")]; ok {
			return name, n
		}
	}
	return "", 0
}

// Tokenizer zerlegt Rezepturtext in bekannte Herb-Namen.
type Tokenizer struct {
	mode TokenizerMode
}

func NewTokenizer(mode TokenizerMode) *Tokenizer {
	return &Tokenizer{mode: mode}
}

// Tokenize liefert die bekannten Herbs in Eingabereihenfolge. Duplikate bleiben erhalten.
func (t *Tokenizer) Tokenize(text string, vocab *Vocabulary) []string {
	herbs, _ := t.Split(text, vocab)
	return herbs
}

// Split liefert bekannte Herbs und die verworfenen, unbekannten Tokens.
func (t *Tokenizer) Split(text string, vocab *Vocabulary) (herbs, unknown []string) {
	text = norm.NFKC.String(text)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	switch t.mode {
	case TokenizeDelimited:
		return splitDelimited(text, vocab)
	case TokenizeSegment:
		return segment(text, vocab)
	}
	if strings.IndexFunc(text, isDelimiter) >= 0 {
		return splitDelimited(text, vocab)
	}
	if name, ok := vocab.Lookup(text); ok {
		return []string{name}, nil
	}
	return segment(text, vocab)
}

func splitDelimited(text string, vocab *Vocabulary) (herbs, unknown []string) {
	for _, item := range strings.FieldsFunc(text, isDelimiter) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if name, ok := vocab.Lookup(item); ok {
			herbs = append(herbs, name)
		} else {
			unknown = append(unknown, item)
		}
	}
	return herbs, unknown
}

// segment zerlegt Text ohne Trennzeichen. Leerzeichen trennen Wörter, und
// eine Wortfolge zählt nur als Herb, wenn sie exakt einem Namen entspricht.
// Nur Wörter in Schriften ohne Wortgrenzen (z.B. Han) werden zusätzlich per
// Forward-Maximum-Matching zerlegt.
func segment(text string, vocab *Vocabulary) (herbs, unknown []string) {
	words := strings.Fields(text)
	for i := 0; i < len(words); {
		if name, n := vocab.matchWords(words[i:]); n > 0 {
			herbs = append(herbs, name)
			i += n
			continue
		}
		word := strings.TrimFunc(words[i], unicode.IsPunct)
		i++
		if word == "" {
			continue
		}
		if name, ok := vocab.forms[word]; ok {
			herbs = append(herbs, name)
			continue
		}
		if strings.IndexFunc(word, isUnsegmentedScript) < 0 {
			unknown = append(unknown, word)
			continue
		}
		h, u := matchRunes(word, vocab)
		herbs = append(herbs, h...)
		unknown = append(unknown, u...)
	}
	return herbs, unknown
}

func isUnsegmentedScript(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Thai)
}

// matchRunes zerlegt ein einzelnes Wort per Forward-Maximum-Matching. Runen
// ohne Treffer werden zu zusammenhängenden unbekannten Fragmenten gesammelt.
func matchRunes(word string, vocab *Vocabulary) (herbs, unknown []string) {
	runes := []rune(word)
	var pending []rune
	flush := func() {
		if s := string(pending); s != "" {
			unknown = append(unknown, s)
		}
		pending = pending[:0]
	}
	for i := 0; i < len(runes); {
		if unicode.IsPunct(runes[i]) {
			flush()
			i++
			continue
		}
		matched := 0
		maxLen := vocab.maxRunes
		if rest := len(runes) - i; rest < maxLen {
			maxLen = rest
		}
		for l := maxLen; l > 0; l-- {
			if name, ok := vocab.forms[string(runes[i:i+l])]; ok {
				flush()
				herbs = append(herbs, name)
				matched = l
				break
			}
		}
		if matched == 0 {
			pending = append(pending, runes[i])
			i++
			continue
		}
		i += matched
	}
	flush()
	return herbs, unknown
}
