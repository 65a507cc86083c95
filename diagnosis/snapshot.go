package diagnosis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"tcm-diagnosis/models"
)

// Entities ist der Rohinhalt des Entity-Stores zu einem Zeitpunkt.
type Entities struct {
	Herbs        []models.Herb
	Diseases     []models.Disease
	Associations []models.HerbDiseaseAssociation
}

// EntityStore liefert Herbs, Diseases und Assoziationen als konsistente Momentaufnahme.
type EntityStore interface {
	LoadEntities(ctx context.Context) (Entities, error)
}

// Pair ist eine aufgelöste Assoziation.
type Pair struct {
	Herb    string
	Disease string
}

// Snapshot ist die unveränderliche Sicht einer einzelnen Inferenz auf den Store.
// Encoder, Vokabular und Hash werden einmalig beim Erzeugen berechnet.
type Snapshot struct {
	herbs    *LabelEncoder
	diseases *LabelEncoder
	pairs    []Pair
	vocab    *Vocabulary
	hash     string
	orphans  int
}

// TakeSnapshot liest den Store und baut daraus einen Snapshot.
func TakeSnapshot(ctx context.Context, store EntityStore) (*Snapshot, error) {
	ents, err := store.LoadEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	return NewSnapshot(ents), nil
}

// NewSnapshot löst Assoziationen auf Namen auf. Assoziationen mit unbekannter
// herb_id oder disease_id werden übersprungen und in Orphans() gezählt.
func NewSnapshot(ents Entities) *Snapshot {
	herbNames := make(map[uint]string, len(ents.Herbs))
	names := make([]string, 0, len(ents.Herbs))
	for _, h := range ents.Herbs {
		herbNames[h.ID] = h.Name
		names = append(names, h.Name)
	}
	diseaseNames := make(map[uint]string, len(ents.Diseases))
	dnames := make([]string, 0, len(ents.Diseases))
	for _, d := range ents.Diseases {
		diseaseNames[d.ID] = d.Name
		dnames = append(dnames, d.Name)
	}

	s := &Snapshot{
		herbs:    NewLabelEncoder(names),
		diseases: NewLabelEncoder(dnames),
	}
	for _, a := range ents.Associations {
		h, okH := herbNames[a.HerbID]
		d, okD := diseaseNames[a.DiseaseID]
		if !okH || !okD {
			s.orphans++
			continue
		}
		s.pairs = append(s.pairs, Pair{Herb: h, Disease: d})
	}
	sort.SliceStable(s.pairs, func(i, j int) bool {
		if s.pairs[i].Herb != s.pairs[j].Herb {
			return s.pairs[i].Herb < s.pairs[j].Herb
		}
		return s.pairs[i].Disease < s.pairs[j].Disease
	})
	s.vocab = NewVocabulary(s.herbs.Classes())
	s.hash = s.computeHash()
	return s
}

func (s *Snapshot) computeHash() string {
	h := sha256.New()
	write := func(tag string, v string) {
		fmt.Fprintf(h, "%s:%d:%s\n", tag, len(v), v)
	}
	for _, n := range s.herbs.classes {
		write("h", n)
	}
	for _, n := range s.diseases.classes {
		write("d", n)
	}
	for _, p := range s.pairs {
		write("a", p.Herb+"\x00"+p.Disease)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Snapshot) HerbEncoder() *LabelEncoder    { return s.herbs }
func (s *Snapshot) DiseaseEncoder() *LabelEncoder { return s.diseases }
func (s *Snapshot) Vocabulary() *Vocabulary       { return s.vocab }

// Pairs liefert die aufgelösten Assoziationen, sortiert nach (Herb, Disease).
func (s *Snapshot) Pairs() []Pair {
	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// Hash identifiziert den Inhalt des Snapshots; gleicher Inhalt ergibt gleichen Hash.
func (s *Snapshot) Hash() string { return s.hash }

// Orphans zählt übersprungene Assoziationen mit verwaisten Referenzen.
func (s *Snapshot) Orphans() int { return s.orphans }
