// Package catalog provides the record sources behind the metadata resolver.
package catalog

import (
	"context"
	"fmt"

	"audioflow/pkg/audiometa"
)

// DefaultRecords is the built-in chapter catalog.
func DefaultRecords() []audiometa.Record {
	return []audiometa.Record{
		{
			ID:             "chap17347568BhadreshDoshi1",
			ChapterName:    "RE-CONSTITUTION OF FIRMS - SECTIONS 45(4) AND 9B - CONTRASTING PERSPECTIVES",
			CompanyName:    "BCASONLINE",
			CompanyWebsite: "https://bcasonline.org/",
			AudioURL:       "/Bhadresh_Doshi_1.m4a",
		},
		{
			ID:             "chap27347568Byogeshthar2",
			ChapterName:    "ASSORTED CASE STUDIES",
			CompanyName:    "BCASONLINE",
			CompanyWebsite: "https://bcasonline.org/",
			AudioURL:       "/yogesh_thar_2.m4a",
		},
		{
			ID:             "chap557867845sGanesh5",
			ChapterName:    "BRAINS TRUST SESSION",
			CompanyName:    "BCASONLINE",
			CompanyWebsite: "https://bcasonline.org/",
			AudioURL:       "/S_ganesh_5.m4a",
		},
		{
			ID:             "chap47456pradipk6474",
			ChapterName:    "NAVIGATING DEEMING FICTIONS & VEXATIOUS VALUATIONS",
			CompanyName:    "BCASONLINE",
			CompanyWebsite: "https://bcasonline.org/",
			AudioURL:       "/Pradip_Kapasi_4.m4a",
		},
		{
			ID:             "chap37456rahulbk647hgdj4",
			ChapterName:    "TAX AND TECH: THE NEW FRONTIER",
			CompanyName:    "BCASONLINE",
			CompanyWebsite: "https://bcasonline.org/",
			AudioURL:       "/Rahul_Bajaj_3.m4a",
		},
	}
}

// Static is a read-only in-memory catalog.
type Static struct {
	ids     []string
	records map[string]audiometa.Record
}

// NewStatic copies records into a new catalog. Later duplicates are ignored.
func NewStatic(records []audiometa.Record) *Static {
	s := &Static{
		ids:     make([]string, 0, len(records)),
		records: make(map[string]audiometa.Record, len(records)),
	}
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if _, exists := s.records[r.ID]; exists {
			continue
		}
		s.ids = append(s.ids, r.ID)
		s.records[r.ID] = r
	}
	return s
}

// Lookup returns a copy of the record with the exact identifier id.
func (s *Static) Lookup(_ context.Context, id string) (*audiometa.Record, error) {
	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", audiometa.ErrNotFound, id)
	}
	return &r, nil
}

// IDs returns the catalog's identifiers in insertion order.
func (s *Static) IDs(_ context.Context) ([]string, error) {
	ids := make([]string, len(s.ids))
	copy(ids, s.ids)
	return ids, nil
}
