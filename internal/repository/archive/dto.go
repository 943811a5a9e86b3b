package archive

import "github.com/liveclaw/voicecore/internal/domain"

func recordFromEntry(e domain.ClipEntry) Record {
	return Record{
		ClipID:     e.ID,
		AudioRef:   e.AudioRef,
		Keywords:   e.Keywords,
		Variations: e.Variations,
		Patterns:   e.PatternSources,
		Vectors:    e.Vectors,
		Priority:   e.Priority,
		CreatedAt:  e.CreatedAt,
	}
}

func entryFromRecord(rec Record) domain.ClipEntry {
	return domain.ReconstructClipEntry(
		rec.ClipID, rec.AudioRef,
		rec.Keywords, rec.Variations, rec.Patterns,
		rec.Vectors, rec.Priority, rec.CreatedAt,
	)
}
