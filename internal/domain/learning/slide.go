package learning

import (
	"fmt"
	"strings"
)

const SlideVersion = 1

type SlideKind string

const (
	SlideKindNarrated      SlideKind = "narrated"
	SlideKindLegacyContent SlideKind = "legacy_content"
)

type Slide struct {
	Version        int       `json:"version"`
	Kind           SlideKind `json:"kind"`
	Index          int       `json:"index"`
	Title          string    `json:"title,omitempty"`
	BodyMD         string    `json:"body_md,omitempty"`
	AudioReference string    `json:"audio_reference,omitempty"`
}

func NarratedSlide(index int, title, bodyMD, audioRef string) Slide {
	return Slide{
		Version:        SlideVersion,
		Kind:           SlideKindNarrated,
		Index:          index,
		Title:          title,
		BodyMD:         bodyMD,
		AudioReference: strings.TrimSpace(audioRef),
	}
}

// LegacyContentSlide wraps a lesson's markdown body. It never carries audio.
func LegacyContentSlide(title, contentMD string) Slide {
	return Slide{
		Version: SlideVersion,
		Kind:    SlideKindLegacyContent,
		Index:   1,
		Title:   title,
		BodyMD:  contentMD,
	}
}

func (s Slide) Validate() error {
	if s.Version != SlideVersion {
		return fmt.Errorf("slide %d: unsupported version %d", s.Index, s.Version)
	}
	switch s.Kind {
	case SlideKindNarrated:
	case SlideKindLegacyContent:
		if s.AudioReference != "" {
			return fmt.Errorf("slide %d: legacy_content slide cannot carry audio", s.Index)
		}
	default:
		return fmt.Errorf("slide %d: unknown kind %q", s.Index, s.Kind)
	}
	if s.Index < 1 {
		return fmt.Errorf("slide index must be positive, got %d", s.Index)
	}
	return nil
}

// ValidateSlides checks each slide and that indexes are 1..n in order.
func ValidateSlides(slides []Slide) error {
	for i, s := range slides {
		if err := s.Validate(); err != nil {
			return err
		}
		if s.Index != i+1 {
			return fmt.Errorf("slide at offset %d has index %d, want %d", i, s.Index, i+1)
		}
	}
	return nil
}
