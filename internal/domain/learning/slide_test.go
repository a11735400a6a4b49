package learning

import "testing"

func TestSlideValidate(t *testing.T) {
	cases := []struct {
		name    string
		slide   Slide
		wantErr bool
	}{
		{"narrated", NarratedSlide(1, "Intro", "hi", "audio/lesson1/slide1.mp3"), false},
		{"narrated without audio", NarratedSlide(2, "", "", ""), false},
		{"legacy", LegacyContentSlide("T", "# body"), false},
		{"legacy with audio", Slide{Version: 1, Kind: SlideKindLegacyContent, Index: 1, AudioReference: "x.mp3"}, true},
		{"unknown kind", Slide{Version: 1, Kind: "video", Index: 1}, true},
		{"future version", Slide{Version: 2, Kind: SlideKindNarrated, Index: 1}, true},
		{"zero index", Slide{Version: 1, Kind: SlideKindNarrated, Index: 0}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.slide.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate err=%v wantErr=%v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateSlidesOrder(t *testing.T) {
	ok := []Slide{NarratedSlide(1, "", "", ""), NarratedSlide(2, "", "", "")}
	if err := ValidateSlides(ok); err != nil {
		t.Fatalf("ValidateSlides: %v", err)
	}
	gap := []Slide{NarratedSlide(1, "", "", ""), NarratedSlide(3, "", "", "")}
	if err := ValidateSlides(gap); err == nil {
		t.Fatalf("expected gap error")
	}
}

func TestEffectiveSlidesFallsBackToContent(t *testing.T) {
	l := &Lesson{Title: "Old", Content: "legacy body"}
	got := l.EffectiveSlides()
	if len(got) != 1 || got[0].Kind != SlideKindLegacyContent || got[0].BodyMD != "legacy body" {
		t.Fatalf("EffectiveSlides=%+v", got)
	}
	if n := len((&Lesson{}).EffectiveSlides()); n != 0 {
		t.Fatalf("empty lesson slides=%d", n)
	}
	l.Slides = []Slide{NarratedSlide(1, "", "", "")}
	if got := l.EffectiveSlides(); got[0].Kind != SlideKindNarrated {
		t.Fatalf("structured slides ignored: %+v", got)
	}
}
