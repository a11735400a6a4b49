// Package audiopath names lesson narration files in the content store.
//
// Legacy files are addressed by lesson position (audio/lesson4/slide1.mp3)
// and go stale whenever a lesson moves. Stable files are addressed by lesson
// id (audio/lesson-<uuid>/slide1.mp3).
package audiopath

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const Root = "audio"

var (
	slideFileRE = regexp.MustCompile(`^slide(\d+)\.mp3$`)
	legacyRefRE = regexp.MustCompile(`(^|/)audio/lesson(\d+)/slide(\d+)\.mp3$`)
)

func LegacyDir(position int) string {
	return fmt.Sprintf("%s/lesson%d", Root, position)
}

func StableDir(lessonID uuid.UUID) string {
	return fmt.Sprintf("%s/lesson-%s", Root, lessonID)
}

func SlideFile(index int) string {
	return fmt.Sprintf("slide%d.mp3", index)
}

func LegacyPath(position, slideIndex int) string {
	return LegacyDir(position) + "/" + SlideFile(slideIndex)
}

func StablePath(lessonID uuid.UUID, slideIndex int) string {
	return StableDir(lessonID) + "/" + SlideFile(slideIndex)
}

// ParseSlideFile returns the slide index encoded in a file name like
// "slide3.mp3".
func ParseSlideFile(name string) (int, bool) {
	m := slideFileRE.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	i, err := strconv.Atoi(m[1])
	if err != nil || i < 1 {
		return 0, false
	}
	return i, true
}

// ParseLegacyReference extracts position and slide index from a legacy
// reference. The reference may be a bare path or a URL; query and fragment
// are ignored.
func ParseLegacyReference(ref string) (position, slideIndex int, ok bool) {
	p, _ := splitSuffix(strings.TrimSpace(ref))
	m := legacyRefRE.FindStringSubmatch(p)
	if m == nil {
		return 0, 0, false
	}
	pos, err1 := strconv.Atoi(m[2])
	idx, err2 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil || pos < 1 || idx < 1 {
		return 0, 0, false
	}
	return pos, idx, true
}

// Normalize rewrites a legacy reference of any position to the stable form
// for lessonID. Anything before the audio/ segment and any query or fragment
// are kept. Other references are returned unchanged with ok=false.
func Normalize(ref string, lessonID uuid.UUID) (string, bool) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" || lessonID == uuid.Nil {
		return ref, false
	}
	p, suffix := splitSuffix(trimmed)
	loc := legacyRefRE.FindStringSubmatchIndex(p)
	if loc == nil {
		return ref, false
	}
	idx, err := strconv.Atoi(p[loc[6]:loc[7]])
	if err != nil || idx < 1 {
		return ref, false
	}
	// loc[2:4] is the optional leading slash group.
	prefix := p[:loc[3]]
	return prefix + StablePath(lessonID, idx) + suffix, true
}

func splitSuffix(ref string) (string, string) {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i], ref[i:]
	}
	return ref, ""
}
