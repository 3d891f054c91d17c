// Package mood defines the mood label enumeration and the feed-forward
// classifier that maps acoustic feature vectors to moods.
package mood

import (
	"fmt"

	"github.com/piper-ml/piper/internal/shared"
)

// Mood is one of five discrete labels the classifier assigns to a track.
// The integer values are the classifier's class indices and must not be
// reordered; the trained artifacts depend on them.
type Mood int

const (
	Happy Mood = iota
	Calm
	Neutral
	Sad
	VerySad
)

var moodNames = [...]string{"Happy", "Calm", "Neutral", "Sad", "Very Sad"}

// NumClasses is the width of the classifier's output layer.
const NumClasses = len(moodNames)

// String returns the wire name of the mood ("Very Sad", not "VerySad").
func (m Mood) String() string {
	if m < 0 || int(m) >= NumClasses {
		return fmt.Sprintf("Mood(%d)", int(m))
	}
	return moodNames[m]
}

// Index returns the mood's class index in the classifier output.
func (m Mood) Index() int {
	return int(m)
}

// ParseMood converts a wire name to a [Mood]. Names are matched exactly.
func ParseMood(s string) (Mood, error) {
	for i, name := range moodNames {
		if s == name {
			return Mood(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mood %q", shared.ErrInvalidInput, s)
}

// Moods returns all moods in class-index order.
func Moods() []Mood {
	out := make([]Mood, NumClasses)
	for i := range out {
		out[i] = Mood(i)
	}
	return out
}
