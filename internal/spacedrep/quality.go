package spacedrep

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Quality rates how well a card was recalled, from 0 (blackout) to 5
// (perfect recall).
type Quality int

const (
	QualityBlackout Quality = 0
	QualityPerfect  Quality = 5
)

// ErrInvalidQuality is returned for a rating outside 0-5.
var ErrInvalidQuality = errors.New("spacedrep: invalid review quality")

// QualityError carries the rejected input.
type QualityError struct {
	Input string
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("spacedrep: invalid review quality %q (want 0-%d)", e.Input, QualityPerfect)
}

func (e *QualityError) Unwrap() error { return ErrInvalidQuality }

// Valid reports whether q is within 0-5.
func (q Quality) Valid() bool {
	return q >= QualityBlackout && q <= QualityPerfect
}

// ParseQuality converts user input into a Quality.
func ParseQuality(s string) (Quality, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &QualityError{Input: s}
	}
	return QualityFromInt(n)
}

// QualityFromInt validates an integer rating.
func QualityFromInt(n int) (Quality, error) {
	q := Quality(n)
	if !q.Valid() {
		return 0, &QualityError{Input: strconv.Itoa(n)}
	}
	return q, nil
}
