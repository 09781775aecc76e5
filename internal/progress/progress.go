// Package progress tracks the (test, question) cursor of an evaluation.
package progress

import "fmt"

// Test numbers of the two ordered question sets.
const (
	TechnicalTest   = 1
	TransversalTest = 2
)

// Cursor points at a 1-indexed question of a test. The zero value means "not started".
type Cursor struct {
	Test     int `json:"test"`
	Question int `json:"question"`
}

// Start is the cursor of a freshly created evaluation.
var Start = Cursor{Test: TechnicalTest, Question: 1}

// IsZero reports whether the cursor has not been started.
func (c Cursor) IsZero() bool {
	return c.Test == 0 || c.Question == 0
}

func (c Cursor) String() string {
	return fmt.Sprintf("test %d, question %d", c.Test, c.Question)
}

// Totals holds the number of active questions of each test.
type Totals struct {
	Test1 int `json:"test_1"`
	Test2 int `json:"test_2"`
}

// For returns the question count of the given test.
func (t Totals) For(test int) int {
	if test == TechnicalTest {
		return t.Test1
	}
	return t.Test2
}

// Advance moves the cursor past the question that was just answered.
//
// Finishing test 1 always moves to question 1 of test 2. Finishing test 2 reports
// completion and leaves the cursor where it is.
func Advance(c Cursor, totals Totals) (next Cursor, complete bool) {
	switch {
	case c.Test == TechnicalTest && c.Question >= totals.Test1:
		return Cursor{Test: TransversalTest, Question: 1}, false
	case c.Test == TransversalTest && c.Question >= totals.Test2:
		return c, true
	default:
		return Cursor{Test: c.Test, Question: c.Question + 1}, false
	}
}
