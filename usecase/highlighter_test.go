package usecase

import "testing"

func TestHighlighter_TwoFragments(t *testing.T) {
	h := NewHighlighter("Good morning!")

	got := h.Next("Good ") + h.Next("morning!") + h.Flush()
	if got != "Good morning!" {
		t.Errorf("Expected 'Good morning!', got '%s'", got)
	}
}

func TestHighlighter_IncludesTrailingPunctuation(t *testing.T) {
	h := NewHighlighter("Hello, world.")

	if got := h.Next("hello"); got != "Hello," {
		t.Errorf("Expected 'Hello,', got '%s'", got)
	}
	if got := h.Next("WORLD"); got != " world." {
		t.Errorf("Expected ' world.', got '%s'", got)
	}
	if got := h.Flush(); got != "" {
		t.Errorf("Expected empty flush, got '%s'", got)
	}
}

func TestHighlighter_RepeatedWordMovesForward(t *testing.T) {
	h := NewHighlighter("the cat and the dog")

	var starts []int
	for _, word := range []string{"the", "cat", "and", "the", "dog"} {
		starts = append(starts, h.Cursor())
		if h.Next(word) == "" {
			t.Fatalf("Expected a match for '%s'", word)
		}
	}

	for i := 1; i < len(starts); i++ {
		if starts[i] < starts[i-1] {
			t.Errorf("Cursor rewound from %d to %d", starts[i-1], starts[i])
		}
	}
	if h.Cursor() != len("the cat and the dog") {
		t.Errorf("Expected cursor at end, got %d", h.Cursor())
	}
}

func TestHighlighter_NotFound(t *testing.T) {
	h := NewHighlighter("Nice to meet you")
	h.Next("Nice")

	if got := h.Next("banana"); got != "" {
		t.Errorf("Expected empty string for unknown fragment, got '%s'", got)
	}
	if got := h.Flush(); got != "to meet you" {
		t.Errorf("Expected remaining tail, got '%s'", got)
	}
}

func TestHighlighter_SkippedWordsAreIncluded(t *testing.T) {
	h := NewHighlighter("I really like tea")

	if got := h.Next("like"); got != "I really like " {
		t.Errorf("Expected gap to be included, got '%s'", got)
	}
}

func TestHighlighter_Unicode(t *testing.T) {
	h := NewHighlighter("Café au lait")

	if got := h.Next("CAFÉ"); got != "Café " {
		t.Errorf("Expected 'Café ', got '%s'", got)
	}
}

func TestHighlighter_FoldsAcrossByteLengths(t *testing.T) {
	// U+212A KELVIN SIGN folds to 'k' but is three bytes long.
	h := NewHighlighter("Kelvin is cold.")

	if got := h.Next("kelvin"); got != "Kelvin " {
		t.Errorf("Expected 'Kelvin ', got '%s'", got)
	}
	if got := h.Next("is"); got != "is " {
		t.Errorf("Expected 'is ', got '%s'", got)
	}
}
