package text

// Split cuts text into overlapping windows of at most size runes, with
// consecutive chunks sharing exactly overlap runes. Empty input yields
// nil. Sizes are in runes so multi-byte content never splits mid-glyph.
//
// overlap must be smaller than size; config validation enforces this
// before a splitter is ever constructed.
func Split(text string, size, overlap int) []string {
	if text == "" || size <= 0 {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}
		chunks = append(chunks, string(runes[start:end]))
		start = end - overlap
	}
}
