package patterns

// DefaultVersion identifies the built-in library.
const DefaultVersion = "2025.1"

// Default returns the built-in Pattern Library. Each call returns a fresh copy.
func Default() PatternSet {
	return PatternSet{
		Version: DefaultVersion,
		Greetings: []string{
			`(?i)\bdear\s+\w+`,
			`(?i)\bhello\s+\w+`,
			`(?i)\bhi\s+\w+`,
			`(?i)\bgood\s+(?:morning|afternoon|evening)\b`,
		},
		Signatures: []string{
			`(?i)\b(?:best|kind|warm)\s+regards,?\s*\w+`,
			`(?i)\bsincerely,?\s*\w+`,
			`(?i)\bthanks,[ \t]*\r?\n\s*\w+`,
		},
		Closings: []string{
			`(?i)if you have any (?:further|other) questions,? please don['’]?t hesitate to (?:contact|reach out to) us`,
			`(?i)please let us know if you need any further assistance`,
			`(?i)we['’]?re here to help if you need anything else`,
		},
		Formatting: []string{
			`\n[ \t]*\r?\n`,
			`(?m)^[ \t]*[•\-\*][ \t]+\S`,
			`(?m)^[ \t]*\d+[.)][ \t]+\S`,
		},
		Empathy: []string{
			"i understand",
			"i appreciate",
			"thank you for",
			"i'm sorry",
			"we apologize",
			"we understand",
			"i can see why",
			"i recognize",
			"this must be",
			"that sounds",
			"i can imagine",
			"we value",
		},
		Positive: []string{
			"happy to help",
			"pleased to",
			"glad to",
			"looking forward",
			"thank you",
			"appreciate",
			"welcome",
			"delighted",
		},
		Negative: []string{
			"unfortunately",
			"cannot",
			"unable to",
			"not possible",
			"you have to",
			"you must",
			"you should have",
			"policy states",
		},
	}
}
