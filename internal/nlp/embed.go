package nlp

import _ "embed"

//go:embed scripts/spacy_parser.py
var embeddedPythonScript string

//go:embed scripts/requirements.txt
var embeddedRequirements string

const defaultRequirements = `spacy>=3.7.0,<4.0.0`
