package detect

import "github.com/loglens/loglens/pkg/types"

// maxPlainMessage bounds the message length of plain-text records.
const maxPlainMessage = 1000

// parsePlainLine is the stage 6 fallback, guaranteed to succeed for any
// non-empty line. The timestamp is scraped from anywhere in the line; the
// level is guessed from the whole line.
func parsePlainLine(line, source string) *types.LogRecord {
	return &types.LogRecord{
		Timestamp:     NormalizeTimestamp(isoTimestampRE.FindString(line)),
		Source:        source,
		Level:         GuessLevel(line),
		Message:       truncate(line, maxPlainMessage),
		Raw:           line,
		Format:        types.FormatPlain,
		NumericFields: ExtractNumbers(line),
		StringFields:  map[string]string{},
	}
}
