package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Document kinds. They match the project type values.
const (
	KindReport = "report"
	KindDeck   = "deck"
)

const (
	MIMEReport = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEDeck   = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// ErrUnsupportedType is returned when the kind is neither report nor deck.
var ErrUnsupportedType = errors.New("unsupported document type")

// File is an exported document ready to be sent to a client.
type File struct {
	Data     []byte
	Filename string
	MIMEType string
}

// Exporter renders project snapshots to Office files.
type Exporter struct {
	// Now stamps container metadata. Defaults to time.Now.
	Now func() time.Time
}

// NewExporter creates an Exporter using the wall clock.
func NewExporter() *Exporter {
	return &Exporter{Now: time.Now}
}

// Export dispatches on kind, serializes the document and derives the
// download name from the topic.
func (e *Exporter) Export(kind, topic string, sections []Section) (*File, error) {
	at := time.Now()
	if e != nil && e.Now != nil {
		at = e.Now()
	}

	var (
		buf  bytes.Buffer
		ext  string
		mime string
	)
	switch kind {
	case KindReport:
		if err := WriteDocx(&buf, BuildReport(topic, sections), at); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		ext, mime = "docx", MIMEReport
	case KindDeck:
		if err := WritePptx(&buf, BuildDeck(topic, sections), at); err != nil {
			return nil, fmt.Errorf("write deck: %w", err)
		}
		ext, mime = "pptx", MIMEDeck
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, kind)
	}

	return &File{
		Data:     buf.Bytes(),
		Filename: Filename(topic, ext),
		MIMEType: mime,
	}, nil
}

// Filename replaces every whitespace rune in topic with an underscore and
// appends the extension.
func Filename(topic, ext string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, topic)
	return name + "." + ext
}
