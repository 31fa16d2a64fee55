package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ocean-authoring/ocean-backend/internal/document/markup"
)

const (
	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

	nsRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsOfficeRels    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relOfficeDocument = nsOfficeRels + "/officeDocument"
	relCoreProps      = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	relExtendedProps  = nsOfficeRels + "/extended-properties"

	ctRelationships = "application/vnd.openxmlformats-package.relationships+xml"
	ctCoreProps     = "application/vnd.openxmlformats-package.core-properties+xml"
	ctExtendedProps = "application/vnd.openxmlformats-officedocument.extended-properties+xml"

	applicationName = "Ocean"
)

// part is one file inside an OPC package.
type part struct {
	name string
	body string
}

type relationship struct {
	id     string
	typ    string
	target string
}

type override struct {
	partName    string
	contentType string
}

// writePackage zips the parts in the given order. Only the zip entry times
// depend on modified; part bodies are written verbatim.
func writePackage(w io.Writer, parts []part, modified time.Time) error {
	zw := zip.NewWriter(w)
	for _, p := range parts {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := io.WriteString(fw, p.body); err != nil {
			return fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close package: %w", err)
	}
	return nil
}

func escape(s string) string {
	var buf bytes.Buffer
	// EscapeText only fails when the writer fails; bytes.Buffer never does.
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func contentTypesXML(overrides []override) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	fmt.Fprintf(&sb, `<Types xmlns="%s">`, nsContentTypes)
	fmt.Fprintf(&sb, `<Default Extension="rels" ContentType="%s"/>`, ctRelationships)
	sb.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	for _, o := range overrides {
		fmt.Fprintf(&sb, `<Override PartName="%s" ContentType="%s"/>`, o.partName, o.contentType)
	}
	sb.WriteString(`</Types>`)
	return sb.String()
}

func relationshipsXML(rels []relationship) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	fmt.Fprintf(&sb, `<Relationships xmlns="%s">`, nsRelationships)
	for _, r := range rels {
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="%s" Target="%s"/>`, r.id, r.typ, r.target)
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

// packageRels points the package at its main part plus the two property parts.
func packageRels(mainPart string) string {
	return relationshipsXML([]relationship{
		{id: "rId1", typ: relOfficeDocument, target: mainPart},
		{id: "rId2", typ: relCoreProps, target: "docProps/core.xml"},
		{id: "rId3", typ: relExtendedProps, target: "docProps/app.xml"},
	})
}

func corePropertiesXML(title string, at time.Time) string {
	stamp := at.UTC().Format(time.RFC3339)
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/"` +
		` xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	fmt.Fprintf(&sb, `<dc:title>%s</dc:title>`, escape(title))
	fmt.Fprintf(&sb, `<dc:creator>%s</dc:creator>`, applicationName)
	fmt.Fprintf(&sb, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, stamp)
	fmt.Fprintf(&sb, `<dcterms:modified xsi:type="dcterms:W3CDTF">%s</dcterms:modified>`, stamp)
	sb.WriteString(`</cp:coreProperties>`)
	return sb.String()
}

func appPropertiesXML(extra string) string {
	return xmlHeader +
		`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">` +
		`<Application>` + applicationName + `</Application>` + extra +
		`</Properties>`
}

// writeRuns renders runs with one of the two run dialects (WordprocessingML or DrawingML).
func writeRuns(sb *strings.Builder, runs []markup.Run, render func(*strings.Builder, markup.Run)) {
	for _, r := range runs {
		render(sb, r)
	}
}
