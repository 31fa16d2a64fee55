package document

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ocean-authoring/ocean-backend/internal/document/markup"
)

const (
	nsWordprocessing = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

	ctWordDocument = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	ctWordStyles   = "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"

	styleTitle    = "Title"
	styleHeading1 = "Heading1"
)

// WriteDocx serializes a report as a WordprocessingML package.
func WriteDocx(w io.Writer, r Report, at time.Time) error {
	parts := []part{
		{name: "[Content_Types].xml", body: contentTypesXML([]override{
			{partName: "/word/document.xml", contentType: ctWordDocument},
			{partName: "/word/styles.xml", contentType: ctWordStyles},
			{partName: "/docProps/core.xml", contentType: ctCoreProps},
			{partName: "/docProps/app.xml", contentType: ctExtendedProps},
		})},
		{name: "_rels/.rels", body: packageRels("word/document.xml")},
		{name: "word/_rels/document.xml.rels", body: relationshipsXML([]relationship{
			{id: "rId1", typ: nsOfficeRels + "/styles", target: "styles.xml"},
		})},
		{name: "word/document.xml", body: reportDocumentXML(r)},
		{name: "word/styles.xml", body: wordStylesXML},
		{name: "docProps/core.xml", body: corePropertiesXML(r.Title, at)},
		{name: "docProps/app.xml", body: appPropertiesXML("")},
	}
	return writePackage(w, parts, at)
}

// reportDocumentXML is the main document part: title, then heading and body
// paragraph per section.
func reportDocumentXML(r Report) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	fmt.Fprintf(&sb, `<w:document xmlns:w="%s"><w:body>`, nsWordprocessing)

	writeStyledParagraph(&sb, styleTitle, r.Title)
	for _, s := range r.Sections {
		writeStyledParagraph(&sb, styleHeading1, s.Heading)
		sb.WriteString(`<w:p>`)
		writeRuns(&sb, s.Body.Runs, writeWordRun)
		sb.WriteString(`</w:p>`)
	}

	sb.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>` +
		`</w:sectPr>`)
	sb.WriteString(`</w:body></w:document>`)
	return sb.String()
}

func writeStyledParagraph(sb *strings.Builder, style, text string) {
	fmt.Fprintf(sb, `<w:p><w:pPr><w:pStyle w:val="%s"/></w:pPr>`, style)
	if text != "" {
		writeWordRun(sb, markup.Run{Text: text})
	}
	sb.WriteString(`</w:p>`)
}

func writeWordRun(sb *strings.Builder, r markup.Run) {
	sb.WriteString(`<w:r>`)
	if r.Bold {
		sb.WriteString(`<w:rPr><w:b/></w:rPr>`)
	}
	fmt.Fprintf(sb, `<w:t xml:space="preserve">%s</w:t>`, escape(r.Text))
	sb.WriteString(`</w:r>`)
}

const wordStylesXML = xmlHeader +
	`<w:styles xmlns:w="` + nsWordprocessing + `">` +
	`<w:docDefaults><w:rPrDefault><w:rPr>` +
	`<w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:eastAsia="Calibri" w:cs="Calibri"/>` +
	`<w:sz w:val="22"/><w:szCs w:val="22"/><w:lang w:val="en-US"/>` +
	`</w:rPr></w:rPrDefault>` +
	`<w:pPrDefault><w:pPr><w:spacing w:after="160" w:line="259" w:lineRule="auto"/></w:pPr></w:pPrDefault>` +
	`</w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/>` +
	`<w:next w:val="Normal"/><w:qFormat/>` +
	`<w:pPr><w:spacing w:after="300"/><w:contextualSpacing/></w:pPr>` +
	`<w:rPr><w:rFonts w:ascii="Calibri Light" w:hAnsi="Calibri Light"/><w:spacing w:val="-10"/>` +
	`<w:kern w:val="28"/><w:sz w:val="56"/><w:szCs w:val="56"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/>` +
	`<w:next w:val="Normal"/><w:qFormat/>` +
	`<w:pPr><w:keepNext/><w:keepLines/><w:spacing w:before="240" w:after="0"/><w:outlineLvl w:val="0"/></w:pPr>` +
	`<w:rPr><w:rFonts w:ascii="Calibri Light" w:hAnsi="Calibri Light"/><w:b/><w:color w:val="2F5496"/>` +
	`<w:sz w:val="32"/><w:szCs w:val="32"/></w:rPr></w:style>` +
	`</w:styles>`
