package document

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ocean-authoring/ocean-backend/internal/document/markup"
)

const (
	nsDrawing      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPresentation = "http://schemas.openxmlformats.org/presentationml/2006/main"

	pmlNamespaces = `xmlns:a="` + nsDrawing + `" xmlns:r="` + nsOfficeRels + `" xmlns:p="` + nsPresentation + `"`

	ctPresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	ctSlideMaster  = "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"
	ctSlideLayout  = "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"
	ctSlide        = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ctTheme        = "application/vnd.openxmlformats-officedocument.theme+xml"
	ctPresProps    = "application/vnd.openxmlformats-officedocument.presentationml.presProps+xml"

	relSlideMaster = nsOfficeRels + "/slideMaster"
	relSlideLayout = nsOfficeRels + "/slideLayout"
	relSlide       = nsOfficeRels + "/slide"
	relTheme       = nsOfficeRels + "/theme"
	relPresProps   = nsOfficeRels + "/presProps"

	// firstSlideID is the lowest id PowerPoint accepts in sldIdLst.
	firstSlideID = 256
	// slide relationship ids start after master, theme and presProps.
	firstSlideRel = 4
)

// Slide layouts shipped in the package. The title layout is used for the
// first slide only.
const (
	layoutTitle   = 1
	layoutContent = 2
)

// WritePptx serializes a deck as a PresentationML package.
func WritePptx(w io.Writer, d Deck, at time.Time) error {
	overrides := []override{
		{partName: "/ppt/presentation.xml", contentType: ctPresentation},
		{partName: "/ppt/presProps.xml", contentType: ctPresProps},
		{partName: "/ppt/slideMasters/slideMaster1.xml", contentType: ctSlideMaster},
		{partName: "/ppt/slideLayouts/slideLayout1.xml", contentType: ctSlideLayout},
		{partName: "/ppt/slideLayouts/slideLayout2.xml", contentType: ctSlideLayout},
		{partName: "/ppt/theme/theme1.xml", contentType: ctTheme},
	}
	for i := range d.Slides {
		overrides = append(overrides, override{
			partName:    fmt.Sprintf("/ppt/slides/slide%d.xml", i+1),
			contentType: ctSlide,
		})
	}
	overrides = append(overrides,
		override{partName: "/docProps/core.xml", contentType: ctCoreProps},
		override{partName: "/docProps/app.xml", contentType: ctExtendedProps},
	)

	presRels := []relationship{
		{id: "rId1", typ: relSlideMaster, target: "slideMasters/slideMaster1.xml"},
		{id: "rId2", typ: relTheme, target: "theme/theme1.xml"},
		{id: "rId3", typ: relPresProps, target: "presProps.xml"},
	}
	for i := range d.Slides {
		presRels = append(presRels, relationship{
			id:     fmt.Sprintf("rId%d", firstSlideRel+i),
			typ:    relSlide,
			target: fmt.Sprintf("slides/slide%d.xml", i+1),
		})
	}

	parts := []part{
		{name: "[Content_Types].xml", body: contentTypesXML(overrides)},
		{name: "_rels/.rels", body: packageRels("ppt/presentation.xml")},
		{name: "ppt/presentation.xml", body: presentationXML(len(d.Slides))},
		{name: "ppt/_rels/presentation.xml.rels", body: relationshipsXML(presRels)},
		{name: "ppt/presProps.xml", body: xmlHeader + `<p:presentationPr ` + pmlNamespaces + `/>`},
		{name: "ppt/slideMasters/slideMaster1.xml", body: slideMasterXML},
		{name: "ppt/slideMasters/_rels/slideMaster1.xml.rels", body: relationshipsXML([]relationship{
			{id: "rId1", typ: relSlideLayout, target: "../slideLayouts/slideLayout1.xml"},
			{id: "rId2", typ: relSlideLayout, target: "../slideLayouts/slideLayout2.xml"},
			{id: "rId3", typ: relTheme, target: "../theme/theme1.xml"},
		})},
		{name: "ppt/slideLayouts/slideLayout1.xml", body: titleLayoutXML},
		{name: "ppt/slideLayouts/_rels/slideLayout1.xml.rels", body: layoutRels()},
		{name: "ppt/slideLayouts/slideLayout2.xml", body: contentLayoutXML},
		{name: "ppt/slideLayouts/_rels/slideLayout2.xml.rels", body: layoutRels()},
		{name: "ppt/theme/theme1.xml", body: themeXML},
	}

	for i, s := range d.Slides {
		layout := layoutContent
		if i == 0 {
			layout = layoutTitle
		}
		parts = append(parts,
			part{name: fmt.Sprintf("ppt/slides/slide%d.xml", i+1), body: slideXML(s, layout)},
			part{name: fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1), body: relationshipsXML([]relationship{
				{id: "rId1", typ: relSlideLayout, target: fmt.Sprintf("../slideLayouts/slideLayout%d.xml", layout)},
			})},
		)
	}

	title := ""
	if len(d.Slides) > 0 {
		title = d.Slides[0].Title
	}
	parts = append(parts,
		part{name: "docProps/core.xml", body: corePropertiesXML(title, at)},
		part{name: "docProps/app.xml", body: appPropertiesXML(fmt.Sprintf("<Slides>%d</Slides>", len(d.Slides)))},
	)

	return writePackage(w, parts, at)
}

func presentationXML(slides int) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<p:presentation ` + pmlNamespaces + ` saveSubsetFonts="1">`)
	sb.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	if slides > 0 {
		sb.WriteString(`<p:sldIdLst>`)
		for i := 0; i < slides; i++ {
			fmt.Fprintf(&sb, `<p:sldId id="%d" r:id="rId%d"/>`, firstSlideID+i, firstSlideRel+i)
		}
		sb.WriteString(`</p:sldIdLst>`)
	}
	sb.WriteString(`<p:sldSz cx="9144000" cy="6858000" type="screen4x3"/>`)
	sb.WriteString(`<p:notesSz cx="6858000" cy="9144000"/>`)
	sb.WriteString(`</p:presentation>`)
	return sb.String()
}

func layoutRels() string {
	return relationshipsXML([]relationship{
		{id: "rId1", typ: relSlideMaster, target: "../slideMasters/slideMaster1.xml"},
	})
}

// slideXML renders a slide against the given layout. Title slides carry only
// the centered title placeholder; content slides add the body placeholder with
// one level-0 paragraph per bullet.
func slideXML(s Slide, layout int) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<p:sld ` + pmlNamespaces + `><p:cSld><p:spTree>`)
	sb.WriteString(groupShapeProps)

	titleType := "title"
	if layout == layoutTitle {
		titleType = "ctrTitle"
	}
	fmt.Fprintf(&sb, `<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/>`+
		`<p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="%s"/></p:nvPr></p:nvSpPr>`, titleType)
	sb.WriteString(`<p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/><a:p>`)
	if s.Title != "" {
		writeDrawingRun(&sb, markup.Run{Text: s.Title})
	} else {
		sb.WriteString(`<a:endParaRPr lang="en-US"/>`)
	}
	sb.WriteString(`</a:p></p:txBody></p:sp>`)

	if layout == layoutContent {
		sb.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Content Placeholder 2"/>` +
			`<p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph idx="1"/></p:nvPr></p:nvSpPr>`)
		sb.WriteString(`<p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/>`)
		if len(s.Bullets) == 0 {
			sb.WriteString(`<a:p><a:endParaRPr lang="en-US"/></a:p>`)
		}
		for _, b := range s.Bullets {
			sb.WriteString(`<a:p><a:pPr lvl="0"/>`)
			writeRuns(&sb, b.Runs, writeDrawingRun)
			sb.WriteString(`</a:p>`)
		}
		sb.WriteString(`</p:txBody></p:sp>`)
	}

	sb.WriteString(`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	return sb.String()
}

func writeDrawingRun(sb *strings.Builder, r markup.Run) {
	sb.WriteString(`<a:r>`)
	if r.Bold {
		sb.WriteString(`<a:rPr lang="en-US" b="1" dirty="0"/>`)
	} else {
		sb.WriteString(`<a:rPr lang="en-US" dirty="0"/>`)
	}
	fmt.Fprintf(sb, `<a:t>%s</a:t></a:r>`, escape(r.Text))
}

const groupShapeProps = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/>` +
	`<a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

const emptyTextBody = `<p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:endParaRPr lang="en-US"/></a:p></p:txBody>`

const placeholderLocks = `<p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr>`

const slideMasterXML = xmlHeader +
	`<p:sldMaster ` + pmlNamespaces + `><p:cSld>` +
	`<p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg><p:spTree>` + groupShapeProps +
	`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title Placeholder 1"/>` + placeholderLocks +
	`<p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>` +
	`<p:spPr><a:xfrm><a:off x="457200" y="274638"/><a:ext cx="8229600" cy="1143000"/></a:xfrm>` +
	`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>` + emptyTextBody + `</p:sp>` +
	`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Text Placeholder 2"/>` + placeholderLocks +
	`<p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr>` +
	`<p:spPr><a:xfrm><a:off x="457200" y="1600200"/><a:ext cx="8229600" cy="4525963"/></a:xfrm>` +
	`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>` + emptyTextBody + `</p:sp>` +
	`</p:spTree></p:cSld>` +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3"` +
	` accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/><p:sldLayoutId id="2147483650" r:id="rId2"/></p:sldLayoutIdLst>` +
	`<p:txStyles>` +
	`<p:titleStyle><a:lvl1pPr algn="ctr"><a:defRPr sz="4400"><a:solidFill><a:schemeClr val="tx1"/></a:solidFill>` +
	`<a:latin typeface="+mj-lt"/></a:defRPr></a:lvl1pPr></p:titleStyle>` +
	`<p:bodyStyle><a:lvl1pPr marL="342900" indent="-342900"><a:buFont typeface="Arial"/><a:buChar char="&#8226;"/>` +
	`<a:defRPr sz="2800"><a:solidFill><a:schemeClr val="tx1"/></a:solidFill><a:latin typeface="+mn-lt"/></a:defRPr>` +
	`</a:lvl1pPr></p:bodyStyle>` +
	`<p:otherStyle><a:defPPr><a:defRPr lang="en-US"/></a:defPPr></p:otherStyle>` +
	`</p:txStyles></p:sldMaster>`

const titleLayoutXML = xmlHeader +
	`<p:sldLayout ` + pmlNamespaces + ` type="title" preserve="1"><p:cSld name="Title Slide"><p:spTree>` + groupShapeProps +
	`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/>` + placeholderLocks +
	`<p:nvPr><p:ph type="ctrTitle"/></p:nvPr></p:nvSpPr>` +
	`<p:spPr><a:xfrm><a:off x="685800" y="2130425"/><a:ext cx="7772400" cy="1470025"/></a:xfrm></p:spPr>` +
	emptyTextBody + `</p:sp>` +
	`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`

const contentLayoutXML = xmlHeader +
	`<p:sldLayout ` + pmlNamespaces + ` type="obj" preserve="1"><p:cSld name="Title and Content"><p:spTree>` + groupShapeProps +
	`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/>` + placeholderLocks +
	`<p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/>` + emptyTextBody + `</p:sp>` +
	`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Content Placeholder 2"/>` + placeholderLocks +
	`<p:nvPr><p:ph idx="1"/></p:nvPr></p:nvSpPr><p:spPr/>` + emptyTextBody + `</p:sp>` +
	`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`

const themeXML = xmlHeader +
	`<a:theme xmlns:a="` + nsDrawing + `" name="Office Theme"><a:themeElements>` +
	`<a:clrScheme name="Office">` +
	`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>` +
	`<a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="1F497D"/></a:dk2><a:lt2><a:srgbClr val="EEECE1"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="4F81BD"/></a:accent1><a:accent2><a:srgbClr val="C0504D"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="9BBB59"/></a:accent3><a:accent4><a:srgbClr val="8064A2"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="4BACC6"/></a:accent5><a:accent6><a:srgbClr val="F79646"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="0000FF"/></a:hlink><a:folHlink><a:srgbClr val="800080"/></a:folHlink>` +
	`</a:clrScheme>` +
	`<a:fontScheme name="Office">` +
	`<a:majorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
	`</a:fontScheme>` +
	`<a:fmtScheme name="Office">` +
	`<a:fillStyleLst>` + phFill + phFill + phFill + `</a:fillStyleLst>` +
	`<a:lnStyleLst>` + phLine + phLine + phLine + `</a:lnStyleLst>` +
	`<a:effectStyleLst>` + noEffect + noEffect + noEffect + `</a:effectStyleLst>` +
	`<a:bgFillStyleLst>` + phFill + phFill + phFill + `</a:bgFillStyleLst>` +
	`</a:fmtScheme></a:themeElements><a:objectDefaults/><a:extraClrSchemeLst/></a:theme>`

const (
	phFill   = `<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>`
	phLine   = `<a:ln w="9525"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>`
	noEffect = `<a:effectStyle><a:effectLst/></a:effectStyle>`
)
