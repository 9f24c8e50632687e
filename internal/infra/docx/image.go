package docx

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"strings"

	"github.com/beevik/etree"

	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
)

const (
	emuPerInch  = 914400
	emuPerPoint = 12700

	relsNS     = "http://schemas.openxmlformats.org/package/2006/relationships"
	relImage   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	pngContent = "image/png"
)

// InlineImage renders as a w:drawing run when printed inside a w:t.
type InlineImage struct {
	RelID string
	ID    int
	Name  string
	CX    int64
	CY    int64
}

// String closes the surrounding run, emits the drawing, and reopens a run
// so the rest of the template text stays valid.
func (i InlineImage) String() string {
	var b strings.Builder
	b.WriteString(`</w:t></w:r><w:r><w:drawing>`)
	fmt.Fprintf(&b, `<wp:inline distT="0" distB="0" distL="0" distR="0" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">`)
	fmt.Fprintf(&b, `<wp:extent cx="%d" cy="%d"/>`, i.CX, i.CY)
	fmt.Fprintf(&b, `<wp:docPr id="%d" name="%s"/>`, i.ID, i.Name)
	b.WriteString(`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`)
	b.WriteString(`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`)
	b.WriteString(`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`)
	fmt.Fprintf(&b, `<pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`, i.ID, i.Name)
	fmt.Fprintf(&b, `<pic:blipFill><a:blip r:embed="%s" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`, i.RelID)
	fmt.Fprintf(&b, `<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`, i.CX, i.CY)
	b.WriteString(`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r><w:r><w:t xml:space="preserve">`)
	return b.String()
}

// AddImage copies img into word/media and returns the InlineImage for the context.
func (t *Template) AddImage(img reports.NormalizedImage) (any, error) {
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	w, h := img.Width, img.Height
	if w <= 0 || h <= 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		w, h = cfg.Width, cfg.Height
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image %s has no pixels", img.Path)
	}

	n := t.nextImage
	media := fmt.Sprintf("word/media/report_image_%d.png", n)
	for {
		if _, taken := t.pkg.Part(media); !taken {
			break
		}
		n++
		media = fmt.Sprintf("word/media/report_image_%d.png", n)
	}
	t.nextImage = n + 1
	t.pkg.SetPart(media, data)

	relID := fmt.Sprintf("rIdRpt%d", n)
	rel := t.rels.Root().CreateElement("Relationship")
	rel.CreateAttr("Id", relID)
	rel.CreateAttr("Type", relImage)
	rel.CreateAttr("Target", strings.TrimPrefix(media, "word/"))

	if err := ensurePNGContentType(t.pkg); err != nil {
		return nil, err
	}

	cx := int64(img.WidthInches * emuPerInch)
	return InlineImage{
		RelID: relID,
		ID:    10000 + n,
		Name:  fmt.Sprintf("Screenshot %d", n),
		CX:    cx,
		CY:    cx * int64(h) / int64(w),
	}, nil
}

func loadRels(pkg *Package) (*etree.Document, error) {
	doc := etree.NewDocument()
	raw, ok := pkg.Part(partDocumentRels)
	if !ok {
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
		root := doc.CreateElement("Relationships")
		root.CreateAttr("xmlns", relsNS)
		return doc, nil
	}
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("parse relationships: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("parse relationships: empty document")
	}
	return doc, nil
}

func ensurePNGContentType(pkg *Package) error {
	raw, ok := pkg.Part(partContentTypes)
	if !ok {
		return fmt.Errorf("missing %s", partContentTypes)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return fmt.Errorf("parse content types: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("parse content types: empty document")
	}
	for _, d := range root.SelectElements("Default") {
		if strings.EqualFold(d.SelectAttrValue("Extension", ""), "png") {
			return nil
		}
	}
	def := root.CreateElement("Default")
	def.CreateAttr("Extension", "png")
	def.CreateAttr("ContentType", pngContent)
	out, err := doc.WriteToBytes()
	if err != nil {
		return err
	}
	pkg.SetPart(partContentTypes, out)
	return nil
}
