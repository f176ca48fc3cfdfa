package surface

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	mediaTypeEPUB = "application/epub+zip"
	mediaTypeNCX  = "application/x-dtbncx+xml"
)

// EPUBFormat reads EPUB 2/3 containers.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) MediaTypes() []string { return []string{mediaTypeEPUB} }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }

// Parse reads the container, the first rootfile's spine and its NCX table of
// contents. Hrefs are relative to the package document.
func (f *EPUBFormat) Parse(file File) (*Book, []Section, error) {
	rd, err := epub.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open epub: %w", err)
	}
	if len(rd.Rootfiles) == 0 {
		return nil, nil, fmt.Errorf("no rootfiles found in epub")
	}
	root := rd.Rootfiles[0]

	var sections []Section
	for i, ref := range root.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		data, err := readItem(ref.Item)
		if err != nil {
			continue
		}
		title, text := extractSection(data)
		if title == "" {
			title = fmt.Sprintf("Section %d", i+1)
		}
		sections = append(sections, Section{
			Href:  ref.Item.HREF,
			Title: title,
			Words: strings.Fields(text),
		})
	}
	if len(sections) == 0 {
		return nil, nil, fmt.Errorf("epub has no readable spine items")
	}

	book := &Book{
		Metadata: epubMetadata(root),
		cover:    epubCover(root),
	}

	zr, err := zip.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	if err == nil {
		book.TOC = readNCX(zr, root)
	}
	if len(book.TOC) == 0 {
		for _, s := range sections {
			book.TOC = append(book.TOC, TOCItem{Label: s.Title, Href: s.Href})
		}
	}
	return book, sections, nil
}

func readItem(item *epub.Item) ([]byte, error) {
	r, err := item.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func epubMetadata(root *epub.Rootfile) Metadata {
	md := root.Metadata
	m := Metadata{
		Title:       strings.TrimSpace(md.Title),
		Language:    strings.TrimSpace(md.Language),
		Publisher:   strings.TrimSpace(md.Publisher),
		Description: strings.TrimSpace(md.Description),
		Identifier:  strings.TrimSpace(md.Identifier),
		Extra:       map[string]string{},
	}
	if c := strings.TrimSpace(md.Creator); c != "" {
		m.Authors = []string{c}
	}
	if s := strings.TrimSpace(md.Subject); s != "" {
		m.Extra["subject"] = s
	}
	if r := strings.TrimSpace(md.Rights); r != "" {
		m.Extra["rights"] = r
	}
	return m
}

// epubCover picks the manifest image whose id or href mentions "cover",
// falling back to the first image in the manifest.
func epubCover(root *epub.Rootfile) func() ([]byte, string, error) {
	var cover *epub.Item
	for i := range root.Manifest.Items {
		item := &root.Manifest.Items[i]
		if !strings.HasPrefix(item.MediaType, "image/") {
			continue
		}
		if strings.Contains(strings.ToLower(item.ID+item.HREF), "cover") {
			cover = item
			break
		}
		if cover == nil {
			cover = item
		}
	}
	if cover == nil {
		return nil
	}
	return func() ([]byte, string, error) {
		data, err := readItem(cover)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read cover %s: %w", cover.HREF, err)
		}
		return data, cover.MediaType, nil
	}
}

// extractSection returns the first heading (or <title>) and the visible text
// of an XHTML document.
func extractSection(data []byte) (string, string) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", ""
	}

	var title, heading string
	var out strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head:
				if n.DataAtom == atom.Head {
					title = findTitle(n)
				}
				return
			case atom.H1, atom.H2, atom.H3:
				if heading == "" {
					heading = strings.Join(strings.Fields(textOf(n)), " ")
				}
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out.WriteString(t)
				out.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if heading != "" {
		return heading, out.String()
	}
	return title, out.String()
}

func findTitle(head *html.Node) string {
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Title {
			return strings.TrimSpace(textOf(c))
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// NCX structures for toc.ncx
type ncx struct {
	NavMap struct {
		NavPoints []navPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type navPoint struct {
	Label struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []navPoint `xml:"navPoint"`
}

// readNCX parses the NCX named in the manifest (or any .ncx in the archive)
// into a TOC tree with hrefs rewritten relative to the package document.
func readNCX(zr *zip.Reader, root *epub.Rootfile) []TOCItem {
	pkgDir := path.Dir(root.FullPath)

	var ncxPath string
	for _, item := range root.Manifest.Items {
		if item.MediaType == mediaTypeNCX {
			ncxPath = path.Join(pkgDir, item.HREF)
			break
		}
	}

	var zf *zip.File
	for _, f := range zr.File {
		if ncxPath != "" && f.Name == ncxPath {
			zf = f
			break
		}
		if ncxPath == "" && strings.HasSuffix(strings.ToLower(f.Name), ".ncx") {
			zf = f
			break
		}
	}
	if zf == nil {
		return nil
	}

	rc, err := zf.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil
	}

	var doc ncx
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return navItems(doc.NavMap.NavPoints, path.Dir(zf.Name), pkgDir)
}

func navItems(points []navPoint, ncxDir, pkgDir string) []TOCItem {
	if len(points) == 0 {
		return nil
	}
	items := make([]TOCItem, 0, len(points))
	for _, np := range points {
		items = append(items, TOCItem{
			Label:    strings.Join(strings.Fields(np.Label.Text), " "),
			Href:     resolveHref(np.Content.Src, ncxDir, pkgDir),
			Subitems: navItems(np.Children, ncxDir, pkgDir),
		})
	}
	return items
}

// resolveHref rewrites src, relative to the NCX, to be relative to the
// package document, keeping any fragment.
func resolveHref(src, ncxDir, pkgDir string) string {
	doc, frag, hasFrag := strings.Cut(src, "#")
	if doc != "" {
		full := path.Join(ncxDir, doc)
		if pkgDir != "." && pkgDir != "" {
			full = strings.TrimPrefix(full, pkgDir+"/")
		}
		doc = full
	}
	if hasFrag {
		return doc + "#" + frag
	}
	return doc
}
