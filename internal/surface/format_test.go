package surface

import (
	"archive/zip"
	"bytes"
	"reflect"
	"testing"
)

// buildEPUB writes a small two-level EPUB with its package document under
// OEBPS/ and the NCX in OEBPS/nav/, so NCX hrefs need rewriting.
func buildEPUB(t *testing.T) []byte {
	t.Helper()

	files := []struct{ name, body string }{
		{"mimetype", "application/epub+zip"},
		{"META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`},
		{"OEBPS/content.opf", `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Test Book</dc:title>
    <dc:creator>A. Writer</dc:creator>
    <dc:language>en</dc:language>
    <dc:publisher>Leaf Press</dc:publisher>
  </metadata>
  <manifest>
    <item id="ncx" href="nav/toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="c1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="c2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="cover-image" href="images/cover.png" media-type="image/png"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="c1"/>
    <itemref idref="c2"/>
  </spine>
</package>`},
		{"OEBPS/nav/toc.ncx", `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="p1" playOrder="1">
      <navLabel><text>Part One</text></navLabel>
      <content src="../text/ch1.xhtml"/>
      <navPoint id="p2" playOrder="2">
        <navLabel><text>Chapter Two</text></navLabel>
        <content src="../text/ch2.xhtml#start"/>
      </navPoint>
    </navPoint>
  </navMap>
</ncx>`},
		{"OEBPS/text/ch1.xhtml", `<html><head><title>One</title><style>p { color: red }</style></head>
<body><h1>Chapter One</h1><p>alpha beta gamma delta epsilon</p><script>var x = 1;</script></body></html>`},
		{"OEBPS/text/ch2.xhtml", `<html><head><title>Two</title></head>
<body><p id="start">zeta eta theta</p></body></html>`},
		{"OEBPS/images/cover.png", "\x89PNG fake"},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("Create %s: %v", f.name, err)
		}
		if _, err := w.Write([]byte(f.body)); err != nil {
			t.Fatalf("Write %s: %v", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		file     File
		expected string
		wantErr  bool
	}{
		{"epub media type", File{Name: "book", MediaType: "application/epub+zip"}, "EPUB", false},
		{"media type with params", File{Name: "x", MediaType: "text/markdown; charset=utf-8"}, "Markdown", false},
		{"epub extension", File{Name: "Book.EPUB"}, "EPUB", false},
		{"markdown extension", File{Name: "notes.md"}, "Markdown", false},
		{"text extension", File{Name: "notes.txt"}, "Markdown", false},
		{"unknown", File{Name: "scan.pdf", MediaType: "application/pdf"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Lookup(tt.file)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Lookup() = %s, want error", f.Name())
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup() error: %v", err)
			}
			if f.Name() != tt.expected {
				t.Errorf("Lookup() = %s, want %s", f.Name(), tt.expected)
			}
		})
	}
}

func TestMediaTypeFor(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"book.epub", nil, "application/epub+zip"},
		{"book.md", nil, "text/markdown"},
		{"book", []byte("PK\x03\x04rest"), "application/epub+zip"},
		{"book", []byte("hello"), "text/plain"},
	}
	for _, tt := range tests {
		if got := MediaTypeFor(tt.name, tt.data); got != tt.expected {
			t.Errorf("MediaTypeFor(%q) = %q, want %q", tt.name, got, tt.expected)
		}
	}
}

func TestSupportedFormats(t *testing.T) {
	formats := SupportedFormats()
	if len(formats) < 2 {
		t.Errorf("SupportedFormats() = %v, want EPUB and Markdown", formats)
	}
}

func TestEPUBParse(t *testing.T) {
	book, sections, err := (&EPUBFormat{}).Parse(File{Name: "test.epub", Data: buildEPUB(t)})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if len(sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(sections))
	}
	if sections[0].Href != "text/ch1.xhtml" || sections[0].Title != "Chapter One" {
		t.Errorf("section 0 = %q %q", sections[0].Href, sections[0].Title)
	}
	if sections[1].Title != "Two" {
		t.Errorf("section 1 title = %q, want <title> fallback", sections[1].Title)
	}
	want := []string{"Chapter", "One", "alpha", "beta", "gamma", "delta", "epsilon"}
	if !reflect.DeepEqual(sections[0].Words, want) {
		t.Errorf("section 0 words = %v, want %v", sections[0].Words, want)
	}

	wantTOC := []TOCItem{{
		Label: "Part One",
		Href:  "text/ch1.xhtml",
		Subitems: []TOCItem{
			{Label: "Chapter Two", Href: "text/ch2.xhtml#start"},
		},
	}}
	if !reflect.DeepEqual(book.TOC, wantTOC) {
		t.Errorf("TOC = %+v, want %+v", book.TOC, wantTOC)
	}

	if book.Metadata.Title != "The Test Book" {
		t.Errorf("Title = %q", book.Metadata.Title)
	}
	if !reflect.DeepEqual(book.Metadata.Authors, []string{"A. Writer"}) {
		t.Errorf("Authors = %v", book.Metadata.Authors)
	}

	data, mt, err := book.Cover()
	if err != nil {
		t.Fatalf("Cover() error: %v", err)
	}
	if mt != "image/png" || !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("Cover() = %q, %q", data, mt)
	}
}

func TestEPUBParseInvalid(t *testing.T) {
	if _, _, err := (&EPUBFormat{}).Parse(File{Name: "bad.epub", Data: []byte("not a zip")}); err == nil {
		t.Error("Parse() of garbage should fail")
	}
}

func TestResolveHref(t *testing.T) {
	tests := []struct {
		src, ncxDir, pkgDir string
		expected            string
	}{
		{"ch1.xhtml", "OEBPS", "OEBPS", "ch1.xhtml"},
		{"../text/ch1.xhtml#a", "OEBPS/nav", "OEBPS", "text/ch1.xhtml#a"},
		{"ch1.xhtml", ".", ".", "ch1.xhtml"},
		{"#only", "OEBPS", "OEBPS", "#only"},
	}
	for _, tt := range tests {
		if got := resolveHref(tt.src, tt.ncxDir, tt.pkgDir); got != tt.expected {
			t.Errorf("resolveHref(%q, %q, %q) = %q, want %q", tt.src, tt.ncxDir, tt.pkgDir, got, tt.expected)
		}
	}
}

func TestMarkdownParse(t *testing.T) {
	src := `Opening words here.

# Leaf Guide

Intro text.

## Install ##

Run it.

### Details

More.

` + "```" + `
# not a heading
` + "```" + `

## Install

Again.

# Appendix
`
	book, sections, err := (&MarkdownFormat{}).Parse(File{Name: "guide.md", Data: []byte(src)})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	var hrefs []string
	for _, s := range sections {
		hrefs = append(hrefs, s.Href)
	}
	wantHrefs := []string{"start", "leaf-guide", "install", "details", "install-1", "appendix"}
	if !reflect.DeepEqual(hrefs, wantHrefs) {
		t.Errorf("section hrefs = %v, want %v", hrefs, wantHrefs)
	}

	wantTOC := []TOCItem{
		{Label: "Leaf Guide", Href: "leaf-guide", Subitems: []TOCItem{
			{Label: "Install", Href: "install", Subitems: []TOCItem{
				{Label: "Details", Href: "details"},
			}},
			{Label: "Install", Href: "install-1"},
		}},
		{Label: "Appendix", Href: "appendix"},
	}
	if !reflect.DeepEqual(book.TOC, wantTOC) {
		t.Errorf("TOC = %+v\nwant %+v", book.TOC, wantTOC)
	}
	if book.Metadata.Title != "Leaf Guide" {
		t.Errorf("Title = %q", book.Metadata.Title)
	}
	if _, _, err := book.Cover(); err != ErrNoCover {
		t.Errorf("Cover() error = %v, want ErrNoCover", err)
	}
}

func TestMarkdownPlainText(t *testing.T) {
	book, sections, err := (&MarkdownFormat{}).Parse(File{Name: "notes.txt", Data: []byte("just some words")})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(sections) != 1 || len(sections[0].Words) != 3 {
		t.Errorf("sections = %+v", sections)
	}
	if book.Metadata.Title != "notes" || book.TOC != nil {
		t.Errorf("book = %+v", book)
	}
}

func TestMarkdownHeadingShallowerThanFirst(t *testing.T) {
	book, _, err := (&MarkdownFormat{}).Parse(File{Name: "x.md", Data: []byte("## A\n### B\n# C\n")})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	want := []TOCItem{
		{Label: "A", Href: "a", Subitems: []TOCItem{{Label: "B", Href: "b"}}},
		{Label: "C", Href: "c"},
	}
	if !reflect.DeepEqual(book.TOC, want) {
		t.Errorf("TOC = %+v, want %+v", book.TOC, want)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, expected string }{
		{"Hello, World!", "hello-world"},
		{"  Chapter 1: The Start ", "chapter-1-the-start"},
		{"???", "section"},
		{"Ünïcode Títle", "ünïcode-títle"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.expected {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
