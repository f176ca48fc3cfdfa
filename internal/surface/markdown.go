package surface

import (
	"bufio"
	"bytes"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// MarkdownFormat reads Markdown and plain text. Each ATX heading starts a
// section; text before the first heading is its own untitled section.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string { return "Markdown" }
func (f *MarkdownFormat) MediaTypes() []string {
	return []string{"text/markdown", "text/x-markdown", "text/plain"}
}
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown", ".txt"} }

// headerRegex matches markdown headers (# to ######)
var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+?)(?:\s+#+)?\s*$`)

type heading struct {
	level int
	label string
	href  string
}

func (f *MarkdownFormat) Parse(file File) (*Book, []Section, error) {
	var (
		sections []Section
		heads    []heading
		current  *Section
		title    string
		slugs    = map[string]int{}
		fenced   bool
	)

	flush := func() {
		if current != nil && (current.Title != "" || len(current.Words) > 0) {
			sections = append(sections, *current)
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(file.Data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			fenced = !fenced
		}

		if !fenced {
			if match := headerRegex.FindStringSubmatch(line); match != nil {
				flush()
				label := strings.TrimSpace(match[2])
				h := heading{level: len(match[1]), label: label, href: uniqueSlug(slugs, label)}
				heads = append(heads, h)
				if title == "" && h.level == 1 {
					title = label
				}
				current = &Section{Href: h.href, Title: label, Words: strings.Fields(label)}
				continue
			}
		}

		if current == nil {
			current = &Section{Href: uniqueSlug(slugs, "start")}
		}
		current.Words = append(current.Words, strings.Fields(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	flush()

	if len(sections) == 0 {
		sections = []Section{{Href: "start"}}
	}
	if title == "" {
		title = strings.TrimSuffix(path.Base(file.Name), path.Ext(file.Name))
	}

	var toc []TOCItem
	for i := 0; i < len(heads); {
		var part []TOCItem
		part, i = nest(heads, i)
		toc = append(toc, part...)
	}

	return &Book{
		TOC:      toc,
		Metadata: Metadata{Title: title, Extra: map[string]string{}},
	}, sections, nil
}

// nest builds the siblings starting at heads[i] and returns the index of the
// first heading shallower than them.
func nest(heads []heading, i int) ([]TOCItem, int) {
	level := heads[i].level
	var items []TOCItem
	for i < len(heads) && heads[i].level == level {
		item := TOCItem{Label: heads[i].label, Href: heads[i].href}
		i++
		for i < len(heads) && heads[i].level > level {
			var sub []TOCItem
			sub, i = nest(heads, i)
			item.Subitems = append(item.Subitems, sub...)
		}
		items = append(items, item)
	}
	return items, i
}

// slugify lowercases s and joins its letters and digits with dashes.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "section"
	}
	return b.String()
}

func uniqueSlug(seen map[string]int, label string) string {
	slug := slugify(label)
	n := seen[slug]
	seen[slug] = n + 1
	if n == 0 {
		return slug
	}
	return slug + "-" + strconv.Itoa(n)
}
