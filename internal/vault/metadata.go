package vault

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/sha1n/mcp-vaultcloud-server/internal/text"
	"gopkg.in/yaml.v3"
)

// Metadata holds the tags and outgoing links of a note.
type Metadata struct {
	// Tags without the leading '#', in order of appearance, duplicates kept.
	Tags []string
	// Links are raw link targets without heading or block suffixes, one per
	// occurrence.
	Links []string
}

var (
	frontmatterPattern = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---[ \t]*(?:\r?\n|\z)`)

	// #tag preceded by start of text or whitespace. Tags may nest with '/'.
	inlineTagPattern = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}_/-]+)`)

	wikiLinkPattern     = regexp.MustCompile(`!?\[\[([^\]|#^\n]*)(?:[#^][^\]|\n]*)?(?:\|[^\]\n]*)?\]\]`)
	markdownLinkPattern = regexp.MustCompile(`!?\[[^\]\n]*\]\(<?([^)<>\s]+)>?(?:\s+"[^"]*")?\)`)
	schemePattern       = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
	numericTagPattern   = regexp.MustCompile(`^[\p{N}/_-]+$`)
	attachmentPattern   = regexp.MustCompile(`^\.[a-zA-Z][a-zA-Z0-9]{0,4}$`)
)

// frontmatter is the subset of note properties we read.
type frontmatter struct {
	Tags any `yaml:"tags"`
	Tag  any `yaml:"tag"`
}

// ExtractMetadata collects tags from the frontmatter and the note body, and
// link targets from wikilinks and relative markdown links. Code, comments and
// math are ignored.
func ExtractMetadata(content string) Metadata {
	var md Metadata

	if m := frontmatterPattern.FindStringSubmatch(content); m != nil {
		var fm frontmatter
		if err := yaml.Unmarshal([]byte(m[1]), &fm); err == nil {
			md.Tags = append(md.Tags, yamlTags(fm.Tags)...)
			md.Tags = append(md.Tags, yamlTags(fm.Tag)...)
		}
	}

	for _, m := range inlineTagPattern.FindAllStringSubmatch(text.StripMarkup(content), -1) {
		if tag := normalizeTag(m[1]); tag != "" {
			md.Tags = append(md.Tags, tag)
		}
	}

	body := text.StripLiterals(content)
	for _, m := range wikiLinkPattern.FindAllStringSubmatch(body, -1) {
		if target := normalizeLinkTarget(m[1]); target != "" {
			md.Links = append(md.Links, target)
		}
	}
	for _, m := range markdownLinkPattern.FindAllStringSubmatch(body, -1) {
		raw := m[1]
		if schemePattern.MatchString(raw) {
			continue
		}
		if decoded, err := url.PathUnescape(raw); err == nil {
			raw = decoded
		}
		if i := strings.IndexAny(raw, "#^"); i >= 0 {
			raw = raw[:i]
		}
		if target := normalizeLinkTarget(raw); target != "" {
			md.Links = append(md.Links, target)
		}
	}

	return md
}

// yamlTags accepts a YAML list or a comma/space separated string.
func yamlTags(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ' ' })
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	tags := make([]string, 0, len(raw))
	for _, r := range raw {
		if tag := normalizeTag(r); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// normalizeTag strips '#' and surrounding space. Purely numeric tags are not
// tags.
func normalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "#")
	tag = strings.Trim(tag, "/")
	if tag == "" || numericTagPattern.MatchString(tag) {
		return ""
	}
	return tag
}

// normalizeLinkTarget trims a link target. Targets with an extension other
// than .md point at attachments and are dropped.
func normalizeLinkTarget(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}
	if ext := strings.ToLower(path.Ext(target)); ext != ".md" && attachmentPattern.MatchString(ext) {
		return ""
	}
	return target
}
