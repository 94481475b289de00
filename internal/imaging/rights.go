package imaging

import (
	"bytes"
	"strings"

	"github.com/bep/imagemeta"
)

// Rights is the ownership information embedded in an image file.
// It is advisory: it is shown next to the copyright verdict, never in place of it.
type Rights struct {
	Copyright    string `json:"copyright,omitempty"`
	Artist       string `json:"artist,omitempty"`
	Credit       string `json:"credit,omitempty"`
	Source       string `json:"source,omitempty"`
	Byline       string `json:"byline,omitempty"`
	Creator      string `json:"creator,omitempty"`
	License      string `json:"license,omitempty"`
	UsageTerms   string `json:"usage_terms,omitempty"`
	WebStatement string `json:"web_statement,omitempty"`
	Marked       bool   `json:"marked,omitempty"`
}

var stockAgencies = []string{
	"shutterstock",
	"getty images",
	"gettyimages",
	"istock",
	"alamy",
	"depositphotos",
	"dreamstime",
	"123rf",
	"adobe stock",
	"adobestock",
	"bigstock",
	"stocksy",
	"pond5",
	"freepik",
	"vectorstock",
}

// StockAgency returns the first known stock agency named in the rights fields.
func (r *Rights) StockAgency() string {
	if r == nil {
		return ""
	}
	for _, field := range []string{r.Copyright, r.Artist, r.Credit, r.Source, r.Byline, r.Creator, r.WebStatement} {
		lower := strings.ToLower(field)
		if lower == "" {
			continue
		}
		for _, agency := range stockAgencies {
			if strings.Contains(lower, agency) {
				return agency
			}
		}
	}
	return ""
}

// Claimed reports whether the file asserts an owner or a usage restriction.
func (r *Rights) Claimed() bool {
	if r == nil {
		return false
	}
	return r.Marked || r.Copyright != "" || r.UsageTerms != "" || r.StockAgency() != ""
}

var wantedTags = map[imagemeta.Source]map[string]bool{
	imagemeta.EXIF: {"Copyright": true, "Artist": true},
	imagemeta.IPTC: {"CopyrightNotice": true, "Credit": true, "Byline": true, "Source": true},
	imagemeta.XMP: {
		"Rights": true, "Creator": true, "License": true,
		"UsageTerms": true, "WebStatement": true, "Marked": true,
	},
}

// metadataFormats lists the sniffed types imagemeta can read. GIF carries no
// EXIF/IPTC/XMP blocks it understands.
var metadataFormats = map[string]imagemeta.ImageFormat{
	"image/jpeg": imagemeta.JPEG,
	"image/png":  imagemeta.PNG,
	"image/webp": imagemeta.WebP,
}

// ExtractRights reads EXIF, IPTC and XMP ownership tags from an image of the
// given MIME type. It returns nil when the file carries none, the type has no
// metadata support, or the file cannot be parsed.
func ExtractRights(data []byte, mimeType string) *Rights {
	format, ok := metadataFormats[mimeType]
	if !ok || len(data) == 0 {
		return nil
	}

	rights := &Rights{}
	found := false
	// Decode errors are ignored: tags read before a damaged segment still count.
	_, _ = imagemeta.Decode(imagemeta.Options{
		R:           bytes.NewReader(data),
		ImageFormat: format,
		Sources:     imagemeta.EXIF | imagemeta.IPTC | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return wantedTags[ti.Source][ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			if rights.set(ti) {
				found = true
			}
			return nil
		},
	})
	if !found {
		return nil
	}
	return rights
}

func (r *Rights) set(ti imagemeta.TagInfo) bool {
	if ti.Tag == "Marked" {
		switch v := ti.Value.(type) {
		case bool:
			r.Marked = v
		case string:
			r.Marked = strings.EqualFold(strings.TrimSpace(v), "true")
		default:
			return false
		}
		return r.Marked
	}

	s := strings.TrimSpace(tagValueString(ti.Value))
	if s == "" {
		return false
	}
	switch ti.Tag {
	case "Copyright", "CopyrightNotice":
		r.Copyright = s
	case "Artist":
		r.Artist = s
	case "Credit":
		r.Credit = s
	case "Byline":
		r.Byline = s
	case "Source":
		r.Source = s
	case "Rights":
		if r.Copyright == "" {
			r.Copyright = s
		}
	case "Creator":
		r.Creator = s
	case "License":
		r.License = s
	case "UsageTerms":
		r.UsageTerms = s
	case "WebStatement":
		r.WebStatement = s
	default:
		return false
	}
	return true
}

// tagValueString flattens XMP list values to their first entry.
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
