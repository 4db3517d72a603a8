package campaign

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"

	"localcity/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Rendered is a campaign ready for delivery.
type Rendered struct {
	Subject     string `json:"subject"`
	PreviewText string `json:"previewText"`
	HTML        string `json:"html"`
	Text        string `json:"text"`
}

// Theme values are trusted constants written into inline styles.
type designTheme struct {
	Accent     template.CSS
	Background template.CSS
	Font       template.CSS
	Radius     template.CSS
}

var themes = map[string]designTheme{
	models.DesignClassic: {Accent: "#1f4e79", Background: "#f5f1ea", Font: "Georgia, 'Times New Roman', serif", Radius: "4px"},
	models.DesignModern:  {Accent: "#0f766e", Background: "#f4f6f8", Font: "'Helvetica Neue', Arial, sans-serif", Radius: "12px"},
	models.DesignBold:    {Accent: "#c2410c", Background: "#111827", Font: "'Arial Black', Arial, sans-serif", Radius: "0"},
	models.DesignMinimal: {Accent: "#111111", Background: "#ffffff", Font: "Arial, sans-serif", Radius: "0"},
}

var layout = template.Must(template.New("campaign").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background:{{.Theme.Background}};font-family:{{.Theme.Font}};">
{{- if .PreviewText}}
<div style="display:none;max-height:0;overflow:hidden;">{{.PreviewText}}</div>
{{- end}}
<table role="presentation" width="100%" cellpadding="0" cellspacing="0">
<tr><td align="center" style="padding:24px 12px;">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="max-width:600px;background:#ffffff;border-radius:{{.Theme.Radius}};">
{{- if .HeroImageURL}}
<tr><td><img src="{{.HeroImageURL}}" alt="" width="600" style="display:block;width:100%;border-radius:{{.Theme.Radius}} {{.Theme.Radius}} 0 0;"></td></tr>
{{- end}}
<tr><td class="content" style="padding:32px;color:#1f2937;line-height:1.6;">
{{.Body}}
</td></tr>
{{- if and .CTALabel .CTAURL}}
<tr><td align="center" style="padding:0 32px 32px;">
<a href="{{.CTAURL}}" style="display:inline-block;padding:12px 28px;background:{{.Theme.Accent}};color:#ffffff;text-decoration:none;border-radius:{{.Theme.Radius}};">{{.CTALabel}}</a>
</td></tr>
{{- end}}
<tr><td style="padding:16px 32px;font-size:12px;color:#6b7280;border-top:1px solid #e5e7eb;">
You are receiving this email because you have an account with Local City Places.
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>
`))

type layoutData struct {
	models.CampaignDraft
	Theme designTheme
	Body  template.HTML
}

// markdownToHTML renders the campaign body. Raw HTML in the source is dropped.
func markdownToHTML(body string) []byte {
	md := markdown.NormalizeNewlines([]byte(body))
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse(md)
	opts := md_html.RendererOptions{
		Flags: md_html.CommonFlags | md_html.HrefTargetBlank | md_html.SkipHTML,
	}
	return markdown.Render(doc, md_html.NewRenderer(opts))
}

// Render turns a draft into the HTML email for its design plus a plain-text
// alternative.
func Render(d models.CampaignDraft) (Rendered, error) {
	theme, ok := themes[d.Design]
	if !ok {
		theme = themes[models.DesignClassic]
	}
	body := markdownToHTML(d.Body)

	var buf bytes.Buffer
	data := layoutData{CampaignDraft: d, Theme: theme, Body: template.HTML(body)}
	if err := layout.Execute(&buf, data); err != nil {
		return Rendered{}, fmt.Errorf("render campaign layout: %w", err)
	}

	text, err := plainText(body)
	if err != nil {
		return Rendered{}, err
	}
	if d.CTALabel != "" && d.CTAURL != "" {
		text += fmt.Sprintf("\n\n%s: %s", d.CTALabel, d.CTAURL)
	}

	return Rendered{
		Subject:     d.Subject,
		PreviewText: d.PreviewText,
		HTML:        buf.String(),
		Text:        text,
	}, nil
}

// plainText extracts readable text from rendered markdown. Links keep their
// target in parentheses and list items get a dash.
func plainText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse rendered body: %w", err)
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		label := strings.TrimSpace(a.Text())
		out := href
		if label != "" && label != href {
			out = fmt.Sprintf("%s (%s)", label, href)
		}
		a.ReplaceWithHtml(html.EscapeString(out))
	})

	var blocks []string
	doc.Find("h1,h2,h3,h4,h5,h6,p,li,pre,blockquote").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("li,blockquote").Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if goquery.NodeName(s) == "pre" {
			text = strings.TrimRight(s.Text(), "\n")
		}
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "li":
			text = "- " + text
		case "blockquote":
			text = "> " + text
		}
		blocks = append(blocks, text)
	})
	return strings.Join(blocks, "\n\n"), nil
}
