// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/toughchat/tough/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *model.Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}

	theme := e.theme()
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(conv.Title))
	sb.WriteString("    <meta name=\"generator\" content=\"tough\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", conv.Created().Format(time.RFC3339))
	sb.WriteString(pageCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", theme)
	sb.WriteString("<div class=\"container\">\n")

	fmt.Fprintf(&sb, "<header>\n<h1>%s</h1>\n", html.EscapeString(conv.Title))
	if e.options.IncludeMetadata {
		fmt.Fprintf(&sb, "<p class=\"meta\">Created %s &middot; %d messages</p>\n",
			formatTimestamp(conv.Created()), len(conv.Messages))
	}
	sb.WriteString("</header>\n")

	sb.WriteString("<main>\n")
	for _, msg := range conv.Messages {
		e.renderMessage(&sb, msg, theme)
	}
	sb.WriteString("</main>\n")

	fmt.Fprintf(&sb, "<footer>Exported from <strong>tough</strong> on %s</footer>\n", footerDate())
	sb.WriteString("</div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

func (e *HTMLExporter) theme() string {
	if e.options.Theme == "light" {
		return "light"
	}
	return "dark"
}

// =============================================================================
// RENDERING
// =============================================================================

func (e *HTMLExporter) renderMessage(sb *strings.Builder, msg model.Message, theme string) {
	fmt.Fprintf(sb, "<section class=\"message %s\">\n", html.EscapeString(strings.ToLower(string(msg.Role))))
	fmt.Fprintf(sb, "<div class=\"role\">%s</div>\n", html.EscapeString(roleLabel(msg.Role)))
	sb.WriteString("<div class=\"content\">\n")
	sb.WriteString(formatContent(msg.Content, theme))
	sb.WriteString("</div>\n</section>\n")
}

var (
	codeBlockRegex  = regexp.MustCompile("(?s)```([A-Za-z0-9_+#.-]*)[^\n]*\n(.*?)```")
	inlineCodeRegex = regexp.MustCompile("`([^`\n]+)`")
)

// formatContent renders message text as paragraphs and fenced code as
// highlighted blocks. Everything outside code blocks is escaped here;
// code is escaped by the chroma formatter.
func formatContent(content, theme string) string {
	var sb strings.Builder

	last := 0
	for _, m := range codeBlockRegex.FindAllStringSubmatchIndex(content, -1) {
		sb.WriteString(formatText(content[last:m[0]]))
		lang := content[m[2]:m[3]]
		code := content[m[4]:m[5]]
		sb.WriteString(codeBlock(code, lang, theme))
		last = m[1]
	}
	sb.WriteString(formatText(content[last:]))

	return sb.String()
}

// formatText turns blank-line separated text into <p> elements.
func formatText(text string) string {
	var sb strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		escaped := html.EscapeString(para)
		escaped = inlineCodeRegex.ReplaceAllString(escaped, "<code>${1}</code>")
		escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
		fmt.Fprintf(&sb, "<p>%s</p>\n", escaped)
	}
	return sb.String()
}

// codeBlock highlights code with chroma. Unknown languages are guessed from
// the code; if highlighting fails the code is emitted escaped and plain.
func codeBlock(code, lang, theme string) string {
	var sb strings.Builder
	sb.WriteString("<div class=\"code-block\">")
	if lang != "" {
		fmt.Fprintf(&sb, "<div class=\"code-lang\">%s</div>", html.EscapeString(lang))
	}

	highlighted, err := highlightCode(code, lang, theme)
	if err != nil {
		fmt.Fprintf(&sb, "<pre><code>%s</code></pre>", html.EscapeString(code))
	} else {
		sb.WriteString(highlighted)
	}
	sb.WriteString("</div>\n")
	return sb.String()
}

func highlightCode(code, lang, theme string) (string, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if theme == "light" {
		styleName = "github"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	formatter := chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4))
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const pageCSS = `    <style>
        * { box-sizing: border-box; }
        body { margin: 0; font: 15px/1.6 -apple-system, "Segoe UI", Roboto, sans-serif; }
        .dark-theme { background: #1e1f22; color: #dcdcdc; }
        .light-theme { background: #fafafa; color: #222; }
        .container { max-width: 860px; margin: 0 auto; padding: 24px; }
        header h1 { margin-bottom: 4px; }
        .meta { opacity: 0.7; margin-top: 0; }
        .message { border-radius: 8px; padding: 12px 16px; margin: 16px 0; }
        .dark-theme .user { background: #2b3545; }
        .dark-theme .assistant { background: #2a2c30; }
        .light-theme .user { background: #e6eefb; }
        .light-theme .assistant { background: #ffffff; border: 1px solid #e2e2e2; }
        .system { font-style: italic; opacity: 0.8; }
        .role { font-weight: 600; margin-bottom: 6px; }
        .content p { margin: 0 0 10px; }
        .content code { font-family: "JetBrains Mono", Menlo, Consolas, monospace; }
        .code-block { margin: 10px 0; border-radius: 6px; overflow: hidden; }
        .code-block pre { margin: 0; padding: 12px; overflow-x: auto; }
        .code-lang { font-size: 12px; padding: 2px 12px; opacity: 0.7; }
        footer { margin-top: 32px; font-size: 13px; opacity: 0.6; text-align: center; }
    </style>
`
