package reports

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/disintegration/imaging"
	"github.com/mmdatafocus/estate_console/config"
)

var ErrPDFDependencyMissing = errors.New("pdf export dependency missing")

const pdfTimeout = 30 * time.Second

var pdfPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  @page { size: A4 landscape; margin: 12mm; }
  body { font-family: Helvetica, Arial, sans-serif; font-size: 10px; color: #222; }
  header { display: flex; align-items: center; gap: 12px; margin-bottom: 8px; }
  header img { height: 40px; }
  h1 { font-size: 16px; margin: 0; }
  .org { font-size: 11px; color: #555; }
  .context { margin: 4px 0 10px; color: #444; }
  table { width: 100%; border-collapse: collapse; }
  thead { display: table-header-group; }
  tr { page-break-inside: avoid; }
  th { background: #f0f0f0; text-align: left; }
  th, td { border: 1px solid #ccc; padding: 3px 5px; }
  footer { margin-top: 8px; color: #777; font-size: 9px; }
</style>
</head>
<body>
<header>
  {{if .Logo}}<img src="{{.Logo}}" alt="">{{end}}
  <div>
    <div class="org">{{.Organization}}</div>
    <h1>{{.Title}}</h1>
  </div>
</header>
{{if .Context}}<div class="context">{{.Context}}</div>{{end}}
<table>
  <thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
  <tbody>
  {{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
  {{end}}
  </tbody>
</table>
<footer>Generated {{.Generated}} · {{len .Rows}} rows</footer>
</body>
</html>`))

type pdfDocument struct {
	Table
	Organization string
	Generated    string
	Logo         template.URL
}

// RenderHTML produces the printable page handed to the browser.
func RenderHTML(t Table) (string, error) {
	doc := pdfDocument{
		Table:        t,
		Organization: config.OrganizationName(),
		Generated:    t.GeneratedAt.Format(config.DateLayout() + " 15:04"),
	}
	if logo, err := logoDataURL(config.ReportLogoPath()); err != nil {
		config.LogError(config.GetLogger(), "exportPDF.go", "RenderHTML", "loading report logo", config.ReportLogoPath(), err)
	} else {
		doc.Logo = logo
	}

	var buf bytes.Buffer
	if err := pdfPage.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// logoDataURL shrinks the logo to header height and inlines it as a PNG data URL.
func logoDataURL(path string) (template.URL, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	thumb := imaging.Resize(img, 0, 80, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return "", err
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// ExportPDF prints the table with headless Chrome. The table header repeats on
// every page and rows are never split across pages.
func ExportPDF(ctx context.Context, t Table) ([]byte, error) {
	if t.Empty() {
		return nil, ErrNothingToExport
	}
	browser, err := chromePath()
	if err != nil {
		return nil, err
	}
	html, err := RenderHTML(t)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, pdfTimeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(browser),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var pdfData []byte
	err = chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}
	return pdfData, nil
}

func chromePath() (string, error) {
	if p := strings.TrimSpace(os.Getenv("CHROME_PATH")); p != "" {
		return p, nil
	}
	for _, name := range []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: chromium not installed", ErrPDFDependencyMissing)
}
