// Package enrich は食べログの店舗詳細ページから不足項目を補完する。
package enrich

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/infratech-maker/apclo-partner-crm/internal/normalize"
)

// Details 詳細ページから抽出した項目。空文字は「ページに存在しなかった」を表す。
type Details struct {
	Phone           string
	Transport       string
	BusinessHours   string
	ClosedDay       string
	OfficialAccount string
}

var phonePatternRe = regexp.MustCompile(`[\d\-\(\)]+`)

// ParseDetailPage 店舗情報テーブル(div#rst-data-head内のrstinfo-table)を
// th/tdのラベル対応で読み取る。対象外のラベルは無視する。
func ParseDetailPage(r io.Reader) (Details, error) {
	var details Details

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return details, err
	}

	doc.Find("div#rst-data-head table.rstinfo-table__table tr").Each(func(_ int, tr *goquery.Selection) {
		th := tr.Find("th").First()
		td := tr.Find("td").First()
		if th.Length() == 0 || td.Length() == 0 {
			return
		}

		label := strings.TrimSpace(th.Text())
		switch label {
		case "お問い合わせ", "予約・お問い合わせ":
			details.Phone = parsePhone(td)
		case "交通手段":
			details.Transport = strings.TrimSpace(td.Text())
		case "営業時間":
			details.BusinessHours = strings.TrimSpace(td.Text())
		case "定休日":
			details.ClosedDay = strings.TrimSpace(td.Text())
		case "公式アカウント":
			details.OfficialAccount = parseOfficialAccounts(td)
		}
	})

	return details, nil
}

// parsePhone tel:リンクを優先し、なければテキストから番号らしき並びを拾う
func parsePhone(td *goquery.Selection) string {
	var phone string
	td.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, "tel:") {
			phone = strings.TrimPrefix(href, "tel:")
			return false
		}
		return true
	})
	if phone == "" {
		text := strings.TrimSpace(td.Text())
		if m := phonePatternRe.FindString(text); m != "" {
			phone = m
		} else {
			phone = text
		}
	}
	return normalize.NormalizePhone(phone)
}

// parseOfficialAccounts リンクを「表示名: URL」形式で改行連結する
func parseOfficialAccounts(td *goquery.Selection) string {
	var accounts []string
	td.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		text := strings.TrimSpace(a.Text())
		accounts = append(accounts, text+": "+href)
	})
	return strings.Join(accounts, "\n")
}
