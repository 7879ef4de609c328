// Package normalize はスクレイピングで得た生テキストを正規形へ変換する純粋関数群。
// 外部依存なし。住所やカテゴリは自由記述のため、厳密な正しさではなく
// 観測済みの入力パターンに対するベストエフォートで設計している。
package normalize

import (
	"regexp"
	"strings"
)

var (
	nonPhoneRe     = regexp.MustCompile(`[^\d-]`)
	hyphenRunRe    = regexp.MustCompile(`-{2,}`)
	digitsOnlyRe   = regexp.MustCompile(`\D`)
	stationTailRe  = regexp.MustCompile(`\s*\S*駅\s*\d+m.*$`)
	categoryTailRe = regexp.MustCompile(`\s*/\s*[^/]*$`)
	cityRe         = regexp.MustCompile(`^(\S{1,20}?[市区町村])`)
	districtRe     = regexp.MustCompile(`^(\S{1,10}?郡\S{1,10}?[町村])`)
	accessLikeRe   = regexp.MustCompile(`駅\s*\d+m\s*/.*|m\s*/.*|徒歩`)
)

// NormalizePhone 電話番号の整形。
// 全角ハイフン類を半角に揃え、空白を除去し、数字とハイフン以外を落とす。
// 空入力は空文字を返す。
func NormalizePhone(raw string) string {
	if raw == "" {
		return ""
	}
	normalized := strings.NewReplacer(
		"－", "-",
		"ー", "-",
		"―", "-",
		"　", "",
		" ", "",
	).Replace(raw)
	normalized = nonPhoneRe.ReplaceAllString(normalized, "")
	normalized = hyphenRunRe.ReplaceAllString(normalized, "-")
	return strings.Trim(normalized, "-")
}

// NormalizeInternationalPhone 国際表記の電話番号を国内表記へ変換する。
// 数字のみ残し、先頭が81で11桁以上なら 0 始まりに置き換える。
func NormalizeInternationalPhone(raw string) string {
	digits := digitsOnlyRe.ReplaceAllString(raw, "")
	if strings.HasPrefix(digits, "81") && len(digits) > 10 {
		return "0" + digits[2:]
	}
	return digits
}

// ExtractCity 自由記述の住所から市区町村名を抽出する。
// 先頭の都道府県名、末尾の「○○駅 313m」や「/ カテゴリ」断片を除去した後、
// 市/区/町/村 で終わる最初の連続文字列を取る。見つからなければ郡+町村で再試行。
// 抽出できない場合は空文字を返す。
func ExtractCity(address string, prefectures []string) string {
	s := strings.TrimSpace(address)
	if s == "" {
		return ""
	}

	for _, pref := range prefectures {
		if pref == "" {
			continue
		}
		if strings.HasPrefix(s, pref) {
			s = s[len(pref):]
			// 短縮名(東京)で渡された場合は続く 都/道/府/県 も落とす
			for _, suffix := range []string{"都", "道", "府", "県"} {
				if strings.HasPrefix(s, suffix) {
					s = s[len(suffix):]
					break
				}
			}
			break
		}
	}

	s = stationTailRe.ReplaceAllString(s, "")
	s = categoryTailRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	if m := cityRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if m := districtRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// ExtractCategoryNames カテゴリ欄の生文字列から個別カテゴリを取り出す。
// 「あびこ駅 313m / カフェ、スイーツ」のように距離情報と混在するため、
// 最後の「/」以降を取り、読点とカンマで分割する。
func ExtractCategoryNames(raw string) []string {
	s := raw
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.ReplaceAll(s, "、", ",")

	var names []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}

// IsAccessLikeAddress 住所欄に駅距離や徒歩案内が紛れ込んでいるかどうか
func IsAccessLikeAddress(address string) bool {
	return accessLikeRe.MatchString(address)
}

// LooksLikeFranchise 店名からフランチャイズらしさを判定する簡易ロジック。
// 「本店」は除外。「支店」「号店」「チェーン」を含むか、末尾が「店」なら候補。
func LooksLikeFranchise(name string) bool {
	if name == "" {
		return false
	}
	if strings.Contains(name, "本店") {
		return false
	}
	for _, kw := range []string{"支店", "号店", "チェーン"} {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return strings.HasSuffix(name, "店")
}
